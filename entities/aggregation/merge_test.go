package aggregation

import (
	"testing"
	"time"

	"console/schemas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadAt(id, status string, ts time.Time) schemas.Lead {
	return schemas.Lead{ID: id, Status: status, LastUpdated: ts}
}

func viewIDs(view schemas.MergedView) []string {
	ids := []string{}
	for _, entry := range view.Entries {
		ids = append(ids, entry.Lead.ID)
	}
	return ids
}

func TestViewOrderedByLastUpdatedDesc(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	agg := NewAggregator()
	agg.Fold("pa", []schemas.Lead{leadAt("a1", schemas.LEAD_STATUS_NEW, base.Add(100*time.Second))})
	agg.Fold("pb", []schemas.Lead{leadAt("b1", schemas.LEAD_STATUS_NEW, base.Add(200*time.Second))})
	agg.Fold("pc", []schemas.Lead{leadAt("c1", schemas.LEAD_STATUS_NEW, base.Add(150*time.Second))})

	view := agg.View(Filter{})
	require.Equal(t, []string{"b1", "c1", "a1"}, viewIDs(view))

	// a1 atualizado salta para o topo; os outros mantêm a ordem relativa.
	agg.Fold("pa", []schemas.Lead{leadAt("a1", schemas.LEAD_STATUS_CONTACTED, base.Add(250*time.Second))})
	view = agg.View(Filter{})
	require.Equal(t, []string{"a1", "b1", "c1"}, viewIDs(view))
}

func TestViewTieBreakIsDeterministic(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	agg := NewAggregator()
	agg.Fold("pb", []schemas.Lead{leadAt("x2", schemas.LEAD_STATUS_NEW, ts)})
	agg.Fold("pa", []schemas.Lead{
		leadAt("x9", schemas.LEAD_STATUS_NEW, ts),
		leadAt("x1", schemas.LEAD_STATUS_NEW, ts),
	})

	view := agg.View(Filter{})
	require.Len(t, view.Entries, 3)
	assert.Equal(t, "pa", view.Entries[0].PartnerID)
	assert.Equal(t, "x1", view.Entries[0].Lead.ID)
	assert.Equal(t, "pa", view.Entries[1].PartnerID)
	assert.Equal(t, "x9", view.Entries[1].Lead.ID)
	assert.Equal(t, "pb", view.Entries[2].PartnerID)
}

func TestFoldCollapsesDuplicateIDs(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	agg := NewAggregator()
	agg.Fold("pa", []schemas.Lead{
		leadAt("dup", schemas.LEAD_STATUS_NEW, base),
		leadAt("dup", schemas.LEAD_STATUS_QUALIFIED, base.Add(time.Minute)),
	})

	view := agg.View(Filter{})
	require.Len(t, view.Entries, 1)
	assert.Equal(t, schemas.LEAD_STATUS_QUALIFIED, view.Entries[0].Lead.Status)
	assert.Equal(t, "pa", view.Entries[0].Lead.PartnerID)
}

func TestFilterAppliesAfterMerge(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	agg := NewAggregator()
	agg.Fold("pa", []schemas.Lead{
		leadAt("a1", schemas.LEAD_STATUS_NEW, base.Add(2*time.Minute)),
		leadAt("a2", schemas.LEAD_STATUS_DISCARDED, base.Add(3*time.Minute)),
	})
	agg.Fold("pb", []schemas.Lead{leadAt("b1", schemas.LEAD_STATUS_NEW, base.Add(time.Minute))})

	view := agg.View(Filter{Status: schemas.LEAD_STATUS_NEW})
	require.Equal(t, []string{"a1", "b1"}, viewIDs(view))
}

func TestDegradedPartnerKeepsLastRun(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	agg := NewAggregator()
	agg.Fold("pa", []schemas.Lead{leadAt("a1", schemas.LEAD_STATUS_NEW, base)})
	agg.SetDegraded("pa", true)

	view := agg.View(Filter{})
	require.Len(t, view.Entries, 1)
	assert.Equal(t, []string{"pa"}, view.Degraded)

	agg.SetDegraded("pa", false)
	view = agg.View(Filter{})
	assert.Empty(t, view.Degraded)
}

func TestRetainDropsPartnersOutOfScope(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	agg := NewAggregator()
	agg.Fold("pa", []schemas.Lead{leadAt("a1", schemas.LEAD_STATUS_NEW, base)})
	agg.Fold("pb", []schemas.Lead{leadAt("b1", schemas.LEAD_STATUS_NEW, base)})
	agg.SetDegraded("pb", true)

	agg.Retain(map[string]bool{"pa": true})

	view := agg.View(Filter{})
	require.Equal(t, []string{"a1"}, viewIDs(view))
	assert.Empty(t, view.Degraded)
}

package history

import (
	"context"
	"testing"
	"time"

	"console/schemas"
	"console/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func entry(partnerID string, from, to schemas.Tier, ts time.Time) schemas.SubscriptionHistoryEntry {
	return schemas.SubscriptionHistoryEntry{
		PartnerID: partnerID,
		FromTier:  from,
		ToTier:    to,
		ChangedBy: "admin@spacearena.net",
		Timestamp: ts,
	}
}

func TestQueryReturnsNewestFirst(t *testing.T) {
	mem := store.NewMemory()
	r := NewRecorder(mem, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := r.Record(ctx, entry("p1", schemas.TierNone, schemas.TierBasic, base))
	require.NoError(t, err)
	_, err = r.Record(ctx, entry("p1", schemas.TierBasic, schemas.TierProfessional, base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = r.Record(ctx, entry("p2", schemas.TierNone, schemas.TierEnterprise, base.Add(30*time.Minute)))
	require.NoError(t, err)

	entries, err := r.Query(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, schemas.TierProfessional, entries[0].ToTier)
	assert.Equal(t, "p2", entries[1].PartnerID)
	assert.Equal(t, schemas.TierBasic, entries[2].ToTier)
}

func TestQueryFiltersByPartner(t *testing.T) {
	mem := store.NewMemory()
	r := NewRecorder(mem, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := r.Record(ctx, entry("p1", schemas.TierNone, schemas.TierBasic, base))
	require.NoError(t, err)
	_, err = r.Record(ctx, entry("p2", schemas.TierNone, schemas.TierBasic, base))
	require.NoError(t, err)

	entries, err := r.Query(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p2", entries[0].PartnerID)
}

func TestQueryIsStableAcrossCalls(t *testing.T) {
	mem := store.NewMemory()
	r := NewRecorder(mem, zap.NewNop())
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Timestamps iguais de propósito: o desempate por id tem que segurar a
	// ordem entre consultas.
	for i := 0; i < 5; i++ {
		_, err := r.Record(ctx, entry("p1", schemas.TierBasic, schemas.TierProfessional, ts))
		require.NoError(t, err)
	}

	first, err := r.Query(ctx, "p1")
	require.NoError(t, err)
	second, err := r.Query(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecordKeepsReason(t *testing.T) {
	mem := store.NewMemory()
	r := NewRecorder(mem, zap.NewNop())
	ctx := context.Background()

	e := entry("p1", schemas.TierProfessional, schemas.TierBasic, time.Now())
	e.Reason = "inadimplência"
	id, err := r.Record(ctx, e)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entries, err := r.Query(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "inadimplência", entries[0].Reason)
	assert.Equal(t, id, entries[0].ID)
}

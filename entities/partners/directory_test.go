package partners

import (
	"context"
	"testing"
	"time"

	"console/database"
	"console/metrics"
	"console/schemas"
	"console/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDirectory(t *testing.T, mem *store.Memory, ttl time.Duration) *Directory {
	t.Helper()
	registry := StaticRegistry{
		{ID: "p1", DisplayName: "Parceiro Um", Active: true},
		{ID: "p2", DisplayName: "Parceiro Dois", Active: false},
	}
	met := metrics.NewWith(prometheus.NewRegistry())
	return NewDirectory(registry, mem, nil, ttl, zap.NewNop(), met)
}

func TestGetMergesRegistryAndSubscription(t *testing.T) {
	mem := store.NewMemory()
	mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{
		"tier":          "professional",
		"max_quota":     100,
		"current_usage": 30,
	})
	d := testDirectory(t, mem, time.Minute)

	partner, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Parceiro Um", partner.DisplayName)
	assert.True(t, partner.Active)
	assert.Equal(t, schemas.TierProfessional, partner.Tier)
	assert.Equal(t, 100, partner.MaxQuota)
	assert.Equal(t, 30, partner.CurrentUsage)
}

func TestGetDefaultsToTierNoneWithoutSubscription(t *testing.T) {
	mem := store.NewMemory()
	d := testDirectory(t, mem, time.Minute)

	partner, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierNone, partner.Tier)
	assert.Equal(t, 0, partner.MaxQuota)
}

func TestGetUnknownPartner(t *testing.T) {
	mem := store.NewMemory()
	d := testDirectory(t, mem, time.Minute)

	_, err := d.Get(context.Background(), "fantasma")
	require.ErrorIs(t, err, ErrPartnerUnknown)
}

func TestGetServesFromCacheWithinTTL(t *testing.T) {
	mem := store.NewMemory()
	mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{"tier": "basic"})
	d := testDirectory(t, mem, time.Minute)

	first, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, schemas.TierBasic, first.Tier)

	// Mudança por fora do fluxo de assinatura: dentro do TTL a leitura pode
	// sair do cache sem enxergar.
	mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{"tier": "enterprise"})

	cached, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierBasic, cached.Tier)
}

func TestInvalidateForcesFreshRead(t *testing.T) {
	mem := store.NewMemory()
	mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{"tier": "basic"})
	d := testDirectory(t, mem, time.Minute)

	_, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)

	mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{"tier": "enterprise"})
	d.Invalidate(context.Background(), "p1")

	fresh, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierEnterprise, fresh.Tier)
}

func TestExpiredEntryIsReloaded(t *testing.T) {
	mem := store.NewMemory()
	mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{"tier": "basic"})
	d := testDirectory(t, mem, time.Millisecond)

	_, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)

	mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{"tier": "enterprise"})
	time.Sleep(5 * time.Millisecond)

	fresh, err := d.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierEnterprise, fresh.Tier)
}

func TestListFiltersInactive(t *testing.T) {
	mem := store.NewMemory()
	d := testDirectory(t, mem, time.Minute)

	all, err := d.List(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := d.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "p1", active[0].ID)
}

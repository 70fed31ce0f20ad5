package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"console/database"
	"console/entities/history"
	"console/entities/partners"
	"console/metrics"
	"console/schemas"
	"console/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type machineFixture struct {
	mem       *store.Memory
	directory *partners.Directory
	recorder  *history.Recorder
	machine   *StateMachine
}

func newFixture(t *testing.T) *machineFixture {
	t.Helper()

	mem := store.NewMemory()
	registry := partners.StaticRegistry{
		{ID: "p1", DisplayName: "Parceiro Um", Active: true},
	}
	met := metrics.NewWith(prometheus.NewRegistry())
	log := zap.NewNop()
	directory := partners.NewDirectory(registry, mem, nil, time.Minute, log, met)
	recorder := history.NewRecorder(mem, log)

	return &machineFixture{
		mem:       mem,
		directory: directory,
		recorder:  recorder,
		machine:   NewStateMachine(mem, directory, recorder, log, met),
	}
}

func (f *machineFixture) seedPartner(tier schemas.Tier, maxQuota, usage int) {
	f.mem.Put(database.COLLECTION_PARTNERS, "p1", store.Document{
		"tier":          string(tier),
		"max_quota":     maxQuota,
		"current_usage": usage,
		"last_updated":  time.Now(),
	})
}

func TestUpgradeDoesNotRequireConfirmation(t *testing.T) {
	f := newFixture(t)
	f.seedPartner(schemas.TierProfessional, 100, 40)
	ctx := context.Background()

	req, err := f.machine.RequestChange(ctx, "p1", schemas.TierEnterprise)
	require.NoError(t, err)
	assert.False(t, req.RequiresConfirmation)
	assert.Equal(t, schemas.TierProfessional, req.FromTier)

	result, err := f.machine.Execute(ctx, req, "admin@spacearena.net", "")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierEnterprise, result.Partner.Tier)
	assert.Equal(t, 500, result.Partner.MaxQuota)
	assert.Equal(t, 40, result.Partner.CurrentUsage)
	assert.Empty(t, result.Warning)

	// A invalidação é síncrona: a leitura seguinte já vê o tier novo.
	partner, err := f.directory.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierEnterprise, partner.Tier)
}

func TestDowngradeRequiresExplicitConfirmation(t *testing.T) {
	f := newFixture(t)
	f.seedPartner(schemas.TierProfessional, 100, 40)
	ctx := context.Background()

	req, err := f.machine.RequestChange(ctx, "p1", schemas.TierBasic)
	require.NoError(t, err)
	assert.True(t, req.RequiresConfirmation)

	_, err = f.machine.Execute(ctx, req, "admin@spacearena.net", "")
	require.ErrorIs(t, err, ErrConfirmationRequired)

	// Sem confirmação nada muda, nem histórico.
	partner, err := f.directory.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierProfessional, partner.Tier)
	entries, err := f.recorder.Query(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	confirmed := f.machine.Confirm(req)
	result, err := f.machine.Execute(ctx, confirmed, "admin@spacearena.net", "pedido do parceiro")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierBasic, result.Partner.Tier)

	entries, err = f.recorder.Query(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, schemas.TierProfessional, entries[0].FromTier)
	assert.Equal(t, schemas.TierBasic, entries[0].ToTier)
	assert.Equal(t, "admin@spacearena.net", entries[0].ChangedBy)
	assert.Equal(t, "pedido do parceiro", entries[0].Reason)
}

func TestQuotaNeverShrinksOnDowngrade(t *testing.T) {
	f := newFixture(t)
	f.seedPartner(schemas.TierEnterprise, 800, 600)
	ctx := context.Background()

	req, err := f.machine.RequestChange(ctx, "p1", schemas.TierBasic)
	require.NoError(t, err)
	require.True(t, req.RequiresConfirmation)

	result, err := f.machine.Execute(ctx, f.machine.Confirm(req), "admin@spacearena.net", "")
	require.NoError(t, err)

	// Cota negociada acima do padrão do tier novo fica como está; o uso
	// nunca é cortado.
	assert.Equal(t, 800, result.Partner.MaxQuota)
	assert.Equal(t, 600, result.Partner.CurrentUsage)
	assert.False(t, result.Partner.OverQuota())
}

func TestExecuteRejectsStaleRequest(t *testing.T) {
	f := newFixture(t)
	f.seedPartner(schemas.TierProfessional, 100, 40)
	ctx := context.Background()

	req, err := f.machine.RequestChange(ctx, "p1", schemas.TierEnterprise)
	require.NoError(t, err)

	// Outro administrador trocou o tier entre o request e o execute.
	f.seedPartner(schemas.TierBasic, 100, 40)
	f.directory.Invalidate(ctx, "p1")

	_, err = f.machine.Execute(ctx, req, "admin@spacearena.net", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestRequestChangeRejectsSameTierAndUnknownTier(t *testing.T) {
	f := newFixture(t)
	f.seedPartner(schemas.TierBasic, 50, 10)
	ctx := context.Background()

	_, err := f.machine.RequestChange(ctx, "p1", schemas.TierBasic)
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.machine.RequestChange(ctx, "p1", schemas.Tier("ouro"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.machine.RequestChange(ctx, "p2", schemas.TierBasic)
	require.ErrorIs(t, err, partners.ErrPartnerUnknown)
}

func TestFirstSubscriptionStartsFromNone(t *testing.T) {
	f := newFixture(t)
	// Parceiro sem documento de assinatura: tier none implícito.
	ctx := context.Background()

	req, err := f.machine.RequestChange(ctx, "p1", schemas.TierBasic)
	require.NoError(t, err)
	assert.Equal(t, schemas.TierNone, req.FromTier)
	assert.False(t, req.RequiresConfirmation)

	result, err := f.machine.Execute(ctx, req, "admin@spacearena.net", "")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierBasic, result.Partner.Tier)
	assert.Equal(t, 50, result.Partner.MaxQuota)
}

func TestHistoryFailureBecomesWarning(t *testing.T) {
	f := newFixture(t)
	f.seedPartner(schemas.TierBasic, 50, 10)
	ctx := context.Background()

	f.mem.FailWrite(database.COLLECTION_SUBSCRIPTION_HISTORY, errors.New("histórico fora do ar"))

	req, err := f.machine.RequestChange(ctx, "p1", schemas.TierProfessional)
	require.NoError(t, err)

	result, err := f.machine.Execute(ctx, req, "admin@spacearena.net", "")
	require.NoError(t, err)

	// A troca vale mesmo sem histórico; a falha vira aviso, não erro.
	assert.Equal(t, schemas.TierProfessional, result.Partner.Tier)
	assert.NotEmpty(t, result.Warning)

	partner, err := f.directory.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierProfessional, partner.Tier)
}

func TestExecuteKeepsUsageWrittenInBetween(t *testing.T) {
	f := newFixture(t)
	f.seedPartner(schemas.TierBasic, 50, 10)
	ctx := context.Background()

	req, err := f.machine.RequestChange(ctx, "p1", schemas.TierProfessional)
	require.NoError(t, err)

	// O app do parceiro consome cota entre o request e o execute, com o
	// diretório ainda servindo a leitura antiga do cache. A troca de tier
	// não pode rebobinar o uso para o valor lido.
	f.seedPartner(schemas.TierBasic, 50, 49)

	result, err := f.machine.Execute(ctx, req, "admin@spacearena.net", "")
	require.NoError(t, err)
	assert.Equal(t, schemas.TierProfessional, result.Partner.Tier)

	doc, err := f.mem.GetOne(ctx, store.JoinPath(database.COLLECTION_PARTNERS, "p1"))
	require.NoError(t, err)
	assert.Equal(t, "professional", doc.String("tier"))
	assert.Equal(t, 100, doc.Int("max_quota"))
	assert.Equal(t, 49, doc.Int("current_usage"))
}

func TestTierTables(t *testing.T) {
	assert.Equal(t, 0, TierPrice(schemas.TierNone))
	assert.Equal(t, 180, TierPrice(schemas.TierBasic))
	assert.Equal(t, 299, TierPrice(schemas.TierProfessional))
	assert.Equal(t, 499, TierPrice(schemas.TierEnterprise))

	assert.Equal(t, 10, TierQuota(schemas.TierNone))
	assert.Equal(t, 50, TierQuota(schemas.TierBasic))
	assert.Equal(t, 100, TierQuota(schemas.TierProfessional))
	assert.Equal(t, 500, TierQuota(schemas.TierEnterprise))
}

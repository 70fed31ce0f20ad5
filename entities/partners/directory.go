package partners

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"console/database"
	"console/metrics"
	"console/schemas"
	"console/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrPartnerUnknown = errors.New("parceiro não encontrado no cadastro")

const redisKeyPrefix = "console:partner:"

type cacheEntry struct {
	partner   schemas.Partner
	timestamp time.Time
}

// Directory é o cache read-through do diretório de parceiros: mapa local com
// TTL na frente do Redis, na frente das fontes (cadastro legado + documento
// de assinatura no store). Leitores toleram dado com idade de até um TTL;
// quem escreve assinatura invalida na hora via Invalidate.
type Directory struct {
	registry Registry
	docs     store.Store
	rdb      *redis.Client
	ttl      time.Duration
	log      *zap.Logger
	met      *metrics.Metrics

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewDirectory(registry Registry, docs store.Store, rdb *redis.Client, ttl time.Duration, log *zap.Logger, met *metrics.Metrics) *Directory {
	return &Directory{
		registry: registry,
		docs:     docs,
		rdb:      rdb,
		ttl:      ttl,
		log:      log,
		met:      met,
		cache:    make(map[string]cacheEntry),
	}
}

func (d *Directory) fromLocal(partnerID string) (schemas.Partner, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.cache[partnerID]
	if !ok || time.Since(entry.timestamp) > d.ttl {
		return schemas.Partner{}, false
	}
	return entry.partner, true
}

func (d *Directory) storeLocal(partner schemas.Partner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[partner.ID] = cacheEntry{partner: partner, timestamp: time.Now()}
}

func (d *Directory) fromRedis(ctx context.Context, partnerID string) (schemas.Partner, bool) {
	if d.rdb == nil {
		return schemas.Partner{}, false
	}

	raw, err := d.rdb.Get(ctx, redisKeyPrefix+partnerID).Result()
	if err != nil {
		if err != redis.Nil {
			d.log.Warn("leitura do cache Redis falhou", zap.Error(err))
		}
		return schemas.Partner{}, false
	}

	partner := schemas.Partner{}
	if err := json.Unmarshal([]byte(raw), &partner); err != nil {
		return schemas.Partner{}, false
	}
	return partner, true
}

func (d *Directory) storeRedis(ctx context.Context, partner schemas.Partner) {
	if d.rdb == nil {
		return
	}
	raw, err := json.Marshal(partner)
	if err != nil {
		return
	}
	if err := d.rdb.Set(ctx, redisKeyPrefix+partner.ID, raw, d.ttl).Err(); err != nil {
		d.log.Warn("escrita no cache Redis falhou", zap.Error(err))
	}
}

// load monta o parceiro a partir das fontes: identidade do cadastro legado,
// assinatura do documento no store. Parceiro sem documento de assinatura
// ainda não assinou nada: tier none.
func (d *Directory) load(ctx context.Context, row RegistryRow) (schemas.Partner, error) {
	partner := schemas.Partner{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		Active:      row.Active,
		Tier:        schemas.TierNone,
	}

	doc, err := d.docs.GetOne(ctx, store.JoinPath(database.COLLECTION_PARTNERS, row.ID))
	if errors.Is(err, store.ErrNotFound) {
		return partner, nil
	}
	if err != nil {
		return schemas.Partner{}, err
	}

	partner.Tier = schemas.Tier(doc.String("tier"))
	partner.MaxQuota = doc.Int("max_quota")
	partner.CurrentUsage = doc.Int("current_usage")
	partner.UpdatedAt = doc.Time("updated_at")
	return partner, nil
}

func (d *Directory) Get(ctx context.Context, partnerID string) (schemas.Partner, error) {
	if partner, ok := d.fromLocal(partnerID); ok {
		d.met.DirectoryCacheHits.Inc()
		return partner, nil
	}
	if partner, ok := d.fromRedis(ctx, partnerID); ok {
		d.met.DirectoryCacheHits.Inc()
		d.storeLocal(partner)
		return partner, nil
	}
	d.met.DirectoryCacheMisses.Inc()

	row, err := d.registry.Get(ctx, partnerID)
	if err != nil {
		return schemas.Partner{}, err
	}

	partner, err := d.load(ctx, row)
	if err != nil {
		return schemas.Partner{}, err
	}

	d.storeLocal(partner)
	d.storeRedis(ctx, partner)
	return partner, nil
}

func (d *Directory) List(ctx context.Context, activeOnly bool) ([]schemas.Partner, error) {
	rows, err := d.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	result := []schemas.Partner{}
	for _, row := range rows {
		if activeOnly && !row.Active {
			continue
		}
		partner, err := d.Get(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, partner)
	}
	return result, nil
}

// Invalidate descarta o parceiro dos dois níveis de cache. Chamada síncrona
// pelo executor de assinatura, antes de devolver ao cliente, para que
// nenhuma leitura veja tier velho além de um ciclo de refresh.
func (d *Directory) Invalidate(ctx context.Context, partnerID string) {
	d.mu.Lock()
	delete(d.cache, partnerID)
	d.mu.Unlock()

	if d.rdb != nil {
		if err := d.rdb.Del(ctx, redisKeyPrefix+partnerID).Err(); err != nil {
			d.log.Warn("invalidação no Redis falhou",
				zap.String("partner_id", partnerID), zap.Error(err))
		}
	}
}

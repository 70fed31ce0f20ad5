package aggregation

import (
	"context"

	"console/config"
	"console/entities/partners"
	"console/metrics"
	"console/store"

	"go.uber.org/zap"
)

// Service cria multiplexers para as sessões do console. Cada sessão de
// admin tem escopo próprio, então cada conexão ganha o seu multiplexer.
type Service struct {
	store     store.Store
	directory *partners.Directory
	cfg       config.AggregationConfig
	log       *zap.Logger
	met       *metrics.Metrics
}

func NewService(st store.Store, directory *partners.Directory, cfg config.AggregationConfig, log *zap.Logger, met *metrics.Metrics) *Service {
	return &Service{store: st, directory: directory, cfg: cfg, log: log, met: met}
}

func (s *Service) NewMultiplexer() *Multiplexer {
	return NewMultiplexer(s.store, s.cfg, s.log, s.met)
}

// resolveScope troca escopo vazio por "todos os parceiros ativos".
func (s *Service) resolveScope(ctx context.Context, partnerIDs []string) ([]string, error) {
	if len(partnerIDs) > 0 {
		return partnerIDs, nil
	}

	all, err := s.directory.List(ctx, true)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for _, partner := range all {
		ids = append(ids, partner.ID)
	}
	return ids, nil
}

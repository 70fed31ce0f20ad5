package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"console/database"
	"console/entities/history"
	"console/entities/partners"
	"console/metrics"
	"console/schemas"
	"console/store"
	"console/utils"

	"go.uber.org/zap"
)

var (
	// ErrConfirmationRequired sinaliza downgrade sem confirmação explícita.
	ErrConfirmationRequired = errors.New("downgrade exige confirmação explícita")

	ErrValidation = errors.New("requisição de troca de tier inválida")
)

// StateMachine efetiva trocas de tier em duas fases: RequestChange monta a
// requisição (sem mutação alguma) e Execute aplica a transição com escrita
// guardada contra modificação concorrente. Requisições são efêmeras: nada é
// persistido entre as fases, e Execute revalida tudo contra o estado vivo.
type StateMachine struct {
	store     store.Store
	directory *partners.Directory
	recorder  *history.Recorder
	log       *zap.Logger
	met       *metrics.Metrics
}

func NewStateMachine(st store.Store, directory *partners.Directory, recorder *history.Recorder, log *zap.Logger, met *metrics.Metrics) *StateMachine {
	return &StateMachine{
		store:     st,
		directory: directory,
		recorder:  recorder,
		log:       log,
		met:       met,
	}
}

// RequestChange monta a requisição de troca a partir do estado atual do
// parceiro. Não muda nada: só informa se a transição é um downgrade e,
// portanto, se vai exigir confirmação no Execute.
func (s *StateMachine) RequestChange(ctx context.Context, partnerID string, toTier schemas.Tier) (schemas.TierChangeRequest, error) {
	if _, err := utils.ParseTier(string(toTier)); err != nil {
		return schemas.TierChangeRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	partner, err := s.directory.Get(ctx, partnerID)
	if err != nil {
		return schemas.TierChangeRequest{}, err
	}

	if partner.Tier == toTier {
		return schemas.TierChangeRequest{}, fmt.Errorf("%w: parceiro já está no tier %s", ErrValidation, toTier)
	}

	return schemas.TierChangeRequest{
		PartnerID:            partnerID,
		FromTier:             partner.Tier,
		ToTier:               toTier,
		RequiresConfirmation: utils.IsDowngrade(partner.Tier, toTier),
	}, nil
}

// Confirm marca a requisição como confirmada pelo administrador. A cópia
// devolvida é a única coisa que muda; a decisão final continua no Execute.
func (s *StateMachine) Confirm(req schemas.TierChangeRequest) schemas.TierChangeRequest {
	req.Confirmed = true
	return req
}

// Execute aplica a transição. A escrita em partners/<id> leva um guard no
// tier de origem: se outro administrador trocou o tier entre o request e o
// execute, o guard não casa e a troca volta como conflito em vez de
// sobrescrever a mudança do outro.
func (s *StateMachine) Execute(ctx context.Context, req schemas.TierChangeRequest, changedBy string, reason string) (schemas.TierChangeResult, error) {
	if _, err := utils.ParseTier(string(req.ToTier)); err != nil {
		return schemas.TierChangeResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.FromTier == req.ToTier {
		return schemas.TierChangeResult{}, fmt.Errorf("%w: parceiro já está no tier %s", ErrValidation, req.ToTier)
	}
	if req.RequiresConfirmation && !req.Confirmed {
		return schemas.TierChangeResult{}, ErrConfirmationRequired
	}

	partner, err := s.directory.Get(ctx, req.PartnerID)
	if err != nil {
		return schemas.TierChangeResult{}, err
	}
	if partner.Tier != req.FromTier {
		return schemas.TierChangeResult{}, fmt.Errorf("%w: tier atual é %s, requisição partia de %s", ErrValidation, partner.Tier, req.FromTier)
	}
	// A requisição é recalculada aqui: se o estado vivo transformou a troca
	// num downgrade que a requisição original não previa, exige confirmação
	// do mesmo jeito.
	if utils.IsDowngrade(partner.Tier, req.ToTier) && !req.Confirmed {
		return schemas.TierChangeResult{}, ErrConfirmationRequired
	}

	// Cota nunca encolhe: o parceiro fica com o maior valor entre a cota que
	// já tinha e a cota padrão do tier de destino. Uso acima da cota nova é
	// reportado via OverQuota, nunca cortado.
	newQuota := max(partner.MaxQuota, TierQuota(req.ToTier))
	now := time.Now()

	updated := partner
	updated.Tier = req.ToTier
	updated.MaxQuota = newQuota
	updated.UpdatedAt = now

	// Escrita parcial de propósito: current_usage é do app do parceiro, que
	// pode ter consumido cota entre a leitura acima e esta escrita. Só os
	// campos da assinatura entram no payload; o resto do documento fica
	// como está.
	write := store.Write{
		Path: store.JoinPath(database.COLLECTION_PARTNERS, partner.ID),
		Payload: store.Document{
			"tier":         string(updated.Tier),
			"max_quota":    updated.MaxQuota,
			"updated_at":   now,
			"last_updated": now,
		},
		Upsert: true,
		Merge:  true,
		Guard:  store.Document{"tier": string(req.FromTier)},
	}

	if err := s.store.WriteAtomic(ctx, []store.Write{write}); err != nil {
		if errors.Is(err, store.ErrWriteConflict) {
			s.log.Warn("troca de tier perdeu corrida com outra modificação",
				zap.String("partner_id", partner.ID),
				zap.String("from_tier", string(req.FromTier)),
				zap.String("to_tier", string(req.ToTier)))
		}
		return schemas.TierChangeResult{}, err
	}

	// Invalidação síncrona: a próxima leitura do diretório já enxerga o tier
	// novo, antes mesmo da resposta voltar ao administrador.
	s.directory.Invalidate(ctx, partner.ID)
	s.met.TierChanges.WithLabelValues(string(req.ToTier)).Inc()

	result := schemas.TierChangeResult{Partner: updated}

	entry := schemas.SubscriptionHistoryEntry{
		PartnerID: partner.ID,
		FromTier:  req.FromTier,
		ToTier:    req.ToTier,
		ChangedBy: changedBy,
		Reason:    reason,
		Timestamp: now,
	}
	if _, err := s.recorder.Record(ctx, entry); err != nil {
		s.log.Error("troca aplicada mas registro de histórico falhou",
			zap.String("partner_id", partner.ID),
			zap.Error(err))
		result.Warning = "troca de tier aplicada, mas o registro no histórico falhou"
	}

	return result, nil
}

package notifications

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"console/config"
	"console/database"
	"console/entities/partners"
	"console/metrics"
	"console/schemas"
	"console/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrValidation cobre requisição malformada: sem título, kind desconhecido
// ou conjunto de alvos vazio. Falha antes de qualquer I/O.
var ErrValidation = errors.New("requisição de envio inválida")

const failedTimeout = "timeout"

// Dispatcher faz o fan-out de notificações. Por parceiro, a tripla atômica:
// (a) documento de notificação na partição, (b) mensagem referenciando a
// notificação, (c) registro no audit log global — tudo com o mesmo id
// gerado. Parceiros são independentes: sucesso parcial é resultado normal,
// reportado por parceiro, nunca exceção.
type Dispatcher struct {
	store     store.Store
	directory *partners.Directory
	cfg       config.DispatchConfig
	log       *zap.Logger
	met       *metrics.Metrics
}

func NewDispatcher(st store.Store, directory *partners.Directory, cfg config.DispatchConfig, log *zap.Logger, met *metrics.Metrics) *Dispatcher {
	return &Dispatcher{store: st, directory: directory, cfg: cfg, log: log, met: met}
}

func validKind(kind string) bool {
	return kind == schemas.NOTIFICATION_KIND_ADMIN ||
		kind == schemas.NOTIFICATION_KIND_SYSTEM ||
		kind == schemas.NOTIFICATION_KIND_LEAD
}

func (d *Dispatcher) validate(req schemas.DispatchRequest) error {
	if req.Title == "" {
		return fmt.Errorf("%w: título vazio", ErrValidation)
	}
	if !validKind(req.Kind) {
		return fmt.Errorf("%w: kind desconhecido %q", ErrValidation, req.Kind)
	}
	if len(req.TargetPartnerIDs) == 0 {
		return fmt.Errorf("%w: nenhum parceiro alvo", ErrValidation)
	}
	return nil
}

// Dispatch devolve um resultado por parceiro pedido, sempre o mapa
// completo — mesmo em falha total. Entrega é no-máximo-uma-vez por
// chamada: reenviar é decisão explícita de quem chama e gera ids novos.
func (d *Dispatcher) Dispatch(ctx context.Context, req schemas.DispatchRequest, sentBy string) (map[string]schemas.DispatchOutcome, error) {
	if err := d.validate(req); err != nil {
		return nil, err
	}

	targets := slices.Clone(req.TargetPartnerIDs)
	slices.Sort(targets)
	targets = slices.Compact(targets)

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	// Todo alvo começa como failed(timeout); quem resolver a tempo
	// sobrescreve. Assim o mapa sai completo até quando o prazo estoura.
	mu := sync.Mutex{}
	outcomes := make(map[string]schemas.DispatchOutcome, len(targets))
	for _, partnerID := range targets {
		outcomes[partnerID] = schemas.DispatchOutcome{
			Status: schemas.DISPATCH_FAILED,
			Reason: failedTimeout,
		}
	}

	parallelism := d.cfg.MaxParallelism
	if len(targets) < parallelism {
		parallelism = len(targets)
	}
	sem := make(chan struct{}, parallelism)

	wg := sync.WaitGroup{}
	for _, partnerID := range targets {
		partnerID := partnerID
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			outcome := d.dispatchOne(ctx, req, partnerID, sentBy)
			mu.Lock()
			outcomes[partnerID] = outcome
			mu.Unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Estourou o prazo: escritas em voo terminam sozinhas (ou falham), mas
	// quem chamou não fica preso — o que não resolveu sai como
	// failed(timeout).
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	result := make(map[string]schemas.DispatchOutcome, len(outcomes))
	for partnerID, outcome := range outcomes {
		d.met.DispatchOutcomes.WithLabelValues(outcome.Status).Inc()
		result[partnerID] = outcome
	}
	return result, nil
}

func failed(reason string) schemas.DispatchOutcome {
	return schemas.DispatchOutcome{Status: schemas.DISPATCH_FAILED, Reason: reason}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, req schemas.DispatchRequest, partnerID, sentBy string) schemas.DispatchOutcome {
	if _, err := d.directory.Get(ctx, partnerID); err != nil {
		if errors.Is(err, partners.ErrPartnerUnknown) {
			return failed("parceiro desconhecido")
		}
		return failed(err.Error())
	}

	now := time.Now()
	notificationID := uuid.NewString()
	messageID := uuid.NewString()
	auditID := uuid.NewString()

	triple := []store.Write{
		{
			Path: store.JoinPath(database.PartnerNotificationsCollection(partnerID), notificationID),
			Payload: store.Document{
				"title":      req.Title,
				"body":       req.Body,
				"kind":       req.Kind,
				"sent_by":    sentBy,
				"created_at": now,
			},
		},
		{
			Path: store.JoinPath(database.PartnerMessagesCollection(partnerID), messageID),
			Payload: store.Document{
				"notification_id": notificationID,
				"partner_id":      partnerID,
				"title":           req.Title,
				"body":            req.Body,
				"read":            false,
				"created_at":      now,
			},
		},
		{
			Path: store.JoinPath(database.COLLECTION_ADMIN_AUDIT_LOG, auditID),
			Payload: store.Document{
				"notification_id": notificationID,
				"partner_id":      partnerID,
				"kind":            req.Kind,
				"title":           req.Title,
				"sent_by":         sentBy,
				"created_at":      now,
			},
		},
	}

	err := d.store.WriteAtomic(ctx, triple)
	if errors.Is(err, store.ErrWriteConflict) {
		// Uma repetição e só; depois disso a falha é reportada.
		err = d.store.WriteAtomic(ctx, triple)
	}
	if errors.Is(err, store.ErrAtomicUnsupported) {
		err = d.writeWithCompensation(ctx, triple)
	}
	if err != nil {
		// Prazo estourado reporta como timeout, igual aos alvos que nem
		// chegaram a rodar.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return failed(failedTimeout)
		}
		d.log.Warn("envio para parceiro falhou",
			zap.String("partner_id", partnerID), zap.Error(err))
		return failed(err.Error())
	}

	return schemas.DispatchOutcome{
		Status:         schemas.DISPATCH_DELIVERED,
		NotificationID: notificationID,
	}
}

// writeWithCompensation simula a tripla atômica quando o backend não tem
// transação: aplica em sequência e, se (b) ou (c) falhar, desfaz o que já
// entrou. O parceiro reporta failed; nunca fica estado meio-escrito
// visível.
func (d *Dispatcher) writeWithCompensation(ctx context.Context, triple []store.Write) error {
	applied := []string{}

	for _, w := range triple {
		if err := d.store.WriteAtomic(ctx, []store.Write{w}); err != nil {
			for i := len(applied) - 1; i >= 0; i-- {
				// Rollback é melhor-esforço com o store fora do ar; o log
				// fica para reconciliação manual.
				if delErr := d.store.Delete(context.WithoutCancel(ctx), applied[i]); delErr != nil {
					d.log.Error("rollback compensatório falhou",
						zap.String("path", applied[i]), zap.Error(delErr))
				}
			}
			return err
		}
		applied = append(applied, w.Path)
	}
	return nil
}

package aggregation

import (
	"context"
	"time"

	"console/database"
	"console/schemas"
	"console/store"

	"go.uber.org/zap"
)

// partnerStream é a assinatura viva de uma partição de leads. Uma goroutine
// por parceiro: assina, empurra snapshots para o loop de fold e, quando o
// stream cai, tenta de novo com backoff exponencial enquanto o parceiro
// estiver no escopo. O cancelamento do ctx encerra tudo, inclusive o timer
// de backoff.
type partnerStream struct {
	partnerID string
	cancel    context.CancelFunc
	done      chan struct{}
}

func leadFromDocument(partnerID string, doc store.Document) schemas.Lead {
	return schemas.Lead{
		ID:          doc.String("_id"),
		PartnerID:   partnerID,
		Name:        doc.String("name"),
		Phone:       doc.String("phone"),
		Status:      doc.String("status"),
		Source:      doc.String("source"),
		Notes:       doc.String("notes"),
		LastUpdated: doc.Time("last_updated"),
	}
}

func leadsFromSnapshot(partnerID string, snapshot store.Snapshot) []schemas.Lead {
	leads := make([]schemas.Lead, 0, len(snapshot))
	for _, doc := range snapshot {
		leads = append(leads, leadFromDocument(partnerID, doc))
	}
	return leads
}

func (m *Multiplexer) openStream(partnerID string) *partnerStream {
	ctx, cancel := context.WithCancel(m.ctx)
	ps := &partnerStream{
		partnerID: partnerID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.met.StreamsOpen.Inc()
	go func() {
		defer close(ps.done)
		defer m.met.StreamsOpen.Dec()
		m.runStream(ctx, partnerID)
	}()

	return ps
}

func (m *Multiplexer) runStream(ctx context.Context, partnerID string) {
	collection := database.PartnerLeadsCollection(partnerID)
	backoff := m.cfg.BackoffBase
	healthy := false

	for {
		if ctx.Err() != nil {
			return
		}

		ch, cancelSub, err := m.store.Subscribe(ctx, collection, store.Query{})
		if err != nil {
			healthy = false
			m.push(ctx, foldEvent{kind: evDegraded, partnerID: partnerID, cause: err})
			if !m.sleep(ctx, backoff) {
				return
			}
			backoff = m.nextBackoff(backoff)
			continue
		}

		open := true
		for open {
			select {
			case <-ctx.Done():
				cancelSub()
				return
			case snapshot, ok := <-ch:
				if !ok {
					open = false
					break
				}
				if !healthy {
					healthy = true
					backoff = m.cfg.BackoffBase
					m.push(ctx, foldEvent{kind: evRecovered, partnerID: partnerID})
				}
				m.push(ctx, foldEvent{
					kind:      evSnapshot,
					partnerID: partnerID,
					snapshot:  leadsFromSnapshot(partnerID, snapshot),
				})
			}
		}
		cancelSub()

		// O canal fechou sem cancelamento: o stream caiu do lado do banco.
		healthy = false
		m.log.Warn("stream do parceiro caiu, tentando de novo",
			zap.String("partner_id", partnerID), zap.Duration("backoff", backoff))
		m.push(ctx, foldEvent{kind: evDegraded, partnerID: partnerID})
		if !m.sleep(ctx, backoff) {
			return
		}
		backoff = m.nextBackoff(backoff)
	}
}

func (m *Multiplexer) nextBackoff(current time.Duration) time.Duration {
	next := current * time.Duration(m.cfg.BackoffFactor)
	if next > m.cfg.BackoffCap {
		next = m.cfg.BackoffCap
	}
	return next
}

// sleep espera o backoff, mas acorda na hora se o escopo/multiplexer for
// cancelado. Devolve false quando o ctx caiu.
func (m *Multiplexer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

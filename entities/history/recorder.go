package history

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"console/database"
	"console/schemas"
	"console/store"

	"go.uber.org/zap"
)

// Recorder escreve e consulta o histórico de assinaturas. Só-acréscimo: a
// superfície não tem update nem delete, e nenhuma entrada é alterada depois
// de escrita.
type Recorder struct {
	store store.Store
	log   *zap.Logger
}

func NewRecorder(st store.Store, log *zap.Logger) *Recorder {
	return &Recorder{store: st, log: log}
}

// Record insere a entrada e devolve o id gerado. Quem chama pode tratar
// como fire-and-forget, mas a escrita é aguardada aqui dentro.
func (r *Recorder) Record(ctx context.Context, entry schemas.SubscriptionHistoryEntry) (string, error) {
	payload := store.Document{
		"partner_id": entry.PartnerID,
		"from_tier":  string(entry.FromTier),
		"to_tier":    string(entry.ToTier),
		"changed_by": entry.ChangedBy,
		"timestamp":  entry.Timestamp,
		// convenção do store: todo documento carrega last_updated para a
		// ordenação das consultas.
		"last_updated": entry.Timestamp,
	}
	if entry.Reason != "" {
		payload["reason"] = entry.Reason
	}

	id, err := r.store.Append(ctx, database.COLLECTION_SUBSCRIPTION_HISTORY, payload)
	if err != nil {
		return "", fmt.Errorf("gravando histórico de assinatura: %w", err)
	}
	return id, nil
}

func entryFromDocument(doc store.Document) schemas.SubscriptionHistoryEntry {
	return schemas.SubscriptionHistoryEntry{
		ID:        doc.String("_id"),
		PartnerID: doc.String("partner_id"),
		FromTier:  schemas.Tier(doc.String("from_tier")),
		ToTier:    schemas.Tier(doc.String("to_tier")),
		ChangedBy: doc.String("changed_by"),
		Reason:    doc.String("reason"),
		Timestamp: doc.Time("timestamp"),
	}
}

// Query devolve as entradas da mais recente para a mais antiga, com ordem
// estável (timestamp decrescente, id decrescente no empate): duas chamadas
// sem escrita no meio devolvem exatamente a mesma sequência. partnerID
// vazio devolve o histórico de todos os parceiros.
func (r *Recorder) Query(ctx context.Context, partnerID string) ([]schemas.SubscriptionHistoryEntry, error) {
	ch, cancel, err := r.store.Subscribe(ctx, database.COLLECTION_SUBSCRIPTION_HISTORY, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("consultando histórico de assinatura: %w", err)
	}
	defer cancel()

	var snapshot store.Snapshot
	select {
	case snap, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("consultando histórico de assinatura: stream fechado")
		}
		snapshot = snap
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	entries := []schemas.SubscriptionHistoryEntry{}
	for _, doc := range snapshot {
		entry := entryFromDocument(doc)
		if partnerID != "" && entry.PartnerID != partnerID {
			continue
		}
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []schemas.SubscriptionHistoryEntry) {
	slices.SortStableFunc(entries, func(a, b schemas.SubscriptionHistoryEntry) int {
		if !a.Timestamp.Equal(b.Timestamp) {
			return b.Timestamp.Compare(a.Timestamp)
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

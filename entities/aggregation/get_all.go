package aggregation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"console/database"
	"console/store"
	"console/utils"
)

// GetAll devolve um snapshot único da visão consolidada, para clientes que
// não mantêm websocket. Mesmo caminho de merge da visão viva: uma leitura
// por parceiro, fold, filtro depois do merge.
func (s *Service) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), database.MONGO_TIMEOUT)
	defer cancel()

	query := r.URL.Query()

	var partnerIDs []string
	if raw := query.Get("partner_ids"); raw != "" {
		partnerIDs = strings.Split(raw, ",")
	}

	storeQuery := store.Query{}
	if after := query.Get("updated_after"); after != "" {
		if !utils.IsValidDate(after) {
			utils.SendResponse(w, http.StatusBadRequest, "Parâmetro updated_after inválido", nil, 0)
			return
		}
		parsed, err := time.Parse(time.RFC3339, after)
		if err != nil {
			parsed, _ = time.Parse("2006-01-02", after)
		}
		storeQuery.UpdatedAfter = parsed
	}

	scope, err := s.resolveScope(ctx, partnerIDs)
	if err != nil {
		utils.SendResponse(w, http.StatusInternalServerError, "", nil, utils.CANNOT_FIND_PARTNERS)
		return
	}

	agg := NewAggregator()
	for _, partnerID := range scope {
		collection := database.PartnerLeadsCollection(partnerID)
		ch, cancelSub, err := s.store.Subscribe(ctx, collection, storeQuery)
		if err != nil {
			agg.SetDegraded(partnerID, true)
			continue
		}

		select {
		case snapshot, ok := <-ch:
			if ok {
				agg.Fold(partnerID, leadsFromSnapshot(partnerID, snapshot))
			} else {
				agg.SetDegraded(partnerID, true)
			}
		case <-ctx.Done():
			cancelSub()
			utils.SendResponse(w, http.StatusGatewayTimeout, "", nil, utils.CANNOT_FIND_LEADS)
			return
		}
		cancelSub()
	}

	view := agg.View(Filter{Status: query.Get("status")})
	utils.SendResponse(w, http.StatusOK, "", view, 0)
}

package subscriptions

import (
	"encoding/json"
	"errors"
	"net/http"

	"console/entities/partners"
	"console/schemas"
	"console/utils"
)

type requestChangeBody struct {
	PartnerID string `json:"partner_id"`
	ToTier    string `json:"to_tier"`
}

func (s *StateMachine) RequestChangeHandler(w http.ResponseWriter, r *http.Request) {
	body := requestChangeBody{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendResponse(w, http.StatusBadRequest, "", nil, utils.CONSOLE_INVALID_REQUEST_DATA)
		return
	}
	if body.PartnerID == "" {
		utils.SendResponse(w, http.StatusBadRequest, "", nil, utils.INVALID_PARTNER_ID)
		return
	}

	req, err := s.RequestChange(r.Context(), body.PartnerID, schemas.Tier(body.ToTier))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			utils.SendResponse(w, http.StatusBadRequest, err.Error(), nil, 0)
		case errors.Is(err, partners.ErrPartnerUnknown):
			utils.SendResponse(w, http.StatusNotFound, "Parceiro não encontrado", nil, 0)
		default:
			utils.SendResponse(w, http.StatusInternalServerError, "", nil, utils.CANNOT_UPDATE_SUBSCRIPTION)
		}
		return
	}

	utils.SendResponse(w, http.StatusOK, "", req, 0)
}

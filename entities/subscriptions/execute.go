package subscriptions

import (
	"encoding/json"
	"errors"
	"net/http"

	"console/entities/partners"
	"console/middlewares"
	"console/schemas"
	"console/store"
	"console/utils"
)

type executeBody struct {
	Request schemas.TierChangeRequest `json:"request"`
	Reason  string                    `json:"reason,omitempty"`
}

func (s *StateMachine) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	body := executeBody{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendResponse(w, http.StatusBadRequest, "", nil, utils.CONSOLE_INVALID_REQUEST_DATA)
		return
	}
	if body.Request.PartnerID == "" {
		utils.SendResponse(w, http.StatusBadRequest, "", nil, utils.INVALID_PARTNER_ID)
		return
	}

	changedBy := "console"
	if admin, ok := r.Context().Value(middlewares.AdminContextKey).(schemas.AdminUser); ok {
		changedBy = admin.Email
	}

	result, err := s.Execute(r.Context(), body.Request, changedBy, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfirmationRequired):
			utils.SendResponse(w, http.StatusConflict, err.Error(), nil, 0)
		case errors.Is(err, ErrValidation):
			utils.SendResponse(w, http.StatusBadRequest, err.Error(), nil, 0)
		case errors.Is(err, store.ErrWriteConflict):
			utils.SendResponse(w, http.StatusConflict, "O parceiro foi modificado por outra operação. Refaça a requisição", nil, 0)
		case errors.Is(err, partners.ErrPartnerUnknown):
			utils.SendResponse(w, http.StatusNotFound, "Parceiro não encontrado", nil, 0)
		default:
			utils.SendResponse(w, http.StatusInternalServerError, "", nil, utils.CANNOT_UPDATE_SUBSCRIPTION)
		}
		return
	}

	utils.SendResponse(w, http.StatusOK, result.Warning, result, 0)
}

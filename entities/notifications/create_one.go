package notifications

import (
	"encoding/json"
	"errors"
	"net/http"

	"console/middlewares"
	"console/schemas"
	"console/utils"
)

func (d *Dispatcher) CreateOne(w http.ResponseWriter, r *http.Request) {
	req := schemas.DispatchRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendResponse(w, http.StatusBadRequest, "", nil, utils.CONSOLE_INVALID_REQUEST_DATA)
		return
	}

	sentBy := "console"
	if admin, ok := r.Context().Value(middlewares.AdminContextKey).(schemas.AdminUser); ok {
		sentBy = admin.Email
	}

	outcomes, err := d.Dispatch(r.Context(), req, sentBy)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			utils.SendResponse(w, http.StatusBadRequest, err.Error(), nil, 0)
			return
		}
		utils.SendResponse(w, http.StatusInternalServerError, "", nil, utils.CANNOT_DISPATCH_NOTIFICATION)
		return
	}

	utils.SendResponse(w, http.StatusOK, "", outcomes, 0)
}

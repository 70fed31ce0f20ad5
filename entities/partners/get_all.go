package partners

import (
	"context"
	"net/http"

	"console/database"
	"console/utils"
)

func (d *Directory) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), database.MONGO_TIMEOUT)
	defer cancel()

	activeOnly := r.URL.Query().Get("active") == "true"

	result, err := d.List(ctx, activeOnly)
	if err != nil {
		utils.SendResponse(w, http.StatusInternalServerError, "", nil, utils.CANNOT_FIND_PARTNERS)
		return
	}

	utils.SendResponse(w, http.StatusOK, "", result, 0)
}

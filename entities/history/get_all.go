package history

import (
	"context"
	"net/http"

	"console/database"
	"console/utils"
)

func (r *Recorder) GetAll(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), database.MONGO_TIMEOUT)
	defer cancel()

	entries, err := r.Query(ctx, req.URL.Query().Get("partner_id"))
	if err != nil {
		utils.SendResponse(w, http.StatusInternalServerError, "", nil, utils.CANNOT_FIND_HISTORY)
		return
	}

	utils.SendResponse(w, http.StatusOK, "", entries, 0)
}

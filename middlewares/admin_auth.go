package middlewares

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"

	"console/schemas"
	"console/utils"
)

type contextKey string

const AdminContextKey = contextKey("admin_user")

// AdminAuth delega a validação do token à API legada e exige o papel de
// administrador. O console não emite nem valida tokens por conta própria.
func AdminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			utils.SendResponse(w, http.StatusUnauthorized, "Token não informado", nil, 0)
			return
		}

		legacyURL := os.Getenv(utils.LEGACY_API_URL)
		if legacyURL == "" {
			legacyURL = "http://localhost:8000"
		}
		userURL := fmt.Sprintf("%s/api/user", legacyURL)

		req, err := http.NewRequestWithContext(r.Context(), "GET", userURL, nil)
		if err != nil {
			utils.SendResponse(w, http.StatusInternalServerError, "Erro ao criar requisição de autenticação", nil, 0)
			return
		}
		req.Header.Set("Authorization", token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			utils.SendResponse(w, http.StatusBadGateway, "Erro ao conectar na API de autenticação", nil, 0)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			utils.SendResponse(w, http.StatusUnauthorized, "Token inválido ou usuário não autenticado", nil, 0)
			return
		}

		admin := schemas.AdminUser{}
		err = json.NewDecoder(resp.Body).Decode(&admin)
		if err != nil || admin.ID == 0 || admin.Name == "" || admin.Email == "" {
			utils.SendResponse(w, http.StatusUnauthorized, "Usuário inválido retornado pela autenticação", nil, 0)
			return
		}

		if !slices.Contains(admin.Roles, "admin") {
			utils.SendResponse(w, http.StatusForbidden, "Usuário não possui papel de administrador", nil, 0)
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

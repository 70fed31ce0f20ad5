package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"console/schemas"
	"console/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authBackend(t *testing.T, status int, user schemas.AdminUser) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(user)
	}))
	t.Cleanup(srv.Close)
	t.Setenv(utils.LEGACY_API_URL, srv.URL)
}

func callProtected(t *testing.T, token string) (*httptest.ResponseRecorder, *schemas.AdminUser) {
	t.Helper()

	var got *schemas.AdminUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if admin, ok := r.Context().Value(AdminContextKey).(schemas.AdminUser); ok {
			got = &admin
		}
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/v1/ws/console", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	AdminAuth(next).ServeHTTP(rec, req)
	return rec, got
}

func TestAdminAuthRejectsMissingToken(t *testing.T) {
	authBackend(t, http.StatusOK, schemas.AdminUser{})

	rec, got := callProtected(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, got)
}

func TestAdminAuthRejectsInvalidToken(t *testing.T) {
	authBackend(t, http.StatusUnauthorized, schemas.AdminUser{})

	rec, got := callProtected(t, "Bearer quebrado")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, got)
}

func TestAdminAuthRejectsUserWithoutAdminRole(t *testing.T) {
	authBackend(t, http.StatusOK, schemas.AdminUser{
		ID: 7, Name: "Ana", Email: "ana@spacearena.net", Roles: []string{"vendedor"},
	})

	rec, got := callProtected(t, "Bearer valido")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, got)
}

func TestAdminAuthInjectsAdminIntoContext(t *testing.T) {
	authBackend(t, http.StatusOK, schemas.AdminUser{
		ID: 7, Name: "Ana", Email: "ana@spacearena.net", Roles: []string{"admin", "suporte"},
	})

	rec, got := callProtected(t, "Bearer valido")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "ana@spacearena.net", got.Email)
}

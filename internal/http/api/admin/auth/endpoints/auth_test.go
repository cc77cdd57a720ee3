package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db/memstore"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

const secret = "test-secret"

func newRouter(store *memstore.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api/admin"},
		AuthPublicModule(secret, []string{"Boss@Example.com"}, store))
	api.MountGroup(r, api.GroupConfig{Prefix: "/api/admin", Auth: true, SecretKey: secret, Users: store},
		AuthSessionModule(secret, store))
	api.MountGroup(r, api.GroupConfig{Prefix: "/api", Auth: true, SecretKey: secret, Users: store},
		UserModule(store))
	return r
}

func do(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, r *gin.Engine, email string) (string, string) {
	t.Helper()
	w := do(r, http.MethodPost, "/api/admin/auth/signup", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.Role
}

func TestSignupAssignsRoles(t *testing.T) {
	r := newRouter(memstore.New())

	token, role := signup(t, r, "boss@example.com")
	assert.Equal(t, model.RoleSuperAdmin, role)
	id, err := middleware.ParseToken(token, secret)
	require.NoError(t, err)
	assert.Positive(t, id)
	_, err = middleware.ParseToken(token, "other-secret")
	assert.Error(t, err)

	_, role = signup(t, r, "someone@example.com")
	assert.Equal(t, model.RoleEditor, role)

	w := do(r, http.MethodPost, "/api/admin/auth/signup", "", map[string]string{"email": "someone@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/admin/auth/signup", "", map[string]string{"email": "bad", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginAndProfile(t *testing.T) {
	r := newRouter(memstore.New())
	signup(t, r, "editor@example.com")

	w := do(r, http.MethodPost, "/api/admin/auth/login", "", map[string]string{"email": "editor@example.com", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/admin/auth/login", "", map[string]string{"email": "editor@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = do(r, http.MethodGet, "/api/admin/auth/current_profile", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"editor@example.com"`)
	assert.Contains(t, w.Body.String(), `"role":"editor"`)

	w = do(r, http.MethodPut, "/api/admin/auth/current_profile", login.Token, map[string]any{"email": "renamed@example.com", "name": "Ed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ed"`)

	w = do(r, http.MethodGet, "/api/admin/auth/current_profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleManagement(t *testing.T) {
	store := memstore.New()
	r := newRouter(store)
	boss, _ := signup(t, r, "boss@example.com")
	editor, _ := signup(t, r, "editor@example.com")
	signup(t, r, "other@example.com")

	target, err := store.GetUserByEmail("other@example.com")
	require.NoError(t, err)
	path := "/api/users/" + strconv.Itoa(target.ID) + "/role"

	w := do(r, http.MethodPatch, path, editor, map[string]string{"role": model.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPatch, path, boss, map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, path, boss, map[string]string{"role": model.RoleAdmin})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	w = do(r, http.MethodPatch, "/api/users/9999/role", boss, map[string]string{"role": model.RoleAdmin})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/users", boss, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 3)
}

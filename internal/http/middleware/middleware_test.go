package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

type users map[int]*model.User

func (u users) GetUserByID(id int) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func setupRouter(secret string, lookup UserLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTMiddleware(secret, lookup), func(c *gin.Context) {
		u, _ := GetCurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"email": u.Email})
	})
	r.GET("/admin", JWTMiddleware(secret, lookup), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	lookup := users{
		1: {ID: 1, Email: "editor@example.com", Role: model.RoleEditor},
		2: {ID: 2, Email: "admin@example.com", Role: model.RoleAdmin},
	}
	r := setupRouter("secret", lookup)

	editor, err := GenerateJWT(1, "secret")
	require.NoError(t, err)
	admin, err := GenerateJWT(2, "secret")
	require.NoError(t, err)
	forged, err := GenerateJWT(2, "other")
	require.NoError(t, err)
	ghost, err := GenerateJWT(3, "secret")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", forged).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", ghost).Code)

	w := get(r, "/me", editor)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "editor@example.com")

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", editor).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", admin).Code)

	valid := AdminTokenValidator("secret", lookup)
	assert.True(t, valid(admin))
	assert.False(t, valid(ghost))
	assert.False(t, valid("garbage"))
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestRoleForEmail(t *testing.T) {
	admins := []string{"Owner@Example.com", " ops@example.com "}

	assert.Equal(t, model.RoleSuperAdmin, RoleForEmail("owner@example.com", admins))
	assert.Equal(t, model.RoleSuperAdmin, RoleForEmail("ops@example.com", admins))
	assert.Equal(t, model.RoleEditor, RoleForEmail("someone@example.com", admins))
	assert.Equal(t, model.RoleEditor, RoleForEmail("owner@example.com", nil))
}

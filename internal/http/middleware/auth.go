package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

const currentUserKey = "currentUser"

var ErrInvalidCredentials = errors.New("invalid email or password")

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// RoleForEmail returns the role a new account gets: super_admin for the
// configured emails, editor for everybody else.
func RoleForEmail(email string, superAdmins []string) string {
	for _, e := range superAdmins {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return model.RoleSuperAdmin
		}
	}
	return model.RoleEditor
}

func setCurrentUser(c *gin.Context, user *model.User) {
	c.Set(currentUserKey, user)
}

// GetCurrentUser returns the user JWTMiddleware stored on the request.
func GetCurrentUser(c *gin.Context) (*model.User, bool) {
	u, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := u.(*model.User)
	return user, ok
}

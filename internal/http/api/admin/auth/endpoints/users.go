package endpoints

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/auth/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// UserModule mounts user management. Admins only.
func UserModule(store db.Store) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/users", func(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
			users, err := store.ListUsers()
			if err != nil {
				log.Error().Err(err).Msg("failed to list users")
				return nil, api.Internal("could not list users")
			}
			out := make([]packets.ProfileResponse, 0, len(users))
			for i := range users {
				out = append(out, profile(&users[i]))
			}
			return out, nil
		}, middleware.RequireAdmin())

		c.PATCH("/users/:id/role", func(ctx *gin.Context, user *model.User) (any, *api.APIError) {
			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return nil, api.BadRequest("invalid user id")
			}
			var request packets.UpdateRoleRequest
			if err := ctx.ShouldBindJSON(&request); err != nil {
				return nil, api.BadRequest(err.Error())
			}
			if !model.ValidRole(request.Role) {
				return nil, api.BadRequest("invalid role")
			}
			// only super admins hand out super admin
			if request.Role == model.RoleSuperAdmin && user.Role != model.RoleSuperAdmin {
				return nil, &api.APIError{Code: http.StatusForbidden, Message: "forbidden"}
			}
			if id == user.ID {
				return nil, api.BadRequest("cannot change your own role")
			}

			err = store.UpdateUserRole(id, request.Role)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, api.NotFound("user not found")
			}
			if err != nil {
				log.Error().Err(err).Int("user_id", id).Msg("failed to update role")
				return nil, api.Internal("could not update role")
			}
			updated, err := store.GetUserByID(id)
			if err != nil {
				return nil, api.Internal("could not fetch user")
			}
			log.Info().Int("user_id", id).Str("role", request.Role).Int("by", user.ID).Msg("role changed")
			return profile(updated), nil
		}, middleware.RequireAdmin())
	})
}

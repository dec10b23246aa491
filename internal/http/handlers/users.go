package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/domain/user"
	"github.com/eventgate/eventgate/internal/http/middlewares"
	"github.com/eventgate/eventgate/internal/security"
)

type UserAdminStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, fields user.UpdateFields) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	users UserAdminStore
}

func NewUsersHandler(users UserAdminStore) *UsersHandler {
	return &UsersHandler{users: users}
}

// List returns every account, sanitized. Admin-gated at the router.
func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, err := h.users.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": out,
		"count": len(out),
	})
}

func (h *UsersHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "user id must be a valid UUID", nil)
		return
	}

	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if !middlewares.OwnerOrAdmin(identity, id) {
		RespondForbidden(ctx, "You can only view your own account")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "user id must be a valid UUID", nil)
		return
	}

	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if !middlewares.OwnerOrAdmin(identity, id) {
		RespondForbidden(ctx, "You can only update your own account")
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// role changes are the one field ownership does not cover
	if req.Role != nil && !identity.Role.IsAdmin() {
		RespondForbidden(ctx, "Only an admin may change roles")
		return
	}

	fields := user.UpdateFields{
		Name:  req.Name,
		Email: req.Email,
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}
		fields.PasswordHash = &hash
	}

	if req.Role != nil {
		role := user.ParseRole(*req.Role)
		fields.Role = &role
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.Update(cctx, id, fields)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, toUserResponse(u))
}

// Delete removes an account and, through the store's cascade, all of its
// registrations. Admin-gated at the router.
func (h *UsersHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "user id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.users.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.Status(http.StatusNoContent)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventgate/eventgate/internal/auth"
	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/domain/user"
	"github.com/eventgate/eventgate/internal/http/middlewares"
	"github.com/eventgate/eventgate/internal/notifications"
	"github.com/eventgate/eventgate/internal/observability"
	"github.com/eventgate/eventgate/internal/security"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, email, passwordHash, name string, role user.Role) (user.User, error)
}

type TokenService interface {
	Issue(userID, email string, role user.Role) (string, error)
	Verify(token string) (*auth.Claims, error)
}

type AuthHandler struct {
	users    UserStore
	tokens   TokenService
	notifier notifications.Notifier
	prom     *observability.Prom
}

func NewAuthHandler(users UserStore, tokens TokenService, notifier notifications.Notifier, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		prom:     prom,
	}
}

func (h *AuthHandler) countAuth(op, result string) {
	if h.prom != nil {
		h.prom.AuthResults.WithLabelValues(op, result).Inc()
	}
}

// sanitized user payload; the hash never leaves the store layer anyway
// (json:"-") but being explicit keeps response shapes stable.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      user.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	role, ok := h.resolveSignUpRole(ctx, cctx, req)
	if !ok {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.countAuth("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, req.Email, hash, req.Name, role)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.countAuth("signup", "rejected")
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		h.countAuth("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	// self-login on register
	token, err := h.tokens.Issue(u.ID, u.Email, u.Role)

	if err != nil {
		h.countAuth("signup", "error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	if h.notifier != nil {
		// best effort; a provider outage must not fail the signup
		_ = h.notifier.SendWelcome(cctx, notifications.WelcomeInput{
			Email: u.Email,
			Name:  u.Name,
			Role:  u.Role.String(),
		})
	}

	h.countAuth("signup", "ok")
	ctx.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  toUserResponse(u),
	})
}

// resolveSignUpRole applies the role assignment rule in order:
//  1. empty store: the first user ever created is the admin, whatever was asked
//  2. admin requested: only a caller presenting a valid admin token may mint
//     another admin (no token -> 401, valid non-admin token -> 403)
//  3. everyone else is a plain user
func (h *AuthHandler) resolveSignUpRole(ctx *gin.Context, cctx context.Context, req user.SignUpRequest) (user.Role, bool) {
	count, err := h.users.Count(cctx)

	if err != nil {
		h.countAuth("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return user.RoleUser, false
	}

	if count == 0 {
		return user.RoleAdmin, true
	}

	if !user.ParseRole(req.Role).IsAdmin() {
		return user.RoleUser, true
	}

	raw, present := bearerFromHeader(ctx)

	if !present {
		h.countAuth("signup", "rejected")
		RespondUnAuthorized(ctx, "unauthorized", "Admin token required to grant the admin role")
		return user.RoleUser, false
	}

	claims, err := h.tokens.Verify(raw)

	if err != nil {
		h.countAuth("signup", "rejected")
		RespondUnAuthorized(ctx, "unauthorized", "Invalid or expired access token")
		return user.RoleUser, false
	}

	// the caller must still exist; a deleted admin's token grants nothing
	caller, err := h.users.GetByID(cctx, claims.UserID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.countAuth("signup", "rejected")
			RespondUnAuthorized(ctx, "unauthorized", "User not found")
			return user.RoleUser, false
		}

		h.countAuth("signup", "error")
		RespondInternal(ctx, "Could not create user")
		return user.RoleUser, false
	}

	if !caller.Role.IsAdmin() {
		h.countAuth("signup", "rejected")
		RespondForbidden(ctx, "Only an admin may grant the admin role")
		return user.RoleUser, false
	}

	return user.RoleAdmin, true
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		// same message for unknown email and wrong password, on purpose
		h.countAuth("login", "rejected")
		RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Email or password is incorrect.", nil)
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.countAuth("login", "rejected")
		RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Email or password is incorrect.", nil)
		return
	}

	token, err := h.tokens.Issue(foundUser.ID, foundUser.Email, foundUser.Role)

	if err != nil {
		h.countAuth("login", "error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.countAuth("login", "ok")
	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  toUserResponse(foundUser),
	})
}

// Profile returns the caller's own record, freshly loaded.
func (h *AuthHandler) Profile(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, identity.UserID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch profile")
		return
	}

	ctx.JSON(http.StatusOK, toUserResponse(u))
}

func bearerFromHeader(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

	return raw, raw != ""
}

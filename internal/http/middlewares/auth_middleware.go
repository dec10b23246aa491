package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventgate/eventgate/internal/auth"
	"github.com/eventgate/eventgate/internal/domain/user"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Identity is the resolved caller attached to the request context.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   user.Role
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserResolver
}

func NewAuthMiddleware(jwt TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

const ctxIdentityKey = "auth.identity"

// RequireAuth validates the bearer token and re-resolves the user from the
// store on every request. The lookup makes a deleted user's still-valid token
// worthless immediately; revocation-on-delete bought with one read per call.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.resolveClaims(c)
		if !ok {
			return
		}

		u, err := m.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				abortUnauthorized(c, "User not found")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not resolve identity",
				},
			})
			return
		}

		SetIdentity(c, Identity{
			UserID: u.ID,
			Email:  u.Email,
			Name:   u.Name,
			Role:   u.Role,
		})

		c.Next()
	}
}

func (m *AuthMiddleware) resolveClaims(c *gin.Context) (*auth.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		abortUnauthorized(c, "Missing or invalid Authorization header")
		return nil, false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if raw == "" {
		abortUnauthorized(c, "Missing or invalid access token")
		return nil, false
	}

	claims, err := m.jwt.Verify(raw)
	if err != nil {
		abortUnauthorized(c, "Invalid or expired access token")
		return nil, false
	}

	return claims, true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// Optional helpers so handlers don't need to know the magic keys.

// SetIdentity attaches the resolved caller to the request context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ctxIdentityKey, id)
}

func IdentityFromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id, ok := IdentityFromContext(c)
	return id.UserID, ok && id.UserID != ""
}

package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin gates a route on the resolved identity's role. Must run after
// RequireAuth in the chain.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}
		if !identity.Role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin role required",
				},
			})
			return
		}
		c.Next()
	}
}

// OwnerOrAdmin is the ownership predicate: admins pass unconditionally,
// everyone else only for their own resources.
func OwnerOrAdmin(identity Identity, resourceOwnerID string) bool {
	return identity.Role.IsAdmin() || identity.UserID == resourceOwnerID
}

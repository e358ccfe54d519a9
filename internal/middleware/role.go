package middleware

import (
	"net/http"

	"bookingdesk/internal/pkg/jwt"
	"bookingdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures that the authenticated actor has the specified role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		if role != requiredRole {
			response.AbortError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}

		c.Next()
	}
}

func BusinessOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleBusiness)
}

func CustomerOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleCustomer)
}

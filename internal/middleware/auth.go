package middleware

import (
	"net/http"
	"strings"

	"bookingdesk/internal/pkg/jwt"
	"bookingdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by ActorAuth.
const (
	ContextActorID = "actor_id"
	ContextRole    = "role"
)

// ActorAuth resolves the acting party. Businesses authenticate with a bearer
// token, customers with the session cookie. The bearer header wins when both
// are present.
func ActorAuth(jwtService *jwt.Service, sessionCookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		if token == "" && sessionCookie != "" {
			if v, err := c.Cookie(sessionCookie); err == nil {
				token = v
			}
		}
		if token == "" {
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(ContextActorID, claims.ActorID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// bearerToken returns the token from the Authorization header. A header that
// is present but malformed aborts the request.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", true
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		response.AbortError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

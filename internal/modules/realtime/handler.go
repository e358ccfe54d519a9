package realtime

import (
	"net/http"
	"strings"

	"bookingdesk/internal/pkg/jwt"
	"bookingdesk/internal/pkg/logger"
	"bookingdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub      *Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler builds the dashboard endpoint. allowedOrigins is the same comma
// separated list the CORS middleware takes; empty accepts any origin.
func NewHandler(hub *Hub, jwtService *jwt.Service, allowedOrigins string, log *zap.Logger) *Handler {
	origins := map[string]bool{}
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}

	return &Handler{
		hub: hub,
		jwt: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
		log: logger.OrNop(log),
	}
}

// RegisterRoutes mounts the socket outside the auth group: browsers can't set
// headers on a websocket handshake, so the token travels in the query.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/business", h.ServeBusiness)
}

func (h *Handler) ServeBusiness(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required")
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	if claims.Role != jwt.RoleBusiness {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Business account required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Serve(conn, claims.ActorID)
}

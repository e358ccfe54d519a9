package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"bookingdesk/internal/domain"
	"bookingdesk/internal/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// Event is the frame pushed to a business dashboard.
type Event struct {
	Type    string          `json:"type"`
	Booking *domain.Booking `json:"booking"`
}

type connection struct {
	businessID string
	conn       *websocket.Conn
	send       chan []byte
}

// Hub fans booking events out to every open dashboard of a business.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*connection]struct{}
	log         *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*connection]struct{}),
		log:         logger.OrNop(log),
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.businessID]
	if !ok {
		set = make(map[*connection]struct{})
		h.connections[c.businessID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.businessID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.connections, c.businessID)
	}
}

// PublishBookingEvent never blocks: slow dashboards miss the frame.
func (h *Hub) PublishBookingEvent(businessID, eventType string, b *domain.Booking) {
	data, err := json.Marshal(Event{Type: eventType, Booking: b})
	if err != nil {
		h.log.Warn("encode realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections[businessID] {
		select {
		case c.send <- data:
		default:
			h.log.Debug("realtime frame dropped", zap.String("business_id", businessID))
		}
	}
}

// Online reports how many dashboards a business has open.
func (h *Hub) Online(businessID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[businessID])
}

// Serve registers conn and blocks until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn, businessID string) {
	c := &connection{
		businessID: businessID,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
	}
	h.register(c)
	h.log.Info("dashboard connected", zap.String("business_id", businessID))

	go h.writePump(c)
	h.readPump(c)
}

// Close drops every connection, used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.connections {
		for c := range set {
			close(c.send)
		}
		delete(h.connections, id)
	}
}

// readPump only drains control frames; dashboards never send commands.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.log.Info("dashboard disconnected", zap.String("business_id", c.businessID))
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read", zap.String("business_id", c.businessID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

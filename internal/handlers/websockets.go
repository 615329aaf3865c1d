package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms

	wsTypeVenues = "venues"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type venuesSnapshot struct {
	Venues map[string]any `json:"venues"`
	Faults string         `json:"faults"`
}

// Mobile clients connect without an Origin header; the bearer check in
// requireAuth gates the upgrade.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Stream venue snapshots
// @Description  Upgrades to WebSocket and pushes {"type":"venues"} every interval (?interval=2s or ?interval_ms=2000, max 10s).
// @Tags         devices
// @Router       /auth/ws [get]
// @Security     BearerAuth
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)
	uid := userID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "uid", uid, "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendVenues(ctx, conn, uid); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "uid", uid, "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "uid", uid, "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendVenues(ctx, conn, uid); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "uid", uid, "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return defaultInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendVenues writes the current venues of uid. A read failure is reported
// to the client before the connection closes.
func (h *Handler) sendVenues(ctx context.Context, conn *websocket.Conn, uid string) error {
	p, err := h.services.Profile(ctx, uid)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_venues_failed", "uid", uid, "err", err)
		}
		_ = conn.WriteJSON(wsEnvelope{Type: wsTypeVenues, Error: "unable to load venues"})
		return err
	}
	return conn.WriteJSON(wsEnvelope{Type: wsTypeVenues, Data: venuesSnapshot{Venues: p.Venues, Faults: p.Faults}})
}

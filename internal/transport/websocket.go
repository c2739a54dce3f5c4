package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"canvassync/internal/config"
	"canvassync/internal/handlers"
	"canvassync/internal/middleware"
	"canvassync/internal/session"
)

// Handler upgrades HTTP requests to websocket connections and runs the
// per-connection read loop.
type Handler struct {
	cfg       *config.Config
	upgrader  websocket.Upgrader
	sessions  *session.Manager
	router    *handlers.Router
	ipLimiter *middleware.IPRateLimit
	limits    *middleware.Limits
}

func NewHandler(
	cfg *config.Config,
	sessions *session.Manager,
	router *handlers.Router,
	ipLimiter *middleware.IPRateLimit,
	limits *middleware.Limits,
) *Handler {
	h := &Handler{
		cfg:       cfg,
		sessions:  sessions,
		router:    router,
		ipLimiter: ipLimiter,
		limits:    limits,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// checkOrigin allows any origin when no allow-list is configured.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == strings.TrimSpace(allowed) {
			return true
		}
	}
	return false
}

// ClientIP: extracts the client IP from the request
func ClientIP(r *http.Request) string {
	// Use RemoteAddr only - cannot be spoofed by client
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx] // Remove port
	}
	return ip
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := ClientIP(r)
	if !h.ipLimiter.Allow(clientIP) {
		log.Warn().Str("ip", clientIP).Msg("connection rate limit exceeded")
		http.Error(w, "Too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, h.cfg.SendQueueSize)
	sess := h.sessions.Create(client.ID())

	go client.WritePump(pingPeriod(h.cfg.PongWait))

	// Leave-cleanup runs on every exit path, abrupt closure included.
	defer func() {
		h.router.Disconnect(sess)
		h.sessions.Remove(client.ID())
		client.Close()
	}()

	h.readLoop(conn, client, sess)
}

// readLoop: message loop for one connection
func (h *Handler) readLoop(conn *websocket.Conn, client *Client, sess *session.Session) {
	conn.SetReadLimit(h.cfg.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		return nil
	})

	limiter := h.limits.NewSessionLimiter()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Str("conn", client.ID()).Err(err).Msg("connection closed")
			break
		}

		if !h.limits.ValidateMessageSize(len(msg)) {
			log.Warn().Str("conn", client.ID()).Int("size", len(msg)).Msg("message too large, dropped")
			continue
		}

		if !limiter.Allow() {
			log.Warn().Str("conn", client.ID()).Msg("message rate limit exceeded, dropped")
			continue
		}

		if err := h.router.Route(sess, client, msg); err != nil {
			log.Warn().Str("conn", client.ID()).Err(err).Msg("message discarded")
			continue
		}
	}
}

// pingPeriod sends pings at 90% of the pong deadline.
func pingPeriod(pongWait time.Duration) time.Duration {
	return pongWait * 9 / 10
}

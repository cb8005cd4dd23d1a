package viewer

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler accepts viewer WebSocket connections.
type Handler struct {
	cfg SessionConfig
	log *log.Logger
}

// NewHandler returns a Handler creating sessions from cfg.
func NewHandler(cfg SessionConfig) *Handler {
	l := cfg.Logger
	if l == nil {
		l = log.Default()
	}
	return &Handler{cfg: cfg, log: l}
}

// RegisterRoutes mounts the viewer socket on r.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/v1/flowminds/view", h.serveWS)
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("viewer: websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	s := NewSession(r.Context(), conn, h.cfg)
	h.log.Debug("viewer session opened", "session", s.ID, "remote", r.RemoteAddr)
	s.Run(r.Context())
}

// Package viewer serves interactive diagram sessions over WebSocket. Each
// connection owns one render manager, one canvas and one pan/zoom
// controller; closing the socket tears all three down.
package viewer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/flowminds/internal/render"
	"github.com/ziadkadry99/flowminds/internal/sanitize"
	"github.com/ziadkadry99/flowminds/internal/viewport"
)

// clientMessage is the incoming WebSocket message format.
type clientMessage struct {
	Type   string  `json:"type"` // ready, resize, source, zoom_in, zoom_out, reset, pan, wheel
	Source string  `json:"source,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	DeltaY float64 `json:"delta_y,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

// stateMessage is the outgoing WebSocket message format.
type stateMessage struct {
	Type        string          `json:"type"` // "state" or "error"
	SessionID   string          `json:"session_id"`
	Status      render.Status   `json:"status,omitempty"`
	SVG         string          `json:"svg,omitempty"`
	Error       string          `json:"error,omitempty"`
	DebugSource string          `json:"debug_source,omitempty"`
	Interactive bool            `json:"interactive"`
	Viewport    *viewport.State `json:"viewport,omitempty"`
}

// Session is one connected viewer.
type Session struct {
	ID string

	conn    *websocket.Conn
	canvas  *Canvas
	ctrl    *viewport.Controller
	mgr     *render.Manager
	opts    viewport.Options
	log     *log.Logger
	dirty   chan struct{}
	writeMu sync.Mutex
}

// SessionConfig carries what a session needs beyond its connection.
type SessionConfig struct {
	Engine    render.Engine
	Sanitizer *sanitize.Sanitizer
	Viewport  viewport.Options
	Logger    *log.Logger
}

// NewSession wires a manager, canvas and controller to conn.
func NewSession(ctx context.Context, conn *websocket.Conn, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		ID:     uuid.NewString(),
		conn:   conn,
		canvas: NewCanvas(),
		opts:   cfg.Viewport,
		dirty:  make(chan struct{}, 1),
	}
	s.log = logger.With("session", s.ID)

	s.ctrl = viewport.NewController(cfg.Viewport,
		viewport.WithLogger(s.log),
		viewport.WithStateListener(func(viewport.State) { s.markDirty() }),
	)
	opts := []render.Option{
		render.WithLogger(s.log),
		render.WithContext(ctx),
		render.WithListener(func(render.State) { s.markDirty() }),
	}
	if cfg.Sanitizer != nil {
		opts = append(opts, render.WithSanitizer(cfg.Sanitizer))
	}
	s.mgr = render.NewManager(cfg.Engine, s.canvas, s.ctrl, opts...)
	return s
}

// markDirty schedules a state push. Listeners call it with locks held, so
// it never blocks; pending pushes coalesce into one.
func (s *Session) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Run serves the session until the client disconnects or ctx ends.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pushLoop(ctx)
	}()

	s.readLoop()

	cancel()
	s.mgr.Close()
	wg.Wait()
	s.mgr.Wait()
	s.log.Debug("viewer session closed")
}

func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read", "err", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("invalid message format")
			continue
		}
		s.handle(msg)
	}
}

func (s *Session) handle(msg clientMessage) {
	switch msg.Type {
	case "ready":
		s.canvas.Attach(viewport.Size{Width: msg.Width, Height: msg.Height})
		if !s.mgr.Refresh() {
			s.markDirty()
		}
	case "resize":
		s.canvas.Resize(viewport.Size{Width: msg.Width, Height: msg.Height})
	case "source":
		if !s.mgr.SetSource(msg.Source) {
			s.markDirty()
		}
	case "zoom_in":
		s.ctrl.ZoomIn()
	case "zoom_out":
		s.ctrl.ZoomOut()
	case "reset":
		s.ctrl.ResetView()
	case "pan":
		s.ctrl.PanBy(msg.DX, msg.DY)
	case "wheel":
		s.ctrl.ZoomAt(wheelFactor(msg.DeltaY, s.opts.ZoomScaleSensitivity), msg.X, msg.Y)
	default:
		s.sendError("unknown message type: " + msg.Type)
	}
}

// wheelFactor maps a wheel delta to a zoom factor: scrolling up zooms in.
func wheelFactor(deltaY, sensitivity float64) float64 {
	switch {
	case deltaY < 0:
		return 1 + sensitivity
	case deltaY > 0:
		return 1 / (1 + sensitivity)
	default:
		return 1
	}
}

func (s *Session) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.dirty:
			if err := s.write(s.snapshot()); err != nil {
				s.log.Debug("websocket write", "err", err)
				return
			}
		}
	}
}

func (s *Session) snapshot() stateMessage {
	st := s.mgr.Snapshot()
	msg := stateMessage{
		Type:        "state",
		SessionID:   s.ID,
		Status:      st.Status,
		DebugSource: st.DebugSource,
		Interactive: st.Interactive,
	}
	switch r := st.Result.(type) {
	case render.Rendered:
		if st.Status == render.StatusRendered {
			msg.SVG = r.Markup
		}
	case render.Failed:
		msg.Error = r.Message
		msg.DebugSource = r.OffendingSource
	}
	if vs, ok := s.ctrl.State(); ok {
		msg.Viewport = &vs
	}
	return msg
}

func (s *Session) sendError(text string) {
	if err := s.write(stateMessage{Type: "error", SessionID: s.ID, Error: text}); err != nil {
		s.log.Debug("websocket write", "err", err)
	}
}

func (s *Session) write(msg stateMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

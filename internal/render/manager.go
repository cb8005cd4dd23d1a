package render

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ziadkadry99/flowminds/internal/sanitize"
	"github.com/ziadkadry99/flowminds/internal/viewport"
)

// Status is the lifecycle phase of a Manager.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusRendered   Status = "rendered"
	StatusFailed     Status = "failed"
)

// MountPoint is the display region rendered markup is inserted into.
type MountPoint interface {
	// Ready reports whether the mount point is attached to a live surface.
	Ready() bool
	// Clear removes any displayed content.
	Clear()
	// Mount displays markup and returns its SVG root.
	Mount(markup string) (viewport.Element, error)
}

// Viewport is the pan/zoom layer attached after each successful mount.
// *viewport.Controller implements it.
type Viewport interface {
	Attach(root viewport.Element) error
	Release()
}

// State is a snapshot of the Manager.
type State struct {
	Status       Status
	Result       Result
	Generation   uint64
	InvocationID string
	// DebugSource is the sanitized source of the latest cycle.
	DebugSource string
	// Interactive reports whether pan/zoom is attached to the mounted
	// diagram.
	Interactive bool
}

// Manager drives render cycles for one mount point. Every state mutation
// happens under mu; the engine call is the only step that runs outside it.
// A generation counter discards completions of superseded cycles.
type Manager struct {
	engine    Engine
	mount     MountPoint
	vp        Viewport
	sanitizer *sanitize.Sanitizer
	log       *log.Logger
	listener  func(State)
	newID     func() string

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu     sync.Mutex
	raw    string
	gen    uint64
	state  State
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSanitizer sets the sanitizer applied to every source. Defaults to
// sanitize.Default().
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(m *Manager) { m.sanitizer = s }
}

// WithLogger sets the manager's logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithListener registers fn to receive every state change. fn runs with
// the manager locked and must not call back into it.
func WithListener(fn func(State)) Option {
	return func(m *Manager) { m.listener = fn }
}

// WithInvocationIDs overrides how per-call invocation ids are minted.
func WithInvocationIDs(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithContext sets the parent context for engine calls. Close cancels it.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) { m.ctx = ctx }
}

// NewManager returns an idle Manager.
func NewManager(engine Engine, mount MountPoint, vp Viewport, opts ...Option) *Manager {
	m := &Manager{
		engine:    engine,
		mount:     mount,
		vp:        vp,
		sanitizer: sanitize.Default(),
		log:       log.Default(),
		newID:     func() string { return "mermaid-" + uuid.NewString() },
		ctx:       context.Background(),
		state:     State{Status: StatusIdle},
	}
	for _, o := range opts {
		o(m)
	}
	m.ctx, m.cancel = context.WithCancel(m.ctx)
	return m
}

// SetSource records new raw source and starts a cycle if the mount point is
// ready. It reports whether a cycle started.
func (m *Manager) SetSource(raw string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = raw
	return m.triggerLocked()
}

// Refresh starts a cycle for the current source. Call it when the mount
// point becomes ready.
func (m *Manager) Refresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggerLocked()
}

func (m *Manager) triggerLocked() bool {
	if m.closed || m.raw == "" || !m.mount.Ready() {
		return false
	}
	source := m.sanitizer.Sanitize(m.raw)
	if strings.TrimSpace(source) == "" {
		return false
	}

	// Interaction handlers must never point at the document being replaced.
	m.vp.Release()

	m.gen++
	gen, id := m.gen, m.newID()
	m.state = State{
		Status:       StatusProcessing,
		Generation:   gen,
		InvocationID: id,
		DebugSource:  source,
	}
	m.mount.Clear()
	m.notifyLocked()

	m.log.Debug("render started", "generation", gen, "id", id)
	m.inflight.Add(1)
	go m.run(gen, id, source)
	return true
}

func (m *Manager) run(gen uint64, id, source string) {
	defer m.inflight.Done()
	markup, err := m.engine.Render(m.ctx, id, source)
	m.complete(gen, id, source, markup, err)
}

func (m *Manager) complete(gen uint64, id, source, markup string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || gen != m.gen {
		m.log.Debug("discarding stale render", "generation", gen, "latest", m.gen, "id", id)
		return
	}

	if err != nil {
		m.state.Status = StatusFailed
		m.state.Result = Failed{Message: failureMessage(err), OffendingSource: source}
		m.log.Debug("render failed", "generation", gen, "err", err)
		m.notifyLocked()
		return
	}

	m.state.Status = StatusRendered
	m.state.Result = Rendered{Markup: markup, InvocationID: id}

	// Pan/zoom needs laid-out geometry, so it attaches only once the markup
	// is part of the mount point.
	root, merr := m.mount.Mount(markup)
	switch {
	case merr != nil:
		m.log.Warn("mounted markup has no svg root; pan/zoom disabled", "err", merr)
	default:
		if aerr := m.vp.Attach(root); aerr != nil {
			m.log.Debug("diagram is static", "err", aerr)
		} else {
			m.state.Interactive = true
		}
	}
	m.log.Debug("render complete", "generation", gen, "bytes", len(markup))
	m.notifyLocked()
}

func (m *Manager) notifyLocked() {
	if m.listener != nil {
		m.listener(m.state)
	}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Wait blocks until every started engine call has returned and its outcome
// has been applied or discarded.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Close permanently tears the manager down: the viewport is released and
// any pending completion is discarded. Close is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.gen++
	m.vp.Release()
	m.cancel()
}

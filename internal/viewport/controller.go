package viewport

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Controller binds pan/zoom to whatever diagram is currently mounted. It is
// safe for concurrent use.
type Controller struct {
	mu         sync.Mutex
	opts       Options
	newPanZoom Factory
	newWatcher func() ResizeWatcher
	onChange   func(State)
	log        *log.Logger
	res        guard
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithFactory replaces the built-in Transform.
func WithFactory(f Factory) ControllerOption {
	return func(c *Controller) { c.newPanZoom = f }
}

// WithWatcherFactory replaces the built-in resize Watcher.
func WithWatcherFactory(f func() ResizeWatcher) ControllerOption {
	return func(c *Controller) { c.newWatcher = f }
}

// WithStateListener registers fn to receive the transform after every
// change. fn runs with the controller locked and must not call back into
// it.
func WithStateListener(fn func(State)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger sets the logger used for non-fatal init failures.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController returns a detached controller.
func NewController(opts Options, options ...ControllerOption) *Controller {
	c := &Controller{
		opts:       opts,
		newPanZoom: NewTransform,
		newWatcher: NewWatcher,
		log:        log.Default(),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Attach initializes pan/zoom over root and starts watching root's
// container. A failure is logged and returned as *InitError; the caller
// keeps showing the static diagram.
func (c *Controller) Attach(root Element) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.res.attached() {
		return ErrAttached
	}
	if root == nil {
		return c.initFailed(ErrDetached)
	}
	pz, err := c.newPanZoom(root, c.opts)
	if err != nil {
		return c.initFailed(err)
	}
	c.res.panZoom = pz
	if c.res.watcher == nil {
		w := c.newWatcher()
		w.Observe(root.Parent(), c.onResize)
		c.res.watcher = w
	}
	c.notifyLocked()
	return nil
}

func (c *Controller) initFailed(err error) error {
	ierr := &InitError{Err: err}
	c.log.Warn("failed to initialize pan/zoom", "err", err)
	return ierr
}

// Release destroys the active pan/zoom instance and disconnects the resize
// watcher. Calling it with nothing attached, or twice, is a no-op.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.res.release()
}

// Attached reports whether a pan/zoom instance is active.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res.attached()
}

// ZoomIn applies one zoom step inward.
func (c *Controller) ZoomIn() {
	c.apply(func(pz PanZoom) { pz.ZoomIn() })
}

// ZoomOut applies one zoom step outward.
func (c *Controller) ZoomOut() {
	c.apply(func(pz PanZoom) { pz.ZoomOut() })
}

// ResetView restores the fitted, centered view.
func (c *Controller) ResetView() {
	c.apply(func(pz PanZoom) {
		pz.Reset()
		pz.Fit()
		pz.Center()
	})
}

// PanBy drags the drawing by (dx, dy) pixels.
func (c *Controller) PanBy(dx, dy float64) {
	c.apply(func(pz PanZoom) { pz.PanBy(dx, dy) })
}

// ZoomAt zooms by factor around the container point (x, y), as a mouse
// wheel does.
func (c *Controller) ZoomAt(factor, x, y float64) {
	c.apply(func(pz PanZoom) { pz.ZoomAt(factor, x, y) })
}

// State returns the current transform, or false when detached.
func (c *Controller) State() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.res.attached() {
		return State{}, false
	}
	return c.res.panZoom.State(), true
}

func (c *Controller) onResize(Size) {
	c.apply(func(pz PanZoom) {
		pz.Resize()
		pz.Fit()
		pz.Center()
	})
}

func (c *Controller) apply(fn func(PanZoom)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.res.attached() {
		return
	}
	fn(c.res.panZoom)
	c.notifyLocked()
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil && c.res.attached() {
		c.onChange(c.res.panZoom.State())
	}
}

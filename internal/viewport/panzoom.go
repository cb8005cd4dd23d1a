package viewport

import "math"

// PanZoom is an interactive transform over one SVG root. Implementations
// are not safe for concurrent use; Controller serializes access.
type PanZoom interface {
	ZoomIn()
	ZoomOut()
	ZoomAt(factor, x, y float64)
	PanBy(dx, dy float64)
	Reset()
	Resize()
	Fit()
	Center()
	State() State
	Destroy()
}

// Factory creates a PanZoom for a mounted root.
type Factory func(root Element, opts Options) (PanZoom, error)

// Transform is the built-in PanZoom. It tracks a relative zoom on top of a
// base scale that fits the viewBox into the container, plus a pan offset in
// container pixels.
type Transform struct {
	opts      Options
	parent    Observable
	box       Box
	container Size
	base      float64
	zoom      float64
	panX      float64
	panY      float64
	initX     float64
	initY     float64
	destroyed bool
}

var _ PanZoom = (*Transform)(nil)

// NewTransform initializes a Transform for root. It applies the initial fit
// and centering requested by opts.
func NewTransform(root Element, opts Options) (PanZoom, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrDetached
	}
	box, ok := root.ViewBox()
	if !ok || box.Width <= 0 || box.Height <= 0 {
		return nil, ErrNoViewBox
	}
	parent := root.Parent()
	if parent == nil {
		return nil, ErrDetached
	}

	t := &Transform{
		opts:      opts,
		parent:    parent,
		box:       box,
		container: parent.Size(),
		base:      1,
	}
	t.zoom = t.clamp(1)
	if opts.Fit {
		t.base = t.fitScale()
	}
	if opts.Center {
		t.center()
	} else {
		t.panX = -box.X * t.base
		t.panY = -box.Y * t.base
	}
	t.initX, t.initY = t.panX, t.panY
	return t, nil
}

func (t *Transform) fitScale() float64 {
	if t.container.Empty() {
		return 1
	}
	return math.Min(t.container.Width/t.box.Width, t.container.Height/t.box.Height)
}

func (t *Transform) clamp(z float64) float64 {
	return math.Max(t.opts.MinZoom, math.Min(t.opts.MaxZoom, z))
}

// ZoomIn zooms one step around the container center.
func (t *Transform) ZoomIn() {
	t.ZoomAt(1+t.opts.ZoomScaleSensitivity, t.container.Width/2, t.container.Height/2)
}

// ZoomOut zooms out one step around the container center.
func (t *Transform) ZoomOut() {
	t.ZoomAt(1/(1+t.opts.ZoomScaleSensitivity), t.container.Width/2, t.container.Height/2)
}

// ZoomAt multiplies the zoom by factor, keeping the container point (x, y)
// fixed. The result is clamped to [MinZoom, MaxZoom].
func (t *Transform) ZoomAt(factor, x, y float64) {
	if t.destroyed || !t.opts.ZoomEnabled || factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	next := t.clamp(t.zoom * factor)
	k := next / t.zoom
	t.panX = x - (x-t.panX)*k
	t.panY = y - (y-t.panY)*k
	t.zoom = next
}

// PanBy shifts the drawing by (dx, dy) container pixels.
func (t *Transform) PanBy(dx, dy float64) {
	if t.destroyed || !t.opts.PanEnabled {
		return
	}
	t.panX += dx
	t.panY += dy
}

// Reset restores the initial zoom and pan.
func (t *Transform) Reset() {
	if t.destroyed {
		return
	}
	t.zoom = t.clamp(1)
	t.panX, t.panY = t.initX, t.initY
}

// Resize re-reads the container size. It does not change zoom or pan.
func (t *Transform) Resize() {
	if t.destroyed {
		return
	}
	t.container = t.parent.Size()
}

// Fit scales the drawing so the whole viewBox fits the container.
func (t *Transform) Fit() {
	if t.destroyed {
		return
	}
	t.base = t.fitScale()
	t.zoom = t.clamp(1)
}

// Center moves the drawing to the middle of the container at the current
// zoom.
func (t *Transform) Center() {
	if t.destroyed {
		return
	}
	t.center()
}

func (t *Transform) center() {
	s := t.base * t.zoom
	t.panX = (t.container.Width-t.box.Width*s)/2 - t.box.X*s
	t.panY = (t.container.Height-t.box.Height*s)/2 - t.box.Y*s
}

// State returns the current transform.
func (t *Transform) State() State {
	return State{
		Scale:       t.zoom,
		RealScale:   t.base * t.zoom,
		PanX:        t.panX,
		PanY:        t.panY,
		ZoomEnabled: t.opts.ZoomEnabled,
		PanEnabled:  t.opts.PanEnabled,
		MinZoom:     t.opts.MinZoom,
		MaxZoom:     t.opts.MaxZoom,
		Container:   t.container,
	}
}

// Destroy detaches the transform. Later calls are no-ops.
func (t *Transform) Destroy() {
	t.destroyed = true
}

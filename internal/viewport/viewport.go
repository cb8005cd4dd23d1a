// Package viewport layers interactive pan and zoom over a mounted SVG
// document.
//
// A Controller owns at most one PanZoom instance and one ResizeWatcher at a
// time. Both are created by Attach and destroyed by Release; Release is
// idempotent and is the only way to make room for the next Attach. The
// controller never owns the SVG document itself, only the transform layered
// on top of it.
package viewport

import (
	"errors"
	"fmt"
)

// Size is a container size in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Box is an SVG viewBox.
type Box struct {
	X, Y, Width, Height float64
}

// Observable is a container whose size can change over time.
//
// OnResize must not invoke fn synchronously; callbacks are delivered when
// the size actually changes. The returned stop func unregisters fn and is
// safe to call more than once.
type Observable interface {
	Size() Size
	OnResize(fn func(Size)) (stop func())
}

// Element is a mounted SVG root. It is a non-owning handle: the mount point
// that produced it controls the document's lifetime.
type Element interface {
	ViewBox() (Box, bool)
	Parent() Observable
}

// Options mirrors the svg-pan-zoom configuration object.
type Options struct {
	ZoomEnabled          bool    `json:"zoomEnabled"`
	PanEnabled           bool    `json:"panEnabled"`
	Fit                  bool    `json:"fit"`
	Center               bool    `json:"center"`
	MinZoom              float64 `json:"minZoom"`
	MaxZoom              float64 `json:"maxZoom"`
	ControlIconsEnabled  bool    `json:"controlIconsEnabled"`
	DblClickZoomEnabled  bool    `json:"dblClickZoomEnabled"`
	ZoomScaleSensitivity float64 `json:"zoomScaleSensitivity"`
}

// DefaultOptions returns the configuration used for rendered diagrams:
// fitted and centered, zoom bounds [0.1, 10], double-click zoom off.
func DefaultOptions() Options {
	return Options{
		ZoomEnabled:          true,
		PanEnabled:           true,
		Fit:                  true,
		Center:               true,
		MinZoom:              0.1,
		MaxZoom:              10,
		ControlIconsEnabled:  false,
		DblClickZoomEnabled:  false,
		ZoomScaleSensitivity: 0.2,
	}
}

func (o Options) validate() error {
	if o.MinZoom <= 0 {
		return fmt.Errorf("min zoom must be positive, got %v", o.MinZoom)
	}
	if o.MaxZoom < o.MinZoom {
		return fmt.Errorf("max zoom %v is below min zoom %v", o.MaxZoom, o.MinZoom)
	}
	if o.ZoomScaleSensitivity <= 0 {
		return fmt.Errorf("zoom sensitivity must be positive, got %v", o.ZoomScaleSensitivity)
	}
	return nil
}

// State is a snapshot of the interactive transform.
type State struct {
	// Scale is the zoom relative to the fitted size; 1 means fitted.
	Scale float64 `json:"scale"`
	// RealScale is the number of container pixels per viewBox unit.
	RealScale   float64 `json:"realScale"`
	PanX        float64 `json:"panX"`
	PanY        float64 `json:"panY"`
	ZoomEnabled bool    `json:"zoomEnabled"`
	PanEnabled  bool    `json:"panEnabled"`
	MinZoom     float64 `json:"minZoom"`
	MaxZoom     float64 `json:"maxZoom"`
	Container   Size    `json:"container"`
}

var (
	// ErrAttached is returned by Attach when a pan/zoom instance is already
	// active. Release must run first.
	ErrAttached = errors.New("viewport already attached")

	// ErrNoViewBox means the root element has no usable geometry.
	ErrNoViewBox = errors.New("svg root has no usable viewBox or size")

	// ErrDetached means the root element is not part of a container.
	ErrDetached = errors.New("svg root is not mounted in a container")
)

// InitError reports that pan/zoom could not be initialized. It is never
// fatal: the diagram stays visible but static.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return "initializing pan/zoom: " + e.Err.Error()
}

func (e *InitError) Unwrap() error { return e.Err }

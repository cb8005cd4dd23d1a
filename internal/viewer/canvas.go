package viewer

import (
	"sync"

	"github.com/ziadkadry99/flowminds/internal/render"
	"github.com/ziadkadry99/flowminds/internal/viewport"
)

// Canvas is the server-side stand-in for the client's display region. It
// holds the mounted markup and the container size last reported by the
// client.
type Canvas struct {
	mu        sync.Mutex
	ready     bool
	size      viewport.Size
	markup    string
	observers map[int]func(viewport.Size)
	nextID    int
}

var (
	_ render.MountPoint   = (*Canvas)(nil)
	_ viewport.Observable = (*Canvas)(nil)
)

// NewCanvas returns a canvas that is not yet ready.
func NewCanvas() *Canvas {
	return &Canvas{observers: map[int]func(viewport.Size){}}
}

// Ready reports whether the client has attached its display surface.
func (c *Canvas) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Attach marks the canvas ready with the client's initial container size.
func (c *Canvas) Attach(size viewport.Size) {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	c.Resize(size)
}

// Clear drops any mounted markup.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markup = ""
}

// Mount stores markup and returns its svg root bound to this canvas.
func (c *Canvas) Mount(markup string) (viewport.Element, error) {
	c.mu.Lock()
	c.markup = markup
	c.mu.Unlock()
	el, err := viewport.NewSVGElement(markup, c)
	if err != nil {
		return nil, err
	}
	return el, nil
}

// Markup returns the currently mounted markup.
func (c *Canvas) Markup() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markup
}

// Size returns the last reported container size.
func (c *Canvas) Size() viewport.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// OnResize subscribes fn to container size changes.
func (c *Canvas) OnResize(fn func(viewport.Size)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Resize records a new container size and notifies observers when it
// changed. Observers run without the canvas lock held.
func (c *Canvas) Resize(size viewport.Size) {
	c.mu.Lock()
	if size == c.size {
		c.mu.Unlock()
		return
	}
	c.size = size
	fns := make([]func(viewport.Size), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(size)
	}
}

package viewport

import "sync"

// ResizeWatcher reports size changes of observed containers until
// disconnected.
type ResizeWatcher interface {
	Observe(target Observable, fn func(Size))
	Disconnect()
}

// Watcher is the default ResizeWatcher. Disconnect is idempotent.
type Watcher struct {
	mu           sync.Mutex
	stops        []func()
	disconnected bool
}

// NewWatcher returns a connected Watcher.
func NewWatcher() ResizeWatcher {
	return &Watcher{}
}

// Observe subscribes fn to target's size changes. Observing after
// Disconnect does nothing.
func (w *Watcher) Observe(target Observable, fn func(Size)) {
	if target == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disconnected {
		return
	}
	w.stops = append(w.stops, target.OnResize(fn))
}

// Disconnect stops every subscription.
func (w *Watcher) Disconnect() {
	w.mu.Lock()
	stops := w.stops
	w.stops = nil
	w.disconnected = true
	w.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

package viewport

// guard owns the native resources of one attach cycle. Each resource is
// torn down exactly once: release clears the handle before the next cycle
// can install a new one.
type guard struct {
	panZoom PanZoom
	watcher ResizeWatcher
}

func (g *guard) attached() bool {
	return g.panZoom != nil
}

func (g *guard) release() {
	if g.panZoom != nil {
		g.panZoom.Destroy()
		g.panZoom = nil
	}
	if g.watcher != nil {
		g.watcher.Disconnect()
		g.watcher = nil
	}
}

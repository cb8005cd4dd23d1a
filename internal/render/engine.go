package render

import "fmt"

// EngineConfig selects and configures an Engine.
type EngineConfig struct {
	// Name is "graphviz" or "mmdc".
	Name       string
	MMDCPath   string
	Theme      string
	FontFamily string
}

// NewEngine builds the engine named by cfg.Name. An empty name selects the
// in-process graphviz engine.
func NewEngine(cfg EngineConfig) (Engine, error) {
	font := cfg.FontFamily
	if font == "" {
		font = DefaultFontFamily
	}
	switch cfg.Name {
	case "", "graphviz":
		return NewGraphvizEngine(ThemeByName(cfg.Theme, font)), nil
	case "mmdc":
		mc := DefaultMermaidConfig()
		if cfg.Theme != "" {
			mc.Theme = cfg.Theme
		}
		mc.FontFamily = font
		return NewCLIEngine(cfg.MMDCPath, mc), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q (supported: graphviz, mmdc)", cfg.Name)
	}
}

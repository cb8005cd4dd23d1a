package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// MermaidConfig is the initialization config handed to mermaid-cli.
type MermaidConfig struct {
	StartOnLoad   bool            `json:"startOnLoad"`
	Theme         string          `json:"theme"`
	SecurityLevel string          `json:"securityLevel"`
	FontFamily    string          `json:"fontFamily"`
	LogLevel      int             `json:"logLevel"`
	Flowchart     FlowchartConfig `json:"flowchart"`
}

// FlowchartConfig holds the flowchart-specific mermaid settings.
type FlowchartConfig struct {
	UseMaxWidth bool `json:"useMaxWidth"`
	HTMLLabels  bool `json:"htmlLabels"`
}

// DefaultMermaidConfig returns the dark-theme config the viewer is styled
// around.
func DefaultMermaidConfig() MermaidConfig {
	return MermaidConfig{
		Theme:         "dark",
		SecurityLevel: "loose",
		FontFamily:    DefaultFontFamily,
		LogLevel:      5,
		Flowchart:     FlowchartConfig{UseMaxWidth: false, HTMLLabels: true},
	}
}

// DefaultFontFamily is the font stack diagrams are drawn with.
const DefaultFontFamily = "Inter, system-ui, sans-serif"

// CLIEngine renders through the mermaid-cli binary (mmdc). The config file
// is written once, on the first call, and reused for the engine's lifetime.
type CLIEngine struct {
	path   string
	config MermaidConfig

	once     sync.Once
	dir      string
	confPath string
	initErr  error
}

var _ Engine = (*CLIEngine)(nil)

// NewCLIEngine returns an engine invoking the mmdc binary at path.
func NewCLIEngine(path string, config MermaidConfig) *CLIEngine {
	if path == "" {
		path = "mmdc"
	}
	return &CLIEngine{path: path, config: config}
}

func (e *CLIEngine) init() error {
	e.once.Do(func() {
		dir, err := os.MkdirTemp("", "flowminds-mmdc-*")
		if err != nil {
			e.initErr = fmt.Errorf("creating work dir: %w", err)
			return
		}
		data, err := json.Marshal(e.config)
		if err != nil {
			e.initErr = fmt.Errorf("encoding mermaid config: %w", err)
			return
		}
		conf := filepath.Join(dir, "mermaid.json")
		if err := os.WriteFile(conf, data, 0o644); err != nil {
			e.initErr = fmt.Errorf("writing mermaid config: %w", err)
			return
		}
		e.dir, e.confPath = dir, conf
	})
	return e.initErr
}

// Render writes source to a temp file, runs mmdc on it and returns the
// produced SVG with its root id set to invocationID.
func (e *CLIEngine) Render(ctx context.Context, invocationID, source string) (string, error) {
	if err := e.init(); err != nil {
		return "", err
	}

	// Per-call files keep overlapping invocations apart.
	in := filepath.Join(e.dir, invocationID+".mmd")
	out := filepath.Join(e.dir, invocationID+".svg")
	defer os.Remove(in)
	defer os.Remove(out)

	if err := os.WriteFile(in, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("writing source: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path,
		"--input", in,
		"--output", out,
		"--configFile", e.confPath,
		"--svgId", invocationID,
		"--backgroundColor", "transparent",
		"--quiet",
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("mermaid-cli not found at %q: %w", e.path, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", parseCLIError(stderr.String())
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("reading output: %w", err)
	}
	return string(svg), nil
}

// Close removes the engine's work directory.
func (e *CLIEngine) Close() error {
	if e.dir == "" {
		return nil
	}
	return os.RemoveAll(e.dir)
}

var parseLineRe = regexp.MustCompile(`Parse error on line (\d+):`)

// parseCLIError turns mmdc's stderr into a SyntaxError, keeping the line
// number when mermaid reported one.
func parseCLIError(stderr string) error {
	var lines []string
	for _, l := range strings.Split(stderr, "\n") {
		l = strings.TrimSpace(l)
		// Stack frames add nothing for the author of the diagram.
		if l == "" || strings.HasPrefix(l, "at ") {
			continue
		}
		lines = append(lines, l)
	}
	msg := strings.Join(lines, "\n")
	if m := parseLineRe.FindStringSubmatchIndex(msg); m != nil {
		n, _ := strconv.Atoi(msg[m[2]:m[3]])
		return &SyntaxError{Line: n, Message: strings.TrimSpace(msg[m[1]:])}
	}
	return &SyntaxError{Message: msg}
}

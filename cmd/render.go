package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/flowminds/internal/progress"
	"github.com/ziadkadry99/flowminds/internal/render"
	"github.com/ziadkadry99/flowminds/internal/sanitize"
)

var renderCmd = &cobra.Command{
	Use:   "render <pattern>...",
	Short: "Render Mermaid files to SVG",
	Long: `Renders every file matching the given patterns ("**" is supported) and
writes <name>.svg next to each input, or into --out-dir. Preamble text before
the diagram declaration is stripped first. Files that fail to render are
reported and the command exits non-zero after the batch completes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().String("out-dir", "", "directory for SVG output (default: next to each input)")
	renderCmd.Flags().Int("concurrency", 0, "max parallel renders (overrides config)")
	rootCmd.AddCommand(renderCmd)
}

// renderFailure is one input that did not render.
type renderFailure struct {
	Path    string
	Message string
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Render.Concurrency
	}
	outDir, _ := cmd.Flags().GetString("out-dir")

	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %s", strings.Join(args, " "))
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", outDir, err)
		}
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	reporter := progress.NewReporter(os.Stderr)
	failures, err := renderFiles(context.Background(), engine, newSanitizer(cfg), files, outDir, concurrency, reporter)
	if err != nil {
		return err
	}

	for _, f := range failures {
		logger.Debug("render failed", "file", f.Path, "err", f.Message)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d diagram(s) failed to render", len(failures))
	}
	return nil
}

// expandPatterns resolves glob patterns to a sorted, de-duplicated file
// list. A pattern without glob metacharacters must name an existing file.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 && !strings.ContainsAny(pattern, "*?[{") {
			return nil, fmt.Errorf("%s: no such file", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// renderFiles renders files with at most concurrency renders in flight.
// Engine rejections are collected per file; only I/O errors abort the batch.
func renderFiles(ctx context.Context, engine render.Engine, sanitizer *sanitize.Sanitizer, files []string, outDir string, concurrency int, reporter progress.Reporter) ([]renderFailure, error) {
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	var (
		mu       sync.Mutex
		failures []renderFailure
	)

	reporter.Start(len(files))
	for _, path := range files {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			source := sanitizer.Sanitize(string(data))
			switch res := render.Once(ctx, engine, diagramID(path), source).(type) {
			case render.Rendered:
				out := svgPath(path, outDir)
				if err := os.WriteFile(out, []byte(res.Markup), 0644); err != nil {
					return fmt.Errorf("writing %s: %w", out, err)
				}
				reporter.Rendered(path)
			case render.Failed:
				reporter.Failed(path, res.Message)
				mu.Lock()
				failures = append(failures, renderFailure{Path: path, Message: res.Message})
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	reporter.Finish()
	if err != nil {
		return nil, err
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	return failures, nil
}

// svgPath swaps the input extension for .svg, placing the file in outDir
// when one is given.
func svgPath(path, outDir string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path)) + ".svg"
	if outDir == "" {
		return base
	}
	return filepath.Join(outDir, filepath.Base(base))
}

// diagramID derives a stable SVG root id from a file path, so re-rendering
// the same file produces the same markup.
func diagramID(path string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.ToSlash(path)))
	return "mermaid-" + strings.ReplaceAll(id.String(), "-", "")[:12]
}

// Package progress reports batch render progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives one outcome per diagram in a batch. Implementations are
// safe for concurrent use by render workers.
type Reporter interface {
	Start(total int)
	Rendered(path string)
	Failed(path, message string)
	// Finish prints the batch summary.
	Finish()
}

// NewReporter picks a line-oriented reporter under CI and an animated bar
// on an interactive terminal.
func NewReporter(out io.Writer) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &LogReporter{Out: out}
	}
	return &BarReporter{Out: out}
}

// tally counts outcomes for the summary line.
type tally struct {
	mu     sync.Mutex
	total  int
	done   int
	failed int
}

func (t *tally) start(total int) {
	t.mu.Lock()
	t.total, t.done, t.failed = total, 0, 0
	t.mu.Unlock()
}

func (t *tally) summary() string {
	return fmt.Sprintf("Rendered %d of %d diagram(s)", t.done-t.failed, t.total)
}

// BarReporter draws a progress bar labelled with the last finished file.
type BarReporter struct {
	Out io.Writer
	tally
	bar *progressbar.ProgressBar
}

func (r *BarReporter) Start(total int) {
	r.start(total)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("mermaid → svg"),
		progressbar.OptionSetWriter(r.Out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *BarReporter) Rendered(path string) { r.step(path, false) }

func (r *BarReporter) Failed(path, _ string) { r.step(path, true) }

func (r *BarReporter) step(path string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	if failed {
		r.failed++
	}
	if r.bar == nil {
		return
	}
	r.bar.Describe(path)
	_ = r.bar.Set(r.done)
}

func (r *BarReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	fmt.Fprintln(r.Out, r.summary())
}

// LogReporter writes one line per diagram, for CI logs.
type LogReporter struct {
	Out io.Writer
	tally
}

func (r *LogReporter) Start(total int) {
	r.start(total)
	fmt.Fprintf(r.Out, "Rendering %d diagram(s)\n", total)
}

func (r *LogReporter) Rendered(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	fmt.Fprintf(r.Out, "[%d/%d] ok   %s\n", r.done, r.total, path)
}

func (r *LogReporter) Failed(path, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	r.failed++
	fmt.Fprintf(r.Out, "[%d/%d] FAIL %s: %s\n", r.done, r.total, path, message)
}

func (r *LogReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.Out, r.summary())
}

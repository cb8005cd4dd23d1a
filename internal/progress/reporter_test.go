package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestNewReporter(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter(&bytes.Buffer{}).(*LogReporter); !ok {
		t.Error("expected LogReporter when CI is set")
	}

	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	if _, ok := NewReporter(&bytes.Buffer{}).(*BarReporter); !ok {
		t.Error("expected BarReporter outside CI")
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &LogReporter{Out: &buf}
	r.Start(2)
	r.Rendered("a.mmd")
	r.Failed("b.mmd", "Parse error on line 2")
	r.Finish()

	want := "Rendering 2 diagram(s)\n" +
		"[1/2] ok   a.mmd\n" +
		"[2/2] FAIL b.mmd: Parse error on line 2\n" +
		"Rendered 1 of 2 diagram(s)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestBarReporterSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &BarReporter{Out: &buf}
	r.Start(20)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				r.Failed("bad.mmd", "boom")
				return
			}
			r.Rendered("ok.mmd")
		}()
	}
	wg.Wait()
	r.Finish()

	if !strings.HasSuffix(buf.String(), "Rendered 16 of 20 diagram(s)\n") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestBarReporterBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	r := &BarReporter{Out: &buf}
	r.Rendered("a.mmd")
	r.Finish()
}

// Package render turns sanitized Mermaid source into SVG and manages the
// asynchronous render lifecycle of one mount point.
package render

import (
	"context"
	"errors"
	"fmt"
)

// Engine converts diagram source into SVG markup. Implementations must
// tolerate overlapping calls with distinct invocation ids.
type Engine interface {
	Render(ctx context.Context, invocationID, source string) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, invocationID, source string) (string, error)

func (f EngineFunc) Render(ctx context.Context, invocationID, source string) (string, error) {
	return f(ctx, invocationID, source)
}

// Result is the outcome of one render cycle: either Rendered or Failed.
type Result interface {
	isResult()
}

// Rendered carries the SVG produced by a successful cycle.
type Rendered struct {
	Markup       string
	InvocationID string
}

// Failed carries the engine's message and the source it rejected, kept for
// the debug view.
type Failed struct {
	Message         string
	OffendingSource string
}

func (Rendered) isResult() {}
func (Failed) isResult()   {}

// DefaultFailureMessage is shown when the engine fails without a reason.
const DefaultFailureMessage = "Unknown Mermaid Syntax Error"

// ErrUnsupported is returned by engines for diagram types they cannot draw.
var ErrUnsupported = errors.New("unsupported diagram type")

// SyntaxError is an engine rejection of the diagram source. Line is 1-based
// and zero when unknown.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Parse error on line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Once renders source outside any lifecycle and folds the outcome into a
// Result. It backs the stateless HTTP and MCP render paths.
func Once(ctx context.Context, engine Engine, invocationID, source string) Result {
	markup, err := engine.Render(ctx, invocationID, source)
	if err != nil {
		return Failed{Message: failureMessage(err), OffendingSource: source}
	}
	return Rendered{Markup: markup, InvocationID: invocationID}
}

func failureMessage(err error) string {
	if err == nil {
		return DefaultFailureMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultFailureMessage
}

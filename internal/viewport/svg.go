package viewport

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNotSVG means the markup's root element is not <svg>.
var ErrNotSVG = errors.New("markup has no svg root element")

// ParseRoot reads the outermost <svg> element of markup and returns its
// geometry. The viewBox attribute wins; width/height in user units are the
// fallback. ok is false when neither is usable.
func ParseRoot(markup string) (box Box, ok bool, err error) {
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return Box{}, false, ErrNotSVG
		}
		if err != nil {
			return Box{}, false, fmt.Errorf("parsing svg: %w", err)
		}
		start, isStart := tok.(xml.StartElement)
		if !isStart {
			continue
		}
		if start.Name.Local != "svg" {
			return Box{}, false, ErrNotSVG
		}
		box, ok := rootGeometry(start.Attr)
		return box, ok, nil
	}
}

func rootGeometry(attrs []xml.Attr) (Box, bool) {
	var width, height string
	for _, a := range attrs {
		switch a.Name.Local {
		case "viewBox":
			if b, ok := parseViewBox(a.Value); ok {
				return b, true
			}
		case "width":
			width = a.Value
		case "height":
			height = a.Value
		}
	}
	w, wok := parseLength(width)
	h, hok := parseLength(height)
	if !wok || !hok {
		return Box{}, false
	}
	return Box{Width: w, Height: h}, true
}

func parseViewBox(s string) (Box, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return Box{}, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Box{}, false
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return Box{}, false
	}
	return Box{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}

// parseLength accepts plain numbers and px/pt values. Percentages are
// relative to the container and carry no intrinsic size.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "px"), "pt")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SVGElement is an Element backed by parsed markup and a container.
type SVGElement struct {
	box    Box
	hasBox bool
	parent Observable
}

// NewSVGElement parses markup's root and binds it to parent. It fails only
// when markup has no <svg> root; missing geometry is reported later by
// ViewBox.
func NewSVGElement(markup string, parent Observable) (*SVGElement, error) {
	box, ok, err := ParseRoot(markup)
	if err != nil {
		return nil, err
	}
	return &SVGElement{box: box, hasBox: ok, parent: parent}, nil
}

func (e *SVGElement) ViewBox() (Box, bool) { return e.box, e.hasBox }

func (e *SVGElement) Parent() Observable { return e.parent }

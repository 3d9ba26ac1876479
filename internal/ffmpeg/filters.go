package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// Format forces the output pixel format
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	if pixFmt == "" {
		return fb
	}
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// FitWidth returns the frame size after scaling to maxWidth with the aspect
// ratio kept and the height rounded to an even number. Frames narrower than
// maxWidth, or a non-positive maxWidth, keep their size.
func FitWidth(width, height, maxWidth int) (int, int) {
	if maxWidth <= 0 || width <= maxWidth || width == 0 {
		return width, height
	}
	h := int(float64(height)*float64(maxWidth)/float64(width)/2+0.5) * 2
	if h < 2 {
		h = 2
	}
	return maxWidth, h
}

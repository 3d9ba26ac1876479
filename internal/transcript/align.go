package transcript

import (
	"strings"

	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/kikiluvv/shotlist/internal/speech"
)

// Align assigns each segment to the first span containing its start time and
// joins the texts per span in segment order. Segments starting outside every
// span are dropped. The result has one entry per span.
func Align(spans []scene.Span, segments []speech.Segment) []string {
	parts := make([]strings.Builder, len(spans))
	for _, seg := range segments {
		for i, span := range spans {
			if span.Contains(seg.Start) {
				parts[i].WriteString(seg.Text)
				break
			}
		}
	}

	out := make([]string, len(spans))
	for i := range parts {
		out[i] = parts[i].String()
	}
	return out
}

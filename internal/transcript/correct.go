package transcript

import (
	"strings"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/speech"
	"github.com/pmezard/go-difflib/difflib"
)

// Options tunes the fuzzy search
type Options struct {
	// SearchMargin is how many runes before the cursor, and past the
	// segment length after it, candidate starts may lie
	SearchMargin int
	// MinSimilarity is the ratio a candidate must exceed to replace the text
	MinSimilarity float64
}

// DefaultOptions matches the config defaults
func DefaultOptions() Options {
	return Options{SearchMargin: 50, MinSimilarity: 0.6}
}

// OptionsFromConfig converts the correction config section
func OptionsFromConfig(cfg config.CorrectionConfig) Options {
	return Options{SearchMargin: cfg.SearchMargin, MinSimilarity: cfg.MinSimilarity}
}

// Correct re-sources each segment's text from the flat transcript. A cursor
// into the transcript only moves forward, so segments are matched in order.
// Segments without a close enough match keep their own text. Every result is
// normalized; timing is never changed. It returns the corrected copies and
// the final cursor (in runes).
func Correct(segments []speech.Segment, flat string, cursor int, opts Options) ([]speech.Segment, int) {
	ref := runeStrings(strings.TrimSpace(flat))
	out := make([]speech.Segment, len(segments))

	for k, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if match, end, ok := bestMatch(text, ref, cursor, opts); ok {
			text = match
			cursor = end
		}
		seg.Text = Normalize(text)
		out[k] = seg
	}
	return out, cursor
}

// bestMatch finds the transcript substring most similar to text. Earlier
// starts, then shorter candidates, win ties.
func bestMatch(text string, ref []string, cursor int, opts Options) (string, int, bool) {
	if text == "" || len(ref) == 0 {
		return "", cursor, false
	}

	needle := runeStrings(text)
	n, total := len(needle), len(ref)
	m := difflib.NewMatcher(needle, nil)

	best := 0.0
	bestStart, bestEnd := -1, -1

	lo := max(0, cursor-opts.SearchMargin)
	hi := min(total, cursor+n+opts.SearchMargin)
	for i := lo; i < hi; i++ {
		jmax := min(total, i+2*n)
		for j := i + n/2; j <= jmax; j++ {
			m.SetSeq2(ref[i:j])
			if r := m.Ratio(); r > best {
				best, bestStart, bestEnd = r, i, j
			}
		}
	}

	if bestStart < 0 || best <= opts.MinSimilarity {
		return "", cursor, false
	}
	return strings.Join(ref[bestStart:bestEnd], ""), bestEnd, true
}

// runeStrings splits s into one string per rune, the unit difflib compares
func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

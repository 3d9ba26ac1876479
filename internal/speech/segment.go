package speech

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kikiluvv/shotlist/pkg/util"
)

// Segment is a timed piece of transcript
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns the segment end time in seconds
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// splitMarks are the clause and sentence marks a segment is cut after
var splitMarks = map[rune]struct{}{
	'。': {}, '！': {}, '？': {}, // 。！？
	'!': {}, '?': {},
	'；': {}, ';': {}, // ；
	'，': {}, // ，
}

func isSplitMark(r rune) bool {
	_, ok := splitMarks[r]
	return ok
}

// SplitByPunctuation cuts the segment after every split mark. Each piece
// gets a share of the time proportional to its rune count; timing is not
// re-measured against the audio.
func (s Segment) SplitByPunctuation() []Segment {
	runes := []rune(s.Text)
	n := len(runes)
	if n == 0 || !strings.ContainsFunc(s.Text, isSplitMark) {
		return []Segment{s}
	}

	total := float64(n)
	var out []Segment
	last := 0
	for i, r := range runes {
		if !isSplitMark(r) || i == last {
			continue
		}
		out = append(out, Segment{
			Start:    s.Start + s.Duration*float64(last)/total,
			Duration: s.Duration * float64(i-last+1) / total,
			Text:     string(runes[last : i+1]),
		})
		last = i + 1
	}

	if last < n {
		out = append(out, Segment{
			Start:    s.Start + s.Duration*float64(last)/total,
			Duration: s.Duration * float64(n-last) / total,
			Text:     string(runes[last:]),
		})
	}
	return out
}

// SplitAll splits every segment at punctuation, keeping order
func SplitAll(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		out = append(out, s.SplitByPunctuation()...)
	}
	return out
}

// WriteSRT renders segments as SubRip cues numbered from 1
func WriteSRT(w io.Writer, segments []Segment) error {
	bw := bufio.NewWriter(w)
	for i, s := range segments {
		if i > 0 {
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n",
			i+1, util.FormatSRTTime(s.Start), util.FormatSRTTime(s.End()), s.Text)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

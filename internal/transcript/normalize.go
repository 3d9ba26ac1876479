package transcript

import (
	"regexp"
	"strings"
)

var (
	spacedPunct = regexp.MustCompile(`\s*([，。！？、；：“”"（）])\s*`)
	longDots    = regexp.MustCompile(`\.{3,}`)
)

// terminalMarks end a sentence; text ending in anything else gets a full stop
const terminalMarks = ",，”。！？.!?"

// Normalize tidies recognizer output: whitespace runs become one space,
// spaces around CJK punctuation are removed, dot runs become an ellipsis and
// a full stop is appended when the text has no terminal mark. Empty text
// stays empty.
func Normalize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = spacedPunct.ReplaceAllString(text, "$1")
	text = longDots.ReplaceAllString(text, "...")

	if text == "" {
		return text
	}
	last := []rune(text)
	if !strings.ContainsRune(terminalMarks, last[len(last)-1]) {
		text += "。"
	}
	return text
}

// Package textwrap breaks body text into lines that fit a printable column.
package textwrap

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mode selects how line width is measured
type Mode string

const (
	// ModeWidth measures candidate lines with real glyph metrics.
	ModeWidth Mode = "width"
	// ModeChars counts runes and ignores glyph widths.
	ModeChars Mode = "chars"
)

// ParseMode accepts "width" or "chars"; empty means width
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeWidth:
		return ModeWidth, nil
	case ModeChars:
		return ModeChars, nil
	default:
		return "", fmt.Errorf("invalid wrap mode %q (must be 'width' or 'chars')", s)
	}
}

// MeasureFunc returns the width of s in the caller's unit (points, or runes
// in ModeChars).
type MeasureFunc func(s string) float64

// CharCount measures a string by its rune count
func CharCount(s string) float64 {
	return float64(utf8.RuneCountInString(s))
}

// Wrap splits text on explicit newlines and greedily packs the words of each
// paragraph into lines no wider than maxWidth. A whitespace-only paragraph
// becomes one empty line. A single word wider than maxWidth is emitted alone.
// The result always holds at least one line.
func Wrap(text string, maxWidth float64, measure MeasureFunc) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, wrapWords(words, maxWidth, measure)...)
	}

	return lines
}

// WrapChars wraps text to at most charsPerLine runes per line
func WrapChars(text string, charsPerLine int) []string {
	return Wrap(text, float64(charsPerLine), CharCount)
}

func wrapWords(words []string, maxWidth float64, measure MeasureFunc) []string {
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

package textwrap

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sixPoints approximates a monospaced 10pt font.
func sixPoints(s string) float64 {
	return 6 * CharCount(s)
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth float64
		want     []string
	}{
		{
			name:     "empty text yields one empty line",
			text:     "",
			maxWidth: 60,
			want:     []string{""},
		},
		{
			name:     "fits on one line",
			text:     "hello world",
			maxWidth: 66,
			want:     []string{"hello world"},
		},
		{
			name:     "greedy break",
			text:     "one two three four",
			maxWidth: 60,
			want:     []string{"one two", "three four"},
		},
		{
			name:     "blank lines preserved",
			text:     "first\n\nsecond\n   \nthird",
			maxWidth: 600,
			want:     []string{"first", "", "second", "", "third"},
		},
		{
			name:     "overlong word stays whole on its own line",
			text:     "a supercalifragilistic b",
			maxWidth: 30,
			want:     []string{"a", "supercalifragilistic", "b"},
		},
		{
			name:     "runs of whitespace collapse",
			text:     "alpha    beta\tgamma",
			maxWidth: 600,
			want:     []string{"alpha beta gamma"},
		},
		{
			name:     "carriage returns are line breaks",
			text:     "left\r\nright\rcenter",
			maxWidth: 600,
			want:     []string{"left", "right", "center"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.text, tt.maxWidth, sixPoints))
		})
	}
}

func TestWrapChars(t *testing.T) {
	lines := WrapChars("the quick brown fox jumps over the lazy dog", 10)

	assert.Equal(t, []string{"the quick", "brown fox", "jumps over", "the lazy", "dog"}, lines)
	for _, line := range lines {
		assert.LessOrEqual(t, CharCount(line), 10.0)
	}
}

func TestWrap_LinesNeverExceedWidth(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocabulary := []string{"a", "letter", "head", "quarterly", "report", "of", "the", "board", "x", "minutes"}

	for run := 0; run < 50; run++ {
		var b strings.Builder
		widest := 0.0
		for i := 0; i < 20+rng.Intn(200); i++ {
			word := vocabulary[rng.Intn(len(vocabulary))]
			if w := sixPoints(word); w > widest {
				widest = w
			}
			b.WriteString(word)
			if rng.Intn(15) == 0 {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}

		maxWidth := widest + float64(rng.Intn(300))
		lines := Wrap(b.String(), maxWidth, sixPoints)
		require.NotEmpty(t, lines)
		for _, line := range lines {
			assert.LessOrEqual(t, sixPoints(line), maxWidth, "line %q", line)
		}
	}
}

func TestWrap_BlankLineCount(t *testing.T) {
	text := "intro\n\nbody paragraph with several words\n\n\nclosing"
	lines := Wrap(text, 60, sixPoints)

	var blanks []int
	for i, line := range lines {
		if line == "" {
			blanks = append(blanks, i)
		}
	}
	assert.Len(t, blanks, 3)
	assert.Equal(t, "intro", lines[0])
	assert.Equal(t, "closing", lines[len(lines)-1])
}

func TestWrap_PreservesWords(t *testing.T) {
	text := "Dear members, the meeting is moved to Thursday at the usual place."
	lines := Wrap(text, 80, sixPoints)

	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(lines, " ")))
}

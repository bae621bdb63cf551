package layout

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runeWidth measures one unit per rune.
var runeWidth = MeasureFunc(func(s string) float64 { return float64(utf8.RuneCountInString(s)) })

func TestWrap_Basic(t *testing.T) {
	lines := Wrap("the quick brown fox jumps over the lazy dog", 10, runeWidth)
	assert.Equal(t, []string{"the quick", "brown fox", "jumps over", "the lazy", "dog"}, lines)
}

func TestWrap_Empty(t *testing.T) {
	assert.Nil(t, Wrap("", 10, runeWidth))
	assert.Nil(t, Wrap("  \n\t ", 10, runeWidth))
}

func TestWrap_LongWordKeptWhole(t *testing.T) {
	lines := Wrap("a supercalifragilistic word", 8, runeWidth)
	assert.Equal(t, []string{"a", "supercalifragilistic", "word"}, lines)
}

func TestWrap_ExplicitNewlinesAndBlankLines(t *testing.T) {
	lines := Wrap("first line\r\n\nsecond   paragraph here", 100, runeWidth)
	assert.Equal(t, []string{"first line", "", "second paragraph here"}, lines)
}

func TestWrap_DropsUnsupportedCharacters(t *testing.T) {
	lines := Wrap("café ☃ naïve \U0001F600ok", 100, runeWidth)
	assert.Equal(t, []string{"café naïve ok"}, lines)
}

func TestWrap_ExactFit(t *testing.T) {
	lines := Wrap("abcd efgh", 9, runeWidth)
	assert.Equal(t, []string{"abcd efgh"}, lines)
}

// Lines never exceed the limit unless they hold a single word, and joining
// the lines of a paragraph gives back its words.
func TestWrap_Invariants(t *testing.T) {
	faker := gofakeit.New(42)
	for i := 0; i < 50; i++ {
		text := faker.Paragraph(1, 4, 12, " ")
		width := float64(10 + i*3)

		lines := Wrap(text, width, runeWidth)
		require.NotEmpty(t, lines)
		for _, l := range lines {
			if strings.Contains(l, " ") {
				assert.LessOrEqual(t, runeWidth.Width(l), width, "line %q", l)
			}
		}
		assert.Equal(t, strings.Join(strings.Fields(Sanitize(text)), " "), strings.Join(lines, " "))
	}
}

func TestWrap_HelveticaMetrics(t *testing.T) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	m := MeasureFunc(func(s string) float64 { return pdf.GetStringWidth(tr(s)) })

	faker := gofakeit.New(7)
	text := faker.Paragraph(3, 5, 14, "\n")
	const width = 200.0

	lines := Wrap(text, width, m)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		if strings.Contains(l, " ") {
			assert.LessOrEqual(t, m.Width(l), width)
		}
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b\nc", Sanitize("a\tb\r\nc"))
	assert.Equal(t, "€10", Sanitize("€10\x00"))
	assert.Equal(t, "", Sanitize("中文"))
}

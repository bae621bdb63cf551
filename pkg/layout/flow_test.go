package layout

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitMetrics gives every rune the width of half the font size.
type unitMetrics struct{}

func (unitMetrics) Width(s string, st Style) float64 {
	return float64(utf8.RuneCountInString(s)) * st.Size / 2
}

var flowTheme = Theme{
	Title:      Style{Size: 10, Leading: 1},
	Heading:    Style{Size: 10, Leading: 1},
	Label:      Style{Size: 10, Leading: 1},
	Body:       Style{Size: 10, Leading: 1},
	Note:       Style{Size: 10, Leading: 1},
	LabelWidth: 40,
}

func allTexts(pages []PageContent) []string {
	var out []string
	for _, p := range pages {
		for _, t := range p.Texts {
			out = append(out, t.Value)
		}
	}
	return out
}

func TestFlow_ParagraphPaginates(t *testing.T) {
	page := Page{Width: 120, Height: 100, Margin: 10}
	f := NewFlow(page, flowTheme, unitMetrics{})

	// 100 lines of 10pt on pages holding 8 lines each.
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("word\n")
	}
	f.Paragraph(b.String())

	pages := f.Pages()
	require.Len(t, pages, 13)
	for _, p := range pages {
		for _, tx := range p.Texts {
			assert.GreaterOrEqual(t, tx.Y, page.Margin-1e-9)
			assert.LessOrEqual(t, tx.Y, page.Top())
		}
	}
	assert.Len(t, pages[0].Texts, 8)
	assert.Len(t, pages[12].Texts, 4)
	assert.Equal(t, page.Top()-10, pages[1].Texts[0].Y)
}

func TestFlow_HeadingKeptWithBody(t *testing.T) {
	page := Page{Width: 120, Height: 100, Margin: 10}
	f := NewFlow(page, flowTheme, unitMetrics{})
	f.Paragraph("a\nb\nc\nd\ne\nf\ng")
	f.Heading("Section")
	f.Paragraph("body")

	pages := f.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, "Section", pages[1].Texts[0].Value)
	assert.Equal(t, "body", pages[1].Texts[1].Value)
	assert.Len(t, pages[1].Rules, 1)
}

func TestFlow_FieldWrapsValueBesideLabel(t *testing.T) {
	page := Page{Width: 160, Height: 200, Margin: 10}
	f := NewFlow(page, flowTheme, unitMetrics{})
	f.Field("Email", "one two three four five six")

	texts := f.Pages()[0].Texts
	require.Len(t, texts, 3)
	assert.Equal(t, "Email", texts[0].Value)
	assert.Equal(t, 10.0, texts[0].X)
	assert.Equal(t, 50.0, texts[1].X)
	assert.Equal(t, texts[0].Y, texts[1].Y)
	assert.Equal(t, []string{"one two three four", "five six"}, []string{texts[1].Value, texts[2].Value})
}

func TestFlow_PageBreakSkipsEmptyPage(t *testing.T) {
	f := NewFlow(Page{Width: 100, Height: 100, Margin: 10}, flowTheme, unitMetrics{})
	f.PageBreak()
	assert.Len(t, f.Pages(), 1)
	f.Paragraph("x")
	f.PageBreak()
	assert.Len(t, f.Pages(), 2)
}

func TestFlow_SameInputSameLayout(t *testing.T) {
	build := func() []PageContent {
		f := NewFlow(A4, DefaultTheme, unitMetrics{})
		f.Title("Application")
		f.Field("Name", "Ada Lovelace")
		f.Heading("Job description")
		f.Paragraph(strings.Repeat("analytical engine ", 400))
		return f.Pages()
	}
	a, b := build(), build()
	assert.Equal(t, len(a), len(b))
	assert.Equal(t, allTexts(a), allTexts(b))
}

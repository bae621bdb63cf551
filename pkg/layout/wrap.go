package layout

import "strings"

// Measurer reports the rendered width of a string under a fixed font and
// size.
type Measurer interface {
	Width(s string) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(string) float64

func (f MeasureFunc) Width(s string) float64 { return f(s) }

// Wrap breaks text into lines no wider than maxWidth using greedy word
// placement. Words are never split: a word wider than maxWidth is placed on
// a line of its own. Whitespace runs collapse to one space, explicit newlines
// start a new line and blank lines are kept as empty strings. Text is
// sanitized first, so the result only holds characters the fonts can encode.
func Wrap(text string, maxWidth float64, m Measurer) []string {
	text = strings.TrimSpace(Sanitize(text))
	if text == "" {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, wrapWords(words, maxWidth, m)...)
	}
	return lines
}

func wrapWords(words []string, maxWidth float64, m Measurer) []string {
	var lines []string
	var builder strings.Builder

	emit := func() {
		if builder.Len() == 0 {
			return
		}
		lines = append(lines, builder.String())
		builder.Reset()
	}

	for _, w := range words {
		if builder.Len() == 0 {
			builder.WriteString(w)
			continue
		}
		candidate := builder.String() + " " + w
		if m.Width(candidate) <= maxWidth {
			builder.WriteByte(' ')
			builder.WriteString(w)
			continue
		}
		emit()
		builder.WriteString(w)
	}
	emit()
	return lines
}

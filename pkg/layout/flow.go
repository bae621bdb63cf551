package layout

// Style selects font, weight and size for a run of text. FontStyle uses the
// PDF core font convention: "", "B", "I" or "BI".
type Style struct {
	Font      string
	FontStyle string
	Size      float64
	Leading   float64
	Gray      int
}

// LineHeight is the vertical advance of one line in this style.
func (s Style) LineHeight() float64 {
	if s.Leading <= 0 {
		return s.Size * 1.2
	}
	return s.Size * s.Leading
}

// Metrics measures text under a style.
type Metrics interface {
	Width(s string, st Style) float64
}

type Theme struct {
	Title   Style
	Heading Style
	Label   Style
	Body    Style
	Note    Style
	// LabelWidth is the column reserved for field labels.
	LabelWidth float64
}

var DefaultTheme = Theme{
	Title:      Style{Font: "Helvetica", FontStyle: "B", Size: 18, Leading: 1.4},
	Heading:    Style{Font: "Helvetica", FontStyle: "B", Size: 13, Leading: 1.5},
	Label:      Style{Font: "Helvetica", FontStyle: "B", Size: 10, Leading: 1.45},
	Body:       Style{Font: "Helvetica", Size: 10, Leading: 1.45},
	Note:       Style{Font: "Helvetica", FontStyle: "I", Size: 9, Leading: 1.4, Gray: 90},
	LabelWidth: 130,
}

// Text is one positioned line. Y is the baseline, measured from the bottom
// edge of the page.
type Text struct {
	X, Y  float64
	Value string
	Style Style
}

// Rule is a horizontal line at height Y.
type Rule struct {
	X1, X2, Y float64
}

type PageContent struct {
	Texts []Text
	Rules []Rule
}

// Flow lays content out top to bottom across as many pages as it needs.
type Flow struct {
	page    Page
	theme   Theme
	metrics Metrics
	cursor  *Cursor
	pages   []PageContent
}

func NewFlow(p Page, th Theme, m Metrics) *Flow {
	f := &Flow{page: p, theme: th, metrics: m}
	f.cursor = NewCursor(p, func(int) {
		f.pages = append(f.pages, PageContent{})
	})
	return f
}

func (f *Flow) Pages() []PageContent { return f.pages }

func (f *Flow) Cursor() *Cursor { return f.cursor }

func (f *Flow) current() *PageContent { return &f.pages[len(f.pages)-1] }

func (f *Flow) measurer(st Style) Measurer {
	return MeasureFunc(func(s string) float64 { return f.metrics.Width(s, st) })
}

// lines writes wrapped text at x, starting new pages as needed, and returns
// the number of lines written.
func (f *Flow) lines(text string, st Style, x, width float64) int {
	lh := st.LineHeight()
	out := Wrap(text, width, f.measurer(st))
	for _, l := range out {
		f.cursor.Ensure(lh)
		if l != "" {
			f.current().Texts = append(f.current().Texts, Text{X: x, Y: f.cursor.Y() - st.Size, Value: l, Style: st})
		}
		f.cursor.Advance(lh)
	}
	return len(out)
}

func (f *Flow) Title(text string) {
	f.lines(text, f.theme.Title, f.page.Margin, f.page.ContentWidth())
	f.Space(6)
}

// Heading starts a section. It is kept on the same page as at least the
// first body line that follows it.
func (f *Flow) Heading(text string) {
	f.Space(8)
	f.cursor.Ensure(f.theme.Heading.LineHeight() + 4 + f.theme.Body.LineHeight())
	f.lines(text, f.theme.Heading, f.page.Margin, f.page.ContentWidth())
	f.Rule()
	f.Space(4)
}

func (f *Flow) Paragraph(text string) {
	f.lines(text, f.theme.Body, f.page.Margin, f.page.ContentWidth())
}

func (f *Flow) Note(text string) {
	f.lines(text, f.theme.Note, f.page.Margin, f.page.ContentWidth())
}

// Field writes a label in the left column and its wrapped value beside it.
func (f *Flow) Field(label, value string) {
	lh := f.theme.Body.LineHeight()
	if f.theme.Label.LineHeight() > lh {
		lh = f.theme.Label.LineHeight()
	}
	f.cursor.Ensure(lh)
	f.current().Texts = append(f.current().Texts, Text{
		X:     f.page.Margin,
		Y:     f.cursor.Y() - f.theme.Label.Size,
		Value: Sanitize(label),
		Style: f.theme.Label,
	})
	x := f.page.Margin + f.theme.LabelWidth
	if n := f.lines(value, f.theme.Body, x, f.page.ContentWidth()-f.theme.LabelWidth); n == 0 {
		f.cursor.Advance(lh)
	}
}

// Rule draws a hairline across the content width just below the cursor.
func (f *Flow) Rule() {
	f.current().Rules = append(f.current().Rules, Rule{
		X1: f.page.Margin,
		X2: f.page.Width - f.page.Margin,
		Y:  f.cursor.Y() - 2,
	})
}

// Space moves the cursor down by h without crossing the bottom margin. It is
// dropped at the top of a page.
func (f *Flow) Space(h float64) {
	if f.cursor.AtTop() {
		return
	}
	if f.cursor.Remaining() < h {
		f.cursor.NewPage()
		return
	}
	f.cursor.Advance(h)
}

// PageBreak starts a new page unless the current one is still empty.
func (f *Flow) PageBreak() {
	if !f.cursor.AtTop() {
		f.cursor.NewPage()
	}
}

package layout

// Page describes the geometry shared by every page of a flow, in points.
type Page struct {
	Width  float64
	Height float64
	Margin float64
}

// A4 is the default summary page.
var A4 = Page{Width: 595.28, Height: 841.89, Margin: 50}

func (p Page) ContentWidth() float64 { return p.Width - 2*p.Margin }

// Top is where the cursor sits on a fresh page.
func (p Page) Top() float64 { return p.Height - p.Margin }

// Cursor tracks the vertical write position. Coordinates grow upwards from
// the bottom edge of the page, so writing moves the cursor down towards the
// bottom margin.
type Cursor struct {
	page      Page
	y         float64
	pages     int
	onNewPage func(index int)
}

// NewCursor starts the first page. onNewPage, when set, is called with the
// zero-based index of every page that is started, including the first.
func NewCursor(p Page, onNewPage func(index int)) *Cursor {
	c := &Cursor{page: p, onNewPage: onNewPage}
	c.NewPage()
	return c
}

func (c *Cursor) Y() float64 { return c.y }

func (c *Cursor) Pages() int { return c.pages }

// Remaining is the vertical space left above the bottom margin.
func (c *Cursor) Remaining() float64 { return c.y - c.page.Margin }

// AtTop reports whether nothing has been written on the current page.
func (c *Cursor) AtTop() bool { return c.y == c.page.Top() }

// Ensure starts a new page when less than h is left on the current one and
// reports whether it did. Content taller than a whole page is left to
// overflow rather than producing blank pages.
func (c *Cursor) Ensure(h float64) bool {
	if c.Remaining() >= h || c.AtTop() {
		return false
	}
	c.NewPage()
	return true
}

func (c *Cursor) NewPage() {
	c.y = c.page.Top()
	if c.onNewPage != nil {
		c.onNewPage(c.pages)
	}
	c.pages++
}

// Advance moves the cursor down by h.
func (c *Cursor) Advance(h float64) { c.y -= h }

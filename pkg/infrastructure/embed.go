package infrastructure

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	pdfread "github.com/ledongthuc/pdf"
)

// EmbedError reports that pages of a secondary PDF could not be copied into
// the document being generated.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string { return "embed pages: " + e.Err.Error() }

func (e *EmbedError) Unwrap() error { return e.Err }

// PageCount parses a PDF and returns its number of pages.
func PageCount(data []byte) (n int, err error) {
	if len(data) == 0 {
		return 0, errors.New("empty document")
	}
	// the reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("read pdf: %v", r)
		}
	}()
	rd, err := pdfread.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	n = rd.NumPage()
	if n == 0 {
		return 0, errors.New("read pdf: document has no pages")
	}
	return n, nil
}

// pageCopier appends pages of other PDFs to a document. All sources go
// through one importer so their form XObject names do not collide.
type pageCopier struct {
	doc *fpdf.Fpdf
	imp *gofpdi.Importer
	// the importer keys sources by the address of their reader, so each one
	// is kept reachable until the document is written
	sources []*io.ReadSeeker
}

func newPageCopier(doc *fpdf.Fpdf) *pageCopier {
	return &pageCopier{doc: doc, imp: gofpdi.NewImporter()}
}

// appendPages copies pages 1..pages of src to the end of the document, each
// on a page of its original size. Any failure, including a panic from the
// importer, is returned as an *EmbedError; the document must then be
// discarded.
func (c *pageCopier) appendPages(src []byte, pages int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EmbedError{Err: fmt.Errorf("%v", r)}
		}
	}()

	rs := new(io.ReadSeeker)
	*rs = bytes.NewReader(src)
	c.sources = append(c.sources, rs)
	for i := 1; i <= pages; i++ {
		tpl := c.imp.ImportPageFromStream(c.doc, rs, i, "/MediaBox")
		w, h := importedPageSize(c.imp, i)
		c.doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		c.imp.UseImportedTemplate(c.doc, tpl, 0, 0, w, h)
		if c.doc.Err() {
			return &EmbedError{Err: c.doc.Error()}
		}
	}
	return nil
}

func importedPageSize(imp *gofpdi.Importer, page int) (float64, float64) {
	if boxes, ok := imp.GetPageSizes()[page]; ok {
		if box, ok := boxes["/MediaBox"]; ok && box["w"] > 0 && box["h"] > 0 {
			return box["w"], box["h"]
		}
	}
	return defaultPage.Width, defaultPage.Height
}

// Package render produces page surfaces for paged-HTML document types
// (docx, eml). It does not rasterize content; it derives page geometry and
// count from the document itself and addresses each surface with a stable
// reference that the asset pipeline serves.
package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"subview/internal/domain"
	"subview/internal/port"
)

const (
	// US Letter at 96dpi, used when a document declares no page size.
	defaultPageWidthPx  = 816.0
	defaultPageHeightPx = 1056.0

	// Twips (twentieths of a point) to CSS pixels.
	pxPerTwip = 96.0 / 72.0 / 20.0
)

// Renderer implements port.PageRenderer for docx and eml documents.
type Renderer struct{}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{}
}

var _ port.PageRenderer = (*Renderer)(nil)

// Open prepares a document for page-surface rendering. The page count is
// final on return; surfaces are produced lazily per page.
func (r *Renderer) Open(_ context.Context, doc domain.Document, data []byte) (port.RenderedDocument, error) {
	switch doc.Type {
	case domain.DocTypeDOCX:
		return openDocx(doc, data)
	case domain.DocTypeEML:
		return &renderedDoc{
			docID:    doc.ID,
			pages:    1,
			widthPx:  defaultPageWidthPx,
			heightPx: defaultPageHeightPx,
		}, nil
	default:
		return nil, domain.ErrUnsupportedFileType
	}
}

// openDocx derives the page count from rendered page-break markers in the
// main document part and the page geometry from the section properties.
func openDocx(doc domain.Document, data []byte) (*renderedDoc, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", doc.Name, err)
	}

	var body []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening document part of %s: %w", doc.Name, err)
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading document part of %s: %w", doc.Name, err)
		}
		break
	}
	if body == nil {
		return nil, fmt.Errorf("%s has no main document part", doc.Name)
	}

	pages := 1 + bytes.Count(body, []byte("lastRenderedPageBreak")) + bytes.Count(body, []byte(`w:type="page"`))

	w, h := pageSize(body)
	return &renderedDoc{
		docID:    doc.ID,
		pages:    pages,
		widthPx:  w,
		heightPx: h,
	}, nil
}

// pageSize reads the first pgSz element's dimensions (twips) and converts
// them to pixels. Falls back to US Letter.
func pageSize(body []byte) (w, h float64) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return defaultPageWidthPx, defaultPageHeightPx
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "pgSz" {
			continue
		}
		var twipW, twipH float64
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "w":
				fmt.Sscanf(attr.Value, "%f", &twipW)
			case "h":
				fmt.Sscanf(attr.Value, "%f", &twipH)
			}
		}
		if twipW > 0 && twipH > 0 {
			return twipW * pxPerTwip, twipH * pxPerTwip
		}
		return defaultPageWidthPx, defaultPageHeightPx
	}
}

// renderedDoc is a fixed-geometry rendered document.
type renderedDoc struct {
	docID    string
	pages    int
	widthPx  float64
	heightPx float64
}

func (d *renderedDoc) PageCount() int { return d.pages }

func (d *renderedDoc) RenderPage(_ context.Context, page int) (*port.RenderedPage, error) {
	if page < 1 || page > d.pages {
		return nil, domain.ErrPageOutOfRange
	}
	return &port.RenderedPage{
		Index:      page,
		WidthPx:    d.widthPx,
		HeightPx:   d.heightPx,
		SurfaceRef: fmt.Sprintf("surface://%s/%d", d.docID, page),
	}, nil
}

func (d *renderedDoc) Close() error { return nil }

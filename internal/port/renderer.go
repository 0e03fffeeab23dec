package port

import (
	"context"

	"subview/internal/domain"
)

// RenderedPage is one renderable page surface of known pixel dimensions
// produced by an external rendering engine. SurfaceRef addresses the
// rendered output (an asset URL or frame handle); the page is rendered
// exactly once and addressed by index thereafter.
type RenderedPage struct {
	Index    int     `json:"index"` // 1-based
	WidthPx  float64 `json:"widthPx"`
	HeightPx float64 `json:"heightPx"`
	SurfaceRef string `json:"surfaceRef"`
}

// RenderedDocument exposes a rendered document's pages. PageCount is known
// as soon as Open returns; individual surfaces may be produced lazily.
type RenderedDocument interface {
	PageCount() int
	// RenderPage renders (or returns the already-rendered) 1-based page.
	RenderPage(ctx context.Context, page int) (*RenderedPage, error)
	Close() error
}

// PageRenderer is the opaque per-format rendering engine (DOCX-to-HTML
// converter, EML renderer). The core treats it as a black box that
// asynchronously yields a page count and per-page surfaces.
type PageRenderer interface {
	Open(ctx context.Context, doc domain.Document, data []byte) (RenderedDocument, error)
}

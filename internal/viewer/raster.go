package viewer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/avast/retry-go/v4"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/geometry"
	"subview/internal/overlay"
	"subview/internal/port"
)

// pointsPerInch / pixelsPerInch convert PDF point dimensions to CSS pixels.
const (
	pointsPerInch = 72.0
	pixelsPerInch = 96.0
)

// rasterAdapter serves paged-raster documents: PDFs (page count and per-page
// dimensions via pdfcpu) and single-page images.
type rasterAdapter struct {
	base
	source port.DocumentSource
	pages  []PageInfo
}

func newRasterAdapter(doc domain.Document, fields []domain.ExtractedField, source port.DocumentSource, norm *geometry.Normalizer, cfg config.ViewerConfig, log *zap.Logger, onPageChange func(int)) *rasterAdapter {
	return &rasterAdapter{
		base:   newBase(doc, fields, norm, cfg, log, onPageChange),
		source: source,
	}
}

func (r *rasterAdapter) Load(ctx context.Context) {
	gen := r.beginLoad()
	go r.load(ctx, gen)
}

func (r *rasterAdapter) Retry(ctx context.Context) {
	r.Load(ctx)
}

func (r *rasterAdapter) load(ctx context.Context, gen uint64) {
	var data []byte
	err := retry.Do(
		func() error {
			var ferr error
			data, ferr = r.source.Fetch(ctx, r.doc.URL)
			return ferr
		},
		retry.Attempts(r.cfg.LoadRetries+1),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		r.completeLoad(gen, 0, fmt.Errorf("fetching %s: %w", r.doc.Name, err), nil)
		return
	}
	if ctx.Err() != nil {
		return
	}

	var pages []PageInfo
	switch r.doc.Type {
	case domain.DocTypePDF:
		pages, err = parsePDFPages(data)
	default:
		pages, err = parseImagePage(data)
	}
	if err != nil {
		r.completeLoad(gen, 0, err, nil)
		return
	}
	r.completeLoad(gen, len(pages), nil, func() {
		r.pages = pages
	})
}

func (r *rasterAdapter) Page(n int) (*PageInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != domain.AdapterReady {
		return nil, domain.ErrDocumentNotReady
	}
	if n < 1 || n > len(r.pages) {
		return nil, domain.ErrPageOutOfRange
	}
	p := r.pages[n-1]
	return &p, nil
}

func (r *rasterAdapter) CurrentOverlay(activeFieldID string) (*overlay.Overlay, error) {
	r.mu.Lock()
	if r.state != domain.AdapterReady {
		r.mu.Unlock()
		return nil, domain.ErrDocumentNotReady
	}
	page := r.pages[r.current-1]
	fields := r.fieldsByPage[r.current]
	r.mu.Unlock()

	metrics := domain.PageMetrics{WidthPx: page.WidthPx, HeightPx: page.HeightPx}
	boxes := make([]*domain.NormalizedBox, len(fields))
	for i, f := range fields {
		boxes[i] = r.norm.Normalize(f.Provenance, r.doc.Type, metrics)
	}
	return overlay.Build(page.WidthPx, page.HeightPx, fields, boxes, activeFieldID), nil
}

func (r *rasterAdapter) Close() {
	r.invalidate()
}

// parsePDFPages reads the PDF just far enough to know the page count and the
// pixel dimensions of every page surface.
func parsePDFPages(data []byte) ([]PageInfo, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("resolving pdf page count: %w", err)
	}
	dims, err := pctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("reading pdf page dimensions: %w", err)
	}

	pages := make([]PageInfo, 0, len(dims))
	for i, d := range dims {
		pages = append(pages, PageInfo{
			Index:    i + 1,
			WidthPx:  d.Width * pixelsPerInch / pointsPerInch,
			HeightPx: d.Height * pixelsPerInch / pointsPerInch,
		})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}

// parseImagePage treats an image as a single-page document sized to the
// decoded dimensions.
func parseImagePage(data []byte) ([]PageInfo, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return []PageInfo{{
		Index:    1,
		WidthPx:  float64(cfg.Width),
		HeightPx: float64(cfg.Height),
	}}, nil
}

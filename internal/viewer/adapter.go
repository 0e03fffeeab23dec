// Package viewer implements the per-format document adapters: loading and
// paginating a document, associating extracted fields with the page or sheet
// they belong to, and producing the highlight overlay for the visible page.
package viewer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/geometry"
	"subview/internal/overlay"
	"subview/internal/port"
)

// Status is a snapshot of an adapter's load lifecycle.
type Status struct {
	State       domain.AdapterState `json:"state"`
	Error       string              `json:"error,omitempty"`
	PageCount   int                 `json:"pageCount"`
	CurrentPage int                 `json:"currentPage"`
}

// PageInfo describes the renderable surface of one page.
type PageInfo struct {
	Index      int     `json:"index"` // 1-based page or sheet index
	Name       string  `json:"name,omitempty"`
	WidthPx    float64 `json:"widthPx"`
	HeightPx   float64 `json:"heightPx"`
	SurfaceRef string  `json:"surfaceRef,omitempty"`
}

// Adapter is the polymorphic viewer capability all document types dispatch
// through. One instance serves one mounted document; switching documents
// closes the instance and mounts a fresh one.
//
// Lifecycle: idle -> loading -> ready, or loading -> error; Retry moves
// error back to loading. Load and Retry return immediately and complete in
// the background.
type Adapter interface {
	// Load begins fetching and parsing the document. No page is exposed
	// until the total page (or sheet) count is known.
	Load(ctx context.Context)
	// Retry fully reloads the resource after an error.
	Retry(ctx context.Context)
	Status() Status
	PageCount() int
	CurrentPage() int
	// GoToPage clamps n to [1, PageCount], makes it current, and reports
	// the change outward (viewer-driven navigation). Returns the effective
	// page.
	GoToPage(n int) int
	// SyncToPage is store-driven navigation: same clamping, but without the
	// outward page-change notification, so store updates don't echo.
	SyncToPage(n int) int
	// Page returns the surface info for a 1-based page of a ready document.
	Page(n int) (*PageInfo, error)
	// FieldsForPage returns the extracted fields whose provenance places
	// them on the given page. Fields never leak onto another page.
	FieldsForPage(n int) []domain.ExtractedField
	// CurrentOverlay builds the highlight overlay for the page currently
	// displayed. Only that page's field subset is considered.
	CurrentOverlay(activeFieldID string) (*overlay.Overlay, error)
	Close()
}

// Factory creates the adapter matching a document's type.
type Factory struct {
	source   port.DocumentSource
	renderer port.PageRenderer
	norm     *geometry.Normalizer
	cfg      config.ViewerConfig
	log      *zap.Logger
}

// NewFactory creates an adapter factory.
func NewFactory(source port.DocumentSource, renderer port.PageRenderer, norm *geometry.Normalizer, cfg config.ViewerConfig, log *zap.Logger) *Factory {
	return &Factory{source: source, renderer: renderer, norm: norm, cfg: cfg, log: log}
}

// New dispatches on the closed document type set. onPageChange receives
// viewer-driven page changes so the selection store can follow.
func (f *Factory) New(doc domain.Document, fields []domain.ExtractedField, onPageChange func(page int)) (Adapter, error) {
	switch doc.Type {
	case domain.DocTypePDF, domain.DocTypeImage:
		return newRasterAdapter(doc, fields, f.source, f.norm, f.cfg, f.log, onPageChange), nil
	case domain.DocTypeDOCX, domain.DocTypeEML:
		return newPagedAdapter(doc, fields, f.source, f.renderer, f.norm, f.cfg, f.log, onPageChange), nil
	case domain.DocTypeXLSX:
		return newSheetAdapter(doc, fields, f.source, f.norm, f.cfg, f.log, onPageChange), nil
	default:
		return nil, domain.ErrUnsupportedFileType
	}
}

// base carries the lifecycle state machine and field grouping shared by all
// adapters.
type base struct {
	mu  sync.Mutex
	doc domain.Document

	state     domain.AdapterState
	errMsg    string
	pageCount int
	current   int

	// gen is the mount token: load results carry the generation they were
	// started under, and results from a superseded load are discarded so a
	// stale callback never overwrites fresh state.
	gen uint64

	fieldsByPage map[int][]domain.ExtractedField

	onPageChange func(page int)
	norm         *geometry.Normalizer
	cfg          config.ViewerConfig
	log          *zap.Logger
}

func newBase(doc domain.Document, fields []domain.ExtractedField, norm *geometry.Normalizer, cfg config.ViewerConfig, log *zap.Logger, onPageChange func(int)) base {
	return base{
		doc:          doc,
		state:        domain.AdapterIdle,
		current:      1,
		fieldsByPage: groupFields(doc, fields),
		onPageChange: onPageChange,
		norm:         norm,
		cfg:          cfg,
		log:          log.With(zap.String("doc_id", doc.ID), zap.String("doc_type", string(doc.Type))),
	}
}

// groupFields filters the full extraction set down to this document and
// groups by the per-type page/sheet index.
func groupFields(doc domain.Document, fields []domain.ExtractedField) map[int][]domain.ExtractedField {
	byPage := make(map[int][]domain.ExtractedField)
	for _, f := range fields {
		if f.Provenance.DocName != doc.Name {
			continue
		}
		page := f.Provenance.Page
		if page < 1 {
			page = 1
		}
		byPage[page] = append(byPage[page], f)
	}
	return byPage
}

func (b *base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Status{State: b.state, Error: b.errMsg}
	if b.state == domain.AdapterReady {
		st.PageCount = b.pageCount
		st.CurrentPage = b.current
	}
	return st
}

func (b *base) PageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != domain.AdapterReady {
		return 0
	}
	return b.pageCount
}

func (b *base) CurrentPage() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *base) GoToPage(n int) int {
	return b.navigate(n, true)
}

func (b *base) SyncToPage(n int) int {
	return b.navigate(n, false)
}

func (b *base) navigate(n int, notify bool) int {
	b.mu.Lock()
	if b.state != domain.AdapterReady {
		// A load is still in flight: remember the target page and let
		// completeLoad clamp it against the real page count.
		if n < 1 {
			n = 1
		}
		b.current = n
		b.mu.Unlock()
		return n
	}
	n = clamp(n, 1, b.pageCount)
	changed := n != b.current
	b.current = n
	cb := b.onPageChange
	b.mu.Unlock()

	if changed && notify && cb != nil {
		cb(n)
	}
	return n
}

func (b *base) FieldsForPage(n int) []domain.ExtractedField {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fieldsByPage[n]
}

// beginLoad transitions to loading and invalidates earlier in-flight loads.
func (b *base) beginLoad() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.state = domain.AdapterLoading
	b.errMsg = ""
	return b.gen
}

// completeLoad applies a load result if gen is still current. apply runs
// under the lock so the adapter can install its parsed pages atomically with
// the state transition. Returns false when the result belongs to a
// superseded load and was discarded.
func (b *base) completeLoad(gen uint64, pageCount int, err error, apply func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		b.log.Debug("discarding stale load result", zap.Uint64("gen", gen))
		return false
	}
	if err != nil {
		b.state = domain.AdapterError
		b.errMsg = err.Error()
		return true
	}
	if apply != nil {
		apply()
	}
	b.state = domain.AdapterReady
	b.pageCount = pageCount
	b.current = clamp(b.current, 1, pageCount)
	return true
}

// invalidate cancels any pending load result application.
func (b *base) invalidate() {
	b.mu.Lock()
	b.gen++
	b.mu.Unlock()
}

func (b *base) ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == domain.AdapterReady
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

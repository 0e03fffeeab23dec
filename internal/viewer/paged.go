package viewer

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/geometry"
	"subview/internal/overlay"
	"subview/internal/port"
)

// pagedAdapter serves paged-HTML documents (docx, eml) through an external
// rendering engine. Each page surface is rendered exactly once; afterwards
// it is owned by an indexed slot and only re-addressed, never re-rendered,
// on navigation.
type pagedAdapter struct {
	base
	source   port.DocumentSource
	renderer port.PageRenderer

	rendered port.RenderedDocument
	// slots holds ownership of rendered page surfaces by 1-based index.
	slots map[int]*port.RenderedPage
	// subject is the parsed message subject for eml documents.
	subject string
}

func newPagedAdapter(doc domain.Document, fields []domain.ExtractedField, source port.DocumentSource, renderer port.PageRenderer, norm *geometry.Normalizer, cfg config.ViewerConfig, log *zap.Logger, onPageChange func(int)) *pagedAdapter {
	return &pagedAdapter{
		base:     newBase(doc, fields, norm, cfg, log, onPageChange),
		source:   source,
		renderer: renderer,
	}
}

func (p *pagedAdapter) Load(ctx context.Context) {
	gen := p.beginLoad()
	go p.load(ctx, gen)
}

func (p *pagedAdapter) Retry(ctx context.Context) {
	p.Load(ctx)
}

func (p *pagedAdapter) load(ctx context.Context, gen uint64) {
	var data []byte
	err := retry.Do(
		func() error {
			var ferr error
			data, ferr = p.source.Fetch(ctx, p.doc.URL)
			return ferr
		},
		retry.Attempts(p.cfg.LoadRetries+1),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		p.completeLoad(gen, 0, fmt.Errorf("fetching %s: %w", p.doc.Name, err), nil)
		return
	}
	if ctx.Err() != nil {
		return
	}

	subject := ""
	if p.doc.Type == domain.DocTypeEML {
		if msg, merr := mail.ReadMessage(bytes.NewReader(data)); merr == nil {
			subject = msg.Header.Get("Subject")
		}
	}

	rendered, err := p.renderer.Open(ctx, p.doc, data)
	if err != nil {
		p.completeLoad(gen, 0, fmt.Errorf("rendering %s: %w", p.doc.Name, err), nil)
		return
	}
	if rendered.PageCount() < 1 {
		_ = rendered.Close()
		p.completeLoad(gen, 0, fmt.Errorf("renderer produced no pages for %s", p.doc.Name), nil)
		return
	}

	applied := p.completeLoad(gen, rendered.PageCount(), nil, func() {
		p.rendered = rendered
		p.slots = make(map[int]*port.RenderedPage)
		p.subject = subject
	})
	if !applied {
		// A newer mount owns the adapter; release the orphaned render.
		_ = rendered.Close()
	}
}

// Page returns the surface for a 1-based page, rendering it on first access
// and serving the owned slot afterwards.
func (p *pagedAdapter) Page(n int) (*PageInfo, error) {
	p.mu.Lock()
	if p.state != domain.AdapterReady {
		p.mu.Unlock()
		return nil, domain.ErrDocumentNotReady
	}
	if n < 1 || n > p.pageCount {
		p.mu.Unlock()
		return nil, domain.ErrPageOutOfRange
	}
	if rp, ok := p.slots[n]; ok {
		info := p.pageInfo(rp)
		p.mu.Unlock()
		return info, nil
	}
	rendered := p.rendered
	p.mu.Unlock()

	rp, err := rendered.RenderPage(context.Background(), n)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d of %s: %w", n, p.doc.Name, err)
	}

	p.mu.Lock()
	if existing, ok := p.slots[n]; ok {
		rp = existing
	} else {
		p.slots[n] = rp
	}
	info := p.pageInfo(rp)
	p.mu.Unlock()
	return info, nil
}

func (p *pagedAdapter) pageInfo(rp *port.RenderedPage) *PageInfo {
	return &PageInfo{
		Index:      rp.Index,
		Name:       p.subject,
		WidthPx:    rp.WidthPx,
		HeightPx:   rp.HeightPx,
		SurfaceRef: rp.SurfaceRef,
	}
}

func (p *pagedAdapter) CurrentOverlay(activeFieldID string) (*overlay.Overlay, error) {
	p.mu.Lock()
	if p.state != domain.AdapterReady {
		p.mu.Unlock()
		return nil, domain.ErrDocumentNotReady
	}
	current := p.current
	fields := p.fieldsByPage[current]
	p.mu.Unlock()

	page, err := p.Page(current)
	if err != nil {
		return nil, err
	}
	metrics := domain.PageMetrics{WidthPx: page.WidthPx, HeightPx: page.HeightPx}
	boxes := make([]*domain.NormalizedBox, len(fields))
	for i, f := range fields {
		boxes[i] = p.norm.Normalize(f.Provenance, p.doc.Type, metrics)
	}
	return overlay.Build(page.WidthPx, page.HeightPx, fields, boxes, activeFieldID), nil
}

func (p *pagedAdapter) Close() {
	p.invalidate()
	p.mu.Lock()
	rendered := p.rendered
	p.rendered = nil
	p.slots = nil
	p.mu.Unlock()
	if rendered != nil {
		_ = rendered.Close()
	}
}

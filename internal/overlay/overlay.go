// Package overlay builds the interactive highlight surface for one rendered
// page: percent-positioned regions that scale with the page, of which at most
// one is visually active while the rest stay invisible but hit-testable.
package overlay

import "subview/internal/domain"

// Region is one interactive rectangle on a page, positioned as percentages
// of the page dimensions so it scales with the rendered surface.
type Region struct {
	FieldID   string  `json:"fieldId"`
	FieldName string  `json:"fieldName"`
	LeftPct   float64 `json:"leftPct"`
	TopPct    float64 `json:"topPct"`
	WidthPct  float64 `json:"widthPct"`
	HeightPct float64 `json:"heightPct"`
	// Active regions are filled/tinted; inactive ones render no fill and
	// only a hover border, so every field stays clickable without clutter.
	Active bool `json:"active"`
}

// Overlay is the set of interactive regions for a single page.
type Overlay struct {
	PageWidthPx  float64  `json:"pageWidthPx"`
	PageHeightPx float64  `json:"pageHeightPx"`
	Regions      []Region `json:"regions"`

	fields map[string]domain.ExtractedField
}

// Build pairs fields with their normalized boxes and produces the page
// overlay. boxes[i] belongs to fields[i]; nil boxes (rejected geometry) are
// skipped without disturbing their neighbors. An empty result yields nil so
// callers render nothing at all.
func Build(pageWidthPx, pageHeightPx float64, fields []domain.ExtractedField, boxes []*domain.NormalizedBox, activeFieldID string) *Overlay {
	if len(fields) != len(boxes) {
		return nil
	}

	o := &Overlay{
		PageWidthPx:  pageWidthPx,
		PageHeightPx: pageHeightPx,
		fields:       make(map[string]domain.ExtractedField),
	}
	for i, box := range boxes {
		if box == nil {
			continue
		}
		f := fields[i]
		o.Regions = append(o.Regions, Region{
			FieldID:   f.ID,
			FieldName: f.Name,
			LeftPct:   box.X * 100,
			TopPct:    box.Y * 100,
			WidthPct:  box.W * 100,
			HeightPct: box.H * 100,
			Active:    activeFieldID != "" && f.ID == activeFieldID,
		})
		o.fields[f.ID] = f
	}
	if len(o.Regions) == 0 {
		return nil
	}
	return o
}

// HitTest resolves a page-space point (fractions of page width/height) to
// the field whose region contains it. The topmost region wins, i.e. the one
// added last. Returns nil when the point hits no region.
func (o *Overlay) HitTest(xFrac, yFrac float64) *domain.ExtractedField {
	xPct, yPct := xFrac*100, yFrac*100
	for i := len(o.Regions) - 1; i >= 0; i-- {
		r := o.Regions[i]
		if xPct >= r.LeftPct && xPct <= r.LeftPct+r.WidthPct &&
			yPct >= r.TopPct && yPct <= r.TopPct+r.HeightPct {
			f := o.fields[r.FieldID]
			return &f
		}
	}
	return nil
}

// Field returns the field backing a region id, for click/keyboard activation.
func (o *Overlay) Field(fieldID string) (domain.ExtractedField, bool) {
	f, ok := o.fields[fieldID]
	return f, ok
}

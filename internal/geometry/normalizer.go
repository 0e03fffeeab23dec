// Package geometry converts format-specific provenance locations (pixel or
// fractional bounding boxes, spreadsheet cell ranges) into a single
// normalized rectangle representation usable by one overlay builder.
package geometry

import (
	"math"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"subview/internal/domain"
)

// Normalizer maps field provenance onto normalized page boxes. Invalid
// geometry is rejected (nil return) and logged; it never aborts the caller.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(log *zap.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize converts prov's location into fractions of the rendered page
// described by metrics, or returns nil when the geometry is unusable.
//
// For pdf/docx/eml/image provenance the bbox is already fractional and is
// passed through after validation. For xlsx provenance only the end cell of
// the range places the box; the start cell is intentionally ignored for
// compatibility with stored extraction data, which records single-cell
// provenance in the end slot. The 1x1 cell box is then expanded to cover any
// merged region containing that cell.
func (n *Normalizer) Normalize(prov domain.FieldProvenance, docType domain.DocumentType, metrics domain.PageMetrics) *domain.NormalizedBox {
	if docType == domain.DocTypeXLSX {
		return n.normalizeCellRange(prov, metrics)
	}
	return n.normalizeBBox(prov)
}

func (n *Normalizer) normalizeBBox(prov domain.FieldProvenance) *domain.NormalizedBox {
	bbox := prov.BBox
	if len(bbox) != 4 {
		n.log.Warn("rejecting bbox with wrong arity",
			zap.String("field_doc", prov.DocName),
			zap.Int("len", len(bbox)))
		return nil
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			n.log.Warn("rejecting bbox value outside normalized space",
				zap.String("field_doc", prov.DocName),
				zap.Float64("value", v))
			return nil
		}
	}
	return &domain.NormalizedBox{X: bbox[0], Y: bbox[1], W: bbox[2], H: bbox[3]}
}

func (n *Normalizer) normalizeCellRange(prov domain.FieldProvenance, metrics domain.PageMetrics) *domain.NormalizedBox {
	if len(prov.CellRange) != 2 {
		n.log.Warn("rejecting cell range with wrong arity",
			zap.String("field_doc", prov.DocName),
			zap.Int("len", len(prov.CellRange)))
		return nil
	}

	row, col, err := DecodeCellAddr(prov.CellRange[1])
	if err != nil {
		n.log.Warn("undecodable cell address",
			zap.String("addr", prov.CellRange[1]),
			zap.Error(err))
		return nil
	}

	// Tolerate partial/virtualized rendering: a cell beyond the rendered
	// grid is skipped rather than mis-placed.
	if row >= len(metrics.RowHeightsPx) || col >= len(metrics.ColWidthsPx) {
		n.log.Warn("cell outside rendered grid",
			zap.String("addr", prov.CellRange[1]),
			zap.Int("row", row),
			zap.Int("col", col),
			zap.Int("rendered_rows", len(metrics.RowHeightsPx)),
			zap.Int("rendered_cols", len(metrics.ColWidthsPx)))
		return nil
	}

	startRow, startCol, endRow, endCol := row, col, row, col
	for _, m := range metrics.Merges {
		if m.Contains(row, col) {
			// Grow to the merge bounds, never shrink.
			startRow = min(startRow, m.StartRow)
			startCol = min(startCol, m.StartCol)
			endRow = max(endRow, m.EndRow)
			endCol = max(endCol, m.EndCol)
		}
	}
	endRow = min(endRow, len(metrics.RowHeightsPx)-1)
	endCol = min(endCol, len(metrics.ColWidthsPx)-1)

	totalW := metrics.WidthPx
	if totalW <= 0 {
		totalW = sum(metrics.ColWidthsPx)
	}
	totalH := metrics.HeightPx
	if totalH <= 0 {
		totalH = sum(metrics.RowHeightsPx)
	}
	if totalW <= 0 || totalH <= 0 {
		n.log.Warn("sheet has no rendered area", zap.String("field_doc", prov.DocName))
		return nil
	}

	box := &domain.NormalizedBox{
		X: sum(metrics.ColWidthsPx[:startCol]) / totalW,
		Y: sum(metrics.RowHeightsPx[:startRow]) / totalH,
		W: sum(metrics.ColWidthsPx[startCol:endCol+1]) / totalW,
		H: sum(metrics.RowHeightsPx[startRow:endRow+1]) / totalH,
	}
	for _, v := range []float64{box.X, box.Y, box.W, box.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n.log.Warn("non-finite normalized cell box", zap.String("field_doc", prov.DocName))
			return nil
		}
	}
	return box
}

// DecodeCellAddr decodes an A1-style cell address into 0-based (row, col).
func DecodeCellAddr(addr string) (row, col int, err error) {
	c, r, err := excelize.CellNameToCoordinates(addr)
	if err != nil {
		return 0, 0, err
	}
	return r - 1, c - 1, nil
}

func sum(vs []float64) float64 {
	var t float64
	for _, v := range vs {
		t += v
	}
	return t
}

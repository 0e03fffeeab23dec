package viewer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/domain"
	"subview/internal/geometry"
	"subview/internal/overlay"
	"subview/internal/port"
)

// Spreadsheet rendering approximations: a column width unit is roughly 7px
// at default font, a row height point is 96/72 px.
const (
	colWidthPxPerUnit  = 7.0
	rowHeightPxPerUnit = 96.0 / 72.0
	defaultColWidth    = 8.43
	defaultRowHeight   = 15.0
)

// sheetData is one parsed worksheet with its rendered grid metrics.
type sheetData struct {
	name         string
	rows         [][]string
	colWidthsPx  []float64
	rowHeightsPx []float64
	merges       []domain.MergedRegion
}

// sheetAdapter serves tabular documents. "Page" means sheet index and
// navigation is sheet-to-sheet; large sheets additionally reveal rows
// incrementally, independent of sheet navigation.
type sheetAdapter struct {
	base
	source port.DocumentSource

	sheets []sheetData
	// revealed[i] is the number of currently revealed rows of sheet i+1.
	revealed map[int]int
}

func newSheetAdapter(doc domain.Document, fields []domain.ExtractedField, source port.DocumentSource, norm *geometry.Normalizer, cfg config.ViewerConfig, log *zap.Logger, onPageChange func(int)) *sheetAdapter {
	return &sheetAdapter{
		base:   newBase(doc, fields, norm, cfg, log, onPageChange),
		source: source,
	}
}

func (s *sheetAdapter) Load(ctx context.Context) {
	gen := s.beginLoad()
	go s.load(ctx, gen)
}

func (s *sheetAdapter) Retry(ctx context.Context) {
	s.Load(ctx)
}

func (s *sheetAdapter) load(ctx context.Context, gen uint64) {
	var data []byte
	err := retry.Do(
		func() error {
			var ferr error
			data, ferr = s.source.Fetch(ctx, s.doc.URL)
			return ferr
		},
		retry.Attempts(s.cfg.LoadRetries+1),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		s.completeLoad(gen, 0, fmt.Errorf("fetching %s: %w", s.doc.Name, err), nil)
		return
	}
	if ctx.Err() != nil {
		return
	}

	sheets, err := parseWorkbook(ctx, data)
	if err != nil {
		s.completeLoad(gen, 0, fmt.Errorf("parsing %s: %w", s.doc.Name, err), nil)
		return
	}

	s.completeLoad(gen, len(sheets), nil, func() {
		s.sheets = sheets
		s.revealed = make(map[int]int, len(sheets))
		for i, sh := range sheets {
			s.revealed[i+1] = minInt(s.cfg.SheetRowWindow, len(sh.rows))
		}
	})
}

// parseWorkbook extracts every sheet's cells, grid metrics, and merged
// regions. It checks ctx between sheets so a huge workbook cannot wedge the
// session while a cancelled load keeps parsing.
func parseWorkbook(ctx context.Context, data []byte) ([]sheetData, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	names := wb.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheets := make([]sheetData, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sh, err := parseSheet(wb, name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, sh)
	}
	return sheets, nil
}

func parseSheet(wb *excelize.File, name string) (sheetData, error) {
	rows, err := wb.GetRows(name)
	if err != nil {
		return sheetData{}, err
	}

	colCount := 0
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	colWidths := make([]float64, colCount)
	for c := 0; c < colCount; c++ {
		colName, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return sheetData{}, err
		}
		w, err := wb.GetColWidth(name, colName)
		if err != nil || w <= 0 {
			w = defaultColWidth
		}
		colWidths[c] = w * colWidthPxPerUnit
	}

	rowHeights := make([]float64, len(rows))
	for r := range rows {
		h, err := wb.GetRowHeight(name, r+1)
		if err != nil || h <= 0 {
			h = defaultRowHeight
		}
		rowHeights[r] = h * rowHeightPxPerUnit
	}

	mergeCells, err := wb.GetMergeCells(name)
	if err != nil {
		return sheetData{}, err
	}
	merges := make([]domain.MergedRegion, 0, len(mergeCells))
	for _, mc := range mergeCells {
		startRow, startCol, derr := geometry.DecodeCellAddr(mc.GetStartAxis())
		if derr != nil {
			continue
		}
		endRow, endCol, derr := geometry.DecodeCellAddr(mc.GetEndAxis())
		if derr != nil {
			continue
		}
		merges = append(merges, domain.MergedRegion{
			StartRow: startRow, StartCol: startCol,
			EndRow: endRow, EndCol: endCol,
		})
	}

	return sheetData{
		name:         name,
		rows:         rows,
		colWidthsPx:  colWidths,
		rowHeightsPx: rowHeights,
		merges:       merges,
	}, nil
}

func (s *sheetAdapter) Page(n int) (*PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.AdapterReady {
		return nil, domain.ErrDocumentNotReady
	}
	if n < 1 || n > len(s.sheets) {
		return nil, domain.ErrPageOutOfRange
	}
	m := s.metricsLocked(n)
	return &PageInfo{
		Index:    n,
		Name:     s.sheets[n-1].name,
		WidthPx:  m.WidthPx,
		HeightPx: m.HeightPx,
	}, nil
}

// SheetRows returns the revealed row window of a sheet plus the total row
// count, so callers can request more.
func (s *sheetAdapter) SheetRows(n int) (rows [][]string, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.AdapterReady {
		return nil, 0, domain.ErrDocumentNotReady
	}
	if n < 1 || n > len(s.sheets) {
		return nil, 0, domain.ErrPageOutOfRange
	}
	sh := s.sheets[n-1]
	return sh.rows[:s.revealed[n]], len(sh.rows), nil
}

// RevealMoreRows grows the virtualized row window of the current sheet and
// returns the new revealed count. Sheet navigation is unaffected.
func (s *sheetAdapter) RevealMoreRows(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.AdapterReady || delta <= 0 {
		return s.revealed[s.current]
	}
	total := len(s.sheets[s.current-1].rows)
	s.revealed[s.current] = minInt(s.revealed[s.current]+delta, total)
	return s.revealed[s.current]
}

func (s *sheetAdapter) CurrentOverlay(activeFieldID string) (*overlay.Overlay, error) {
	s.mu.Lock()
	if s.state != domain.AdapterReady {
		s.mu.Unlock()
		return nil, domain.ErrDocumentNotReady
	}
	current := s.current
	fields := s.fieldsByPage[current]
	metrics := s.metricsLocked(current)
	s.mu.Unlock()

	boxes := make([]*domain.NormalizedBox, len(fields))
	for i, f := range fields {
		boxes[i] = s.norm.Normalize(f.Provenance, domain.DocTypeXLSX, metrics)
	}
	return overlay.Build(metrics.WidthPx, metrics.HeightPx, fields, boxes, activeFieldID), nil
}

// metricsLocked builds the grid metrics of the revealed portion of sheet n.
// Cells beyond the revealed window are treated as unrendered, so their
// highlights are skipped rather than mis-placed.
func (s *sheetAdapter) metricsLocked(n int) domain.PageMetrics {
	sh := s.sheets[n-1]
	revealed := s.revealed[n]
	heights := sh.rowHeightsPx[:revealed]

	var w, h float64
	for _, cw := range sh.colWidthsPx {
		w += cw
	}
	for _, rh := range heights {
		h += rh
	}
	return domain.PageMetrics{
		WidthPx:      w,
		HeightPx:     h,
		ColWidthsPx:  sh.colWidthsPx,
		RowHeightsPx: heights,
		Merges:       sh.merges,
	}
}

func (s *sheetAdapter) Close() {
	s.invalidate()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

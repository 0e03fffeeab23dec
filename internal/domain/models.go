package domain

import "time"

// Document identifies a single file belonging to exactly one submission.
// Immutable once loaded from the catalog.
type Document struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      DocumentType `json:"type"`
	URL       string       `json:"url"`
	PageCount int          `json:"pageCount,omitempty"`
}

// Submission is a logical grouping of documents under review. Exactly one
// submission is active per session.
type Submission struct {
	SubmissionID string     `json:"submissionId"`
	Title        string     `json:"title"`
	Documents    []Document `json:"documents"`
}

// Field is a named value.
type Field struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FieldProvenance locates the source of an extracted field's value inside a
// specific document.
//
// Page is 1-based and deliberately overloaded for compatibility with stored
// extraction data: it means PDF page for pdf, rendered page for docx/eml, and
// sheet index for xlsx. Exactly one of BBox (pdf/docx) or CellRange (xlsx) is
// meaningful, selected by DocumentType.
type FieldProvenance struct {
	DocID        string       `json:"docId"`
	DocName      string       `json:"docName"`
	DocumentType DocumentType `json:"documentType"`
	Page         int          `json:"page"`
	Location     string       `json:"location,omitempty"`
	Snippet      string       `json:"snippet,omitempty"`
	// BBox is [x, y, w, h], each a fraction of page width/height in [0,1].
	BBox []float64 `json:"bbox,omitempty"`
	// CellRange is [startCellAddr, endCellAddr] in A1 notation.
	CellRange []string `json:"cellRange,omitempty"`
}

// ExtractedField is a field produced by an extraction run. Immutable as
// delivered; edit state lives on WorkingField.
type ExtractedField struct {
	Field
	Confidence float64         `json:"confidence"`
	FieldType  string          `json:"fieldType"`
	Provenance FieldProvenance `json:"provenance"`
}

// WorkingField is an extracted field augmented with local edit state. It is
// created by merging persisted edits (if any) over the fresh extraction set.
type WorkingField struct {
	ExtractedField
	OriginalValue string      `json:"originalValue"`
	ModifiedValue string      `json:"modifiedValue"`
	Status        FieldStatus `json:"status"`
}

// EffectiveValue returns the value a reviewer currently sees.
func (w *WorkingField) EffectiveValue() string {
	if w.ModifiedValue != "" {
		return w.ModifiedValue
	}
	return w.OriginalValue
}

// ExtractionResult is the payload returned by the extraction data source for
// one submission. A missing result is a valid outcome, not an error.
type ExtractionResult struct {
	SubmissionID    string           `json:"submissionId"`
	Title           string           `json:"title"`
	ExtractedFields []ExtractedField `json:"extractedFields"`
	Metadata        map[string]any   `json:"extractionMetadata,omitempty"`
}

// NormalizedBox is a rectangle expressed as fractions (0..1) of a page's
// width and height, independent of actual pixel size.
type NormalizedBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PageMetrics describes the rendered surface a box is normalized against.
// For tabular documents the grid slices are required to convert cell
// coordinates into fractions; for paged documents only the pixel size is.
type PageMetrics struct {
	WidthPx  float64
	HeightPx float64
	// ColWidthsPx[i] is the rendered width of column i (0-based).
	ColWidthsPx []float64
	// RowHeightsPx[i] is the rendered height of row i (0-based).
	RowHeightsPx []float64
	// Merges lists the sheet's merged regions in 0-based grid coordinates.
	Merges []MergedRegion
}

// MergedRegion is a merged cell range in 0-based grid coordinates, inclusive.
type MergedRegion struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// Contains reports whether the region covers the given 0-based cell.
func (m MergedRegion) Contains(row, col int) bool {
	return row >= m.StartRow && row <= m.EndRow && col >= m.StartCol && col <= m.EndCol
}

// Highlight is the single ephemeral emphasized field plus its expiry. It is
// never persisted and never encoded into a share URL.
type Highlight struct {
	Field     ExtractedField  `json:"field"`
	Origin    HighlightOrigin `json:"origin"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

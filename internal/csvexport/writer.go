package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"subview/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Field Name",
	"Field Type",
	"Original Value",
	"Modified Value",
	"Effective Value",
	"Status",
	"Confidence",
	"Document",
	"Document Type",
	"Page",
	"Location",
	"Snippet",
}

// Writer wraps csv.Writer for exporting a submission's working fields.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteFields converts the working-field collection to CSV rows and writes
// them.
func (w *Writer) WriteFields(fields []domain.WorkingField) error {
	for i := range fields {
		row := fieldToRow(&fields[i])
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func fieldToRow(f *domain.WorkingField) []string {
	row := make([]string, len(columns))
	row[0] = f.Name
	row[1] = f.FieldType
	row[2] = f.OriginalValue
	row[3] = f.ModifiedValue
	row[4] = f.EffectiveValue()
	row[5] = string(f.Status)
	row[6] = strconv.FormatFloat(f.Confidence, 'f', 2, 64)
	row[7] = f.Provenance.DocName
	row[8] = string(f.Provenance.DocumentType)
	row[9] = strconv.Itoa(f.Provenance.Page)
	row[10] = f.Provenance.Location
	row[11] = f.Provenance.Snippet
	return row
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a submission title for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_submission_title}_{YYYY-MM-DD}.csv
func BuildFilename(submissionTitle string) string {
	sanitized := SanitizeFilename(submissionTitle)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.csv", sanitized, date)
}

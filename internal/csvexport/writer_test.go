package csvexport

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subview/internal/domain"
)

func sampleField() domain.WorkingField {
	return domain.WorkingField{
		ExtractedField: domain.ExtractedField{
			Field:      domain.Field{ID: "f1", Name: "Total Insured Value", Value: "100,000"},
			Confidence: 0.9412,
			FieldType:  "currency",
			Provenance: domain.FieldProvenance{
				DocName:      "sov.xlsx",
				DocumentType: domain.DocTypeXLSX,
				Page:         1,
				Location:     "B7",
				Snippet:      "TIV: 100,000",
			},
		},
		OriginalValue: "100,000",
		ModifiedValue: "150,000",
		Status:        domain.FieldStatusModified,
	}
}

func TestWriteFields(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteFields([]domain.WorkingField{sampleField()}))
	w.Flush()
	require.NoError(t, w.Error())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, columns, records[0])
	row := records[1]
	assert.Equal(t, "Total Insured Value", row[0])
	assert.Equal(t, "currency", row[1])
	assert.Equal(t, "100,000", row[2])
	assert.Equal(t, "150,000", row[3])
	// Effective value prefers the modification.
	assert.Equal(t, "150,000", row[4])
	assert.Equal(t, "modified", row[5])
	assert.Equal(t, "0.94", row[6])
	assert.Equal(t, "sov.xlsx", row[7])
	assert.Equal(t, "xlsx", row[8])
	assert.Equal(t, "1", row[9])
	assert.Equal(t, "B7", row[10])
	assert.Equal(t, "TIV: 100,000", row[11])
}

func TestWriteFieldsUnmodified(t *testing.T) {
	f := sampleField()
	f.ModifiedValue = ""
	f.Status = domain.FieldStatusOriginal

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteFields([]domain.WorkingField{f}))
	w.Flush()

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0][3])
	assert.Equal(t, "100,000", records[0][4])
	assert.Equal(t, "original", records[0][5])
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Acme Manufacturing Renewal", want: "Acme_Manufacturing_Renewal"},
		{in: "a/b\\c:d", want: "a_b_c_d"},
		{in: "__weird___name__", want: "weird_name"},
		{in: "keep-this_one.csv", want: "keep-this_one_csv"},
		{in: strings.Repeat("x", 150), want: strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}

func TestBuildFilename(t *testing.T) {
	got := BuildFilename("Acme Manufacturing Renewal")
	want := "Acme_Manufacturing_Renewal_" + time.Now().Format("2006-01-02") + ".csv"
	assert.Equal(t, want, got)
}

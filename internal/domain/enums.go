package domain

// DocumentType is the closed set of supported document kinds. All per-format
// behavior dispatches through a viewer adapter selected by this type.
type DocumentType string

const (
	DocTypePDF   DocumentType = "pdf"
	DocTypeImage DocumentType = "image"
	DocTypeXLSX  DocumentType = "xlsx"
	DocTypeEML   DocumentType = "eml"
	DocTypeDOCX  DocumentType = "docx"
)

// Valid reports whether t is one of the supported document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocTypePDF, DocTypeImage, DocTypeXLSX, DocTypeEML, DocTypeDOCX:
		return true
	}
	return false
}

// AllowedContentTypes maps MIME content types back to DocumentType.
var AllowedContentTypes = map[string]DocumentType{
	"application/pdf": DocTypePDF,
	"image/jpeg":      DocTypeImage,
	"image/png":       DocTypeImage,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":   DocTypeXLSX,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": DocTypeDOCX,
	"message/rfc822": DocTypeEML,
}

// FieldStatus tracks whether a working field carries a confirmed local edit.
type FieldStatus string

const (
	FieldStatusOriginal FieldStatus = "original"
	FieldStatusModified FieldStatus = "modified"
)

// AdapterState is the viewer adapter load lifecycle.
type AdapterState string

const (
	AdapterIdle    AdapterState = "idle"
	AdapterLoading AdapterState = "loading"
	AdapterReady   AdapterState = "ready"
	AdapterError   AdapterState = "error"
)

// HighlightOrigin distinguishes highlights triggered from within the field
// list from ones arriving externally (a box clicked in the viewer). Only
// external highlights force-scroll the list.
type HighlightOrigin string

const (
	HighlightOriginList   HighlightOrigin = "list"
	HighlightOriginViewer HighlightOrigin = "viewer"
)

// ChangeKind labels selection store notifications.
type ChangeKind string

const (
	ChangeSelection        ChangeKind = "selection"
	ChangeHighlight        ChangeKind = "highlight"
	ChangeHighlightExpired ChangeKind = "highlight_expired"
)

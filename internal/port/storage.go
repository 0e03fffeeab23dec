package port

import (
	"context"
	"io"

	"subview/internal/domain"
)

// LocalStore is the client-scoped key/value persistence for working-field
// edits. Reads of a missing key return domain.ErrNotFound. Writes are
// idempotent; concurrent writers are last-write-wins.
type LocalStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// DocumentSource fetches document bytes by catalog URL (http(s) or file).
// Fetch honors ctx so a document switch aborts the in-flight transfer.
type DocumentSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	// Open streams the resource for downloads; the caller closes the reader.
	Open(ctx context.Context, url string) (rc io.ReadCloser, size int64, contentType string, err error)
}

// ExtractionClient retrieves the machine-extraction output for a submission.
// A missing result is a valid outcome and returns (nil, nil).
type ExtractionClient interface {
	Fetch(ctx context.Context, submissionID string) (*domain.ExtractionResult, error)
}

// Catalog is the read-only lookup of submissions and their documents.
type Catalog interface {
	Submissions() []domain.Submission
	Submission(id string) (*domain.Submission, error)
	Document(id string) (*domain.Document, error)
}

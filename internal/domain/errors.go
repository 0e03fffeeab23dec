package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrNoSubmission        = errors.New("no submission selected")
	ErrNoDocument          = errors.New("no document selected")
	ErrUnsupportedFileType = errors.New("unsupported document type")
	ErrDocumentNotReady    = errors.New("document is not ready")
	ErrLoadCancelled       = errors.New("document load cancelled")
	ErrPageOutOfRange      = errors.New("page out of range")
	ErrInvalidGeometry     = errors.New("invalid provenance geometry")
	ErrNoEditInProgress    = errors.New("no edit in progress")
	ErrSessionNotFound     = errors.New("session not found")
)

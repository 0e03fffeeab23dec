package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"subview/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *ListMeta   `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListMeta holds collection metadata.
type ListMeta struct {
	Total int `json:"total"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondList sends a 200 success response with collection metadata.
func RespondList(c *gin.Context, data interface{}, meta ListMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found or expired"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrNoSubmission):
		return http.StatusConflict, "NO_SUBMISSION", "no submission is selected"
	case errors.Is(err, domain.ErrNoDocument):
		return http.StatusConflict, "NO_DOCUMENT", "no document is selected"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE", "unsupported document type; allowed: pdf, image, xlsx, eml, docx"
	case errors.Is(err, domain.ErrDocumentNotReady):
		return http.StatusConflict, "DOCUMENT_NOT_READY", "document is still loading or failed to load"
	case errors.Is(err, domain.ErrLoadCancelled):
		return http.StatusConflict, "LOAD_CANCELLED", "document load was cancelled"
	case errors.Is(err, domain.ErrPageOutOfRange):
		return http.StatusBadRequest, "PAGE_OUT_OF_RANGE", "requested page does not exist in this document"
	case errors.Is(err, domain.ErrInvalidGeometry):
		return http.StatusUnprocessableEntity, "INVALID_GEOMETRY", "provenance geometry is invalid for this document"
	case errors.Is(err, domain.ErrNoEditInProgress):
		return http.StatusConflict, "NO_EDIT_IN_PROGRESS", "no edit is in progress for this field"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and writes the error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	RespondError(c, status, code, msg)
}

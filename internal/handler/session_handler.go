package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subview/internal/session"
)

// SessionHandler handles session lifecycle and selection state endpoints.
type SessionHandler struct {
	mgr *session.Manager
	log *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(mgr *session.Manager, log *zap.Logger) *SessionHandler {
	return &SessionHandler{mgr: mgr, log: log}
}

type createSessionRequest struct {
	// RestoreQuery is an optional deep-link query string, e.g.
	// "submissionId=sub_4&documentId=doc_9&page=3".
	RestoreQuery string `json:"restoreQuery"`
}

type createSessionResponse struct {
	SessionID string           `json:"sessionId"`
	Snapshot  session.Snapshot `json:"snapshot"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
	}

	s := h.mgr.Create()
	if req.RestoreQuery != "" {
		q, err := url.ParseQuery(req.RestoreQuery)
		if err != nil {
			h.mgr.Delete(s.ID)
			RespondError(c, http.StatusBadRequest, "INVALID_RESTORE_QUERY", "restore query is not a valid query string")
			return
		}
		if err := s.Restore(c.Request.Context(), q); err != nil {
			h.log.Warn("restoring session from query", zap.String("session_id", s.ID), zap.Error(err))
			HandleError(c, err)
			h.mgr.Delete(s.ID)
			return
		}
	}

	RespondCreated(c, createSessionResponse{SessionID: s.ID, Snapshot: s.Snapshot()})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Snapshot())
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if _, err := h.mgr.Get(c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	h.mgr.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type selectSubmissionRequest struct {
	SubmissionID string `json:"submissionId" binding:"required"`
}

// SelectSubmission handles PUT /api/v1/sessions/:id/submission
func (h *SessionHandler) SelectSubmission(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req selectSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "submissionId is required")
		return
	}
	if err := s.SelectSubmission(c.Request.Context(), req.SubmissionID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Snapshot())
}

type selectDocumentRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
}

// SelectDocument handles PUT /api/v1/sessions/:id/document
func (h *SessionHandler) SelectDocument(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req selectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "documentId is required")
		return
	}
	if err := s.SelectDocument(req.DocumentID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Snapshot())
}

type setPageRequest struct {
	Page int `json:"page" binding:"required"`
}

// SetPage handles PUT /api/v1/sessions/:id/page
func (h *SessionHandler) SetPage(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req setPageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Page < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer")
		return
	}
	if err := s.SetPage(req.Page); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Snapshot())
}

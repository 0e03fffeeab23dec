package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subview/internal/csvexport"
	"subview/internal/domain"
	"subview/internal/fieldlist"
	"subview/internal/port"
	"subview/internal/session"
)

// FieldHandler handles field list, editing, and export endpoints.
type FieldHandler struct {
	mgr     *session.Manager
	catalog port.Catalog
	log     *zap.Logger
}

// NewFieldHandler creates a new FieldHandler.
func NewFieldHandler(mgr *session.Manager, catalog port.Catalog, log *zap.Logger) *FieldHandler {
	return &FieldHandler{mgr: mgr, catalog: catalog, log: log}
}

// List handles GET /api/v1/sessions/:id/fields
func (h *FieldHandler) List(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	snap := s.Snapshot().FieldList
	RespondList(c, snap, ListMeta{Total: len(snap.Fields)})
}

type keyRequest struct {
	Key string `json:"key" binding:"required"`
}

type keyResponse struct {
	EditFieldID string `json:"editFieldId,omitempty"`
	Draft       string `json:"draft,omitempty"`
}

// Key handles POST /api/v1/sessions/:id/fields/key. It forwards a normalized
// keyboard event to the field list; the edit chord opens an edit session and
// returns the seeded draft.
func (h *FieldHandler) Key(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "key is required")
		return
	}
	key := fieldlist.Key(req.Key)
	switch key {
	case fieldlist.KeyUp, fieldlist.KeyDown, fieldlist.KeyEnter, fieldlist.KeyEscape, fieldlist.KeyEdit:
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_KEY", "key must be one of: up, down, enter, escape, edit")
		return
	}
	editFieldID, draft, err := s.HandleKey(key)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, keyResponse{EditFieldID: editFieldID, Draft: draft})
}

// Highlight handles POST /api/v1/sessions/:id/fields/:fieldId/highlight. A
// list-originated highlight navigates the viewer to the field's provenance.
func (h *FieldHandler) Highlight(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := s.HighlightFieldByID(c.Param("fieldId"), domain.HighlightOriginList); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Snapshot())
}

type beginEditResponse struct {
	Draft string `json:"draft"`
}

// BeginEdit handles POST /api/v1/sessions/:id/fields/:fieldId/edit
func (h *FieldHandler) BeginEdit(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	draft, err := s.BeginEdit(c.Param("fieldId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, beginEditResponse{Draft: draft})
}

type confirmEditRequest struct {
	Value string `json:"value"`
}

// ConfirmEdit handles PUT /api/v1/sessions/:id/fields/:fieldId. An empty
// value reverts the field to its original extracted value.
func (h *FieldHandler) ConfirmEdit(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req confirmEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	updated, err := s.ConfirmEdit(c.Param("fieldId"), req.Value)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, updated)
}

// CancelEdit handles DELETE /api/v1/sessions/:id/fields/:fieldId/edit
func (h *FieldHandler) CancelEdit(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	s.CancelEdit(c.Param("fieldId"))
	c.Status(http.StatusNoContent)
}

// Reset handles POST /api/v1/sessions/:id/fields/reset. All local edits for
// the active submission are discarded, including the persisted copy.
func (h *FieldHandler) Reset(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := s.ResetFields(); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Snapshot().FieldList)
}

type refetchRequest struct {
	DiscardEdits bool `json:"discardEdits"`
}

// Refetch handles POST /api/v1/sessions/:id/fields/refetch
func (h *FieldHandler) Refetch(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req refetchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
	}
	if err := s.RefetchFields(c.Request.Context(), req.DiscardEdits); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Snapshot().FieldList)
}

// Export handles GET /api/v1/sessions/:id/fields/export. The response is a
// CSV download with a UTF-8 BOM for spreadsheet compatibility.
func (h *FieldHandler) Export(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	snap := s.Snapshot()
	if snap.State.SubmissionID == "" {
		HandleError(c, domain.ErrNoSubmission)
		return
	}
	sub, err := h.catalog.Submission(snap.State.SubmissionID)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename(sub.Title)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		h.log.Warn("writing csv export", zap.Error(err))
		return
	}
	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		h.log.Warn("writing csv export", zap.Error(err))
		return
	}
	if err := w.WriteFields(snap.FieldList.Fields); err != nil {
		h.log.Warn("writing csv export", zap.Error(err))
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.log.Warn("writing csv export", zap.Error(err))
	}
}

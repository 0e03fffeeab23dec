package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subview/internal/session"
)

// ViewerHandler handles document viewer endpoints: load lifecycle, page
// navigation, overlays, and spreadsheet row windows.
type ViewerHandler struct {
	mgr *session.Manager
	log *zap.Logger
}

// NewViewerHandler creates a new ViewerHandler.
func NewViewerHandler(mgr *session.Manager, log *zap.Logger) *ViewerHandler {
	return &ViewerHandler{mgr: mgr, log: log}
}

// Status handles GET /api/v1/sessions/:id/viewer
func (h *ViewerHandler) Status(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	st, err := s.ViewerStatus()
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, st)
}

// Page handles GET /api/v1/sessions/:id/viewer/pages/:page
func (h *ViewerHandler) Page(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	n, err := strconv.Atoi(c.Param("page"))
	if err != nil || n < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_PAGE", "page must be a positive integer")
		return
	}
	info, err := s.ViewerPage(n)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, info)
}

type goToPageRequest struct {
	Page int `json:"page" binding:"required"`
}

type goToPageResponse struct {
	Page int `json:"page"`
}

// GoToPage handles POST /api/v1/sessions/:id/viewer/goto. Navigation is
// viewer-driven here, so the landed page propagates back into the selection
// state. The requested page is clamped to the document's range.
func (h *ViewerHandler) GoToPage(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req goToPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "page is required")
		return
	}
	landed, err := s.ViewerGoToPage(req.Page)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, goToPageResponse{Page: landed})
}

// Retry handles POST /api/v1/sessions/:id/viewer/retry
func (h *ViewerHandler) Retry(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := s.RetryLoad(); err != nil {
		HandleError(c, err)
		return
	}
	st, err := s.ViewerStatus()
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, st)
}

// Overlay handles GET /api/v1/sessions/:id/viewer/overlay
func (h *ViewerHandler) Overlay(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	ov, err := s.CurrentOverlay()
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ov)
}

type hitTestRequest struct {
	// X and Y are fractions of page width/height in [0, 1].
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HitTest handles POST /api/v1/sessions/:id/viewer/hit. A hit highlights the
// struck field; a miss is a successful response with null data.
func (h *ViewerHandler) HitTest(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req hitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "x and y are required")
		return
	}
	if req.X < 0 || req.X > 1 || req.Y < 0 || req.Y > 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "x and y must be fractions in [0, 1]")
		return
	}
	field, err := s.HighlightAt(req.X, req.Y)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, field)
}

type sheetRowsResponse struct {
	Rows  [][]string `json:"rows"`
	Total int        `json:"total"`
}

// SheetRows handles GET /api/v1/sessions/:id/viewer/sheets/:index/rows
func (h *ViewerHandler) SheetRows(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	n, err := strconv.Atoi(c.Param("index"))
	if err != nil || n < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_SHEET", "sheet index must be a positive integer")
		return
	}
	rows, total, err := s.SheetRows(n)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sheetRowsResponse{Rows: rows, Total: total})
}

type revealRowsRequest struct {
	Delta int `json:"delta"`
}

type revealRowsResponse struct {
	Revealed int `json:"revealed"`
}

// RevealRows handles POST /api/v1/sessions/:id/viewer/sheets/reveal
func (h *ViewerHandler) RevealRows(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	var req revealRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Delta < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "delta must be a positive integer")
		return
	}
	revealed, err := s.RevealMoreRows(req.Delta)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, revealRowsResponse{Revealed: revealed})
}

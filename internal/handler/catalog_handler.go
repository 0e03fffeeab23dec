package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subview/internal/port"
)

// CatalogHandler handles submission catalog and document download endpoints.
type CatalogHandler struct {
	catalog port.Catalog
	source  port.DocumentSource
	log     *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog port.Catalog, source port.DocumentSource, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, source: source, log: log}
}

// ListSubmissions handles GET /api/v1/submissions
func (h *CatalogHandler) ListSubmissions(c *gin.Context) {
	subs := h.catalog.Submissions()
	RespondList(c, subs, ListMeta{Total: len(subs)})
}

// GetSubmission handles GET /api/v1/submissions/:id
func (h *CatalogHandler) GetSubmission(c *gin.Context) {
	sub, err := h.catalog.Submission(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sub)
}

// Download handles GET /api/v1/documents/:id/download. The document bytes
// are streamed from the catalog URL so large files never buffer in memory.
func (h *CatalogHandler) Download(c *gin.Context) {
	doc, err := h.catalog.Document(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	rc, size, contentType, err := h.source.Open(c.Request.Context(), doc.URL)
	if err != nil {
		h.log.Warn("opening document for download", zap.String("doc_id", doc.ID), zap.Error(err))
		RespondError(c, http.StatusBadGateway, "SOURCE_UNAVAILABLE", "document source is unavailable")
		return
	}
	defer rc.Close()

	headers := map[string]string{
		"Content-Disposition": `attachment; filename="` + doc.Name + `"`,
	}
	c.DataFromReader(http.StatusOK, size, contentType, rc, headers)
}

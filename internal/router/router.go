package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subview/internal/config"
	"subview/internal/handler"
	"subview/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg config.Config,
	log *zap.Logger,
	sessionH *handler.SessionHandler,
	viewerH *handler.ViewerHandler,
	fieldH *handler.FieldHandler,
	catalogH *handler.CatalogHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Catalog routes
	v1.GET("/submissions", catalogH.ListSubmissions)
	v1.GET("/submissions/:id", catalogH.GetSubmission)
	v1.GET("/documents/:id/download", catalogH.Download)

	// Session lifecycle
	sessions := v1.Group("/sessions")
	sessions.POST("", sessionH.Create)
	sessions.GET("/:id", sessionH.Get)
	sessions.DELETE("/:id", sessionH.Delete)

	// Selection state
	sessions.PUT("/:id/submission", sessionH.SelectSubmission)
	sessions.PUT("/:id/document", sessionH.SelectDocument)
	sessions.PUT("/:id/page", sessionH.SetPage)

	// Viewer
	sessions.GET("/:id/viewer", viewerH.Status)
	sessions.GET("/:id/viewer/pages/:page", viewerH.Page)
	sessions.POST("/:id/viewer/goto", viewerH.GoToPage)
	sessions.POST("/:id/viewer/retry", viewerH.Retry)
	sessions.GET("/:id/viewer/overlay", viewerH.Overlay)
	sessions.POST("/:id/viewer/hit", viewerH.HitTest)
	sessions.GET("/:id/viewer/sheets/:index/rows", viewerH.SheetRows)
	sessions.POST("/:id/viewer/sheets/reveal", viewerH.RevealRows)

	// Field list and editing
	sessions.GET("/:id/fields", fieldH.List)
	sessions.POST("/:id/fields/key", fieldH.Key)
	sessions.POST("/:id/fields/reset", fieldH.Reset)
	sessions.POST("/:id/fields/refetch", fieldH.Refetch)
	sessions.GET("/:id/fields/export", fieldH.Export)
	sessions.POST("/:id/fields/:fieldId/highlight", fieldH.Highlight)
	sessions.POST("/:id/fields/:fieldId/edit", fieldH.BeginEdit)
	sessions.DELETE("/:id/fields/:fieldId/edit", fieldH.CancelEdit)
	sessions.PUT("/:id/fields/:fieldId", fieldH.ConfirmEdit)

	return r
}

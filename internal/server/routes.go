package server

import (
	"github.com/labstack/echo/v4"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.OwnerMiddleware)

	// Document routes
	apiRoutes.GET("/documents", routes.ListDocumentsHandler)
	apiRoutes.POST("/documents", routes.UploadDocumentHandler)
	apiRoutes.GET("/documents/:id", routes.GetDocumentHandler)
	apiRoutes.DELETE("/documents/:id", routes.DeleteDocumentHandler)
	apiRoutes.POST("/documents/:id/process", routes.ProcessDocumentHandler)
	apiRoutes.POST("/documents/:id/analyze", routes.RequestAnalysisHandler)
	apiRoutes.GET("/documents/:id/analyses", routes.GetDocumentAnalysesHandler)

	// Task routes
	apiRoutes.GET("/tasks/:id", routes.GetTaskHandler)
	apiRoutes.POST("/tasks/:id/retry", routes.RetryTaskHandler)

	// Entity and graph routes
	apiRoutes.GET("/entities", routes.ListEntitiesHandler)
	apiRoutes.POST("/entities/merge", routes.MergeEntitiesHandler)
	apiRoutes.GET("/network", routes.GetNetworkHandler)
	apiRoutes.GET("/metrics", routes.GetMetricsHandler)

	// Analytics routes
	apiRoutes.GET("/analytics/summary", routes.AnalyticsSummaryHandler)
}

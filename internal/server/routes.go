package server

import (
	"github.com/parallax-labs/graphrag/internal/server/middleware"
	"github.com/parallax-labs/graphrag/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/health/graph", routes.GraphHealthHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Retrieval routes
	apiRoutes.POST("/retrieve", routes.RetrieveHandler)

	// Ingestion routes
	apiRoutes.POST("/documents", routes.SubmitDocumentsHandler)
}

package routes

import (
	"net/http"

	"github.com/parallax-labs/graphrag/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GraphHealthHandler reports the state of the graph layer.
func GraphHealthHandler(c echo.Context) error {
	ext := c.(*middleware.AppContext).App.Extension
	return c.JSON(http.StatusOK, ext.HealthCheck(c.Request().Context()))
}

package routes

import (
	"net/http"

	"github.com/parallax-labs/graphrag/internal/server/middleware"
	"github.com/parallax-labs/graphrag/pkg/common"
	"github.com/parallax-labs/graphrag/pkg/extension"

	"github.com/labstack/echo/v4"
)

// RetrieveHandler enhances a set of vector hits with graph context.
func RetrieveHandler(c echo.Context) error {
	type retrieveRequest struct {
		Query   string                `json:"query" validate:"required"`
		Results []common.VectorResult `json:"results" validate:"required"`
		TopK    int                   `json:"top_k"`
	}

	type retrieveResponse struct {
		Message string              `json:"message"`
		Result  *extension.Response `json:"result,omitempty"`
	}

	data := new(retrieveRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, retrieveResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, retrieveResponse{
			Message: "Invalid request body",
		})
	}

	if data.TopK <= 0 {
		data.TopK = len(data.Results)
	}

	ext := c.(*middleware.AppContext).App.Extension
	result := ext.EnhanceRetrieval(c.Request().Context(), data.Query, data.Results, data.TopK)

	return c.JSON(http.StatusOK, retrieveResponse{
		Message: "OK",
		Result:  &result,
	})
}

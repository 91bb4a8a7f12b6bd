package routes

import (
	"encoding/json"
	"net/http"

	"github.com/parallax-labs/graphrag/internal/queue"
	"github.com/parallax-labs/graphrag/internal/server/middleware"
	"github.com/parallax-labs/graphrag/pkg/common"
	"github.com/parallax-labs/graphrag/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SubmitDocumentsHandler accepts documents for asynchronous graph ingestion.
func SubmitDocumentsHandler(c echo.Context) error {
	type submitDocumentsBody struct {
		Documents []common.Document `json:"documents" validate:"required,min=1,dive"`
	}

	type submitDocumentsResponse struct {
		Message   string `json:"message"`
		MessageID string `json:"message_id,omitempty"`
		Accepted  int    `json:"accepted"`
	}

	data := new(submitDocumentsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitDocumentsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitDocumentsResponse{
			Message: "Invalid request body",
		})
	}

	messageID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, submitDocumentsResponse{
			Message: "Internal server error",
		})
	}

	queueData := queue.QueueIngestMsg{
		Message:   "Documents submitted",
		MessageID: messageID,
		Documents: data.Documents,
	}
	msgBytes, err := json.Marshal(queueData)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, submitDocumentsResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishFIFO(ch, queue.IngestQueue, msgBytes); err != nil {
		logger.Error("Failed to publish to ingest queue", "err", err)
		return c.JSON(http.StatusInternalServerError, submitDocumentsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, submitDocumentsResponse{
		Message:   "Documents accepted for ingestion",
		MessageID: messageID,
		Accepted:  len(data.Documents),
	})
}

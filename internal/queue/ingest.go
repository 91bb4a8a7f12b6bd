package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parallax-labs/graphrag/pkg/common"
	"github.com/parallax-labs/graphrag/pkg/logger"
)

// QueueIngestMsg is the payload published to the ingest queue by the API
// server and consumed by the worker.
type QueueIngestMsg struct {
	Message   string            `json:"message"`
	MessageID string            `json:"message_id"`
	Documents []common.Document `json:"documents"`
}

// Ingestor is the slice of the extension facade the worker needs.
type Ingestor interface {
	BuildKnowledgeGraph(ctx context.Context, docs []common.Document) common.IngestStats
}

// ProcessIngestMessage unmarshals an ingest job and builds graph structure
// for its documents. A malformed payload is a permanent error; the caller's
// retry loop handles the rest.
func ProcessIngestMessage(ctx context.Context, ext Ingestor, msg string) error {
	data := new(QueueIngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to unmarshal ingest message: %w", err)
	}

	if len(data.Documents) == 0 {
		logger.Warn("[Queue] Ingest message carried no documents", "message_id", data.MessageID)
		return nil
	}

	stats := ext.BuildKnowledgeGraph(ctx, data.Documents)
	if stats.Documents == 0 {
		return fmt.Errorf("no documents ingested out of %d submitted", len(data.Documents))
	}
	if stats.Documents < len(data.Documents) {
		logger.Warn(
			"[Queue] Partial ingest",
			"message_id", data.MessageID,
			"submitted", len(data.Documents),
			"ingested", stats.Documents,
		)
	}

	logger.Info(
		"[Queue] Ingest complete",
		"message_id", data.MessageID,
		"documents", stats.Documents,
		"entities", stats.Entities,
		"relationships", stats.Relationships,
	)
	return nil
}

// Package extension is the boundary the host agent talks to. It gates on the
// feature flag, adapts retrieval results into a fixed response shape, and
// guarantees that nothing below it ever surfaces an error: the worst case is
// a baseline response identical to a system with no graph layer at all.
package extension

import (
	"context"

	"github.com/parallax-labs/graphrag/pkg/common"
	"github.com/parallax-labs/graphrag/pkg/config"
	"github.com/parallax-labs/graphrag/pkg/graph"
	"github.com/parallax-labs/graphrag/pkg/logger"
	"github.com/parallax-labs/graphrag/pkg/retrieve"
	"github.com/parallax-labs/graphrag/pkg/store"
)

// Retriever is the retrieval pipeline surface the facade depends on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, vectorResults []common.VectorResult, topK int) common.RetrievalResult
}

// Builder is the ingestion surface the facade depends on.
type Builder interface {
	BuildFromDocuments(ctx context.Context, docs []common.Document) common.IngestStats
}

// Availability reports whether the graph store can be used right now.
type Availability interface {
	Available(ctx context.Context) bool
}

// Response is the fixed shape returned to the host, identical on every path.
type Response struct {
	Text          string          `json:"text"`
	Sources       []string        `json:"sources"`
	Entities      []string        `json:"entities"`
	Relationships []common.Triple `json:"relationships"`
	GraphDerived  bool            `json:"graph_derived"`
	FallbackUsed  bool            `json:"fallback_used"`
	LatencyMs     float64         `json:"latency_ms"`
	CacheHit      bool            `json:"cache_hit"`
}

// HealthStatus is the diagnostic shape returned by HealthCheck.
type HealthStatus struct {
	Enabled         bool `json:"enabled"`
	StoreAvailable  bool `json:"store_available"`
	StoreConfigured bool `json:"store_configured"`
}

// Extension wires the connector, retriever, and builder behind the boundary
// contract. Construct one per process and pass it down; there are no package
// level singletons.
type Extension struct {
	cfg       config.Config
	conn      Availability
	retriever Retriever
	builder   Builder
	closer    func()
}

// New builds a fully wired Extension from cfg.
func New(cfg config.Config) *Extension {
	conn := store.NewConnector(cfg)
	return &Extension{
		cfg:       cfg,
		conn:      conn,
		retriever: retrieve.NewRetriever(conn, cfg),
		builder:   graph.NewBuilder(conn),
		closer:    conn.Close,
	}
}

// EnhanceRetrieval runs hybrid retrieval for the host. It never returns an
// error and never panics across the boundary; any failure inside the graph
// layer collapses into the baseline response.
func (e *Extension) EnhanceRetrieval(ctx context.Context, query string, vectorResults []common.VectorResult, topK int) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Retrieval enhancement panicked, serving baseline", "panic", r)
			resp = e.baseline(vectorResults)
		}
	}()

	if !e.cfg.Enabled {
		return e.baseline(vectorResults)
	}
	if !e.conn.Available(ctx) {
		logger.Debug("Graph layer enabled but store unavailable, serving baseline")
		return e.baseline(vectorResults)
	}

	result := e.retriever.Retrieve(ctx, query, vectorResults, topK)
	return Response{
		Text:          result.ContextPack(),
		Sources:       result.SourceDocIDs,
		Entities:      result.Entities,
		Relationships: result.Relationships,
		GraphDerived:  result.GraphDerived,
		FallbackUsed:  result.FallbackUsed,
		LatencyMs:     result.LatencyMs,
		CacheHit:      result.CacheHit,
	}
}

// baseline is the zero-behavioral-delta response: input texts concatenated
// in input order, nothing graph-derived.
func (e *Extension) baseline(vectorResults []common.VectorResult) Response {
	text := ""
	sources := make([]string, 0, len(vectorResults))
	for _, hit := range vectorResults {
		if hit.Text != "" {
			if text != "" {
				text += "\n\n"
			}
			text += hit.Text
		}
		if id := hit.DocumentID(); id != "" {
			sources = append(sources, id)
		}
	}

	return Response{
		Text:          text,
		Sources:       sources,
		Entities:      []string{},
		Relationships: []common.Triple{},
		FallbackUsed:  true,
	}
}

// BuildKnowledgeGraph ingests documents into the graph. Disabled or
// unavailable deployments report zero work instead of failing.
func (e *Extension) BuildKnowledgeGraph(ctx context.Context, docs []common.Document) common.IngestStats {
	if !e.cfg.Enabled || !e.conn.Available(ctx) {
		return common.IngestStats{}
	}
	return e.builder.BuildFromDocuments(ctx, docs)
}

// HealthCheck reports the current state of the graph layer.
func (e *Extension) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Enabled:         e.cfg.Enabled,
		StoreConfigured: e.cfg.DatabaseURL != "",
	}
	if e.cfg.Enabled {
		status.StoreAvailable = e.conn.Available(ctx)
	}
	return status
}

// Close releases the underlying store connection.
func (e *Extension) Close() {
	if e.closer != nil {
		e.closer()
	}
}

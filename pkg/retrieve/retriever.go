// Package retrieve implements the hybrid retrieval pipeline: seed document
// IDs from vector hits, pin them to graph entities, expand one relationship
// layer, and pack the result. Whenever the graph store is disabled,
// unreachable, or any stage errors, the pipeline degrades to the pure vector
// fallback - the caller never observes a graph-layer failure.
package retrieve

import (
	"context"
	"time"

	"github.com/parallax-labs/graphrag/pkg/common"
	"github.com/parallax-labs/graphrag/pkg/config"
	"github.com/parallax-labs/graphrag/pkg/logger"
	"github.com/parallax-labs/graphrag/pkg/store"
)

// Safety ceilings. These hold regardless of configuration; a retriever built
// with larger values is clamped down to them.
const (
	hardMaxHops     = 2
	hardMaxEntities = 100
)

const (
	// pinLimit bounds the entity lookup per seed document.
	pinLimit = 50

	// expandFanout caps how many pinned entities seed the expansion step.
	expandFanout = 20

	// expandLimit bounds neighbors fetched per expanded entity.
	expandLimit = 10

	// relatedDocLimit bounds related-document discovery per seed document.
	relatedDocLimit = 10
)

// expandRelationships is the edge-type set expansion is allowed to follow.
var expandRelationships = []string{
	"REFERENCES",
	"CONTAINS",
	"MENTIONS",
	"DEPENDS_ON",
	"RELATED_TO",
	"SUPERSEDES",
	"AMENDS",
}

// Connector is the slice of the resilient connector the retriever depends on.
type Connector interface {
	ExecuteTemplate(ctx context.Context, name string, params map[string]any) ([]store.Record, error)
	Available(ctx context.Context) bool
}

// Retriever runs the seed, pin, expand, pack pipeline. Safe for concurrent
// independent calls sharing one connector.
type Retriever struct {
	conn Connector

	maxHops     int
	maxEntities int
	maxResults  int

	cache *entityCache
	now   func() time.Time
}

// RetrieverOption customizes a Retriever.
type RetrieverOption func(*Retriever)

// WithClock replaces the time source used for latency and cache expiry.
func WithClock(now func() time.Time) RetrieverOption {
	return func(r *Retriever) {
		r.now = now
	}
}

// NewRetriever creates a Retriever with the configured bounds. MaxHops and
// MaxEntities are clamped to the hard ceilings here, at construction, so no
// configuration can lift them.
func NewRetriever(conn Connector, cfg config.Config, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		conn:        conn,
		maxHops:     min(cfg.MaxHops, hardMaxHops),
		maxEntities: min(cfg.MaxEntities, hardMaxEntities),
		maxResults:  cfg.MaxResults,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	r.cache = newEntityCache(cfg.CacheTTL, r.now)
	return r
}

// Retrieve runs the pipeline for one request. It never returns an error: the
// worst case is a fallback result carrying only the vector context.
func (r *Retriever) Retrieve(ctx context.Context, query string, vectorResults []common.VectorResult, topK int) common.RetrievalResult {
	start := r.now()

	if !r.conn.Available(ctx) {
		return r.fallback(vectorResults, start)
	}

	result, ok := r.hybrid(ctx, vectorResults, start)
	if !ok {
		return r.fallback(vectorResults, start)
	}
	return result
}

// fallback returns the pure vector context: original texts in input order,
// seed document IDs as citations, nothing graph-derived.
func (r *Retriever) fallback(vectorResults []common.VectorResult, start time.Time) common.RetrievalResult {
	bounded := vectorResults
	if len(bounded) > r.maxResults {
		bounded = bounded[:r.maxResults]
	}

	texts := make([]string, 0, len(bounded))
	docIDs := make([]string, 0, len(bounded))
	for _, hit := range bounded {
		if hit.Text != "" {
			texts = append(texts, hit.Text)
		}
		if id := hit.DocumentID(); id != "" {
			docIDs = append(docIDs, id)
		}
	}

	return common.RetrievalResult{
		Text:          joinTexts(texts),
		SourceDocIDs:  docIDs,
		Entities:      []string{},
		Relationships: []common.Triple{},
		FallbackUsed:  true,
		LatencyMs:     float64(r.now().Sub(start).Microseconds()) / 1000.0,
	}
}

// hybrid is the graph path. The second return value is false when the stage
// flow cannot proceed and the caller should take the fallback branch.
func (r *Retriever) hybrid(ctx context.Context, vectorResults []common.VectorResult, start time.Time) (common.RetrievalResult, bool) {
	seeds := make([]string, 0, len(vectorResults))
	for _, hit := range vectorResults {
		if id := hit.DocumentID(); id != "" {
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		return common.RetrievalResult{}, false
	}

	pinned, cacheHit := r.entitiesForDocs(ctx, seeds)
	expanded, triples := r.expand(ctx, pinned)
	relatedDocs := r.relatedDocuments(ctx, seeds)

	allDocIDs := dedupe(append(append([]string{}, seeds...), relatedDocs...))

	texts := make([]string, 0, len(vectorResults))
	for _, hit := range vectorResults {
		texts = append(texts, hit.Text)
	}

	// Truncation happens here, at result construction, not inside the
	// traversal steps.
	if len(allDocIDs) > r.maxResults {
		allDocIDs = allDocIDs[:r.maxResults]
	}
	if len(expanded) > r.maxEntities {
		expanded = expanded[:r.maxEntities]
	}

	return common.RetrievalResult{
		Text:          joinTexts(texts),
		SourceDocIDs:  allDocIDs,
		Entities:      expanded,
		Relationships: triples,
		GraphDerived:  true,
		LatencyMs:     float64(r.now().Sub(start).Microseconds()) / 1000.0,
		CacheHit:      cacheHit,
	}, true
}

// entitiesForDocs pins seed documents to graph entities, going through the
// TTL cache. A failed lookup for one document is skipped; the step never
// aborts the pipeline.
func (r *Retriever) entitiesForDocs(ctx context.Context, docIDs []string) ([]string, bool) {
	key := cacheKey(docIDs)
	if cached, ok := r.cache.get(key); ok {
		return cached, true
	}

	entities := make([]string, 0)
	for _, docID := range docIDs {
		records, err := r.conn.ExecuteTemplate(ctx, "get_entities_by_doc", map[string]any{
			"doc_id": docID,
			"limit":  pinLimit,
		})
		if err != nil {
			logger.Debug("Entity lookup failed", "doc_id", docID, "err", err)
			continue
		}
		for _, rec := range records {
			if name := recordString(rec, "name"); name != "" {
				entities = append(entities, name)
			}
		}
	}

	entities = dedupe(entities)
	r.cache.set(key, entities)
	return entities, false
}

// expand walks one relationship layer from the pinned set, restricted to the
// allowlisted edge types. Fan-out is capped to the first expandFanout pinned
// entities for latency control.
func (r *Retriever) expand(ctx context.Context, pinned []string) ([]string, []common.Triple) {
	all := append([]string{}, pinned...)
	triples := make([]common.Triple, 0)

	fanout := pinned
	if len(fanout) > expandFanout {
		fanout = fanout[:expandFanout]
	}

	for _, entity := range fanout {
		records, err := r.conn.ExecuteTemplate(ctx, "get_related_entities", map[string]any{
			"entity_name":           entity,
			"allowed_relationships": expandRelationships,
			"limit":                 expandLimit,
		})
		if err != nil {
			logger.Debug("Graph expansion failed", "entity", entity, "err", err)
			continue
		}
		for _, rec := range records {
			name := recordString(rec, "name")
			if name != "" {
				all = append(all, name)
			}
			if relType := recordString(rec, "relationship"); relType != "" {
				target := name
				if target == "" {
					target = "unknown"
				}
				triples = append(triples, common.Triple{
					Source: entity,
					Type:   relType,
					Target: target,
				})
			}
		}
	}

	return dedupe(all), triples
}

// relatedDocuments discovers documents connected to the seeds via REFERENCES
// edges.
func (r *Retriever) relatedDocuments(ctx context.Context, docIDs []string) []string {
	related := make([]string, 0)
	for _, docID := range docIDs {
		records, err := r.conn.ExecuteTemplate(ctx, "get_doc_relationships", map[string]any{
			"doc_id": docID,
			"limit":  relatedDocLimit,
		})
		if err != nil {
			logger.Debug("Related document lookup failed", "doc_id", docID, "err", err)
			continue
		}
		for _, rec := range records {
			if doc := recordString(rec, "related_doc"); doc != "" {
				related = append(related, doc)
			}
		}
	}
	return dedupe(related)
}

func joinTexts(texts []string) string {
	out := ""
	for i, text := range texts {
		if i > 0 {
			out += "\n\n"
		}
		out += text
	}
	return out
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func recordString(rec store.Record, key string) string {
	if value, ok := rec[key].(string); ok {
		return value
	}
	return ""
}

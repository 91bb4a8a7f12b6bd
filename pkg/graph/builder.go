// Package graph builds the knowledge graph from saved documents. All writes
// go through allowlisted merge templates, so re-ingesting the same content
// is idempotent: the node and edge set stays identical, only update
// timestamps move.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/parallax-labs/graphrag/pkg/common"
	"github.com/parallax-labs/graphrag/pkg/logger"
	"github.com/parallax-labs/graphrag/pkg/safequery"
	"github.com/parallax-labs/graphrag/pkg/store"
)

// AllowedEntityTypes is the closed set of entity types the builder writes.
// Anything else is coerced to the generic fallback type.
var AllowedEntityTypes = []string{
	"Document",
	"Component",
	"Person",
	"Team",
	"System",
	"Concept",
	"Event",
	"Decision",
	"Incident",
	"Change",
}

// FallbackEntityType replaces entity types outside the allowlist.
const FallbackEntityType = "Concept"

// FallbackRelationshipType replaces relationship types outside the allowlist.
const FallbackRelationshipType = "RELATED_TO"

// parallelDocuments bounds concurrent document ingestion in a batch.
const parallelDocuments = 4

// TemplateExecutor is the slice of the connector the builder depends on.
type TemplateExecutor interface {
	ExecuteTemplate(ctx context.Context, name string, params map[string]any) ([]store.Record, error)
	Available(ctx context.Context) bool
}

// Builder performs idempotent graph ingestion through a connector.
type Builder struct {
	conn TemplateExecutor
}

// NewBuilder creates a Builder writing through conn.
func NewBuilder(conn TemplateExecutor) *Builder {
	return &Builder{conn: conn}
}

// EntityID derives a deterministic identifier from the merge key.
func EntityID(name, entityType string) string {
	sum := sha256.Sum256([]byte(entityType + ":" + name))
	return hex.EncodeToString(sum[:])[:16]
}

// ContentHash fingerprints document content for idempotence verification.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

func allowedEntityType(entityType string) string {
	for _, t := range AllowedEntityTypes {
		if t == entityType {
			return entityType
		}
	}
	logger.Warn("Entity type not in allowlist, coercing", "type", entityType, "fallback", FallbackEntityType)
	return FallbackEntityType
}

func allowedRelationshipType(relType string) string {
	relType = strings.ToUpper(relType)
	for _, t := range safequery.AllowedRelationships {
		if t == relType {
			return relType
		}
	}
	return FallbackRelationshipType
}

// UpsertEntity merges an entity into the graph. Types outside the allowlist
// are coerced rather than rejected; partial ingestion beats total failure.
func (b *Builder) UpsertEntity(ctx context.Context, entity common.Entity) bool {
	if !b.conn.Available(ctx) {
		logger.Debug("Graph store not available, skipping entity upsert")
		return false
	}

	entityType := allowedEntityType(entity.Type)
	properties := map[string]any{
		"entity_id": EntityID(entity.Name, entityType),
	}
	for k, v := range entity.Properties {
		properties[k] = v
	}

	_, err := b.conn.ExecuteTemplate(ctx, "merge_entity", map[string]any{
		"name":       entity.Name,
		"type":       entityType,
		"properties": properties,
	})
	return err == nil
}

// UpsertRelationship merges a directed edge. Types outside the allowlist
// default to RELATED_TO, and the template variant is selected by the
// normalized type tag, never interpolated from caller input.
func (b *Builder) UpsertRelationship(ctx context.Context, rel common.Relationship) bool {
	if !b.conn.Available(ctx) {
		return false
	}

	relType := allowedRelationshipType(rel.Type)
	properties := rel.Properties
	if properties == nil {
		properties = map[string]any{}
	}

	_, err := b.conn.ExecuteTemplate(ctx, "merge_rel_"+strings.ToLower(relType), map[string]any{
		"source":     rel.Source,
		"target":     rel.Target,
		"properties": properties,
	})
	return err == nil
}

// BuildFromDocument merges a Document entity for doc, scans its content for
// cross-references, and asserts a REFERENCES edge to each one. A missing
// document ID is a no-op failure, not an error.
func (b *Builder) BuildFromDocument(ctx context.Context, doc common.Document) bool {
	if !b.conn.Available(ctx) {
		return false
	}
	if doc.ID == "" {
		return false
	}

	ok := b.UpsertEntity(ctx, common.Entity{
		Name: doc.ID,
		Type: "Document",
		Properties: map[string]any{
			"title":        doc.Title,
			"source":       doc.Source,
			"content_hash": ContentHash(doc.Content),
		},
	})
	if !ok {
		return false
	}

	for _, ref := range ExtractReferences(doc.Content) {
		b.UpsertEntity(ctx, common.Entity{Name: ref, Type: "Document"})
		b.UpsertRelationship(ctx, common.Relationship{
			Source: doc.ID,
			Target: ref,
			Type:   "REFERENCES",
		})
	}

	return true
}

// BuildFromDocuments ingests a batch with bounded parallelism. Individual
// failures are skipped, not fatal.
func (b *Builder) BuildFromDocuments(ctx context.Context, docs []common.Document) common.IngestStats {
	var mu sync.Mutex
	stats := common.IngestStats{}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelDocuments)

	for _, doc := range docs {
		d := doc
		eg.Go(func() error {
			refs := ExtractReferences(d.Content)
			if !b.BuildFromDocument(gCtx, d) {
				return nil
			}
			mu.Lock()
			stats.Documents++
			stats.Entities += 1 + len(refs)
			stats.Relationships += len(refs)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors, the batch always completes.
	_ = eg.Wait()

	logger.Info("Graph ingestion batch complete",
		"documents", stats.Documents,
		"entities", stats.Entities,
		"relationships", stats.Relationships,
	)
	return stats
}

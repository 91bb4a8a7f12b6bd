package graph

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/parallax-labs/graphrag/pkg/common"
	"github.com/parallax-labs/graphrag/pkg/store"
)

type templateCall struct {
	name   string
	params map[string]any
}

type fakeConnector struct {
	mu        sync.Mutex
	available bool
	calls     []templateCall
}

func (f *fakeConnector) ExecuteTemplate(ctx context.Context, name string, params map[string]any) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, templateCall{name: name, params: params})
	return []store.Record{}, nil
}

func (f *fakeConnector) Available(ctx context.Context) bool { return f.available }

func (f *fakeConnector) callsFor(name string) []templateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]templateCall, 0)
	for _, c := range f.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractReferences(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "empty content",
			content: "",
			want:    []string{},
		},
		{
			name:    "all reference forms",
			content: "See ADR-001 and INC-42, then CHG-7 and MEETING-2026-08-25.",
			want:    []string{"ADR-001", "CHG-7", "INC-42", "MEETING-2026-08-25"},
		},
		{
			name:    "duplicates collapse",
			content: "ADR-001 ADR-001 ADR-001",
			want:    []string{"ADR-001"},
		},
		{
			name:    "no partial matches",
			content: "BADR-001 and MEETING-2026 and adr-001",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReferences(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestUpsertEntityCoercesDisallowedType(t *testing.T) {
	conn := &fakeConnector{available: true}
	b := NewBuilder(conn)

	if !b.UpsertEntity(context.Background(), common.Entity{Name: "widget", Type: "Gadget"}) {
		t.Fatal("expected upsert to succeed")
	}

	calls := conn.callsFor("merge_entity")
	if len(calls) != 1 {
		t.Fatalf("expected 1 merge_entity call, got %d", len(calls))
	}
	if calls[0].params["type"] != "Concept" {
		t.Fatalf("expected coerced type Concept, got %v", calls[0].params["type"])
	}
}

func TestUpsertRelationshipFallsBackToRelatedTo(t *testing.T) {
	conn := &fakeConnector{available: true}
	b := NewBuilder(conn)

	ok := b.UpsertRelationship(context.Background(), common.Relationship{
		Source: "a",
		Target: "b",
		Type:   "HACKED",
	})
	if !ok {
		t.Fatal("expected upsert to succeed")
	}

	if len(conn.callsFor("merge_rel_related_to")) != 1 {
		t.Fatalf("expected merge_rel_related_to variant, got calls %v", conn.calls)
	}
}

func TestUpsertRelationshipNormalizesCase(t *testing.T) {
	conn := &fakeConnector{available: true}
	b := NewBuilder(conn)

	b.UpsertRelationship(context.Background(), common.Relationship{
		Source: "a",
		Target: "b",
		Type:   "references",
	})

	if len(conn.callsFor("merge_rel_references")) != 1 {
		t.Fatalf("expected merge_rel_references variant, got calls %v", conn.calls)
	}
}

func TestBuildFromDocumentRequiresID(t *testing.T) {
	conn := &fakeConnector{available: true}
	b := NewBuilder(conn)

	if b.BuildFromDocument(context.Background(), common.Document{Content: "ADR-001"}) {
		t.Fatal("missing document id must be a no-op failure")
	}
	if len(conn.calls) != 0 {
		t.Fatalf("no templates may run for an id-less document, got %v", conn.calls)
	}
}

func TestBuildFromDocumentStoreDown(t *testing.T) {
	conn := &fakeConnector{available: false}
	b := NewBuilder(conn)

	if b.BuildFromDocument(context.Background(), common.Document{ID: "ADR-001"}) {
		t.Fatal("expected false when the store is unavailable")
	}
}

func TestBuildFromDocumentCreatesReferences(t *testing.T) {
	conn := &fakeConnector{available: true}
	b := NewBuilder(conn)

	doc := common.Document{
		ID:      "ADR-010",
		Title:   "Storage layout",
		Content: "Supersedes ADR-001, relates to INC-42.",
	}
	if !b.BuildFromDocument(context.Background(), doc) {
		t.Fatal("expected build to succeed")
	}

	// Document entity + one entity per distinct reference.
	merges := conn.callsFor("merge_entity")
	if len(merges) != 3 {
		t.Fatalf("expected 3 entity merges, got %d", len(merges))
	}
	if merges[0].params["name"] != "ADR-010" {
		t.Fatalf("expected the source document first, got %v", merges[0].params["name"])
	}
	props, ok := merges[0].params["properties"].(map[string]any)
	if !ok || props["content_hash"] == "" {
		t.Fatalf("expected content_hash on document entity, got %v", merges[0].params["properties"])
	}

	rels := conn.callsFor("merge_rel_references")
	if len(rels) != 2 {
		t.Fatalf("expected 2 REFERENCES edges, got %d", len(rels))
	}
	for _, rel := range rels {
		if rel.params["source"] != "ADR-010" {
			t.Fatalf("expected edges to originate at ADR-010, got %v", rel.params["source"])
		}
	}
}

func TestBuildFromDocumentIdempotent(t *testing.T) {
	conn := &fakeConnector{available: true}
	b := NewBuilder(conn)
	doc := common.Document{ID: "ADR-001", Content: "See INC-7."}

	b.BuildFromDocument(context.Background(), doc)
	first := append([]templateCall(nil), conn.calls...)

	conn.calls = nil
	b.BuildFromDocument(context.Background(), doc)

	if !reflect.DeepEqual(first, conn.calls) {
		t.Fatalf("re-ingestion must issue the identical merge sequence\nfirst: %v\nsecond: %v", first, conn.calls)
	}
}

func TestContentHashStable(t *testing.T) {
	if ContentHash("abc") != ContentHash("abc") {
		t.Fatal("content hash must be deterministic")
	}
	if ContentHash("abc") == ContentHash("abd") {
		t.Fatal("content hash must depend on content")
	}
	if len(ContentHash("abc")) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", ContentHash("abc"))
	}
}

func TestBuildFromDocumentsStats(t *testing.T) {
	conn := &fakeConnector{available: true}
	b := NewBuilder(conn)

	stats := b.BuildFromDocuments(context.Background(), []common.Document{
		{ID: "ADR-001", Content: "References INC-1 and INC-2."},
		{ID: "ADR-002", Content: "plain"},
		{Content: "no id, skipped"},
	})

	if stats.Documents != 2 {
		t.Fatalf("expected 2 documents, got %d", stats.Documents)
	}
	if stats.Entities != 4 {
		t.Fatalf("expected 4 entities, got %d", stats.Entities)
	}
	if stats.Relationships != 2 {
		t.Fatalf("expected 2 relationships, got %d", stats.Relationships)
	}
}

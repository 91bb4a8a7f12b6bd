package common

import (
	"fmt"
	"strings"
)

// VectorResult is a single hit from the host's vector search. DocID is
// preferred as the document identifier; Source is accepted as a legacy
// spelling from older memory stores.
type VectorResult struct {
	DocID  string `json:"doc_id,omitempty"`
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
}

// DocumentID returns the document identifier for the hit, or "" when the
// result carries neither field.
func (v VectorResult) DocumentID() string {
	if v.DocID != "" {
		return v.DocID
	}
	return v.Source
}

// RetrievalResult is the outcome of one retrieval call. The field set is
// identical on the graph path and the fallback path; GraphDerived and
// FallbackUsed are mutually exclusive.
type RetrievalResult struct {
	Text          string   `json:"text"`
	SourceDocIDs  []string `json:"source_doc_ids"`
	Entities      []string `json:"entities"`
	Relationships []Triple `json:"relationships"`
	GraphDerived  bool     `json:"graph_derived"`
	FallbackUsed  bool     `json:"fallback_used"`
	LatencyMs     float64  `json:"latency_ms"`
	CacheHit      bool     `json:"cache_hit"`
}

// ContextPack formats the result as the final context string handed back to
// the host. The original hit texts are never rewritten; citations and
// graph-derived entities are appended as trailing lines.
func (r RetrievalResult) ContextPack() string {
	lines := []string{r.Text}

	if len(r.SourceDocIDs) > 0 {
		cites := make([]string, 0, len(r.SourceDocIDs))
		for _, id := range r.SourceDocIDs {
			cites = append(cites, fmt.Sprintf("[%s]", id))
		}
		lines = append(lines, "\n---\nSources: "+strings.Join(cites, ", "))
	}

	if r.GraphDerived && len(r.Entities) > 0 {
		lines = append(lines, "\nRelated entities: "+strings.Join(r.Entities, ", "))
	}

	return strings.Join(lines, "\n")
}

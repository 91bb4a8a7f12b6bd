package common

// Entity represents a node in the graph store. An entity can be a document,
// person, system, or any other relevant concept. The pair (Name, Type) is the
// merge key: upserting the same pair twice updates properties in place and
// never creates a second node.
type Entity struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Relationship represents a typed, directed edge between two entities,
// addressed by entity name. The triple (Source, Target, Type) is the merge
// key, so re-asserting an edge never duplicates it.
type Relationship struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Triple is a (source, relationship type, target) tuple surfaced by graph
// expansion.
type Triple struct {
	Source string `json:"source"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Document is the inbound shape delivered by the host's document-save
// collaborator. Content arrives inline; the engine never loads files itself.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
	Title   string `json:"title,omitempty"`
}

// IngestStats summarizes a batch ingestion run.
type IngestStats struct {
	Documents     int `json:"documents"`
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
}

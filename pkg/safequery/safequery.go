// Package safequery holds the closed set of queries the engine is allowed to
// run against the graph store. Nothing outside this package ever contributes
// query text: callers address templates by name and supply named parameters,
// which are validated and bound positionally before execution.
package safequery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound is returned for any template name outside the
	// registered set.
	ErrTemplateNotFound = errors.New("safequery: template not found")

	// ErrInvalidParameters is returned when a parameter fails validation or
	// a template parameter is missing.
	ErrInvalidParameters = errors.New("safequery: invalid parameters")
)

// AllowedRelationships is the closed set of relationship types the engine
// will traverse or write. One merge template per entry is generated at init.
var AllowedRelationships = []string{
	"REFERENCES",
	"CONTAINS",
	"MENTIONS",
	"DEPENDS_ON",
	"RELATED_TO",
	"SUPERSEDES",
	"AMENDS",
	"AUTHORED_BY",
	"ASSIGNED_TO",
	"AFFECTS",
}

// Template is a registered, parameterized query. Params lists the named
// parameters in positional order; the SQL references them as $1..$n.
type Template struct {
	Name   string
	SQL    string
	Params []string
}

var registry = buildRegistry()

func buildRegistry() map[string]Template {
	templates := map[string]Template{
		"check_health": {
			SQL: `SELECT 1 AS health`,
		},

		"get_entities_by_doc": {
			SQL: `
				SELECT e.name AS name, e.type AS type
				FROM entities d
				JOIN relationships r ON r.source_id = d.id
					AND r.type IN ('REFERENCES', 'CONTAINS', 'MENTIONS')
				JOIN entities e ON e.id = r.target_id
				WHERE d.name = $1 AND d.type = 'Document'
				ORDER BY e.name
				LIMIT $2`,
			Params: []string{"doc_id", "limit"},
		},

		"get_related_entities": {
			SQL: `
				SELECT n.name AS name, n.type AS type, r.type AS relationship
				FROM entities e
				JOIN relationships r ON r.source_id = e.id OR r.target_id = e.id
				JOIN entities n ON n.id = CASE
					WHEN r.source_id = e.id THEN r.target_id
					ELSE r.source_id
				END
				WHERE e.name = $1 AND r.type = ANY($2)
				ORDER BY n.name
				LIMIT $3`,
			Params: []string{"entity_name", "allowed_relationships", "limit"},
		},

		"get_doc_relationships": {
			SQL: `
				SELECT d2.name AS related_doc, d2.properties->>'title' AS title
				FROM entities d1
				JOIN relationships r ON r.source_id = d1.id AND r.type = 'REFERENCES'
				JOIN entities d2 ON d2.id = r.target_id
				WHERE d1.name = $1 AND d1.type = 'Document' AND d2.type = 'Document'
				ORDER BY d2.name
				LIMIT $2`,
			Params: []string{"doc_id", "limit"},
		},

		"get_entity_details": {
			SQL: `
				SELECT name, type, properties
				FROM entities
				WHERE name = ANY($1)
				LIMIT $2`,
			Params: []string{"entity_ids", "limit"},
		},

		"get_neighbors": {
			SQL: `
				SELECT a.name AS source, r.type AS relationship, b.name AS target
				FROM relationships r
				JOIN entities a ON a.id = r.source_id
				JOIN entities b ON b.id = r.target_id
				WHERE a.name = ANY($1) OR b.name = ANY($1)
				LIMIT $2`,
			Params: []string{"entity_ids", "limit"},
		},

		"merge_entity": {
			SQL: `
				INSERT INTO entities (name, type, properties, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (name, type) DO UPDATE
					SET properties = entities.properties || EXCLUDED.properties,
					    updated_at = now()
				RETURNING name, type`,
			Params: []string{"name", "type", "properties"},
		},
	}

	// One merge variant per allowlisted relationship type, generated from the
	// static set above. The type enters the SQL as a literal baked in here,
	// never as caller input.
	for _, rel := range AllowedRelationships {
		name := "merge_rel_" + strings.ToLower(rel)
		templates[name] = Template{
			SQL: fmt.Sprintf(`
				INSERT INTO relationships (source_id, target_id, type, properties, updated_at)
				SELECT a.id, b.id, '%s', $3, now()
				FROM entities a, entities b
				WHERE a.name = $1 AND b.name = $2
				ON CONFLICT (source_id, target_id, type) DO UPDATE
					SET properties = relationships.properties || EXCLUDED.properties,
					    updated_at = now()
				RETURNING type`, rel),
			Params: []string{"source", "target", "properties"},
		}
	}

	for name, tpl := range templates {
		tpl.Name = name
		templates[name] = tpl
	}
	return templates
}

// GetQuery returns the registered template for name. Unknown names yield
// ErrTemplateNotFound; no query text is ever constructed from the name.
func GetQuery(name string) (Template, error) {
	tpl, ok := registry[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return tpl, nil
}

// TemplateNames returns the names of all registered templates.
func TemplateNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

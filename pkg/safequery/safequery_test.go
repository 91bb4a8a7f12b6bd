package safequery

import (
	"errors"
	"strings"
	"testing"
)

func TestGetQueryUnknownName(t *testing.T) {
	names := []string{"DROP_DATABASE", "", "get_entities_by_doc; DROP TABLE entities", "merge_rel_hacked"}
	for _, name := range names {
		if _, err := GetQuery(name); !errors.Is(err, ErrTemplateNotFound) {
			t.Fatalf("expected ErrTemplateNotFound for %q, got %v", name, err)
		}
	}
}

func TestGetQueryRegisteredNames(t *testing.T) {
	names := []string{
		"check_health",
		"get_entities_by_doc",
		"get_related_entities",
		"get_doc_relationships",
		"get_entity_details",
		"get_neighbors",
		"merge_entity",
	}
	for _, name := range names {
		tpl, err := GetQuery(name)
		if err != nil {
			t.Fatalf("expected template %q, got %v", name, err)
		}
		if tpl.Name != name {
			t.Fatalf("expected name %q, got %q", name, tpl.Name)
		}
		if tpl.SQL == "" {
			t.Fatalf("template %q has empty query text", name)
		}
	}
}

func TestMergeVariantPerAllowedRelationship(t *testing.T) {
	for _, rel := range AllowedRelationships {
		name := "merge_rel_" + strings.ToLower(rel)
		tpl, err := GetQuery(name)
		if err != nil {
			t.Fatalf("expected merge variant %q, got %v", name, err)
		}
		if !strings.Contains(tpl.SQL, "'"+rel+"'") {
			t.Fatalf("variant %q does not carry its type literal", name)
		}
		want := []string{"source", "target", "properties"}
		if len(tpl.Params) != len(want) {
			t.Fatalf("variant %q has params %v", name, tpl.Params)
		}
		for i, p := range want {
			if tpl.Params[i] != p {
				t.Fatalf("variant %q has params %v", name, tpl.Params)
			}
		}
	}
}

func TestValidateParametersLimitClamp(t *testing.T) {
	out, err := ValidateParameters(map[string]any{"limit": 5000})
	if err != nil {
		t.Fatalf("oversized limit must be clamped, not rejected: %v", err)
	}
	if out["limit"] != 100 {
		t.Fatalf("expected limit clamped to 100, got %v", out["limit"])
	}

	// At the ceiling is still allowed unchanged.
	out, err = ValidateParameters(map[string]any{"limit": 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["limit"] != 1000 {
		t.Fatalf("expected limit 1000 untouched, got %v", out["limit"])
	}
}

func TestValidateParametersLimitRejections(t *testing.T) {
	bad := []any{"50", 0, -1, 3.5}
	for _, v := range bad {
		if _, err := ValidateParameters(map[string]any{"limit": v}); !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("expected rejection for limit %v, got %v", v, err)
		}
	}
}

func TestValidateParametersEntityIDs(t *testing.T) {
	if _, err := ValidateParameters(map[string]any{"entity_ids": "not-a-list"}); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected rejection for string entity_ids, got %v", err)
	}
	if _, err := ValidateParameters(map[string]any{"entity_ids": []int{1, 2}}); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected rejection for []int entity_ids, got %v", err)
	}
	if _, err := ValidateParameters(map[string]any{"entity_ids": []string{"a", "b"}}); err != nil {
		t.Fatalf("expected []string entity_ids to pass, got %v", err)
	}
}

func TestValidateParametersDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"limit": 5000}
	if _, err := ValidateParameters(in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in["limit"] != 5000 {
		t.Fatalf("caller map mutated: %v", in["limit"])
	}
}

func TestBuildArgsOrder(t *testing.T) {
	tpl, err := GetQuery("get_related_entities")
	if err != nil {
		t.Fatal(err)
	}

	args, err := BuildArgs(tpl, map[string]any{
		"limit":                 10,
		"entity_name":           "ADR-001",
		"allowed_relationships": []string{"REFERENCES"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
	if args[0] != "ADR-001" {
		t.Fatalf("expected entity_name first, got %v", args[0])
	}
	if args[2] != 10 {
		t.Fatalf("expected limit last, got %v", args[2])
	}
}

func TestBuildArgsMissingParameter(t *testing.T) {
	tpl, err := GetQuery("merge_entity")
	if err != nil {
		t.Fatal(err)
	}
	_, err = BuildArgs(tpl, map[string]any{"name": "x", "type": "Document"})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters for missing properties, got %v", err)
	}
}

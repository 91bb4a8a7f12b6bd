package graph

import (
	"regexp"
	"sort"
)

// refPatterns are the fixed cross-reference forms recognized in document
// content. Entity identification is pattern based; there is no NLP here.
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(ADR-\d+)\b`),
	regexp.MustCompile(`\b(INC-\d+)\b`),
	regexp.MustCompile(`\b(CHG-\d+)\b`),
	regexp.MustCompile(`\b(MEETING-\d{4}-\d{2}-\d{2})\b`),
}

// ExtractReferences returns the distinct document references found in
// content, sorted for deterministic ingestion order.
func ExtractReferences(content string) []string {
	seen := make(map[string]struct{})
	for _, pattern := range refPatterns {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			seen[match[1]] = struct{}{}
		}
	}

	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

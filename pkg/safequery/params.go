package safequery

import (
	"fmt"
)

const (
	// limitCeiling is the hard cap above which a requested limit is treated
	// as unsafe.
	limitCeiling = 1000

	// safeLimit replaces any limit above the ceiling. The call proceeds with
	// the clamped value rather than being rejected.
	safeLimit = 100
)

// ValidateParameters checks and sanitizes parameters before they reach the
// store. It returns a copy; the caller's map is never mutated.
//
// Rules: entity_ids must be a []string; limit must be a positive integer.
// A limit above the ceiling is clamped to safeLimit, not rejected - the
// engine favors availability over strict client correctness.
func ValidateParameters(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	if raw, ok := out["entity_ids"]; ok {
		if _, ok := raw.([]string); !ok {
			return nil, fmt.Errorf("%w: entity_ids must be a list of strings", ErrInvalidParameters)
		}
	}

	if raw, ok := out["limit"]; ok {
		limit, ok := raw.(int)
		if !ok || limit <= 0 {
			return nil, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidParameters)
		}
		if limit > limitCeiling {
			out["limit"] = safeLimit
		}
	}

	return out, nil
}

// BuildArgs binds named parameters to the template's positional order.
// Every declared parameter must be present.
func BuildArgs(tpl Template, params map[string]any) ([]any, error) {
	args := make([]any, 0, len(tpl.Params))
	for _, name := range tpl.Params {
		value, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing parameter %q for template %s", ErrInvalidParameters, name, tpl.Name)
		}
		args = append(args, value)
	}
	return args, nil
}

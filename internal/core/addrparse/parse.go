// Package addrparse wraps the external address tokenizer behind a
// plain function type so the pipeline and its tests can swap it out.
package addrparse

import "strings"

// Func parses free-form text into address components. A nil or empty
// map means no match; both are valid outcomes.
type Func func(text string) map[string]string

// Clean normalizes tokenizer output: trims keys and values and drops
// empty entries.
func Clean(components map[string]string) map[string]string {
	if len(components) == 0 {
		return nil
	}
	parsed := make(map[string]string, len(components))
	for k, v := range components {
		key := strings.TrimSpace(k)
		value := strings.TrimSpace(v)
		if key == "" || value == "" {
			continue
		}
		parsed[key] = value
	}
	if len(parsed) == 0 {
		return nil
	}
	return parsed
}

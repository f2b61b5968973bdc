package geocode

import (
	"regexp"
	"sort"
	"strings"
)

// queryPriorities is the fixed join order for composed queries.
var queryPriorities = []string{
	"house_number", "road", "unit", "level",
	"city", "suburb", "state", "postcode", "country",
}

var zipRe = regexp.MustCompile(`^(\d{5})(?:[-\s]?(\d{4}))?$`)

// ComposeQueries generates the ordered query formulations for one
// candidate: the priority-joined components, a base-ZIP variant when
// the postcode carries a +4, a postcode-free variant, and finally the
// raw text. Duplicates are removed preserving order.
func ComposeQueries(parsed map[string]string, rawText string) []string {
	normalized := make(map[string]string, len(parsed))
	for k, v := range parsed {
		if v = strings.TrimSpace(v); v != "" {
			normalized[k] = v
		}
	}

	var queries []string
	if primary := buildQuery(normalized); primary != "" {
		queries = append(queries, primary)
	}

	if postcode, ok := normalized["postcode"]; ok {
		if base := baseZIP(postcode); base != "" && base != postcode {
			withBase := cloneWith(normalized, "postcode", base)
			if q := buildQuery(withBase); q != "" {
				queries = append(queries, q)
			}
		}
		zipless := cloneWith(normalized, "postcode", "")
		if q := buildQuery(zipless); q != "" {
			queries = append(queries, q)
		}
	}

	if raw := strings.TrimSpace(rawText); raw != "" {
		queries = append(queries, raw)
	}

	deduped := dedupeStrings(queries)
	if len(deduped) == 0 {
		return []string{strings.TrimSpace(rawText)}
	}
	return deduped
}

func buildQuery(components map[string]string) string {
	var parts []string
	for _, key := range queryPriorities {
		if v, ok := components[key]; ok && strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	if len(parts) == 0 {
		// Nothing matched the priority list: fall back to every
		// non-empty value in key order for determinism.
		keys := make([]string, 0, len(components))
		for k := range components {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := strings.TrimSpace(components[k]); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(dedupeStrings(parts), ", ")
}

func cloneWith(components map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(components))
	for k, v := range components {
		out[k] = v
	}
	if value == "" {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

// baseZIP returns the 5-digit base of a US ZIP, or "" when the
// postcode is not ZIP-shaped.
func baseZIP(postcode string) string {
	m := zipRe.FindStringSubmatch(strings.TrimSpace(postcode))
	if m == nil {
		return ""
	}
	return m[1]
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

//go:build cgo

package addrparse

import (
	"strings"

	"github.com/openvenues/gopostal/parser"
)

// Default returns the libpostal-backed parser.
func Default() Func {
	return func(text string) map[string]string {
		cleaned := strings.TrimSpace(text)
		if cleaned == "" {
			return nil
		}
		comps := parser.ParseAddress(cleaned)
		if len(comps) == 0 {
			return nil
		}
		parsed := make(map[string]string, len(comps))
		for _, c := range comps {
			label := strings.TrimSpace(c.Label)
			value := strings.TrimSpace(c.Value)
			if label == "" || value == "" {
				continue
			}
			parsed[label] = value
		}
		return Clean(parsed)
	}
}

//go:build !cgo

package addrparse

// Default without cgo cannot reach libpostal; every text parses to no
// match, which the pipeline treats as a recoverable per-candidate miss.
func Default() Func {
	return func(string) map[string]string { return nil }
}

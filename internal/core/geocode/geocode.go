// Package geocode resolves validated address components to
// coordinates through a configurable provider, with a shared TTL
// cache and bounded rate-limit retries.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"routeplan/internal/logger"
)

// ErrNotConfigured marks missing provider credentials. It requires
// operator action, unlike transient provider failures.
var ErrNotConfigured = errors.New("geocoder not configured")

// Result is the terminal outcome of resolving one candidate. Either
// coordinates are present or Message explains the miss.
type Result struct {
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Confidence    float64  `json:"confidence"`
	Message       string   `json:"message,omitempty"`
	ResolvedLabel string   `json:"resolved_label,omitempty"`
}

func (r Result) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Provider is the external geocoding capability for a single query.
// Transport and provider errors are returned as errors; "no match" is
// a Result with a Message.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, query string) (Result, error)
}

// Cache stores results keyed by exact query text. Entries are shared
// process-wide across jobs.
type Cache interface {
	Get(ctx context.Context, query string) (Result, bool)
	Set(ctx context.Context, query string, res Result)
}

type Options struct {
	Provider string
	BaseURL  string
	APIKey   string
	Email    string
	Timeout  time.Duration
}

// Resolver tries successive query formulations against the provider
// until one yields coordinates.
type Resolver struct {
	provider Provider
	cache    Cache
	log      *logger.Logger
}

// NewResolver builds the provider once from configuration. Missing
// credentials surface here as ErrNotConfigured.
func NewResolver(opts Options, cache Cache) (*Resolver, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: opts.Timeout}

	var provider Provider
	switch opts.Provider {
	case "nominatim", "":
		base := opts.BaseURL
		if base == "" {
			base = "https://nominatim.openstreetmap.org"
		}
		provider = &nominatimProvider{baseURL: base, email: opts.Email, client: client}
	case "google":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%w: google geocoder requires an API key", ErrNotConfigured)
		}
		provider = &googleProvider{apiKey: opts.APIKey, client: client}
	case "mapbox":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%w: mapbox geocoder requires an access token", ErrNotConfigured)
		}
		provider = &mapboxProvider{token: opts.APIKey, client: client}
	default:
		return nil, fmt.Errorf("%w: unknown geocoder provider %q", ErrNotConfigured, opts.Provider)
	}

	return NewResolverWithProvider(provider, cache), nil
}

func NewResolverWithProvider(provider Provider, cache Cache) *Resolver {
	if cache == nil {
		cache = NewMemoryCache(512, 24*time.Hour)
	}
	return &Resolver{provider: provider, cache: cache, log: logger.New("Geocode")}
}

// Resolve walks the composed queries in order. The first cache hit or
// coordinate match wins; otherwise the last non-matching result is
// returned. Failures never escape as errors.
func (r *Resolver) Resolve(ctx context.Context, parsed map[string]string, rawText string) Result {
	if len(parsed) == 0 {
		return Result{Message: "No address components available"}
	}

	var last *Result
	for _, query := range ComposeQueries(parsed, rawText) {
		if cached, ok := r.cache.Get(ctx, query); ok {
			r.log.LogDebugf("cache hit: %s", query)
			return cached
		}

		res, err := r.provider.Lookup(ctx, query)
		if err != nil {
			r.log.LogWarnf("lookup failed for %q: %v", query, err)
			res = Result{Message: err.Error()}
			last = &res
			continue
		}
		if res.HasCoordinates() {
			r.cache.Set(ctx, query, res)
			r.log.LogDebugf("resolved %q via %s (confidence=%.2f)", query, r.provider.Name(), res.Confidence)
			return res
		}
		last = &res
	}

	if last != nil {
		return *last
	}
	return Result{Message: "No geocoding candidates"}
}

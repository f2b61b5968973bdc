package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newNominatimResolver(t *testing.T, baseURL string) *Resolver {
	t.Helper()
	r, err := NewResolver(Options{
		Provider: "nominatim",
		BaseURL:  baseURL,
		Timeout:  5 * time.Second,
	}, NewMemoryCache(16, time.Minute))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestResolverRetriesOnRateLimit(t *testing.T) {
	var mu sync.Mutex
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		n := requests
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"lat":"39.8","lon":"-89.65","importance":0.7,"display_name":"123 Main St, Springfield"}]`))
	}))
	defer srv.Close()

	r := newNominatimResolver(t, srv.URL)
	got := r.Resolve(context.Background(), map[string]string{"house_number": "123", "road": "Main St"}, "123 Main St")

	if !got.HasCoordinates() {
		t.Fatalf("expected coordinates, got message %q", got.Message)
	}
	if *got.Latitude != 39.8 || *got.Longitude != -89.65 {
		t.Errorf("coordinates = (%v, %v)", *got.Latitude, *got.Longitude)
	}
	if got.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", got.Confidence)
	}
	if got.ResolvedLabel != "123 Main St, Springfield" {
		t.Errorf("ResolvedLabel = %q", got.ResolvedLabel)
	}
	mu.Lock()
	defer mu.Unlock()
	if requests != 2 {
		t.Errorf("server saw %d requests, want 2", requests)
	}
}

func TestResolverWalksQueryFormulations(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
		// Only the ZIP-free formulation matches.
		if q == "123, Main St" {
			w.Write([]byte(`[{"lat":"39.8","lon":"-89.65","display_name":"123 Main St"}]`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	r := newNominatimResolver(t, srv.URL)
	parsed := map[string]string{"house_number": "123", "road": "Main St", "postcode": "62704-1234"}
	got := r.Resolve(context.Background(), parsed, "123 Main St 62704-1234")

	if !got.HasCoordinates() {
		t.Fatalf("expected coordinates, got message %q", got.Message)
	}
	// Missing importance defaults to 0.5.
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}

	want := []string{
		"123, Main St, 62704-1234",
		"123, Main St, 62704",
		"123, Main St",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(queries) != len(want) {
		t.Fatalf("server saw queries %v, want %v", queries, want)
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Errorf("query %d = %q, want %q", i, queries[i], want[i])
		}
	}
}

func TestResolverReturnsLastMissWhenExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	r := newNominatimResolver(t, srv.URL)
	got := r.Resolve(context.Background(), map[string]string{"house_number": "1", "road": "Nowhere Rd"}, "1 Nowhere Rd")

	if got.HasCoordinates() {
		t.Fatal("expected no coordinates")
	}
	if got.Message != "No geocoding candidates" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestResolverEmptyComponents(t *testing.T) {
	r := NewResolverWithProvider(nil, NewMemoryCache(4, time.Minute))
	got := r.Resolve(context.Background(), nil, "anything")
	if got.Message != "No address components available" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestResolverCachesHits(t *testing.T) {
	var mu sync.Mutex
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.Write([]byte(`[{"lat":"1.5","lon":"2.5","display_name":"somewhere"}]`))
	}))
	defer srv.Close()

	r := newNominatimResolver(t, srv.URL)
	parsed := map[string]string{"house_number": "1", "road": "Main St"}

	first := r.Resolve(context.Background(), parsed, "1 Main St")
	second := r.Resolve(context.Background(), parsed, "1 Main St")

	if !first.HasCoordinates() || !second.HasCoordinates() {
		t.Fatal("expected coordinates from both resolutions")
	}
	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1 (second resolution should hit the cache)", requests)
	}
}

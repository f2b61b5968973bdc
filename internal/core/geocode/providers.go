package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxRateLimitRetries = 3

// doGet issues the request with a bounded wait-and-retry on HTTP 429,
// honoring Retry-After when present.
func doGet(ctx context.Context, client *http.Client, reqURL string, header http.Header) ([]byte, error) {
	var lastStatus int
	for attempt := 0; attempt < maxRateLimitRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastStatus = resp.StatusCode
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
		}
		return body, nil
	}
	return nil, fmt.Errorf("geocoder rate limited (status %d), retries exhausted", lastStatus)
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return time.Second
}

// --- Nominatim ---------------------------------------------------------

// nominatimProvider maps the importance score into [0,1]; a missing
// score defaults to 0.5.
type nominatimProvider struct {
	baseURL string
	email   string
	client  *http.Client
}

func (p *nominatimProvider) Name() string { return "nominatim" }

func (p *nominatimProvider) Lookup(ctx context.Context, query string) (Result, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("q", query)
	if p.email != "" {
		params.Set("email", p.email)
	}
	reqURL := strings.TrimRight(p.baseURL, "/") + "/search?" + params.Encode()

	header := http.Header{}
	header.Set("User-Agent", "routeplan/1.0")

	body, err := doGet(ctx, p.client, reqURL, header)
	if err != nil {
		return Result{}, err
	}

	var payload []struct {
		Lat         string   `json:"lat"`
		Lon         string   `json:"lon"`
		Importance  *float64 `json:"importance"`
		DisplayName string   `json:"display_name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid geocoder response: %w", err)
	}
	if len(payload) == 0 {
		return Result{Message: "No geocoding candidates"}, nil
	}

	best := payload[0]
	lat, latErr := strconv.ParseFloat(best.Lat, 64)
	lon, lonErr := strconv.ParseFloat(best.Lon, 64)
	if latErr != nil || lonErr != nil {
		return Result{Message: "Invalid geocoder response"}, nil
	}

	confidence := 0.5
	if best.Importance != nil {
		confidence = clampConfidence(*best.Importance)
	}
	return Result{
		Latitude:      &lat,
		Longitude:     &lon,
		Confidence:    confidence,
		ResolvedLabel: best.DisplayName,
	}, nil
}

// --- Google ------------------------------------------------------------

// googleProvider buckets the categorical location_type into a
// confidence value.
type googleProvider struct {
	apiKey string
	client *http.Client
}

var googleLocationTypeConfidence = map[string]float64{
	"ROOFTOP":            0.95,
	"RANGE_INTERPOLATED": 0.8,
	"GEOMETRIC_CENTER":   0.6,
	"APPROXIMATE":        0.4,
}

func (p *googleProvider) Name() string { return "google" }

func (p *googleProvider) Lookup(ctx context.Context, query string) (Result, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", p.apiKey)
	reqURL := "https://maps.googleapis.com/maps/api/geocode/json?" + params.Encode()

	body, err := doGet(ctx, p.client, reqURL, nil)
	if err != nil {
		return Result{}, err
	}

	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
				LocationType string `json:"location_type"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid geocoder response: %w", err)
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Result{Message: "No geocoding candidates"}, nil
	case "OVER_QUERY_LIMIT", "RESOURCE_EXHAUSTED":
		return Result{}, fmt.Errorf("geocoder quota exceeded")
	default:
		return Result{}, fmt.Errorf("geocoder status %s", payload.Status)
	}
	if len(payload.Results) == 0 {
		return Result{Message: "No geocoding candidates"}, nil
	}

	best := payload.Results[0]
	confidence := 0.5
	if c, ok := googleLocationTypeConfidence[best.Geometry.LocationType]; ok {
		confidence = c
	}
	lat, lon := best.Geometry.Location.Lat, best.Geometry.Location.Lng
	return Result{
		Latitude:      &lat,
		Longitude:     &lon,
		Confidence:    confidence,
		ResolvedLabel: best.FormattedAddress,
	}, nil
}

// --- Mapbox ------------------------------------------------------------

// mapboxProvider uses the relevance score directly.
type mapboxProvider struct {
	token  string
	client *http.Client
}

func (p *mapboxProvider) Name() string { return "mapbox" }

func (p *mapboxProvider) Lookup(ctx context.Context, query string) (Result, error) {
	params := url.Values{}
	params.Set("access_token", p.token)
	params.Set("limit", "1")
	reqURL := "https://api.mapbox.com/geocoding/v5/mapbox.places/" +
		url.PathEscape(query) + ".json?" + params.Encode()

	body, err := doGet(ctx, p.client, reqURL, nil)
	if err != nil {
		return Result{}, err
	}

	var payload struct {
		Features []struct {
			Center    []float64 `json:"center"`
			Relevance *float64  `json:"relevance"`
			PlaceName string    `json:"place_name"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid geocoder response: %w", err)
	}
	if len(payload.Features) == 0 {
		return Result{Message: "No geocoding candidates"}, nil
	}

	best := payload.Features[0]
	if len(best.Center) < 2 {
		return Result{Message: "Invalid geocoder response"}, nil
	}

	confidence := 0.5
	if best.Relevance != nil {
		confidence = clampConfidence(*best.Relevance)
	}
	lon, lat := best.Center[0], best.Center[1]
	return Result{
		Latitude:      &lat,
		Longitude:     &lon,
		Confidence:    confidence,
		ResolvedLabel: best.PlaceName,
	}, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

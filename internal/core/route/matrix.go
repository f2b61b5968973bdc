package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"routeplan/internal/logger"
)

// Node is one route stop with resolved coordinates.
type Node struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Toll describes the toll cost of one matrix edge.
type Toll struct {
	CurrencyCode string  `json:"currency_code"`
	Cost         float64 `json:"cost"`
}

// Matrix carries integer distances (meters) and durations (seconds)
// between every pair of nodes, plus optional static durations and
// per-edge toll info when the provider supports them.
type Matrix struct {
	Distances       [][]int
	Durations       [][]int
	StaticDurations [][]int
	Tolls           [][]*Toll
	Provider        string
	UsesLiveTraffic bool
}

// MatrixProvider is the external distance-matrix capability.
type MatrixProvider interface {
	Name() string
	Matrix(ctx context.Context, nodes []Node) (*Matrix, error)
}

// --- Haversine fallback ------------------------------------------------

// averageSpeedMPS converts great-circle distance into a duration
// estimate when no live provider is available.
const averageSpeedMPS = 11.11

const earthRadiusMeters = 6_371_000.0

type HaversineProvider struct{}

func (HaversineProvider) Name() string { return "haversine" }

func (HaversineProvider) Matrix(_ context.Context, nodes []Node) (*Matrix, error) {
	size := len(nodes)
	m := newMatrix(size, "haversine", false)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i == j {
				continue
			}
			d := Haversine(nodes[i].Latitude, nodes[i].Longitude, nodes[j].Latitude, nodes[j].Longitude)
			m.Distances[i][j] = int(math.Round(d))
			m.Durations[i][j] = int(math.Round(d / averageSpeedMPS))
			m.StaticDurations[i][j] = m.Durations[i][j]
		}
	}
	return m, nil
}

// Haversine returns the great-circle distance in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dlat := rad(lat2 - lat1)
	dlon := rad(lon2 - lon1)
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func newMatrix(size int, provider string, traffic bool) *Matrix {
	m := &Matrix{Provider: provider, UsesLiveTraffic: traffic}
	m.Distances = make([][]int, size)
	m.Durations = make([][]int, size)
	m.StaticDurations = make([][]int, size)
	m.Tolls = make([][]*Toll, size)
	for i := range m.Distances {
		m.Distances[i] = make([]int, size)
		m.Durations[i] = make([]int, size)
		m.StaticDurations[i] = make([]int, size)
		m.Tolls[i] = make([]*Toll, size)
	}
	return m
}

// --- Google Routes -----------------------------------------------------

const (
	routeMatrixEndpoint  = "https://routes.googleapis.com/distanceMatrix/v2:computeRouteMatrix"
	routeMatrixFieldMask = "originIndex,destinationIndex,distanceMeters,duration,staticDuration,condition,travelAdvisory.tollInfo"
	maxGoogleMatrixNodes = 25
)

// GoogleProvider calls the Routes API computeRouteMatrix endpoint,
// optionally traffic-aware, with toll estimates.
type GoogleProvider struct {
	apiKey     string
	useTraffic bool
	client     *http.Client
	log        *logger.Logger
}

func NewGoogleProvider(apiKey string, useTraffic bool, timeout time.Duration) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google distance provider requires an API key")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &GoogleProvider{
		apiKey:     apiKey,
		useTraffic: useTraffic,
		client:     &http.Client{Timeout: timeout},
		log:        logger.New("RouteMatrix"),
	}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type matrixWaypoint struct {
	Waypoint struct {
		Location struct {
			LatLng latLng `json:"latLng"`
		} `json:"location"`
	} `json:"waypoint"`
}

func (p *GoogleProvider) Matrix(ctx context.Context, nodes []Node) (*Matrix, error) {
	size := len(nodes)
	if size == 0 {
		return newMatrix(0, "google", false), nil
	}
	if size > maxGoogleMatrixNodes {
		return nil, fmt.Errorf("route matrix limited to %d nodes, got %d", maxGoogleMatrixNodes, size)
	}

	waypoints := make([]matrixWaypoint, size)
	for i, n := range nodes {
		waypoints[i].Waypoint.Location.LatLng = latLng{Latitude: n.Latitude, Longitude: n.Longitude}
	}
	payload := map[string]interface{}{
		"origins":           waypoints,
		"destinations":      waypoints,
		"travelMode":        "DRIVE",
		"extraComputations": []string{"TOLLS"},
	}
	if p.useTraffic {
		payload["routingPreference"] = "TRAFFIC_AWARE_OPTIMAL"
	} else {
		payload["routingPreference"] = "TRAFFIC_UNAWARE"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, routeMatrixEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", p.apiKey)
	req.Header.Set("X-Goog-FieldMask", routeMatrixFieldMask)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route matrix request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("route matrix returned status %d", resp.StatusCode)
	}

	entries, err := parseRouteMatrixBody(raw)
	if err != nil {
		return nil, err
	}
	if len(entries) != size*size {
		return nil, fmt.Errorf("route matrix incomplete: expected %d entries, got %d", size*size, len(entries))
	}

	m := newMatrix(size, "google", p.useTraffic)
	for _, e := range entries {
		if e.OriginIndex == nil || e.DestinationIndex == nil {
			return nil, fmt.Errorf("route matrix entry missing indexes")
		}
		i, j := *e.OriginIndex, *e.DestinationIndex
		if i < 0 || i >= size || j < 0 || j >= size {
			return nil, fmt.Errorf("route matrix index out of range")
		}
		if e.Condition != "" && e.Condition != "ROUTE_EXISTS" {
			return nil, fmt.Errorf("route matrix condition %s", e.Condition)
		}

		if e.DistanceMeters == nil {
			if i != j {
				return nil, fmt.Errorf("route matrix entry missing distance")
			}
			zero := 0.0
			e.DistanceMeters = &zero
		}
		duration, ok := parseDurationSeconds(e.Duration)
		if !ok {
			return nil, fmt.Errorf("route matrix entry missing duration")
		}

		m.Distances[i][j] = int(math.Round(*e.DistanceMeters))
		m.Durations[i][j] = duration
		if static, ok := parseDurationSeconds(e.StaticDuration); ok {
			m.StaticDurations[i][j] = static
		} else {
			m.StaticDurations[i][j] = duration
		}
		if toll := e.TravelAdvisory.TollInfo.estimated(); toll != nil {
			m.Tolls[i][j] = toll
		}
	}
	return m, nil
}

type matrixEntry struct {
	OriginIndex      *int        `json:"originIndex"`
	DestinationIndex *int        `json:"destinationIndex"`
	DistanceMeters   *float64    `json:"distanceMeters"`
	Duration         interface{} `json:"duration"`
	StaticDuration   interface{} `json:"staticDuration"`
	Condition        string      `json:"condition"`
	TravelAdvisory   struct {
		TollInfo tollInfo `json:"tollInfo"`
	} `json:"travelAdvisory"`
}

type tollInfo struct {
	EstimatedPrice []struct {
		CurrencyCode string `json:"currencyCode"`
		Units        string `json:"units"`
		Nanos        int64  `json:"nanos"`
	} `json:"estimatedPrice"`
}

func (t tollInfo) estimated() *Toll {
	if len(t.EstimatedPrice) == 0 {
		return nil
	}
	price := t.EstimatedPrice[0]
	units, _ := strconv.ParseFloat(price.Units, 64)
	cost := units + float64(price.Nanos)/1e9
	if cost <= 0 {
		return nil
	}
	return &Toll{CurrencyCode: price.CurrencyCode, Cost: cost}
}

// parseRouteMatrixBody tolerates the three shapes the endpoint is
// known to produce: a JSON array, a wrapper object, and
// newline-delimited JSON.
func parseRouteMatrixBody(raw []byte) ([]matrixEntry, error) {
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return nil, nil
	}
	if strings.HasPrefix(content, ")]}'") {
		content = strings.TrimSpace(content[4:])
	}

	var entries []matrixEntry
	if err := json.Unmarshal([]byte(content), &entries); err == nil {
		return entries, nil
	}

	var wrapper struct {
		MatrixEntries []matrixEntry `json:"matrixEntries"`
	}
	if err := json.Unmarshal([]byte(content), &wrapper); err == nil && wrapper.MatrixEntries != nil {
		return wrapper.MatrixEntries, nil
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e matrixEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("route matrix parse error: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseDurationSeconds handles the "123s" string form, bare numbers,
// and the {seconds, nanos} object form.
func parseDurationSeconds(v interface{}) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return int(math.Round(t)), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimSuffix(s, "s")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	case map[string]interface{}:
		seconds, _ := t["seconds"].(float64)
		nanos, _ := t["nanos"].(float64)
		return int(math.Round(seconds + nanos/1e9)), true
	default:
		return 0, false
	}
}

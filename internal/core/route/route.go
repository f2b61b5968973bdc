// Package route builds cost matrices over resolved stops and computes
// a bounded-time best-effort visiting order with per-leg travel
// fields.
package route

import (
	"context"
	"time"

	"routeplan/internal/logger"
)

// Leg is one step of a computed route. Leg 0 is the route start and
// carries zero travel fields; cumulative fields are running prefix
// sums from leg 0.
type Leg struct {
	Order                    int     `json:"order"`
	Label                    string  `json:"label"`
	Latitude                 float64 `json:"latitude"`
	Longitude                float64 `json:"longitude"`
	ETASeconds               int     `json:"eta_seconds"`
	StaticETASeconds         int     `json:"static_eta_seconds"`
	TrafficDelaySeconds      int     `json:"traffic_delay_seconds"`
	DistanceMeters           float64 `json:"distance_meters"`
	CumulativeETASeconds     int     `json:"cumulative_eta_seconds"`
	CumulativeDistanceMeters float64 `json:"cumulative_distance_meters"`
	HasToll                  bool    `json:"has_toll,omitempty"`
	TollCurrency             string  `json:"toll_currency,omitempty"`
	TollCost                 float64 `json:"toll_cost,omitempty"`
}

// Computation is an ordered route plus provenance; aggregates are
// derived from the legs.
type Computation struct {
	Legs            []Leg  `json:"legs"`
	Provider        string `json:"provider"`
	UsesLiveTraffic bool   `json:"uses_live_traffic"`
}

func (c *Computation) TotalDistanceMeters() float64 {
	total := 0.0
	for _, leg := range c.Legs {
		total += leg.DistanceMeters
	}
	return total
}

func (c *Computation) TotalETASeconds() int {
	total := 0
	for _, leg := range c.Legs {
		total += leg.ETASeconds
	}
	return total
}

func (c *Computation) TotalStaticETASeconds() int {
	total := 0
	for _, leg := range c.Legs {
		total += leg.StaticETASeconds
	}
	return total
}

func (c *Computation) TotalTrafficDelaySeconds() int {
	total := 0
	for _, leg := range c.Legs {
		total += leg.TrafficDelaySeconds
	}
	return total
}

func (c *Computation) ContainsTolls() bool {
	for _, leg := range c.Legs {
		if leg.HasToll {
			return true
		}
	}
	return false
}

func (c *Computation) TotalTollCost() float64 {
	total := 0.0
	for _, leg := range c.Legs {
		total += leg.TollCost
	}
	return total
}

// TollCurrency reports the shared currency of all tolled legs, or ""
// when they disagree (ambiguous).
func (c *Computation) TollCurrency() string {
	currency := ""
	for _, leg := range c.Legs {
		if leg.TollCurrency == "" {
			continue
		}
		if currency == "" {
			currency = leg.TollCurrency
		} else if currency != leg.TollCurrency {
			return ""
		}
	}
	return currency
}

// Service computes optimized routes. The primary matrix provider may
// fail (network, quota, node cap); the haversine fallback always
// succeeds.
type Service struct {
	provider MatrixProvider
	fallback MatrixProvider
	budget   time.Duration
	log      *logger.Logger
}

func NewService(provider MatrixProvider, budget time.Duration) *Service {
	if provider == nil {
		provider = HaversineProvider{}
	}
	if budget <= 0 {
		budget = 5 * time.Second
	}
	return &Service{
		provider: provider,
		fallback: HaversineProvider{},
		budget:   budget,
		log:      logger.New("Route"),
	}
}

// ComputeRoute solves the visiting order over the given stops with
// the depot at index 0 and builds legs with cumulative fields. Zero
// stops produce an empty route; one stop produces a single zero leg.
func (s *Service) ComputeRoute(ctx context.Context, nodes []Node) *Computation {
	s.log.LogInfof("route computation started: %d nodes", len(nodes))

	if len(nodes) == 0 {
		return &Computation{Legs: []Leg{}, Provider: s.provider.Name()}
	}
	if len(nodes) == 1 {
		leg := Leg{Order: 0, Label: nodes[0].Label, Latitude: nodes[0].Latitude, Longitude: nodes[0].Longitude}
		return &Computation{Legs: []Leg{leg}, Provider: s.provider.Name()}
	}

	matrix, err := s.provider.Matrix(ctx, nodes)
	if err != nil {
		s.log.LogWarnf("distance provider %s failed, falling back: %v", s.provider.Name(), err)
		matrix, _ = s.fallback.Matrix(ctx, nodes)
	}

	order := SolveTSP(matrix.Distances, 0, s.budget)
	if order == nil {
		s.log.LogWarnf("solver produced no tour for %d nodes, using input order", len(nodes))
		order = make([]int, len(nodes))
		for i := range order {
			order[i] = i
		}
	}

	legs := buildLegs(nodes, matrix, order)
	s.log.LogInfof("route computation finished: %d legs via %s", len(legs), matrix.Provider)
	return &Computation{Legs: legs, Provider: matrix.Provider, UsesLiveTraffic: matrix.UsesLiveTraffic}
}

func buildLegs(nodes []Node, matrix *Matrix, order []int) []Leg {
	legs := make([]Leg, 0, len(order))
	prev := -1
	cumulativeDistance := 0.0
	cumulativeETA := 0

	for position, nodeIndex := range order {
		node := nodes[nodeIndex]
		leg := Leg{
			Order:     position,
			Label:     node.Label,
			Latitude:  node.Latitude,
			Longitude: node.Longitude,
		}
		if prev >= 0 {
			leg.DistanceMeters = float64(matrix.Distances[prev][nodeIndex])
			leg.ETASeconds = matrix.Durations[prev][nodeIndex]
			leg.StaticETASeconds = matrix.StaticDurations[prev][nodeIndex]
			leg.TrafficDelaySeconds = leg.ETASeconds - leg.StaticETASeconds
			if toll := matrix.Tolls[prev][nodeIndex]; toll != nil {
				leg.HasToll = true
				leg.TollCurrency = toll.CurrencyCode
				leg.TollCost = toll.Cost
			}
		}
		cumulativeDistance += leg.DistanceMeters
		cumulativeETA += leg.ETASeconds
		leg.CumulativeDistanceMeters = cumulativeDistance
		leg.CumulativeETASeconds = cumulativeETA

		legs = append(legs, leg)
		prev = nodeIndex
	}
	return legs
}

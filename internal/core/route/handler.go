package route

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct{ service *Service }

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

type stopPayload struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routeRequest struct {
	Origin *stopPayload  `json:"origin"`
	Stops  []stopPayload `json:"stops"`
}

type routeResponse struct {
	Route                    []Leg   `json:"route"`
	Provider                 string  `json:"provider"`
	UsesLiveTraffic          bool    `json:"uses_live_traffic"`
	TotalDistanceMeters      float64 `json:"total_distance_meters"`
	TotalETASeconds          int     `json:"total_eta_seconds"`
	TotalStaticETASeconds    int     `json:"total_static_eta_seconds"`
	TotalTrafficDelaySeconds int     `json:"total_traffic_delay_seconds"`
	ContainsTolls            bool    `json:"contains_tolls"`
	TotalTollCost            float64 `json:"total_toll_cost,omitempty"`
	TollCurrency             string  `json:"toll_currency,omitempty"`
}

// HandleComputeRoute accepts an explicit stop list (plus optional
// origin) and returns computed legs with aggregates.
func (h *Handler) HandleComputeRoute(c *fiber.Ctx) error {
	var req routeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if len(req.Stops) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one stop is required")
	}

	var nodes []Node
	if req.Origin != nil {
		label := req.Origin.Label
		if label == "" {
			label = "Origin"
		}
		nodes = append(nodes, Node{Label: label, Latitude: req.Origin.Latitude, Longitude: req.Origin.Longitude})
	}
	for _, stop := range req.Stops {
		nodes = append(nodes, Node{Label: stop.Label, Latitude: stop.Latitude, Longitude: stop.Longitude})
	}

	comp := h.service.ComputeRoute(c.Context(), nodes)
	return c.JSON(routeResponse{
		Route:                    comp.Legs,
		Provider:                 comp.Provider,
		UsesLiveTraffic:          comp.UsesLiveTraffic,
		TotalDistanceMeters:      comp.TotalDistanceMeters(),
		TotalETASeconds:          comp.TotalETASeconds(),
		TotalStaticETASeconds:    comp.TotalStaticETASeconds(),
		TotalTrafficDelaySeconds: comp.TotalTrafficDelaySeconds(),
		ContainsTolls:            comp.ContainsTolls(),
		TotalTollCost:            comp.TotalTollCost(),
		TollCurrency:             comp.TollCurrency(),
	})
}

package server

import (
	"routeplan/internal/core/extract"
	"routeplan/internal/core/job"
	"routeplan/internal/core/route"
	"routeplan/internal/health"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Job     *job.Service
	Extract *extract.Service
	Route   *route.Service
	Health  map[string]health.Checker
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Health)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	jobHandler := job.NewHandler(d.Job)
	api.Post("/jobs", jobHandler.HandleCreate)
	api.Get("/jobs", jobHandler.HandleList)
	api.Get("/jobs/:jobId", jobHandler.HandleGet)

	extractHandler := extract.NewHandler(d.Extract)
	api.Post("/addresses/extract", extractHandler.HandleExtract)

	routeHandler := route.NewHandler(d.Route)
	api.Post("/routes", routeHandler.HandleComputeRoute)

	return healthHandler
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"routeplan/internal/config"
	"routeplan/internal/core/addrparse"
	"routeplan/internal/core/extract"
	"routeplan/internal/core/geocode"
	"routeplan/internal/core/job"
	"routeplan/internal/core/ocr"
	"routeplan/internal/core/route"
	"routeplan/internal/health"
	"routeplan/internal/logger"
	rds "routeplan/internal/platform/redis"
	"routeplan/internal/platform/storage"
	tasks "routeplan/internal/platform/tasks"
	"routeplan/internal/server"
	"routeplan/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[routeplan] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})

	// Durable job storage and upload directory
	store, err := job.NewStore(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open job store: %v", err)
	}
	defer store.Close()

	files, err := storage.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to prepare data dir: %v", err)
	}

	// Candidate source: OCR by default, Gemini vision when configured
	source, err := buildSource(cfg)
	if err != nil {
		log.Fatalf("failed to initialize extraction source: %v", err)
	}

	// Geocoding with the Redis-backed query cache
	resolver, err := geocode.NewResolver(geocode.Options{
		Provider: cfg.GeocoderProvider,
		BaseURL:  cfg.GeocoderBaseURL,
		APIKey:   cfg.GeocoderAPIKey,
		Email:    cfg.GeocoderEmail,
		Timeout:  cfg.GeocoderTimeout,
	}, geocode.NewRedisCache(redisSvc))
	if err != nil {
		log.Fatalf("failed to initialize geocoder: %v", err)
	}

	pipeline := extract.NewPipeline(addrparse.Default(), resolver, 4)
	extractSvc := extract.NewService(files, source, pipeline)

	// Route optimization
	var matrixProvider route.MatrixProvider
	if cfg.DistanceProvider == "google" && cfg.MapsAPIKey != "" {
		matrixProvider, err = route.NewGoogleProvider(cfg.MapsAPIKey, cfg.UseTraffic, cfg.DistanceTimeout)
		if err != nil {
			log.Fatalf("failed to initialize route matrix provider: %v", err)
		}
	}
	routeSvc := route.NewService(matrixProvider, cfg.SolverBudget)

	// Job orchestration
	jobSvc, err := job.NewService(store, files, source, pipeline, routeSvc)
	if err != nil {
		log.Fatalf("failed to initialize job service: %v", err)
	}
	jobSvc.SetScheduler(job.NewAsynqScheduler(taskClient, cfg.TaskMaxRetries))

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(job.TaskTypeProcess, jobSvc.HandleProcessTask)

	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName:   "Routeplan Engine",
		BodyLimit: 20 * 1024 * 1024,
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	deps := server.Dependencies{
		Job:     jobSvc,
		Extract: extractSvc,
		Route:   routeSvc,
		Health: map[string]health.Checker{
			"redis": redisSvc,
			"store": store,
		},
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}

func buildSource(cfg config.Config) (extract.Source, error) {
	if cfg.ExtractionStrategy == "vlm" {
		return extract.NewVLMSource(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	runner, err := ocr.NewRunner(ocr.Options{
		Backend:  cfg.OCRBackend,
		Binary:   cfg.TesseractBin,
		MaxLines: cfg.MaxOCRLines,
	})
	if err != nil {
		return nil, err
	}
	return extract.NewOCRSource(runner), nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	DataDir  string

	RedisAddr     string
	RedisPassword string
	SQLitePath    string

	OCRBackend    string
	TesseractBin  string
	MaxOCRLines   int

	ExtractionStrategy string
	GeminiAPIKey       string
	GeminiModel        string

	GeocoderProvider string
	GeocoderBaseURL  string
	GeocoderAPIKey   string
	GeocoderEmail    string
	GeocoderTimeout  time.Duration

	DistanceProvider string
	MapsAPIKey       string
	DistanceTimeout  time.Duration
	UseTraffic       bool

	SolverBudget   time.Duration
	TaskMaxRetries int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	s, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return time.Duration(s * float64(time.Second))
}

func Load() Config {
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "development"),
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		DataDir:  getenv("DATA_DIR", "./data"),

		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SQLitePath:    getenv("SQLITE_PATH", "./data/jobs.db"),

		OCRBackend:   getenv("OCR_BACKEND", "tesseract"),
		TesseractBin: getenv("TESSERACT_BIN", "tesseract"),
		MaxOCRLines:  getenvInt("MAX_OCR_LINES", 50),

		ExtractionStrategy: getenv("EXTRACTION_STRATEGY", "ocr"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getenv("GEMINI_MODEL", "gemini-1.5-flash"),

		GeocoderProvider: getenv("GEOCODER_PROVIDER", "nominatim"),
		GeocoderBaseURL:  getenv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderAPIKey:   os.Getenv("GEOCODER_API_KEY"),
		GeocoderEmail:    os.Getenv("GEOCODER_EMAIL"),
		GeocoderTimeout:  getenvSeconds("GEOCODER_TIMEOUT", 15*time.Second),

		DistanceProvider: getenv("DISTANCE_PROVIDER", "haversine"),
		MapsAPIKey:       os.Getenv("GOOGLE_MAPS_API_KEY"),
		DistanceTimeout:  getenvSeconds("DISTANCE_TIMEOUT", 20*time.Second),
		UseTraffic:       getenvBool("DISTANCE_USE_TRAFFIC", false),

		SolverBudget:   getenvSeconds("SOLVER_TIME_BUDGET", 5*time.Second),
		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}

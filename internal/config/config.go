package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the service needs. It is loaded once in main
// and handed to components explicitly; pipeline logic never reads the
// environment on its own.
type Config struct {
	Port     string
	APIToken string

	ProjectID      string
	VertexAIRegion string

	VisionModel     string
	ReconcilerModel string

	DocIntelEndpoint string
	DocIntelAPIKey   string

	FirestoreCollection string
	ArchiveBucket       string // optional; empty disables upload archiving

	MaxFileSizeBytes   int64
	PageCountThreshold int
	AdapterTimeout     time.Duration
	AdapterRetries     int
	WorkerPoolSize     int
	VisionBatchSize    int
}

// Load reads and validates the full configuration from the environment.
func Load() (*Config, error) {
	projectID := GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	apiToken := GetEnv("API_TOKEN", "")
	if apiToken == "" {
		return nil, fmt.Errorf("API_TOKEN environment variable must be set")
	}
	docIntelEndpoint := GetEnv("DOC_INTEL_ENDPOINT", "")
	if docIntelEndpoint == "" {
		return nil, fmt.Errorf("DOC_INTEL_ENDPOINT environment variable must be set")
	}
	docIntelKey := GetEnv("DOC_INTEL_API_KEY", "")
	if docIntelKey == "" {
		return nil, fmt.Errorf("DOC_INTEL_API_KEY environment variable must be set")
	}

	cfg := &Config{
		Port:     GetEnv("PORT", "8080"),
		APIToken: apiToken,

		ProjectID:      projectID,
		VertexAIRegion: GetEnv("VERTEX_AI_REGION", "us-central1"),

		VisionModel:     GetEnv("VISION_MODEL", "gemini-1.5-pro"),
		ReconcilerModel: GetEnv("RECONCILER_MODEL", "gemini-1.5-pro"),

		DocIntelEndpoint: docIntelEndpoint,
		DocIntelAPIKey:   docIntelKey,

		FirestoreCollection: GetEnv("FIRESTORE_COLLECTION", "resumes"),
		ArchiveBucket:       GetEnv("UPLOAD_ARCHIVE_BUCKET", ""),
	}

	var err error
	if cfg.MaxFileSizeBytes, err = getEnvInt64("MAX_FILE_SIZE_BYTES", 10<<20); err != nil {
		return nil, err
	}
	if cfg.PageCountThreshold, err = getEnvInt("PAGE_COUNT_THRESHOLD", 5); err != nil {
		return nil, err
	}
	if cfg.AdapterTimeout, err = getEnvDuration("ADAPTER_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.AdapterRetries, err = getEnvInt("ADAPTER_RETRIES", 1); err != nil {
		return nil, err
	}
	if cfg.WorkerPoolSize, err = getEnvInt("WORKER_POOL_SIZE", 16); err != nil {
		return nil, err
	}
	if cfg.VisionBatchSize, err = getEnvInt("VISION_BATCH_SIZE", 5); err != nil {
		return nil, err
	}
	if cfg.MaxFileSizeBytes <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_BYTES must be positive")
	}
	if cfg.PageCountThreshold < 0 {
		return nil, fmt.Errorf("PAGE_COUNT_THRESHOLD must not be negative")
	}
	return cfg, nil
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

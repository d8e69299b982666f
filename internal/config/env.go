package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig bounds the HTTP surface.
type ServerConfig struct {
	Port            string
	MaxUploadBytes  int64
	MultipartMemory int64
	ShutdownTimeout time.Duration
}

// WorkspaceConfig places per-request scratch directories.
type WorkspaceConfig struct {
	Root          string
	StaleAfter    time.Duration
	SweepInterval time.Duration
}

// ConverterConfig drives the LibreOffice subprocess.
type ConverterConfig struct {
	Binary     string
	MaxWorkers int
	Timeout    time.Duration
}

// RenderConfig controls PDF page rasterisation.
type RenderConfig struct {
	DPI     int
	Quality int
	Color   string
}

// ImageConfig bounds single-image operations.
type ImageConfig struct {
	MaxPixels int64
}

// StatsConfig points at the Redis instance holding dashboard counters.
type StatsConfig struct {
	RedisURL      string
	BreakdownDays int
	RecentLimit   int
}

// ArchiveConfig enables copying final packages to S3.
type ArchiveConfig struct {
	Bucket string
	Prefix string
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Server    ServerConfig
	Workspace WorkspaceConfig
	Converter ConverterConfig
	Render    RenderConfig
	Images    ImageConfig
	Stats     StatsConfig
	Archive   ArchiveConfig
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/docsuite.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_docsuite",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		MaxUploadBytes:  parseInt64(getEnv("MAX_UPLOAD_BYTES", ""), 200<<20),
		MultipartMemory: parseInt64(getEnv("MULTIPART_MEMORY_BYTES", ""), 32<<20),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"), 30*time.Second),
	}

	cfg.Workspace = WorkspaceConfig{
		Root:          getEnv("WORKSPACE_DIR", filepath.Join(os.TempDir(), "docsuite")),
		StaleAfter:    parseDuration(getEnv("WORKSPACE_STALE_AFTER", "1h"), time.Hour),
		SweepInterval: parseDuration(getEnv("WORKSPACE_SWEEP_INTERVAL", "10m"), 10*time.Minute),
	}

	cfg.Converter = ConverterConfig{
		Binary:     getEnv("LIBREOFFICE_BIN", "soffice"),
		MaxWorkers: parseInt(getEnv("LIBREOFFICE_WORKERS", "2"), 2),
		Timeout:    parseDuration(getEnv("LIBREOFFICE_TIMEOUT", "180s"), 180*time.Second),
	}

	cfg.Render = RenderConfig{
		DPI:     parseInt(getEnv("RENDER_DPI", "150"), 150),
		Quality: parseInt(getEnv("RENDER_JPEG_QUALITY", "85"), 85),
		Color:   getEnv("RENDER_COLOR", "rgb"),
	}

	cfg.Images = ImageConfig{
		MaxPixels: parseInt64(getEnv("IMAGE_MAX_PIXELS", ""), 100_000_000),
	}

	cfg.Stats = StatsConfig{
		RedisURL:      getEnv("REDIS_URL", ""),
		BreakdownDays: parseInt(getEnv("STATS_BREAKDOWN_DAYS", "30"), 30),
		RecentLimit:   parseInt(getEnv("STATS_RECENT_LIMIT", "10"), 10),
	}

	cfg.Archive = ArchiveConfig{
		Bucket: getEnv("ARCHIVE_S3_BUCKET", ""),
		Prefix: strings.Trim(getEnv("ARCHIVE_S3_PREFIX", "docsuite"), "/"),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}

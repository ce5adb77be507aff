// Package config centralizes how XMLator reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration for the service. Struct fields in Go
// begin with capital letters when they must be exported (visible to other
// packages), while lower-case fields remain private.
type Config struct {
	Address      string
	DatasetPath  string
	SchemaDir    string
	OutputRoot   string
	EventLogPath string
	DownloadsDir string

	// Bulk ZIP limits, mirrored from the historical deployment knobs.
	ZipMaxFiles      int
	ZipMaxFileBytes  int64
	ZipMaxTotalBytes int64
	DownloadsMaxAge  time.Duration

	// Optional backends. Empty values disable the corresponding feature.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Region      string
	S3UseSSL      bool
	ArchiveBucket string

	Workers int
}

const (
	defaultAddress       = ":8080"
	defaultZipMaxFiles   = 50
	defaultZipFileBytes  = 10 << 20 // 10 MiB
	defaultZipTotalBytes = 50 << 20 // 50 MiB
	defaultDownloadsAge  = 24 * time.Hour
	defaultWorkerCount   = 2
	defaultArchiveBucket = "xmlator-archives"
)

// Load reads configuration from environment variables falling back to defaults.
// It follows Go's convention of returning (value, error) so callers can handle
// failures rather than panicking.
func Load() (*Config, error) {
	cfg := &Config{
		Address:          readEnv("XMLATOR_ADDRESS", defaultAddress),
		DatasetPath:      readEnv("XMLATOR_DATASET", "docs/excel_datasets.json"),
		SchemaDir:        readEnv("XMLATOR_SCHEMA_DIR", "docs"),
		OutputRoot:       readEnv("XMLATOR_OUTPUT_ROOT", "uzs_filedrop"),
		EventLogPath:     readEnv("XMLATOR_EVENT_LOG", "xml_events.jsonl"),
		DownloadsDir:     readEnv("XMLATOR_DOWNLOADS_DIR", filepath.Join("static", "downloads")),
		ZipMaxFiles:      parseInt("XMLATOR_MAX_ZIP_FILES", defaultZipMaxFiles),
		ZipMaxFileBytes:  parseInt64("XMLATOR_MAX_ZIP_FILE_BYTES", defaultZipFileBytes),
		ZipMaxTotalBytes: parseInt64("XMLATOR_MAX_ZIP_TOTAL_BYTES", defaultZipTotalBytes),
		DownloadsMaxAge:  parseDuration("XMLATOR_DOWNLOADS_MAX_AGE", defaultDownloadsAge),
		DatabaseURL:      readEnv("XMLATOR_DATABASE_URL", ""),
		RedisAddr:        readEnv("XMLATOR_REDIS_ADDR", ""),
		RedisPassword:    readEnv("XMLATOR_REDIS_PASSWORD", ""),
		RedisDB:          parseInt("XMLATOR_REDIS_DB", 0),
		S3Endpoint:       readEnv("XMLATOR_S3_ENDPOINT", ""),
		S3AccessKey:      readEnv("XMLATOR_S3_ACCESS_KEY", ""),
		S3SecretKey:      readEnv("XMLATOR_S3_SECRET_KEY", ""),
		S3Region:         readEnv("XMLATOR_S3_REGION", "us-east-1"),
		S3UseSSL:         parseBool("XMLATOR_S3_USE_SSL", false),
		ArchiveBucket:    readEnv("XMLATOR_ARCHIVE_BUCKET", defaultArchiveBucket),
		Workers:          parseInt("XMLATOR_WORKERS", defaultWorkerCount),
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.ZipMaxFiles <= 0 {
		cfg.ZipMaxFiles = defaultZipMaxFiles
	}
	if cfg.DownloadsMaxAge <= 0 {
		cfg.DownloadsMaxAge = defaultDownloadsAge
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	// LookupEnv returns (value, true) when the variable is present, mirroring
	// Go's pattern of providing extra information via multiple return values.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	// strconv.ParseInt converts strings to integers; Go treats errors as values
	// so we simply ignore invalid input and return the default.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

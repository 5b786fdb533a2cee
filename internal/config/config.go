package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"trialtab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Studies  StudiesConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Export   ExportConfig
	LogLevel string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// StudiesConfig says where study documents come from. Files maps study ids to
// paths; ids not listed there are looked up as <Dir>/<id>.json. When GCSBucket
// is set documents are read from the bucket instead of the filesystem.
type StudiesConfig struct {
	Dir       string
	Files     map[string]string
	GCSBucket string
	GCSPrefix string
}

// CacheConfig holds document cache settings
type CacheConfig struct {
	Watch           bool
	RefreshSchedule string
}

// DatabaseConfig holds snapshot persistence settings. An empty URL disables persistence.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// ExportConfig holds table export settings
type ExportConfig struct {
	SheetName string
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	files, err := parseStudyFiles(os.Getenv("STUDY_FILES"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load studies configuration")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "8080"),
			GinMode:         getEnvOrDefault("GIN_MODE", "release"),
			ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Studies: StudiesConfig{
			Dir:       getEnvOrDefault("STUDIES_DIR", "./studies"),
			Files:     files,
			GCSBucket: getEnvOrDefault("GCS_BUCKET", ""),
			GCSPrefix: getEnvOrDefault("GCS_PREFIX", ""),
		},
		Cache: CacheConfig{
			Watch:           getEnvBoolOrDefault("CACHE_WATCH", true),
			RefreshSchedule: getEnvOrDefault("CACHE_REFRESH_SCHEDULE", ""),
		},
		Database: DatabaseConfig{
			Driver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),
			URL:    getEnvOrDefault("DATABASE_URL", ""),
		},
		Export: ExportConfig{
			SheetName: getEnvOrDefault("EXPORT_SHEET", "Sheet1"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	if config.Studies.GCSBucket == "" && config.Studies.Dir == "" && len(config.Studies.Files) == 0 {
		return errors.ConfigInvalid("one of STUDIES_DIR, STUDY_FILES or GCS_BUCKET is required")
	}
	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.ConfigInvalid("DATABASE_DRIVER must be postgres or sqlite")
	}
	if config.Export.SheetName == "" {
		return errors.ConfigInvalid("EXPORT_SHEET must not be empty")
	}
	return nil
}

// parseStudyFiles reads "id=path,id=path" pairs
func parseStudyFiles(raw string) (map[string]string, error) {
	files := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return files, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		id, path, ok := strings.Cut(strings.TrimSpace(pair), "=")
		id, path = strings.TrimSpace(id), strings.TrimSpace(path)
		if !ok || id == "" || path == "" {
			return nil, errors.ConfigInvalid("STUDY_FILES entries must look like id=path, got " + strconv.Quote(pair))
		}
		files[id] = path
	}
	return files, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

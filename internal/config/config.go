package config

import (
	"os"
	"strconv"

	"seqtriage/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Graph    GraphConfig
	Server   ServerConfig
	Paths    PathConfig
	Triage   TriageConfig
	Gates    GatesConfig
}

// DatabaseConfig holds ledger database connection settings. URL may be
// empty for file-only runs; commands that need the ledger check it.
type DatabaseConfig struct {
	URL      string
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

// GraphConfig holds the upstream discovery graph connection settings
type GraphConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// PathConfig holds file system paths for file-based sources
type PathConfig struct {
	InputFile     string
	ReferenceFile string
}

// TriageConfig holds pipeline parameters
type TriageConfig struct {
	Seed              int64
	IdentityThreshold float64
	TopN              int
	Workers           int // 0 selects a workload-sized default
	CodeVersion       string
}

// GatesConfig holds gate engine execution settings
type GatesConfig struct {
	MaxConcurrent int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Graph:    loadGraphConfig(),
		Server:   loadServerConfig(),
		Paths:    loadPathConfig(),
		Triage:   loadTriageConfig(),
		Gates:    loadGatesConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// RequireDatabase fails when the ledger database is not configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required for this command")
	}
	return nil
}

// RequireGraph fails when the discovery graph is not configured.
func (c *Config) RequireGraph() error {
	if c.Graph.URI == "" {
		return errors.ConfigInvalid("GRAPH_URI is required for this command")
	}
	return nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:      getEnvOrDefault("DATABASE_URL", ""),
		User:     getEnvOrDefault("DB_USER", ""),
		Password: getEnvOrDefault("DB_PASS", ""),
		Name:     getEnvOrDefault("DB_NAME", ""),
		Host:     getEnvOrDefault("DB_HOST", ""),
		Port:     getEnvIntOrDefault("DB_PORT", 5432),
		SSLMode:  getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadGraphConfig() GraphConfig {
	return GraphConfig{
		URI:      getEnvOrDefault("GRAPH_URI", ""),
		User:     getEnvOrDefault("GRAPH_USER", "neo4j"),
		Password: getEnvOrDefault("GRAPH_PASS", ""),
		Database: getEnvOrDefault("GRAPH_DB", "neo4j"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		InputFile:     getEnvOrDefault("INPUT_FILE", ""),
		ReferenceFile: getEnvOrDefault("REFERENCE_FILE", ""),
	}
}

func loadTriageConfig() TriageConfig {
	return TriageConfig{
		Seed:              getEnvInt64OrDefault("TRIAGE_SEED", 42),
		IdentityThreshold: getEnvFloatOrDefault("IDENTITY_THRESHOLD", 0.95),
		TopN:              getEnvIntOrDefault("TOP_N", 20),
		Workers:           getEnvIntOrDefault("TRIAGE_WORKERS", 0),
		CodeVersion:       getEnvOrDefault("CODE_VERSION", "dev"),
	}
}

func loadGatesConfig() GatesConfig {
	return GatesConfig{
		MaxConcurrent: getEnvIntOrDefault("GATES_MAX_CONCURRENT", 4),
	}
}

func validateConfig(config *Config) error {
	if t := config.Triage.IdentityThreshold; t <= 0 || t > 1 {
		return errors.ConfigInvalid("IDENTITY_THRESHOLD must be in (0, 1]")
	}
	if config.Triage.TopN < 1 {
		return errors.ConfigInvalid("TOP_N must be positive")
	}
	if config.Triage.Workers < 0 {
		return errors.ConfigInvalid("TRIAGE_WORKERS cannot be negative")
	}
	if config.Gates.MaxConcurrent < 1 {
		return errors.ConfigInvalid("GATES_MAX_CONCURRENT must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

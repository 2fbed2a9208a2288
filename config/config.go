// Package config loads runtime settings for the roster server.
//
// Precedence, lowest first: built-in defaults, a .env file, environment
// variables, an optional YAML file. cmd/server applies command-line flags
// on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	Addr           string   `yaml:"addr"`
	DatabasePath   string   `yaml:"database_path"`
	LogLevel       string   `yaml:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LoadDemo       bool     `yaml:"load_demo"`
	AuditInterval  Duration `yaml:"audit_interval"`
}

// Duration is a time.Duration that decodes from strings like "30m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("audit_interval: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads configuration from the environment and, if path is not empty,
// from a YAML file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("ROSTER_ADDR", ":8080"),
		DatabasePath:   getEnv("ROSTER_DB_PATH", "roster.db"),
		LogLevel:       getEnv("ROSTER_LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("ROSTER_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		LoadDemo:       getEnv("ROSTER_LOAD_DEMO", "false") == "true",
	}

	interval, err := time.ParseDuration(getEnv("ROSTER_AUDIT_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("ROSTER_AUDIT_INTERVAL: %w", err)
	}
	cfg.AuditInterval = Duration(interval)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

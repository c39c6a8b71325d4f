package app

import "errors"

// Config holds everything one runtime instance needs to run.
type Config struct {
	ManifestPath string
	BlockPath    string

	Iterations int
	RateHz     float64

	LogFormat  string
	LogLevel   string
	HealthPort int
}

// NewConfig validates a config assembled by the CLI layer.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("manifest path is required")
	}
	if cfg.RateHz < 0 {
		return nil, errors.New("rate must be positive")
	}
	if cfg.Iterations < 0 {
		return nil, errors.New("iterations must not be negative")
	}
	return &cfg, nil
}

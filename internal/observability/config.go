package observability

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config groups logging, metrics and tracing settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the observability defaults.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "quiz",
		},
		Tracing: TracingConfig{
			Enabled:        false,
			Exporter:       "otlp",
			OTLPEndpoint:   "localhost:4318",
			SampleRate:     1.0,
			ServiceName:    "quiz-server",
			ServiceVersion: "1.0.0",
		},
	}
}

// LoadConfig overlays the `observability:` section of a YAML file on the
// defaults. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return config, fmt.Errorf("read observability config: %w", err)
	}

	var file struct {
		Observability struct {
			Logging LoggingConfig `yaml:"logging"`
			Metrics struct {
				Enabled   *bool  `yaml:"enabled"`
				Namespace string `yaml:"namespace"`
			} `yaml:"metrics"`
			Tracing struct {
				Enabled        *bool   `yaml:"enabled"`
				Exporter       string  `yaml:"exporter"`
				OTLPEndpoint   string  `yaml:"otlp_endpoint"`
				ZipkinEndpoint string  `yaml:"zipkin_endpoint"`
				SampleRate     float64 `yaml:"sample_rate"`
				ServiceName    string  `yaml:"service_name"`
				ServiceVersion string  `yaml:"service_version"`
			} `yaml:"tracing"`
		} `yaml:"observability"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return config, fmt.Errorf("parse observability config: %w", err)
	}
	obs := file.Observability

	if obs.Logging.Level != "" {
		config.Logging.Level = obs.Logging.Level
	}
	if obs.Logging.Format != "" {
		config.Logging.Format = obs.Logging.Format
	}
	if obs.Metrics.Enabled != nil {
		config.Metrics.Enabled = *obs.Metrics.Enabled
	}
	if obs.Metrics.Namespace != "" {
		config.Metrics.Namespace = obs.Metrics.Namespace
	}
	if obs.Tracing.Enabled != nil {
		config.Tracing.Enabled = *obs.Tracing.Enabled
	}
	if obs.Tracing.Exporter != "" {
		config.Tracing.Exporter = obs.Tracing.Exporter
	}
	if obs.Tracing.OTLPEndpoint != "" {
		config.Tracing.OTLPEndpoint = obs.Tracing.OTLPEndpoint
	}
	if obs.Tracing.ZipkinEndpoint != "" {
		config.Tracing.ZipkinEndpoint = obs.Tracing.ZipkinEndpoint
	}
	// A zero sample rate cannot be expressed here; disable tracing instead.
	if obs.Tracing.SampleRate > 0 && obs.Tracing.SampleRate <= 1.0 {
		config.Tracing.SampleRate = obs.Tracing.SampleRate
	}
	if obs.Tracing.ServiceName != "" {
		config.Tracing.ServiceName = obs.Tracing.ServiceName
	}
	if obs.Tracing.ServiceVersion != "" {
		config.Tracing.ServiceVersion = obs.Tracing.ServiceVersion
	}
	return config, nil
}

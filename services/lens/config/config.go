// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads Aleutian Lens configuration.
//
// Defaults are embedded in the binary. An optional user file overlays them
// key by key, and the merged result is validated before use.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianLens/services/lens/bundle"
	"github.com/AleutianAI/AleutianLens/services/lens/diagram"
	"github.com/AleutianAI/AleutianLens/services/lens/metrics"
)

//go:embed default_config.yaml
var defaultConfigYAML []byte

var tracer = otel.Tracer("aleutian.lens.config")

const (
	// DefaultFileName is the user config file looked up in the working
	// directory when no explicit path is given.
	DefaultFileName = "lens.config.yaml"

	// EnvConfigPath overrides the user config file location.
	EnvConfigPath = "LENS_CONFIG"

	// EnvInfluxToken supplies the sink token without writing it to disk.
	EnvInfluxToken = "LENS_INFLUX_TOKEN"

	// MaxYAMLFileSize bounds user config files.
	MaxYAMLFileSize = 1 << 20
)

// Config is the complete Lens configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	Bundle    bundle.Options      `yaml:"bundle"`
	Parser    ParserConfig        `yaml:"parser"`
	Scoring   metrics.ScoreConfig `yaml:"scoring"`
	Diagram   diagram.Limits      `yaml:"diagram"`
	Server    ServerConfig        `yaml:"server"`
	Storage   StorageConfig       `yaml:"storage"`
	Sink      SinkConfig          `yaml:"sink"`
	Telemetry TelemetryConfig     `yaml:"telemetry"`
}

// ParserConfig configures the JavaScript parser.
type ParserConfig struct {
	MaxFileSize       int  `yaml:"max_file_size" validate:"gt=0"`
	AllowSyntaxErrors bool `yaml:"allow_syntax_errors"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// RateLimit is the sustained analyze request rate per second.
	RateLimit float64 `yaml:"rate_limit" validate:"gt=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=1"`

	// MaxUploadBytes caps request bodies on analyze endpoints.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" validate:"gt=0"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// StorageConfig configures the snapshot store.
type StorageConfig struct {
	// SnapshotDir is the badger directory. A leading "~" expands to the
	// user's home directory.
	SnapshotDir string `yaml:"snapshot_dir" validate:"required_unless=InMemory true"`

	// InMemory keeps snapshots in memory only.
	InMemory bool `yaml:"in_memory"`

	// MaxSnapshots bounds stored snapshots; the oldest are pruned first.
	// Zero disables pruning.
	MaxSnapshots int `yaml:"max_snapshots" validate:"gte=0"`
}

// SinkConfig configures the InfluxDB quality-score sink.
type SinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// TelemetryConfig selects trace and metric exporters.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("invalid config: scoring: %w", err)
	}
	return nil
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return &cfg, nil
}

// Load builds a Config from the embedded defaults overlaid with data.
//
// Description:
//
//	data may be empty, in which case the defaults are returned. Keys present
//	in data replace the defaults; absent keys keep them. The token from
//	LENS_INFLUX_TOKEN wins over the file. The snapshot directory is
//	expanded and the result validated.
//
// Inputs:
//
//	ctx  - Context for tracing.
//	data - Raw YAML bytes of the user file. May be nil.
//
// Outputs:
//
//	*Config - The merged configuration.
//	error   - Non-nil if parsing or validation fails.
func Load(ctx context.Context, data []byte) (*Config, error) {
	_, span := tracer.Start(ctx, "config.Load")
	defer span.End()

	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("Load: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("Load: parsing YAML: %w", err)
		}
	}

	if token := os.Getenv(EnvInfluxToken); token != "" {
		cfg.Sink.Token = token
	}
	cfg.Storage.SnapshotDir = expandHome(cfg.Storage.SnapshotDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	span.SetAttributes(
		attribute.Int("server.port", cfg.Server.Port),
		attribute.Bool("storage.in_memory", cfg.Storage.InMemory),
		attribute.Bool("sink.enabled", cfg.Sink.Enabled),
		attribute.String("telemetry.trace_exporter", cfg.Telemetry.TraceExporter),
	)
	return cfg, nil
}

// LoadFile reads a user config file and merges it over the defaults. A
// missing file is not an error when optional is true.
func LoadFile(ctx context.Context, path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Load(ctx, nil)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("lens config loaded", slog.String("path", path))
	return cfg, nil
}

// ResolvePath returns the config file to use and whether it may be absent.
// An explicit path is required to exist; LENS_CONFIG and the default file
// name are optional.
func ResolvePath(explicit string) (path string, optional bool) {
	if explicit != "" {
		return explicit, false
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, false
	}
	return DefaultFileName, true
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

var (
	configMu      sync.RWMutex
	configOnce    sync.Once
	cachedConfig  *Config
	configLoadErr error
)

// Get returns the process configuration, loading it on first use from the
// path chosen by ResolvePath("").
//
// Thread Safety: Safe for concurrent use via sync.Once.
func Get(ctx context.Context) (*Config, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Get: ctx must not be nil")
	}

	configMu.RLock()
	if cachedConfig != nil || configLoadErr != nil {
		cfg, err := cachedConfig, configLoadErr
		configMu.RUnlock()
		return cfg, err
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	configOnce.Do(func() {
		path, optional := ResolvePath("")
		cachedConfig, configLoadErr = LoadFile(ctx, path, optional)
	})
	return cachedConfig, configLoadErr
}

// Reset clears the cached configuration so tests can reload it.
func Reset() {
	configMu.Lock()
	defer configMu.Unlock()
	cachedConfig = nil
	configLoadErr = nil
	configOnce = sync.Once{}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads store and watcher settings from YAML.
//
// Sources, first match wins: an explicit path, the SOUP_CONFIG
// environment variable, the embedded default.yaml.
//
// Thread Safety:
//
//	All exported functions are safe for concurrent use.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/tscircuit/soup-util/services/soup/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxFileSize is the largest config file accepted (1MB).
	MaxFileSize = 1024 * 1024

	// EnvVar names the environment variable holding a config path.
	EnvVar = "SOUP_CONFIG"

	// Source labels reported by Load.
	SourceFile     = "file"
	SourceEnv      = "env"
	SourceEmbedded = "embedded"
)

// ErrInvalidConfig is wrapped by every parse or validation failure.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed default.yaml
var defaultYAML []byte

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	configLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soup_config_load_errors_total",
		Help: "Total config load errors",
	})

	configLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soup_config_load_duration_seconds",
		Help:    "Duration of config loading",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1},
	})
)

var configTracer = otel.Tracer("soup.config")

// =============================================================================
// Types
// =============================================================================

// Config is the root of a config file.
//
// The store options sit at the top level so that a file holding only
// store.Options is a valid config.
type Config struct {
	store.Options `yaml:",inline"`

	// Watch configures the file watcher.
	Watch WatchConfig `yaml:"watch"`

	// Source records where the config came from: SourceFile, SourceEnv or
	// SourceEmbedded. Not read from YAML.
	Source string `yaml:"-"`

	// Path is the file the config was read from, empty when embedded.
	Path string `yaml:"-"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before the
	// watched file is re-read.
	Debounce time.Duration `yaml:"debounce"`
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the config.
//
// Description:
//
//	An explicit path wins, then the path in SOUP_CONFIG, then the
//	embedded default. A named file that cannot be read or parsed is an
//	error; there is no silent fallback to the default.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	path - Config file path, or "" to consult SOUP_CONFIG.
//
// Outputs:
//
//	*Config - The parsed config. Never nil on success.
//	error - Non-nil if the file is unreadable, too large or invalid.
//
// Example:
//
//	cfg, err := config.Load(ctx, flagConfigPath)
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//	s, err := store.New(ctx, elements, store.WithOptions(cfg.Options))
func Load(ctx context.Context, path string) (*Config, error) {
	if ctx == nil {
		return nil, fmt.Errorf("config.Load: ctx must not be nil")
	}
	ctx, span := configTracer.Start(ctx, "config.Load")
	defer span.End()

	start := time.Now()
	defer func() {
		configLoadDuration.Observe(time.Since(start).Seconds())
	}()

	source := SourceFile
	if path == "" {
		if env := os.Getenv(EnvVar); env != "" {
			path, source = env, SourceEnv
		}
	}

	var data []byte
	if path == "" {
		data, source = defaultYAML, SourceEmbedded
	} else {
		var err error
		if data, err = readFile(ctx, path); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "read failed")
			configLoadErrors.Inc()
			return nil, err
		}
	}
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("yaml_size", len(data)),
	)

	cfg, err := Parse(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		configLoadErrors.Inc()
		if path != "" {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, err
	}
	cfg.Source, cfg.Path = source, path

	slog.Debug("config loaded",
		slog.String("source", source),
		slog.String("path", path),
		slog.Any("index_kinds", cfg.Index.Kinds()))
	return cfg, nil
}

// Default returns the embedded default config.
func Default() *Config {
	cfg, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded default.yaml: %v", err))
	}
	cfg.Source = SourceEmbedded
	return cfg
}

// Parse decodes and validates YAML config data. Unknown keys are
// rejected. Empty input yields the zero Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	for i, f := range c.Index.ByCustomField {
		if f == "" {
			return fmt.Errorf("%w: index.by_custom_field[%d] is empty", ErrInvalidConfig, i)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative", ErrInvalidConfig)
	}
	return nil
}

// readFile reads path after checking its size.
func readFile(ctx context.Context, path string) ([]byte, error) {
	_, span := configTracer.Start(ctx, "config.ReadFile",
		trace.WithAttributes(attribute.String("path", path)),
	)
	defer span.End()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidConfig, absPath)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: file too large: %d bytes (max %d)", ErrInvalidConfig, info.Size(), MaxFileSize)
	}
	span.SetAttributes(attribute.Int64("file_size", info.Size()))

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return data, nil
}

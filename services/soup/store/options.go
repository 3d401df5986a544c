// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"log/slog"

	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/index"
)

// Options is the serialisable store configuration.
//
// Every field defaults to disabled. A store with no index enabled returns
// exactly what a fully indexed one would; only the cost differs.
type Options struct {
	// ValidateInserts runs the Validator on every Insert.
	ValidateInserts bool `yaml:"validate_inserts"`

	// Index selects the secondary indexes to maintain.
	Index index.Config `yaml:"index"`
}

// Validator checks a fully assembled candidate element before Insert
// commits it.
type Validator interface {
	Validate(e *element.Element) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(e *element.Element) error

// Validate calls f(e).
func (f ValidatorFunc) Validate(e *element.Element) error {
	return f(e)
}

type settings struct {
	options   Options
	registry  *element.Registry
	validator Validator
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*settings)

// WithOptions replaces the whole configuration.
func WithOptions(opts Options) Option {
	return func(s *settings) {
		s.options = opts
	}
}

// WithIndex selects the indexes to maintain.
func WithIndex(cfg index.Config) Option {
	return func(s *settings) {
		s.options.Index = cfg
	}
}

// WithValidateInserts toggles insert validation. Without WithValidator the
// schema package's validator is used.
func WithValidateInserts(enabled bool) Option {
	return func(s *settings) {
		s.options.ValidateInserts = enabled
	}
}

// WithValidator sets the insert validator and enables validation.
func WithValidator(v Validator) Option {
	return func(s *settings) {
		s.validator = v
		s.options.ValidateInserts = v != nil
	}
}

// WithRegistry sets the element registry. Defaults to
// element.DefaultRegistry().
func WithRegistry(reg *element.Registry) Option {
	return func(s *settings) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithLogger sets the logger for build diagnostics. Defaults to discarding.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

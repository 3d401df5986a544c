// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tscircuit/soup-util/pkg/logging"
	"github.com/tscircuit/soup-util/pkg/telemetry"
	"github.com/tscircuit/soup-util/pkg/ux"
	"github.com/tscircuit/soup-util/services/soup/config"
	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/store"
)

// errNotFound is returned by lookups that matched nothing. The command
// still prints null so scripts can rely on valid JSON.
var errNotFound = errors.New("no matching element")

// app holds global flags and the shared state built from them.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Global flags.
	file       string
	configPath string
	logLevel   string
	logJSON    bool
	noColor    bool
	telemetry  string

	logger  *logging.Logger
	cfg     *config.Config
	printer *ux.Printer

	// shutdowns flush telemetry providers on close, in order.
	shutdowns []func(context.Context) error
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

// rootCmd assembles the command tree.
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "soup",
		Short: "Query circuit JSON element collections",
		Long: `soup loads a circuit JSON file into an indexed element store and
answers lookups, joins and selector queries against it. Results are
printed as JSON.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.file, "file", "f", "-", "circuit JSON file, or - for stdin")
	flags.StringVar(&a.configPath, "config", "", "store options YAML (default: $"+config.EnvVar+" or built-in)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	flags.BoolVar(&a.noColor, "no-color", false, "disable styled output")
	flags.StringVar(&a.telemetry, "telemetry", "", "write otel spans and metrics to stderr: stdout or none")

	root.AddCommand(
		a.getCmd(),
		a.whereCmd(),
		a.listCmd(),
		a.usingCmd(),
		a.selectCmd(),
		a.findCmd(),
		a.nameCmd(),
		a.boundsCmd(),
		a.statsCmd(),
		a.watchCmd(),
	)
	return root
}

// setup builds the logger, config and printer before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		Service: "soup",
		JSON:    a.logJSON,
		Output:  a.stderr,
	})

	if a.telemetry != "" && a.telemetry != telemetry.ExporterNone {
		if err := a.initTelemetry(cmd.Context(), telemetry.Config{
			ServiceName:    "soup",
			TraceExporter:  a.telemetry,
			MetricExporter: a.telemetry,
			Output:         a.stderr,
		}); err != nil {
			return err
		}
	}

	cfg, err := config.Load(cmd.Context(), a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.printer = ux.NewPrinter(a.stdout, !a.noColor)

	a.logger.Debug("config loaded",
		"source", cfg.Source,
		"path", cfg.Path,
		"validate_inserts", cfg.ValidateInserts)
	return nil
}

func (a *app) initTelemetry(ctx context.Context, cfg telemetry.Config) error {
	shutdown, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return err
	}
	a.shutdowns = append(a.shutdowns, shutdown)
	return nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, shutdown := range a.shutdowns {
		if err := shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err.Error())
		}
	}
	a.shutdowns = nil
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// loadElements reads the circuit file, or stdin for "-".
func (a *app) loadElements() ([]*element.Element, error) {
	if a.file == "-" {
		return element.Decode(io.LimitReader(a.stdin, element.MaxFileSize))
	}
	return element.LoadFile(a.file)
}

// loadStore reads the circuit and builds a store with the loaded config.
func (a *app) loadStore(ctx context.Context) (*store.Store, error) {
	elements, err := a.loadElements()
	if err != nil {
		return nil, err
	}
	return a.buildStore(ctx, elements)
}

func (a *app) buildStore(ctx context.Context, elements []*element.Element) (*store.Store, error) {
	s, err := store.New(ctx, elements,
		store.WithOptions(a.cfg.Options),
		store.WithLogger(a.logger.Slog()),
	)
	if err != nil {
		return nil, fmt.Errorf("building store: %w", err)
	}
	return s, nil
}

// emit prints v as indented JSON after an optional styled title.
func (a *app) emit(title string, v any) error {
	a.printer.Title(title)
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// emitOne prints e, or null and errNotFound when e is nil.
func (a *app) emitOne(title string, e *element.Element) error {
	if e == nil {
		if err := a.emit(title, nil); err != nil {
			return err
		}
		return errNotFound
	}
	return a.emit(title, e)
}

// emitMany prints elements as a JSON array, never null.
func (a *app) emitMany(title string, elements []*element.Element) error {
	if elements == nil {
		elements = []*element.Element{}
	}
	return a.emit(fmt.Sprintf("%s (%d)", title, len(elements)), elements)
}

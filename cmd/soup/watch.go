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
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tscircuit/soup-util/pkg/telemetry"
	"github.com/tscircuit/soup-util/pkg/ux"
	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/selector"
	"github.com/tscircuit/soup-util/services/soup/watch"
)

// watchResult is printed once per reload.
type watchResult struct {
	Reload   int                `json:"reload"`
	Selector string             `json:"selector"`
	Count    int                `json:"count"`
	Matches  []*element.Element `json:"matches"`
}

func (a *app) watchCmd() *cobra.Command {
	var debounce time.Duration
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch <selector>",
		Short: "Re-run a selector every time the circuit file changes",
		Long: `watch evaluates the selector once, then again after every change to
the file given with --file, until interrupted. Each result is one JSON
object on stdout.`,
		Example: `  soup -f board.json watch ".R1 > port"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.file == "-" {
				return errors.New("watch needs a file; use --file")
			}
			// Fail on a bad selector before watching anything.
			query, err := selector.Parse(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.Watch.Debounce
			}
			if metricsAddr != "" {
				if err := a.serveMetrics(cmd.Context(), metricsAddr); err != nil {
					return err
				}
			}
			return a.runWatch(cmd.Context(), query, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-reading the file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus /metrics on this address while watching")
	return cmd
}

// runWatch blocks until ctx is done.
func (a *app) runWatch(ctx context.Context, query selector.Node, debounce time.Duration) error {
	reload := 0
	handler := func(ctx context.Context, elements []*element.Element) error {
		s, err := a.buildStore(ctx, elements)
		if err != nil {
			a.notify(ux.IconError, err)
			return err
		}
		matched := selector.NewMatcher(selector.WithRegistry(s.Registry())).Apply(s.Elements(), query)
		if matched == nil {
			matched = []*element.Element{}
		}
		reload++
		return a.emit(fmt.Sprintf("reload %d", reload), watchResult{
			Reload:   reload,
			Selector: query.String(),
			Count:    len(matched),
			Matches:  matched,
		})
	}

	w, err := watch.New(a.file, handler, &watch.Options{
		Debounce: debounce,
		Initial:  true,
		Logger:   a.logger.Slog(),
		OnError: func(err error) {
			a.notify(ux.IconWarning, err)
		},
	})
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("watching", "file", a.file, "selector", query.String())

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	return nil
}

// serveMetrics exposes /metrics until the app closes. Unless --telemetry
// already installed a meter provider, the index instruments are bridged
// into the prometheus registry first.
func (a *app) serveMetrics(ctx context.Context, addr string) error {
	if len(a.shutdowns) == 0 {
		if err := a.initTelemetry(ctx, telemetry.Config{
			ServiceName:    "soup",
			MetricExporter: telemetry.ExporterPrometheus,
		}); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "error", err.Error())
		}
	}()
	a.shutdowns = append(a.shutdowns, srv.Shutdown)
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// notify shows err on a terminal. The watcher logs it either way, and
// piped output stays pure JSON.
func (a *app) notify(icon ux.Icon, err error) {
	if a.printer.Styled() {
		a.printer.Status(icon, err.Error())
	}
}

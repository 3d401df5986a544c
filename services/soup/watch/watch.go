// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-reads a circuit JSON file whenever it changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tscircuit/soup-util/services/soup/element"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("watcher already started")

// Handler receives the decoded collection after each settled change.
// A returned error is logged and does not stop the watcher.
type Handler func(ctx context.Context, elements []*element.Element) error

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait after the last event before reading
	// the file. Default: 100ms.
	Debounce time.Duration

	// Initial calls the handler once with the current contents on Start.
	Initial bool

	// OnError is called when the file cannot be read or decoded. The
	// error is always logged.
	OnError func(error)

	// Logger receives watcher diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher watches a single circuit file.
//
// # Description
//
// fsnotify watches the file's directory and events are filtered by file
// name, since editors commonly save by writing a temp file and renaming
// it over the original. Events are debounced; once the window passes
// without new events the file is decoded and handed to the handler.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. The handler is called from
// a single goroutine, never concurrently with itself.
type Watcher struct {
	path     string
	dir      string
	base     string
	handler  Handler
	debounce time.Duration
	initial  bool
	onError  func(error)
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	events   chan struct{}
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
	reloads int
}

// New creates a watcher for path. Call Start to begin watching.
//
// # Inputs
//
//   - path: The circuit JSON file. It may not exist yet.
//   - handler: Called with each freshly decoded collection. Must not be nil.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *Watcher: Ready to Start.
//   - error: Non-nil if the path cannot be resolved or fsnotify fails.
//
// # Example
//
//	w, err := watch.New("board.json", func(ctx context.Context, elements []*element.Element) error {
//	    ports, err := selector.Select(elements, ".R1 > port")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(len(ports))
//	    return nil
//	}, nil)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	return w.Start(ctx)
func New(path string, handler Handler, opts *Options) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch.New: handler must not be nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		path:     abs,
		dir:      filepath.Dir(abs),
		base:     filepath.Base(abs),
		handler:  handler,
		debounce: opts.Debounce,
		initial:  opts.Initial,
		onError:  opts.OnError,
		logger:   opts.Logger,
		watcher:  fw,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With(slog.String("component", "watch"), slog.String("path", abs))
	return w, nil
}

// Start begins watching. It returns once the directory watch is in place;
// events are processed in the background until ctx is done or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		close(w.exited)
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	if w.initial {
		w.signal()
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	w.logger.Debug("watching", slog.Duration("debounce", w.debounce))
	return nil
}

// Stop stops watching and waits for an in-flight handler call to return.
// Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.exited
	}
}

// Done is closed once the watcher has fully stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.exited
}

// Reloads returns how many times the handler has been called.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// signal records a pending change without blocking.
func (w *Watcher) signal() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// processEvents forwards events for the watched file to the debouncer.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.base {
				continue
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			w.signal()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", slog.String("error", err.Error()))
		}
	}
}

// debounceLoop waits for the window to pass without events, then reloads.
func (w *Watcher) debounceLoop(ctx context.Context) {
	defer close(w.exited)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.events:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			w.reload(ctx)
		}
	}
}

// reload decodes the file and calls the handler.
func (w *Watcher) reload(ctx context.Context) {
	start := time.Now()
	elements, err := element.LoadFile(w.path)
	if err != nil {
		w.logger.Warn("reload failed", slog.String("error", err.Error()))
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	if err := w.handler(ctx, elements); err != nil {
		w.logger.Warn("handler failed", slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("reloaded",
		slog.Int("elements", len(elements)),
		slog.Duration("duration", time.Since(start)))
}

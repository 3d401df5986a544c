// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tscircuit/soup-util/services/soup/element"
)

const (
	oneComponent  = `[{"type":"source_component","source_component_id":"sc1","name":"R1"}]`
	twoComponents = `[{"type":"source_component","source_component_id":"sc1","name":"R1"},` +
		`{"type":"source_component","source_component_id":"sc2","name":"C1"}]`
)

type recorder struct {
	mu    sync.Mutex
	sizes []int
	errs  []error
	calls chan struct{}
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan struct{}, 16)}
}

func (r *recorder) handle(_ context.Context, elements []*element.Element) error {
	r.mu.Lock()
	r.sizes = append(r.sizes, len(elements))
	r.mu.Unlock()
	r.calls <- struct{}{}
	return nil
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.calls <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher")
	}
}

func (r *recorder) snapshot() ([]int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.sizes...), append([]error(nil), r.errs...)
}

func quietOptions(r *recorder) *Options {
	return &Options{
		Debounce: 20 * time.Millisecond,
		OnError:  r.onError,
		Logger:   slog.New(slog.DiscardHandler),
	}
}

func TestNew_NilHandler(t *testing.T) {
	_, err := New("board.json", nil, nil)
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	w, err := New("board.json", func(context.Context, []*element.Element) error { return nil }, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.True(t, filepath.IsAbs(w.path))
	assert.Equal(t, "board.json", w.base)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte(oneComponent), 0o644))

	r := newRecorder()
	opts := quietOptions(r)
	opts.Initial = true
	w, err := New(path, r.handle, opts)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	r.wait(t)
	require.NoError(t, os.WriteFile(path, []byte(twoComponents), 0o644))
	r.wait(t)

	sizes, errs := r.snapshot()
	assert.Empty(t, errs)
	require.GreaterOrEqual(t, len(sizes), 2)
	assert.Equal(t, 1, sizes[0])
	assert.Equal(t, 2, sizes[len(sizes)-1])
	assert.Equal(t, len(sizes), w.Reloads())
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.json")
	require.NoError(t, os.WriteFile(path, []byte(oneComponent), 0o644))

	r := newRecorder()
	w, err := New(path, r.handle, quietOptions(r))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0o644))
	time.Sleep(150 * time.Millisecond)

	sizes, errs := r.snapshot()
	assert.Empty(t, sizes)
	assert.Empty(t, errs)
}

func TestWatcher_RenameOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.json")
	require.NoError(t, os.WriteFile(path, []byte(oneComponent), 0o644))

	r := newRecorder()
	w, err := New(path, r.handle, quietOptions(r))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	tmp := filepath.Join(dir, ".board.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(twoComponents), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	r.wait(t)

	sizes, _ := r.snapshot()
	require.NotEmpty(t, sizes)
	assert.Equal(t, 2, sizes[len(sizes)-1])
}

func TestWatcher_DecodeErrorReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte(oneComponent), 0o644))

	r := newRecorder()
	w, err := New(path, r.handle, quietOptions(r))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	r.wait(t)

	sizes, errs := r.snapshot()
	assert.Empty(t, sizes)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "decoding circuit json")
	assert.Zero(t, w.Reloads())
}

func TestWatcher_StartTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	r := newRecorder()
	w, err := New(path, r.handle, quietOptions(r))
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	r := newRecorder()
	w, err := New(path, r.handle, quietOptions(r))
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	r := newRecorder()
	w, err := New(path, r.handle, quietOptions(r))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
	<-w.Done()
}

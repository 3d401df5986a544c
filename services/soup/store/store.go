// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides an ordered, mutable collection of circuit elements
// with per-type query views and optional secondary indexes.
//
// Every enabled index is kept consistent with the collection across
// Insert, Update and Delete. A store with indexes disabled answers every
// query identically, by linear scan.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/index"
	"github.com/tscircuit/soup-util/services/soup/schema"
)

// Store owns an element collection and its indexes.
//
// Thread Safety: NOT safe for concurrent use. Callers sharing a Store
// across goroutines must serialize access themselves.
type Store struct {
	elements  []*element.Element
	idx       *index.Set // nil when no index kind is enabled
	registry  *element.Registry
	validator Validator // nil when validation is off
	logger    *slog.Logger
	options   Options

	// last holds the highest id suffix seen per type.
	last  map[string]int
	views map[string]*View
}

// New builds a store over elements.
//
// Description:
//
//	The store takes ownership of the slice's elements (not the slice).
//	Per-type id counters are seeded from the highest integer suffix among
//	each type's ids. Indexes are built in one pass when any kind is
//	enabled.
//
// Inputs:
//
//	ctx - Context for tracing the build.
//	elements - The initial collection, in order.
//	opts - Store options.
//
// Outputs:
//
//	*Store - The store. Nil on error.
//	error - *BatchError when the collection holds nil elements or
//	        duplicate (type, id) pairs.
//
// Example:
//
//	s, err := store.New(ctx, elements, store.WithIndex(index.All("name")))
//	if err != nil {
//	    return err
//	}
//	port := s.PcbPort().Get("pcb_port_0")
func New(ctx context.Context, elements []*element.Element, opts ...Option) (*Store, error) {
	ctx, span := storeTracer.Start(ctx, "Store.New")
	defer span.End()
	start := time.Now()

	st := settings{
		registry: element.DefaultRegistry(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&st)
	}

	if err := checkCollection(st.registry, elements); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid collection")
		return nil, err
	}

	s := &Store{
		elements: slices.Clone(elements),
		registry: st.registry,
		logger:   st.logger,
		options:  st.options,
		last:     make(map[string]int),
		views:    make(map[string]*View),
	}
	if st.options.ValidateInserts {
		s.validator = st.validator
		if s.validator == nil {
			s.validator = schema.New(schema.WithRegistry(st.registry))
		}
	}
	for _, e := range s.elements {
		s.observeID(e.Type, s.registry.PrimaryID(e))
	}

	if st.options.Index.Enabled() {
		s.idx = index.New(st.options.Index, index.WithRegistry(st.registry))
		if err := s.idx.Build(ctx, s.elements); err != nil {
			// checkCollection already rejected everything Build can.
			return nil, fmt.Errorf("building index: %w", err)
		}
	}

	elapsed := time.Since(start)
	storeBuildDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("store.elements", len(s.elements)),
		attribute.Bool("store.indexed", s.idx != nil),
	)
	s.logger.Debug("store built",
		slog.Int("elements", len(s.elements)),
		slog.Any("index_kinds", st.options.Index.Kinds()),
		slog.Duration("duration", elapsed),
	)
	return s, nil
}

// checkCollection reports nil elements and duplicate (type, id) pairs.
func checkCollection(reg *element.Registry, elements []*element.Element) error {
	type key struct{ typ, id string }
	seen := make(map[key]int, len(elements))
	var errs []error
	for i, e := range elements {
		if e == nil {
			errs = append(errs, fmt.Errorf("element[%d]: %w", i, ErrNilElement))
			continue
		}
		id := reg.PrimaryID(e)
		if id == "" {
			continue
		}
		k := key{e.Type, id}
		if first, dup := seen[k]; dup {
			errs = append(errs, fmt.Errorf("element[%d]: %w: %s %q also at element[%d]",
				i, ErrDuplicateID, e.Type, id, first))
			continue
		}
		seen[k] = i
	}
	if len(errs) > 0 {
		return &BatchError{Errors: errs}
	}
	return nil
}

// =============================================================================
// Id Counters
// =============================================================================

// observeID raises typ's counter to id's integer suffix.
func (s *Store) observeID(typ, id string) {
	n, ok := element.ParseIDSuffix(id)
	if !ok {
		return
	}
	if cur, seen := s.last[typ]; !seen || n > cur {
		s.last[typ] = n
	}
}

// peekID returns the id the next auto-assigned insert of typ would get.
// A counter already at math.MaxInt has no successor.
func (s *Store) peekID(typ string) (string, error) {
	n, ok := s.last[typ]
	if !ok {
		n = -1
	}
	if n == math.MaxInt {
		return "", fmt.Errorf("%w: %s", ErrIDExhausted, typ)
	}
	return fmt.Sprintf("%s_%d", typ, n+1), nil
}

// =============================================================================
// Views
// =============================================================================

// Type returns the view for typ. Views are cached and share the store's
// state; any type name is accepted.
func (s *Store) Type(typ string) *View {
	if v, ok := s.views[typ]; ok {
		return v
	}
	v := &View{store: s, typ: typ, desc: s.registry.Lookup(typ)}
	s.views[typ] = v
	return v
}

// SourceComponent returns the source_component view.
func (s *Store) SourceComponent() *View { return s.Type("source_component") }

// SourcePort returns the source_port view.
func (s *Store) SourcePort() *View { return s.Type("source_port") }

// SourceNet returns the source_net view.
func (s *Store) SourceNet() *View { return s.Type("source_net") }

// SourceTrace returns the source_trace view.
func (s *Store) SourceTrace() *View { return s.Type("source_trace") }

// PcbComponent returns the pcb_component view.
func (s *Store) PcbComponent() *View { return s.Type("pcb_component") }

// PcbPort returns the pcb_port view.
func (s *Store) PcbPort() *View { return s.Type("pcb_port") }

// PcbSmtpad returns the pcb_smtpad view.
func (s *Store) PcbSmtpad() *View { return s.Type("pcb_smtpad") }

// PcbTrace returns the pcb_trace view.
func (s *Store) PcbTrace() *View { return s.Type("pcb_trace") }

// SchematicComponent returns the schematic_component view.
func (s *Store) SchematicComponent() *View { return s.Type("schematic_component") }

// SchematicPort returns the schematic_port view.
func (s *Store) SchematicPort() *View { return s.Type("schematic_port") }

// =============================================================================
// Store-wide Operations
// =============================================================================

// Elements returns the collection in order. The slice is a copy; the
// elements are shared.
func (s *Store) Elements() []*element.Element {
	return slices.Clone(s.elements)
}

// Len returns the number of elements.
func (s *Store) Len() int {
	return len(s.elements)
}

// ElementByID returns the first element, of any type, whose primary id is
// id.
func (s *Store) ElementByID(id string) *element.Element {
	if id == "" {
		return nil
	}
	for _, e := range s.elements {
		if s.registry.PrimaryID(e) == id {
			return e
		}
	}
	return nil
}

// Registry returns the element registry the store resolves ids with.
func (s *Store) Registry() *element.Registry {
	return s.registry
}

// Options returns the store's configuration.
func (s *Store) Options() Options {
	opts := s.options
	opts.Index.ByCustomField = slices.Clone(s.options.Index.ByCustomField)
	return opts
}

// Stats summarises the collection and its indexes.
type Stats struct {
	Elements int            `json:"elements"`
	Types    map[string]int `json:"types"`
	Indexed  bool           `json:"indexed"`
	Index    *index.Stats   `json:"index,omitempty"`
}

// Stats counts elements per type and reports index sizes.
func (s *Store) Stats() Stats {
	out := Stats{
		Elements: len(s.elements),
		Types:    make(map[string]int),
		Indexed:  s.idx != nil,
	}
	for _, e := range s.elements {
		out.Types[e.Type]++
	}
	if s.idx != nil {
		st := s.idx.Stats()
		out.Index = &st
	}
	return out
}

// position returns e's index in the collection, or -1.
func (s *Store) position(e *element.Element) int {
	return slices.Index(s.elements, e)
}

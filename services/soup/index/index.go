// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index provides secondary indexes over a circuit element
// collection.
//
// A Set maintains up to five independent index kinds:
//   - by id: (type, primary id) -> element
//   - by type: type -> elements
//   - by relation: (relation field, value) -> elements
//   - by group: subcircuit_id -> elements
//   - by custom field: (field, stringified scalar) -> elements
//
// # Ordering
//
// Every multi-element bucket is kept in collection order. Each element is
// stamped with a sequence number when added, and buckets are sorted by it,
// so a bucket scan returns elements in the order a linear scan of the
// collection would. Elements re-filed by Reindex keep their sequence
// number and land where they belong.
//
// # Ownership Model
//
// The set stores pointers to elements but does not own them. Elements
// MUST NOT be mutated while indexed except through Reindex, which detaches
// the affected keys, runs the mutation, and re-attaches.
//
// # Thread Safety
//
// Set is not safe for concurrent use. It is designed for a single owner
// that serialises reads and writes, such as one store.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tscircuit/soup-util/services/soup/element"
)

// FieldKey identifies a relation or custom-field bucket.
type FieldKey struct {
	Field string
	Value string
}

type idKey struct {
	typ string
	id  string
}

// kindMask selects the index kinds touched by attach and detach.
type kindMask uint8

const (
	maskID kindMask = 1 << iota
	maskType
	maskRelation
	maskGroup
	maskCustom

	maskAll = maskID | maskType | maskRelation | maskGroup | maskCustom
)

// entry is the reverse pointer record for one element: its sequence
// number and every key it is currently filed under.
type entry struct {
	seq       uint64
	typ       string
	id        string
	relations []FieldKey
	group     string
	grouped   bool
	custom    []FieldKey
}

// Set is a collection of secondary indexes over circuit elements.
type Set struct {
	cfg          Config
	registry     *element.Registry
	customFields map[string]struct{}

	byID       map[idKey]*element.Element
	byType     map[string][]*element.Element
	byRelation map[FieldKey][]*element.Element
	byGroup    map[string][]*element.Element
	byCustom   map[FieldKey][]*element.Element

	entries map[*element.Element]*entry
	nextSeq uint64

	meterProvider metric.MeterProvider
	metrics       *instruments
}

// Option configures a Set.
type Option func(*Set)

// WithRegistry sets the registry used to resolve primary id and relation
// fields. Defaults to element.DefaultRegistry().
func WithRegistry(reg *element.Registry) Option {
	return func(s *Set) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithMeterProvider reports the set's metrics to mp instead of the global
// meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Set) {
		s.meterProvider = mp
	}
}

// New creates an empty Set maintaining the kinds enabled in cfg.
//
// Example:
//
//	idx := index.New(index.Config{ByID: true, ByRelation: true})
//	if err := idx.Build(ctx, elements); err != nil {
//	    return fmt.Errorf("indexing circuit: %w", err)
//	}
func New(cfg Config, opts ...Option) *Set {
	s := &Set{
		registry:     element.DefaultRegistry(),
		customFields: make(map[string]struct{}, len(cfg.ByCustomField)),
		byID:         make(map[idKey]*element.Element),
		byType:       make(map[string][]*element.Element),
		byRelation:   make(map[FieldKey][]*element.Element),
		byGroup:      make(map[string][]*element.Element),
		byCustom:     make(map[FieldKey][]*element.Element),
		entries:      make(map[*element.Element]*entry),
	}

	// Dedupe custom fields, keeping first-seen order.
	var fields []string
	for _, f := range cfg.ByCustomField {
		if f == "" {
			continue
		}
		if _, dup := s.customFields[f]; dup {
			continue
		}
		s.customFields[f] = struct{}{}
		fields = append(fields, f)
	}
	cfg.ByCustomField = fields
	s.cfg = cfg

	for _, opt := range opts {
		opt(s)
	}
	if s.meterProvider != nil {
		s.metrics = newInstruments(s.meterProvider)
	} else {
		s.metrics = defaultInstruments()
	}
	return s
}

// Config returns the set's effective configuration.
func (s *Set) Config() Config {
	cfg := s.cfg
	cfg.ByCustomField = append([]string(nil), s.cfg.ByCustomField...)
	return cfg
}

// =============================================================================
// Build and Maintenance
// =============================================================================

// Build adds every element in collection order.
//
// Description:
//
//	Build is the one-time O(n·f) pass over a collection. Elements that
//	cannot be added (nil, or a duplicate (type, id) when the by-id kind is
//	enabled) are skipped and reported together.
//
// Inputs:
//
//	ctx - Context for tracing.
//	elements - The collection, in order.
//
// Outputs:
//
//	error - *BatchError listing every skipped element, or nil.
func (s *Set) Build(ctx context.Context, elements []*element.Element) error {
	ctx, span := startSpan(ctx, opBuild, len(elements))
	start := time.Now()

	var errs []error
	for i, e := range elements {
		if err := s.add(e); err != nil {
			errs = append(errs, fmt.Errorf("element[%d]: %w", i, err))
		}
	}

	var err error
	if len(errs) > 0 {
		err = &BatchError{Errors: errs}
	}
	s.metrics.observe(ctx, opBuild, start, len(s.entries), err)
	endSpan(span, len(s.entries), err)
	return err
}

// Add files e under every enabled index kind. The element is placed after
// every element already in the set.
func (s *Set) Add(e *element.Element) error {
	start := time.Now()
	err := s.add(e)
	s.metrics.observe(context.Background(), opAdd, start, len(s.entries), err)
	return err
}

func (s *Set) add(e *element.Element) error {
	if e == nil {
		return ErrNilElement
	}
	if _, ok := s.entries[e]; ok {
		return fmt.Errorf("%w: %s %q already indexed", ErrDuplicateID, e.Type, s.registry.PrimaryID(e))
	}
	if s.cfg.ByID {
		if id := s.registry.PrimaryID(e); id != "" {
			if _, taken := s.byID[idKey{typ: e.Type, id: id}]; taken {
				return fmt.Errorf("%w: %s %q", ErrDuplicateID, e.Type, id)
			}
		}
	}

	ent := &entry{seq: s.nextSeq, typ: e.Type}
	s.nextSeq++
	s.entries[e] = ent
	s.attach(e, ent, maskAll)
	return nil
}

// Remove purges e from every index kind.
func (s *Set) Remove(e *element.Element) error {
	start := time.Now()
	err := s.remove(e)
	s.metrics.observe(context.Background(), opRemove, start, len(s.entries), err)
	return err
}

func (s *Set) remove(e *element.Element) error {
	if e == nil {
		return ErrNilElement
	}
	ent, ok := s.entries[e]
	if !ok {
		return ErrNotIndexed
	}
	s.detach(e, ent, maskAll)
	delete(s.entries, e)
	return nil
}

// Reindex runs apply, a mutation of e touching the named fields, while
// keeping every index consistent.
//
// Description:
//
//	Only the kinds whose keys depend on a changed field are touched: the
//	entity is detached from its old buckets, apply runs, and it is filed
//	under its new keys. Changing "type" re-files every kind.
//
// Inputs:
//
//	e - An element previously added to the set.
//	changed - The fields apply will change.
//	apply - The mutation. Called exactly once when e is indexed.
//
// Outputs:
//
//	error - ErrNotIndexed if e is not in the set; apply is not called.
func (s *Set) Reindex(e *element.Element, changed []string, apply func()) error {
	start := time.Now()
	err := s.reindex(e, changed, apply)
	s.metrics.observe(context.Background(), opReindex, start, len(s.entries), err)
	return err
}

func (s *Set) reindex(e *element.Element, changed []string, apply func()) error {
	if e == nil {
		return ErrNilElement
	}
	ent, ok := s.entries[e]
	if !ok {
		return ErrNotIndexed
	}
	mask := s.affected(e, changed)
	s.detach(e, ent, mask)
	apply()
	s.attach(e, ent, mask)
	return nil
}

// affected maps changed field names to the kinds whose keys they feed.
func (s *Set) affected(e *element.Element, changed []string) kindMask {
	var mask kindMask
	primary := s.registry.PrimaryIDField(e.Type)
	for _, field := range changed {
		if field == element.TypeField {
			return maskAll
		}
		if field == primary {
			mask |= maskID
		}
		if strings.HasSuffix(field, "_id") {
			mask |= maskRelation
		}
		if field == GroupField {
			mask |= maskGroup
		}
		if _, ok := s.customFields[field]; ok {
			mask |= maskCustom
		}
	}
	return mask
}

func (s *Set) attach(e *element.Element, ent *entry, mask kindMask) {
	if mask&(maskID|maskType) != 0 {
		ent.typ = e.Type
	}

	if mask&maskID != 0 && s.cfg.ByID {
		if id := s.registry.PrimaryID(e); id != "" {
			k := idKey{typ: e.Type, id: id}
			if _, taken := s.byID[k]; !taken {
				s.byID[k] = e
				ent.id = id
			}
		}
	}

	if mask&maskType != 0 && s.cfg.ByType {
		s.byType[e.Type] = s.insertOrdered(s.byType[e.Type], e, ent.seq)
	}

	if mask&maskRelation != 0 && s.cfg.ByRelation {
		for _, field := range s.registry.RelationKeys(e) {
			k := FieldKey{Field: field, Value: e.Str(field)}
			ent.relations = append(ent.relations, k)
			s.byRelation[k] = s.insertOrdered(s.byRelation[k], e, ent.seq)
		}
	}

	if mask&maskGroup != 0 && s.cfg.ByGroup {
		if v, ok := e.Get(GroupField); ok {
			if group, ok := v.(string); ok {
				ent.group, ent.grouped = group, true
				s.byGroup[group] = s.insertOrdered(s.byGroup[group], e, ent.seq)
			}
		}
	}

	if mask&maskCustom != 0 && len(s.cfg.ByCustomField) > 0 {
		for _, field := range s.cfg.ByCustomField {
			v, ok := e.Get(field)
			if !ok {
				continue
			}
			key, ok := element.ScalarKey(v)
			if !ok {
				continue
			}
			k := FieldKey{Field: field, Value: key}
			ent.custom = append(ent.custom, k)
			s.byCustom[k] = s.insertOrdered(s.byCustom[k], e, ent.seq)
		}
	}
}

func (s *Set) detach(e *element.Element, ent *entry, mask kindMask) {
	if mask&maskID != 0 && ent.id != "" {
		k := idKey{typ: ent.typ, id: ent.id}
		if s.byID[k] == e {
			delete(s.byID, k)
		}
		ent.id = ""
	}

	if mask&maskType != 0 && s.cfg.ByType {
		if bucket := s.removeOrdered(s.byType[ent.typ], e, ent.seq); len(bucket) > 0 {
			s.byType[ent.typ] = bucket
		} else {
			delete(s.byType, ent.typ)
		}
	}

	if mask&maskRelation != 0 {
		for _, k := range ent.relations {
			if bucket := s.removeOrdered(s.byRelation[k], e, ent.seq); len(bucket) > 0 {
				s.byRelation[k] = bucket
			} else {
				delete(s.byRelation, k)
			}
		}
		ent.relations = nil
	}

	if mask&maskGroup != 0 && ent.grouped {
		if bucket := s.removeOrdered(s.byGroup[ent.group], e, ent.seq); len(bucket) > 0 {
			s.byGroup[ent.group] = bucket
		} else {
			delete(s.byGroup, ent.group)
		}
		ent.group, ent.grouped = "", false
	}

	if mask&maskCustom != 0 {
		for _, k := range ent.custom {
			if bucket := s.removeOrdered(s.byCustom[k], e, ent.seq); len(bucket) > 0 {
				s.byCustom[k] = bucket
			} else {
				delete(s.byCustom, k)
			}
		}
		ent.custom = nil
	}
}

// insertOrdered places e into bucket by sequence number.
func (s *Set) insertOrdered(bucket []*element.Element, e *element.Element, seq uint64) []*element.Element {
	n := len(bucket)
	if n == 0 || s.entries[bucket[n-1]].seq < seq {
		return append(bucket, e)
	}
	i := sort.Search(n, func(i int) bool {
		return s.entries[bucket[i]].seq > seq
	})
	bucket = append(bucket, nil)
	copy(bucket[i+1:], bucket[i:])
	bucket[i] = e
	return bucket
}

// removeOrdered deletes e from bucket, preserving the order of the rest.
func (s *Set) removeOrdered(bucket []*element.Element, e *element.Element, seq uint64) []*element.Element {
	i := sort.Search(len(bucket), func(i int) bool {
		return s.entries[bucket[i]].seq >= seq
	})
	if i >= len(bucket) || bucket[i] != e {
		return bucket
	}
	copy(bucket[i:], bucket[i+1:])
	bucket[len(bucket)-1] = nil
	return bucket[:len(bucket)-1]
}

// =============================================================================
// Lookups
// =============================================================================

// ByID returns the element filed under (typ, id).
func (s *Set) ByID(typ, id string) (*element.Element, bool) {
	e, ok := s.byID[idKey{typ: typ, id: id}]
	return e, ok
}

// ByType returns the elements of typ in collection order.
// The returned slice is a copy.
func (s *Set) ByType(typ string) []*element.Element {
	return copySlice(s.byType[typ])
}

// ByRelation returns the elements whose relation field holds value.
// The returned slice is a copy.
func (s *Set) ByRelation(field, value string) []*element.Element {
	return copySlice(s.byRelation[FieldKey{Field: field, Value: value}])
}

// ByGroup returns the elements in the given subcircuit.
// The returned slice is a copy.
func (s *Set) ByGroup(group string) []*element.Element {
	return copySlice(s.byGroup[group])
}

// ByField returns the elements whose custom field equals value once
// stringified. The bool is false when field is not a custom field or value
// is not a string or number; the caller must then search another way.
func (s *Set) ByField(field string, value any) ([]*element.Element, bool) {
	if !s.IndexesField(field) {
		return nil, false
	}
	key, ok := element.ScalarKey(value)
	if !ok {
		return nil, false
	}
	return copySlice(s.byCustom[FieldKey{Field: field, Value: key}]), true
}

// IndexesField reports whether field is a configured custom field.
func (s *Set) IndexesField(field string) bool {
	_, ok := s.customFields[field]
	return ok
}

// Contains reports whether e is in the set.
func (s *Set) Contains(e *element.Element) bool {
	_, ok := s.entries[e]
	return ok
}

// Len returns the number of elements in the set.
func (s *Set) Len() int {
	return len(s.entries)
}

// Stats describes the current size of each index kind.
type Stats struct {
	Elements     int    `json:"elements"`
	IDKeys       int    `json:"id_keys"`
	Types        int    `json:"types"`
	RelationKeys int    `json:"relation_keys"`
	Groups       int    `json:"groups"`
	CustomKeys   int    `json:"custom_keys"`
	Kinds        []Kind `json:"kinds"`
}

// Stats returns the number of live keys per kind.
func (s *Set) Stats() Stats {
	return Stats{
		Elements:     len(s.entries),
		IDKeys:       len(s.byID),
		Types:        len(s.byType),
		RelationKeys: len(s.byRelation),
		Groups:       len(s.byGroup),
		CustomKeys:   len(s.byCustom),
		Kinds:        s.cfg.Kinds(),
	}
}

// copySlice returns a copy of the slice, or nil for an empty one.
func copySlice(src []*element.Element) []*element.Element {
	if len(src) == 0 {
		return nil
	}
	dst := make([]*element.Element, len(src))
	copy(dst, src)
	return dst
}

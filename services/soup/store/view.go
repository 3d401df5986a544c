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
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/index"
)

// View answers queries over the elements of one type.
//
// Views hold no state of their own; every call reads the store's current
// collection and indexes.
type View struct {
	store *Store
	typ   string
	desc  element.Descriptor
}

// Name returns the element type the view covers.
func (v *View) Name() string {
	return v.typ
}

// =============================================================================
// Reads
// =============================================================================

// Get returns the element with primary id id, or nil.
func (v *View) Get(id string) *element.Element {
	if id == "" {
		return nil
	}
	idx := v.store.idx
	if idx != nil && idx.Config().ByID {
		countOp(v.typ, "get", pathIDIndex)
		e, _ := idx.ByID(v.typ, id)
		return e
	}

	candidates, path := v.store.elements, pathScan
	if idx != nil && idx.Config().ByType {
		candidates, path = idx.ByType(v.typ), pathTypeIndex
	}
	countOp(v.typ, "get", path)
	for _, e := range candidates {
		if e.Type == v.typ && v.store.registry.PrimaryID(e) == id {
			return e
		}
	}
	return nil
}

// GetWhere returns the first element, in collection order, whose named
// fields all equal the given values. A field the element lacks never
// matches.
func (v *View) GetWhere(where element.Fields) *element.Element {
	candidates, path := v.narrow(where)
	countOp(v.typ, "get_where", path)
	for _, e := range candidates {
		if v.matches(e, where) {
			return e
		}
	}
	return nil
}

// List returns every element matching where, in collection order. An
// empty filter lists the whole type.
func (v *View) List(where element.Fields) []*element.Element {
	candidates, path := v.narrow(where)
	countOp(v.typ, "list", path)
	var out []*element.Element
	for _, e := range candidates {
		if v.matches(e, where) {
			out = append(out, e)
		}
	}
	return out
}

// GetUsing resolves an element of this view's type through a joiner
// element of another type.
//
// Description:
//
//	where must hold exactly one key, e.g. {"pcb_component_id": "pc_0"}.
//	The joiner is the element of type strip_id(key) whose key field has
//	the value. If the joiner carries "<view type>_id", that id is looked
//	up in this view. Otherwise the view is searched for an element with
//	the same key and value, which covers the parent-to-child direction
//	(a source_port through its source_component).
//
//	The join relies on naming convention only. Mismatched conventions
//	yield nil, never an error.
//
// Inputs:
//
//	where - Exactly one field name and value.
//
// Outputs:
//
//	*element.Element - The joined element, or nil when any hop fails.
//	error - ErrAmbiguousJoinKey when where does not hold exactly one key.
//
// Example:
//
//	sc, err := s.SourceComponent().GetUsing(element.Fields{
//	    "pcb_component_id": "pcb_component_0",
//	})
func (v *View) GetUsing(where element.Fields) (*element.Element, error) {
	if len(where) != 1 {
		return nil, ErrAmbiguousJoinKey
	}
	var key string
	var value any
	for k, val := range where {
		key, value = k, val
	}

	joinType := strings.TrimSuffix(key, "_id")
	joinView := v.store.Type(joinType)
	var joiner *element.Element
	if id, ok := value.(string); ok && key == joinView.desc.PrimaryIDField {
		joiner = joinView.Get(id)
	} else {
		joiner = joinView.GetWhere(element.Fields{key: value})
	}
	if joiner == nil {
		return nil, nil
	}

	if targetID, ok := joiner.Get(v.desc.PrimaryIDField); ok {
		id, _ := targetID.(string)
		return v.Get(id), nil
	}
	return v.GetWhere(element.Fields{key: value}), nil
}

// narrow picks the smallest candidate list the indexes can offer for
// where. The candidates still need checking against every field.
func (v *View) narrow(where element.Fields) ([]*element.Element, string) {
	idx := v.store.idx
	if idx == nil {
		return v.store.elements, pathScan
	}
	cfg := idx.Config()

	if len(where) == 1 {
		for field, value := range where {
			if bucket, ok := idx.ByField(field, value); ok {
				return bucket, pathCustomIndex
			}
		}
	}

	// Elements without a primary id are never filed by id.
	if cfg.ByID {
		if id, ok := where[v.desc.PrimaryIDField].(string); ok && id != "" {
			if e, found := idx.ByID(v.typ, id); found {
				return []*element.Element{e}, pathIDIndex
			}
			return nil, pathIDIndex
		}
	}

	if cfg.ByRelation {
		for _, field := range sortedKeys(where) {
			if !v.desc.IsRelationField(field) {
				continue
			}
			if value, ok := where[field].(string); ok {
				return idx.ByRelation(field, value), pathRelationIndex
			}
		}
	}

	if cfg.ByGroup {
		if group, ok := where[index.GroupField].(string); ok {
			return idx.ByGroup(group), pathGroupIndex
		}
	}

	if cfg.ByType {
		return idx.ByType(v.typ), pathTypeIndex
	}
	return v.store.elements, pathScan
}

// matches reports whether e is of the view's type and equals where on
// every named field.
func (v *View) matches(e *element.Element, where element.Fields) bool {
	if e.Type != v.typ {
		return false
	}
	for field, want := range where {
		got, ok := e.Get(field)
		if !ok || !element.Equal(got, want) {
			return false
		}
	}
	return true
}

func sortedKeys(f element.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// Mutations
// =============================================================================

// Insert appends a new element of the view's type.
//
// Description:
//
//	The element gets the view's type and a primary id. A non-empty string
//	id supplied in fields is kept and must not collide; otherwise the
//	next id from the type's counter is assigned ("<type>_<n+1>"). When
//	validation is on, the assembled element is validated before anything
//	changes. The counter only advances on success.
//
// Inputs:
//
//	fields - The element's fields. Any "type" entry is ignored.
//
// Outputs:
//
//	*element.Element - The stored element.
//	error - ErrDuplicateID for a colliding explicit id, ErrIDExhausted
//	        when the counter has no next id, or ErrValidation wrapping the
//	        validator's error. The store is unchanged.
//
// Example:
//
//	port, err := s.PcbPort().Insert(element.Fields{
//	    "pcb_component_id": "pcb_component_0",
//	    "layers":           []any{"top"},
//	})
func (v *View) Insert(fields element.Fields) (*element.Element, error) {
	s := v.store
	idField := v.desc.PrimaryIDField

	id, explicit := fields[idField].(string)
	if explicit && id != "" {
		if v.Get(id) != nil {
			storeInsertRejections.WithLabelValues(v.typ, "duplicate_id").Inc()
			return nil, fmt.Errorf("%w: %s %q", ErrDuplicateID, v.typ, id)
		}
	} else {
		next, err := s.peekID(v.typ)
		if err != nil {
			storeInsertRejections.WithLabelValues(v.typ, "id_exhausted").Inc()
			return nil, err
		}
		id = next
	}

	e := element.New(v.typ, fields)
	e.Apply(element.Fields{idField: id})

	if s.validator != nil {
		if err := s.validator.Validate(e); err != nil {
			storeInsertRejections.WithLabelValues(v.typ, "validation").Inc()
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	if s.idx != nil {
		if err := s.idx.Add(e); err != nil {
			storeInsertRejections.WithLabelValues(v.typ, "index").Inc()
			return nil, err
		}
	}
	s.elements = append(s.elements, e)
	s.observeID(v.typ, id)
	countOp(v.typ, "insert", pathNone)
	return e, nil
}

// Update merges patch into the element with primary id id, in place.
//
// A nil value removes the field. The "type" and primary id fields are the
// element's identity and are never changed by a patch. Indexes are
// migrated for the fields that actually change. Returns nil when no such
// element exists.
func (v *View) Update(id string, patch element.Fields) *element.Element {
	e := v.Get(id)
	if e == nil {
		return nil
	}

	p := make(element.Fields, len(patch))
	for k, val := range patch {
		if k == element.TypeField || k == v.desc.PrimaryIDField {
			continue
		}
		p[k] = val
	}
	changed := e.Changed(p)
	if len(changed) == 0 {
		return e
	}

	apply := func() { e.Apply(p) }
	idx := v.store.idx
	if idx == nil {
		apply()
	} else if err := idx.Reindex(e, changed, apply); err != nil {
		apply()
		v.store.logger.Error("update skipped index maintenance",
			slog.String("type", v.typ),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
	countOp(v.typ, "update", pathNone)
	return e
}

// Delete removes the element with primary id id from the collection and
// every index. Reports whether an element was removed.
func (v *View) Delete(id string) bool {
	e := v.Get(id)
	if e == nil {
		return false
	}
	s := v.store
	if i := s.position(e); i >= 0 {
		s.elements = slices.Delete(s.elements, i, i+1)
	}
	if s.idx != nil {
		if err := s.idx.Remove(e); err != nil {
			s.logger.Error("delete skipped index maintenance",
				slog.String("type", v.typ),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	countOp(v.typ, "delete", pathNone)
	return true
}

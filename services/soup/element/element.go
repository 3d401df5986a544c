// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package element defines the circuit element model shared by the store,
// the index set and the selector matcher.
//
// An Element is a tagged property bag. The Type discriminant selects the
// variant ("source_component", "pcb_port", ...) and the remaining fields are
// kept as decoded JSON values: string, float64, bool, nil, []any or
// map[string]any. Typed access to a known variant goes through As.
//
// # Identity and Relations
//
// Every variant has a primary identifier field, conventionally
// "<type>_id". Any other field whose name ends in "_id" is a relation
// field: a foreign key naming another element's primary identifier. The
// Registry resolves both from a static table, falling back to the naming
// convention for types it does not know.
//
// # Ownership Model
//
// Elements handed to a store are owned by it. Mutating an element through
// Apply outside of the store leaves the store's indexes stale.
package element

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// TypeField is the discriminant field name.
const TypeField = "type"

// ErrMissingType is returned when decoding a record with no string "type".
var ErrMissingType = errors.New("element has no type")

// Fields is a set of named element values.
type Fields map[string]any

// Element is one circuit element.
type Element struct {
	// Type is the variant discriminant.
	Type string

	fields Fields
}

// New creates an element of the given type.
//
// The fields map is copied. A "type" entry in fields is ignored; the typ
// argument is authoritative.
func New(typ string, fields Fields) *Element {
	e := &Element{Type: typ, fields: make(Fields, len(fields))}
	for k, v := range fields {
		if k == TypeField {
			continue
		}
		e.fields[k] = v
	}
	return e
}

// FromFields creates an element from a record carrying its own "type".
func FromFields(fields Fields) (*Element, error) {
	typ, ok := fields[TypeField].(string)
	if !ok || typ == "" {
		return nil, ErrMissingType
	}
	return New(typ, fields), nil
}

// Get returns the named field. "type" resolves to the discriminant.
func (e *Element) Get(name string) (any, bool) {
	if name == TypeField {
		return e.Type, true
	}
	v, ok := e.fields[name]
	return v, ok
}

// Has reports whether the named field is present.
func (e *Element) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Str returns the named field if it holds a string, otherwise "".
func (e *Element) Str(name string) string {
	v, _ := e.Get(name)
	s, _ := v.(string)
	return s
}

// Float returns the named field as a float64 if it holds a number.
func (e *Element) Float(name string) (float64, bool) {
	v, ok := e.fields[name]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Strings returns the string members of an array field.
//
// Non-string members are skipped. Returns nil when the field is absent or
// not an array.
func (e *Element) Strings(name string) []string {
	switch v := e.fields[name].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Contains reports whether the array field name holds the string s.
func (e *Element) Contains(name, s string) bool {
	switch v := e.fields[name].(type) {
	case []string:
		for _, item := range v {
			if item == s {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok && str == s {
				return true
			}
		}
	}
	return false
}

// Keys returns the field names in sorted order, including "type".
func (e *Element) Keys() []string {
	keys := make([]string, 0, len(e.fields)+1)
	keys = append(keys, TypeField)
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a shallow copy of the element's fields including "type".
func (e *Element) Fields() Fields {
	out := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		out[k] = v
	}
	out[TypeField] = e.Type
	return out
}

// Changed returns the names in patch whose values differ from the
// element's current values, in sorted order. The "type" key is ignored.
func (e *Element) Changed(patch Fields) []string {
	var changed []string
	for k, v := range patch {
		if k == TypeField {
			continue
		}
		cur, ok := e.fields[k]
		if v == nil {
			if ok {
				changed = append(changed, k)
			}
			continue
		}
		if !ok || !Equal(cur, v) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// Apply merges patch into the element in place. A nil value removes the
// field. The "type" key is ignored.
//
// Apply does not know about indexes. Use the store's Update to keep them
// consistent.
func (e *Element) Apply(patch Fields) {
	if e.fields == nil {
		e.fields = make(Fields, len(patch))
	}
	for k, v := range patch {
		if k == TypeField {
			continue
		}
		if v == nil {
			delete(e.fields, k)
			continue
		}
		e.fields[k] = v
	}
}

// Clone returns a shallow copy of the element.
func (e *Element) Clone() *Element {
	return New(e.Type, e.fields)
}

// MarshalJSON encodes the element as a flat JSON object.
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}

// UnmarshalJSON decodes a flat JSON object with a string "type".
func (e *Element) UnmarshalJSON(data []byte) error {
	var raw Fields
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromFields(raw)
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}

// GoString renders the element for debugging.
func (e *Element) GoString() string {
	return fmt.Sprintf("element.Element{Type: %q, fields: %v}", e.Type, e.fields)
}

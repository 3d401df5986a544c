// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package element

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Registry
// =============================================================================

//go:embed registry.yaml
var defaultRegistryYAML []byte

// ErrInvalidRegistry is returned when a registry table fails to parse or
// contains inconsistent entries.
var ErrInvalidRegistry = errors.New("invalid element registry")

// =============================================================================
// Types
// =============================================================================

// registryYAML is the root structure for YAML deserialization.
type registryYAML struct {
	Types         []descriptorYAML  `yaml:"types"`
	Abbreviations map[string]string `yaml:"abbreviations"`
}

type descriptorYAML struct {
	Type      string   `yaml:"type"`
	PrimaryID string   `yaml:"primary_id"`
	Relations []string `yaml:"relations"`
	Component bool     `yaml:"component"`
}

// Descriptor describes one element type.
type Descriptor struct {
	// Type is the variant name.
	Type string

	// PrimaryIDField names the field holding the element's own identifier.
	PrimaryIDField string

	// RelationFields lists the declared foreign-key fields. Elements may
	// carry further "*_id" fields; those are relations too.
	RelationFields []string

	// Component marks types addressed by name in store-level selects.
	Component bool

	// Known is false for descriptors synthesized from the naming convention.
	Known bool
}

// IsRelationField reports whether field is a relation field for this type.
//
// Every "*_id" field other than the primary identifier is a relation,
// declared or not.
func (d Descriptor) IsRelationField(field string) bool {
	return field != d.PrimaryIDField && strings.HasSuffix(field, "_id")
}

// Registry maps element types to their descriptors.
//
// Thread Safety: Safe for concurrent use after construction; it is never
// mutated.
type Registry struct {
	descriptors   map[string]Descriptor
	abbreviations map[string]string
}

// =============================================================================
// Default Registry
// =============================================================================

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the registry parsed from the embedded table.
//
// Panics if the embedded table is malformed, which is a build defect.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg, err := ParseRegistry(defaultRegistryYAML)
		if err != nil {
			panic(fmt.Sprintf("element: embedded registry: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// ParseRegistry parses a registry table.
//
// Description:
//
//	Decodes the YAML table and checks that every entry names a type and
//	that no type appears twice. A missing primary_id defaults to
//	"<type>_id".
//
// Inputs:
//
//	data - YAML document with "types" and "abbreviations" keys.
//
// Outputs:
//
//	*Registry - The parsed registry. Never nil on success.
//	error - Wraps ErrInvalidRegistry on any problem.
func ParseRegistry(data []byte) (*Registry, error) {
	var raw registryYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}

	reg := &Registry{
		descriptors:   make(map[string]Descriptor, len(raw.Types)),
		abbreviations: make(map[string]string, len(raw.Abbreviations)),
	}
	for i, entry := range raw.Types {
		if entry.Type == "" {
			return nil, fmt.Errorf("%w: types[%d] has no type", ErrInvalidRegistry, i)
		}
		if _, dup := reg.descriptors[entry.Type]; dup {
			return nil, fmt.Errorf("%w: type %q listed twice", ErrInvalidRegistry, entry.Type)
		}
		primary := entry.PrimaryID
		if primary == "" {
			primary = entry.Type + "_id"
		}
		relations := make([]string, 0, len(entry.Relations))
		for _, rel := range entry.Relations {
			if rel == primary {
				return nil, fmt.Errorf("%w: %s lists its primary id %q as a relation",
					ErrInvalidRegistry, entry.Type, rel)
			}
			relations = append(relations, rel)
		}
		reg.descriptors[entry.Type] = Descriptor{
			Type:           entry.Type,
			PrimaryIDField: primary,
			RelationFields: relations,
			Component:      entry.Component,
			Known:          true,
		}
	}
	for abbr, typ := range raw.Abbreviations {
		reg.abbreviations[abbr] = typ
	}
	return reg, nil
}

// =============================================================================
// Lookups
// =============================================================================

// Lookup returns the descriptor for typ, synthesizing one from the naming
// convention when the type is not in the table.
func (r *Registry) Lookup(typ string) Descriptor {
	if d, ok := r.descriptors[typ]; ok {
		return d
	}
	return Descriptor{Type: typ, PrimaryIDField: typ + "_id"}
}

// Known reports whether typ is in the table.
func (r *Registry) Known(typ string) bool {
	_, ok := r.descriptors[typ]
	return ok
}

// Types returns the known type names in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.descriptors))
	for t := range r.descriptors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// PrimaryIDField returns the primary identifier field name for typ.
func (r *Registry) PrimaryIDField(typ string) string {
	return r.Lookup(typ).PrimaryIDField
}

// PrimaryID returns e's primary identifier, or "" if it has none.
func (r *Registry) PrimaryID(e *Element) string {
	return e.Str(r.PrimaryIDField(e.Type))
}

// RelationKeys returns e's relation fields holding string values, in
// sorted field order.
func (r *Registry) RelationKeys(e *Element) []string {
	d := r.Lookup(e.Type)
	var fields []string
	for k, v := range e.fields {
		if !d.IsRelationField(k) {
			continue
		}
		if _, ok := v.(string); ok {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	return fields
}

// ResolveAbbreviation maps a short alias to its canonical type name.
// Names without an alias are returned unchanged.
func (r *Registry) ResolveAbbreviation(name string) string {
	if typ, ok := r.abbreviations[name]; ok {
		return typ
	}
	return name
}

// Abbreviations returns a copy of the alias table.
func (r *Registry) Abbreviations() map[string]string {
	out := make(map[string]string, len(r.abbreviations))
	for k, v := range r.abbreviations {
		out[k] = v
	}
	return out
}

// ID returns e's primary identifier using the default registry.
func (e *Element) ID() string {
	return DefaultRegistry().PrimaryID(e)
}

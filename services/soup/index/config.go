// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

// GroupField is the field that partitions elements into subcircuits.
const GroupField = "subcircuit_id"

// Kind names one index kind.
type Kind string

const (
	KindID       Kind = "by_id"
	KindType     Kind = "by_type"
	KindRelation Kind = "by_relation"
	KindGroup    Kind = "by_group"
	KindCustom   Kind = "by_custom_field"
)

// Config selects which index kinds a Set maintains.
//
// The zero value enables nothing. Every kind is independent; a store with
// no index enabled answers every query by linear scan.
type Config struct {
	ByID       bool `yaml:"by_id"`
	ByType     bool `yaml:"by_type"`
	ByRelation bool `yaml:"by_relation"`
	ByGroup    bool `yaml:"by_group"`

	// ByCustomField lists fields indexed by stringified scalar value.
	ByCustomField []string `yaml:"by_custom_field"`
}

// All returns a Config with every kind enabled and the given custom fields.
func All(customFields ...string) Config {
	return Config{
		ByID:          true,
		ByType:        true,
		ByRelation:    true,
		ByGroup:       true,
		ByCustomField: customFields,
	}
}

// Enabled reports whether any index kind is enabled.
func (c Config) Enabled() bool {
	return len(c.Kinds()) > 0
}

// Kinds returns the enabled kinds in a fixed order.
func (c Config) Kinds() []Kind {
	var kinds []Kind
	if c.ByID {
		kinds = append(kinds, KindID)
	}
	if c.ByType {
		kinds = append(kinds, KindType)
	}
	if c.ByRelation {
		kinds = append(kinds, KindRelation)
	}
	if c.ByGroup {
		kinds = append(kinds, KindGroup)
	}
	if len(c.ByCustomField) > 0 {
		kinds = append(kinds, KindCustom)
	}
	return kinds
}

// Has reports whether kind is enabled.
func (c Config) Has(kind Kind) bool {
	for _, k := range c.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

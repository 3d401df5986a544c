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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/index"
)

func TestScenario_InsertThenJoin(t *testing.T) {
	forEachConfig(t, func(t *testing.T, cfg index.Config) {
		s := newStore(t, nil, WithIndex(cfg))

		r1, err := s.SourceComponent().Insert(element.Fields{"name": "R1", "subcircuit_id": "main"})
		require.NoError(t, err)
		assert.Equal(t, "source_component_0", r1.ID())

		left, err := s.SourcePort().Insert(element.Fields{
			"name":                "left",
			"source_component_id": r1.ID(),
		})
		require.NoError(t, err)
		assert.Equal(t, "source_port_0", left.ID())

		assert.Same(t, r1, s.SourceComponent().Get("source_component_0"))

		got, err := s.SourcePort().GetUsing(element.Fields{"source_component_id": "source_component_0"})
		require.NoError(t, err)
		assert.Same(t, left, got)
	})
}

func TestScenario_GroupLookupWithAndWithoutIndex(t *testing.T) {
	var found []*element.Element
	for _, cfg := range []index.Config{{}, {ByGroup: true}} {
		s := newStore(t, nil, WithIndex(cfg))
		_, err := s.SourceComponent().Insert(element.Fields{"name": "R1", "subcircuit_id": "main"})
		require.NoError(t, err)
		_, err = s.PcbComponent().Insert(element.Fields{
			"source_component_id": "source_component_0",
			"center":              map[string]any{"x": 10.0, "y": 20.0},
			"subcircuit_id":       "main",
		})
		require.NoError(t, err)

		e := s.SourceComponent().GetWhere(element.Fields{"subcircuit_id": "main"})
		require.NotNil(t, e)
		found = append(found, e)
	}
	assert.Equal(t, found[0].Fields(), found[1].Fields())
	assert.Equal(t, "source_component_0", found[1].ID())
}

func TestScenario_DeleteOnlyPort(t *testing.T) {
	for _, cfg := range []index.Config{{}, index.All("name")} {
		s := newStore(t, resistorCircuit(), WithIndex(cfg))
		require.True(t, s.SourcePort().Delete("source_port_0"))
		assert.Empty(t, s.SourcePort().List(nil))
	}
}

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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("known type", func(t *testing.T) {
		d := reg.Lookup("pcb_port")
		assert.True(t, d.Known)
		assert.Equal(t, "pcb_port_id", d.PrimaryIDField)
		assert.Contains(t, d.RelationFields, "source_port_id")
		assert.True(t, d.IsRelationField("pcb_component_id"))
		assert.False(t, d.IsRelationField("pcb_port_id"))
		assert.False(t, d.IsRelationField("name"))
	})

	t.Run("unknown type falls back to convention", func(t *testing.T) {
		d := reg.Lookup("pcb_fabrication_note_text")
		assert.False(t, d.Known)
		assert.Equal(t, "pcb_fabrication_note_text_id", d.PrimaryIDField)
	})

	t.Run("component flag", func(t *testing.T) {
		assert.True(t, reg.Lookup("source_component").Component)
		assert.False(t, reg.Lookup("source_port").Component)
	})

	t.Run("abbreviations", func(t *testing.T) {
		assert.Equal(t, "source_port", reg.ResolveAbbreviation("port"))
		assert.Equal(t, "source_net", reg.ResolveAbbreviation("net"))
		assert.Equal(t, "pcb_trace", reg.ResolveAbbreviation("pcb_trace"))
	})

	t.Run("relation keys skip primary and non-strings", func(t *testing.T) {
		e := New("pcb_port", Fields{
			"pcb_port_id":      "pp1",
			"pcb_component_id": "pc1",
			"source_port_id":   "sp1",
			"weird_id":         12.0,
			"name":             "x",
		})
		assert.Equal(t, []string{"pcb_component_id", "source_port_id"}, reg.RelationKeys(e))
	})

	assert.Same(t, reg, DefaultRegistry())
	assert.NotEmpty(t, reg.Types())
}

func TestParseRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "types: [\n"},
		{"missing type", "types:\n  - primary_id: x_id\n"},
		{"duplicate type", "types:\n  - type: a\n  - type: a\n"},
		{"primary listed as relation", "types:\n  - type: a\n    relations: [a_id]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRegistry))
		})
	}
}

func TestParseRegistry_DefaultsPrimaryID(t *testing.T) {
	reg, err := ParseRegistry([]byte("types:\n  - type: widget\n"))
	require.NoError(t, err)
	assert.Equal(t, "widget_id", reg.PrimaryIDField("widget"))
	assert.True(t, reg.Known("widget"))
}

func TestAs(t *testing.T) {
	t.Run("pcb port", func(t *testing.T) {
		e := New("pcb_port", Fields{
			"pcb_port_id":    "pcb_port_0",
			"source_port_id": "source_port_0",
			"x":              1.0,
			"y":              2,
			"layers":         []any{"top", "bottom"},
			"custom":         "kept",
		})
		port, err := As[PcbPort](e)
		require.NoError(t, err)
		assert.Equal(t, "pcb_port_0", port.PcbPortID)
		assert.Equal(t, 2.0, port.Y)
		assert.Equal(t, []string{"top", "bottom"}, port.Layers)
		assert.Equal(t, "kept", port.Extra["custom"])
	})

	t.Run("string where array expected", func(t *testing.T) {
		e := New("pcb_port", Fields{"pcb_port_id": "pcb_port_0", "layers": "top"})
		_, err := As[PcbPort](e)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDecode))
	})

	t.Run("trace route", func(t *testing.T) {
		e := New("pcb_trace", Fields{
			"pcb_trace_id": "pt1",
			"route": []any{
				map[string]any{"x": 0.0, "y": 0.0, "route_type": "wire", "start_pcb_port_id": "pp1"},
				map[string]any{"x": 1.0, "y": 0.0, "route_type": "wire", "end_pcb_port_id": "pp2"},
			},
		})
		trace, err := As[PcbTrace](e)
		require.NoError(t, err)
		require.Len(t, trace.Route, 2)
		assert.Equal(t, "pp1", trace.Route[0].StartPcbPortID)
		assert.Equal(t, "pp2", trace.Route[1].EndPcbPortID)
	})

	t.Run("variant by type", func(t *testing.T) {
		v, err := Variant(New("source_component", Fields{"source_component_id": "sc1", "name": "R1"}))
		require.NoError(t, err)
		sc, ok := v.(*SourceComponent)
		require.True(t, ok)
		assert.Equal(t, "R1", sc.Name)

		_, err = Variant(New("pcb_silkscreen_text", nil))
		assert.True(t, errors.Is(err, ErrUnknownVariant))
		assert.False(t, HasVariant("pcb_silkscreen_text"))
	})
}

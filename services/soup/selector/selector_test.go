// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tscircuit/soup-util/services/soup/element"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Node
	}{
		{"pcb_port", TypeSelector{Name: "pcb_port"}},
		{".R1", ClassSelector{Name: "R1"}},
		{"  .R1  ", ClassSelector{Name: "R1"}},
		{".1", ClassSelector{Name: "1"}},
		{".µF", ClassSelector{Name: "µF"}},
		{"port.left", Compound{Parts: []Node{TypeSelector{Name: "port"}, ClassSelector{Name: "left"}}}},
		{".R1.foo", Compound{Parts: []Node{ClassSelector{Name: "R1"}, ClassSelector{Name: "foo"}}}},
		{".R1 > .left", Complex{Left: ClassSelector{Name: "R1"}, Combinator: ">", Right: ClassSelector{Name: "left"}}},
		{".R1>.left", Complex{Left: ClassSelector{Name: "R1"}, Combinator: ">", Right: ClassSelector{Name: "left"}}},
		{".R1 .left", Complex{Left: ClassSelector{Name: "R1"}, Combinator: " ", Right: ClassSelector{Name: "left"}}},
		{"a > b c", Complex{
			Left:       Complex{Left: TypeSelector{Name: "a"}, Combinator: ">", Right: TypeSelector{Name: "b"}},
			Combinator: " ",
			Right:      TypeSelector{Name: "c"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrInvalidSelector},
		{"   ", ErrInvalidSelector},
		{".", ErrInvalidSelector},
		{".R1 >", ErrInvalidSelector},
		{"> .R1", ErrInvalidSelector},
		{".R1 > > .left", ErrInvalidSelector},
		{"a..b", ErrInvalidSelector},
		{"a)", ErrInvalidSelector},
		{".R1 + .R2", ErrUnsupportedSelector},
		{".R1 ~ .R2", ErrUnsupportedSelector},
		{"#pcb_port_0", ErrUnsupportedSelector},
		{"port[name=left]", ErrUnsupportedSelector},
		{"port:first-child", ErrUnsupportedSelector},
		{"*", ErrUnsupportedSelector},
		{".R1, .R2", ErrUnsupportedSelector},
		{".R1 > *", ErrUnsupportedSelector},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var serr *SyntaxError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.in, serr.Selector)
		})
	}
}

func TestNode_String(t *testing.T) {
	for _, in := range []string{"pcb_port", ".R1", "port.left", ".R1 > .left", "a > b c"} {
		assert.Equal(t, in, MustParse(in).String())
	}
	assert.Equal(t, ".R1 > .left", MustParse(".R1>.left").String())
	assert.Panics(t, func() { MustParse("#x") })
}

// circuit holds R1 with a left and right port, C1 with a port also named
// left, and an unrelated floating port.
func circuit() []*element.Element {
	return []*element.Element{
		element.New("source_component", element.Fields{
			"source_component_id": "source_component_0",
			"name":                "R1",
			"ftype":               "simple_resistor",
		}),
		element.New("source_port", element.Fields{
			"source_port_id":      "source_port_0",
			"source_component_id": "source_component_0",
			"name":                "left",
			"port_hints":          []any{"1", "anode"},
		}),
		element.New("source_port", element.Fields{
			"source_port_id":      "source_port_1",
			"source_component_id": "source_component_0",
			"name":                "right",
			"port_hints":          []any{"2"},
		}),
		element.New("source_component", element.Fields{
			"source_component_id": "source_component_1",
			"name":                "C1",
			"ftype":               "simple_capacitor",
		}),
		element.New("source_port", element.Fields{
			"source_port_id":      "source_port_2",
			"source_component_id": "source_component_1",
			"name":                "left",
		}),
		element.New("source_port", element.Fields{
			"source_port_id": "source_port_3",
			"name":           "left",
		}),
		element.New("pcb_port", element.Fields{
			"pcb_port_id":    "pcb_port_0",
			"source_port_id": "source_port_0",
		}),
	}
}

func ids(elements []*element.Element) []string {
	var out []string
	for _, e := range elements {
		out = append(out, e.ID())
	}
	return out
}

func TestSelect(t *testing.T) {
	tests := []struct {
		selector string
		want     []string
	}{
		{".R1 > .left", []string{"source_port_0"}},
		{".R1 .left", []string{"source_port_0"}},
		{".R1 > port.left", []string{"source_port_0"}},
		{".R1 > .anode", []string{"source_port_0"}},
		{".R1 > .2", []string{"source_port_1"}},
		{".R1 > port", []string{"source_port_0", "source_port_1"}},
		{"source_port.left", []string{"source_port_0", "source_port_2", "source_port_3"}},
		{".left", []string{"source_port_0", "source_port_2", "source_port_3"}},
		{"simple_resistor", []string{"source_component_0"}},
		{"simple_capacitor > .left", []string{"source_port_2"}},
		{"source_component > .left", []string{"source_port_0", "source_port_2"}},
		{".R1 > .left > pcb_port", []string{"pcb_port_0"}},
		{".R2 > .left", nil},
		{"pcb_component", nil},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, err := Select(circuit(), tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSelect_OnlyMatchingPort(t *testing.T) {
	elements := []*element.Element{
		element.New("source_component", element.Fields{
			"source_component_id": "source_component_0",
			"name":                "R1",
		}),
		element.New("source_port", element.Fields{
			"source_port_id":      "source_port_0",
			"source_component_id": "source_component_0",
			"name":                "left",
		}),
		element.New("source_port", element.Fields{
			"source_port_id": "source_port_1",
			"name":           "left",
		}),
	}
	got, err := Select(elements, ".R1 > .left")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Same(t, elements[1], got[0])
}

func TestSelect_Errors(t *testing.T) {
	_, err := Select(circuit(), ".R1 + .left")
	assert.ErrorIs(t, err, ErrUnsupportedSelector)

	_, err = Select(circuit(), ".R1 >")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestMatcher_Apply(t *testing.T) {
	t.Run("children are deduplicated and keep input order", func(t *testing.T) {
		elements := []*element.Element{
			element.New("source_net", element.Fields{"source_net_id": "n1", "name": "GND"}),
			element.New("source_net", element.Fields{"source_net_id": "n2", "name": "GND"}),
			element.New("source_trace", element.Fields{"source_trace_id": "t1", "source_net_id": "n2", "name": "x"}),
			element.New("source_trace", element.Fields{"source_trace_id": "t2", "source_net_id": "n1", "name": "x"}),
		}
		got := Default().Apply(elements, MustParse(".GND > .x"))
		assert.Equal(t, []string{"t1", "t2"}, ids(got))
	})

	t.Run("custom abbreviations", func(t *testing.T) {
		m := NewMatcher(WithAbbreviations(Abbreviations{"res": "simple_resistor"}))
		got := m.Apply(circuit(), MustParse("res"))
		assert.Equal(t, []string{"source_component_0"}, ids(got))
		assert.Empty(t, m.Apply(circuit(), MustParse("port")), "default aliases replaced")
	})

	t.Run("nil entries skipped", func(t *testing.T) {
		got := Default().Apply([]*element.Element{nil, circuit()[0]}, MustParse(".R1"))
		assert.Len(t, got, 1)
	})

	t.Run("parent without an id has no children", func(t *testing.T) {
		elements := []*element.Element{
			element.New("source_component", element.Fields{"name": "R1"}),
			element.New("source_port", element.Fields{"name": "left"}),
		}
		assert.Empty(t, Default().Apply(elements, MustParse(".R1 > .left")))
	})
}

func TestMatcher_Resolve(t *testing.T) {
	m := Default()
	assert.Equal(t, "source_port", m.Resolve("port"))
	assert.Equal(t, "source_net", m.Resolve("net"))
	assert.Equal(t, "pcb_port", m.Resolve("pcb_port"))
}

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
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/index"
)

var (
	replayTypes  = []string{"source_component", "source_port", "pcb_component", "pcb_port"}
	replayNames  = []any{"R1", "R2", "left", "right", 7.0}
	replayGroups = []any{"main", "aux", nil}
	// replayOddIDs are explicit ids the counter cannot parse, plus the
	// empty id, which asks for an auto id.
	replayOddIDs = []string{"", "odd", "x_9b"}
)

// replayCircuit seeds the replay with elements whose ids the indexes
// cannot file (empty) or the counter cannot parse.
func replayCircuit() []*element.Element {
	return append(resistorCircuit(),
		element.New("pcb_component", element.Fields{
			"pcb_component_id":    "pc_main",
			"source_component_id": "simple_resistor_0",
			"subcircuit_id":       "main",
		}),
		element.New("pcb_port", element.Fields{
			"pcb_port_id":      "",
			"pcb_component_id": "pc_main",
			"name":             "left",
		}),
		element.New("pcb_port", element.Fields{
			"pcb_port_id":      "pcb_port_7b",
			"pcb_component_id": "pc_main",
			"source_port_id":   "source_port_0",
		}),
		element.New("source_port", element.Fields{
			"source_port_id":      "",
			"source_component_id": "",
		}),
	)
}

// replayStep is one randomly chosen operation, applied identically to
// every store under test.
type replayStep struct {
	op    string
	typ   string
	id    string
	patch element.Fields
}

func randomStep(r *rand.Rand, known []string) replayStep {
	typ := replayTypes[r.IntN(len(replayTypes))]
	fields := element.Fields{"name": replayNames[r.IntN(len(replayNames))]}
	if g := replayGroups[r.IntN(len(replayGroups))]; g != nil {
		fields["subcircuit_id"] = g
	}
	if len(known) > 0 && r.IntN(2) == 0 {
		fields["source_component_id"] = known[r.IntN(len(known))]
	}
	if len(known) > 0 && r.IntN(3) == 0 {
		fields["pcb_component_id"] = known[r.IntN(len(known))]
	}

	pickID := func() string {
		if len(known) == 0 || r.IntN(5) == 0 {
			return fmt.Sprintf("%s_%d", typ, r.IntN(20))
		}
		return known[r.IntN(len(known))]
	}

	switch r.IntN(4) {
	case 0, 1:
		if r.IntN(6) == 0 {
			fields[typ+"_id"] = replayOddIDs[r.IntN(len(replayOddIDs))]
		}
		return replayStep{op: "insert", typ: typ, patch: fields}
	case 2:
		if r.IntN(3) == 0 {
			fields["subcircuit_id"] = nil
		}
		return replayStep{op: "update", typ: typ, id: pickID(), patch: fields}
	default:
		return replayStep{op: "delete", typ: typ, id: pickID()}
	}
}

// queries returns the filters compared after every step.
func replayQueries(known []string) []element.Fields {
	qs := []element.Fields{
		nil,
		{"subcircuit_id": "main"},
		{"subcircuit_id": "aux"},
		{"name": "R1"},
		{"name": 7},
		{"name": "left", "subcircuit_id": "main"},
	}
	for _, id := range known {
		qs = append(qs, element.Fields{"source_component_id": id})
	}
	qs = append(qs,
		element.Fields{"source_component_id": ""},
		element.Fields{"pcb_component_id": ""},
	)
	return qs
}

// primaryQueries filters typ by its primary id: the newest live ids, the
// empty id and one that never exists.
func primaryQueries(s *Store, typ string) []element.Fields {
	field := s.Registry().PrimaryIDField(typ)
	qs := []element.Fields{
		{field: ""},
		{field: typ + "_missing"},
		{field: "", "name": "left"},
	}
	live := s.Type(typ).List(nil)
	if len(live) > 8 {
		live = live[len(live)-8:]
	}
	for _, e := range live {
		qs = append(qs, element.Fields{field: e.ID()})
	}
	return qs
}

// joinQueries are GetUsing keys through source and pcb components.
func joinQueries(s *Store) []element.Fields {
	qs := []element.Fields{
		{"source_component_id": ""},
		{"pcb_component_id": ""},
		{"pcb_component_id": "missing"},
	}
	for _, e := range s.SourceComponent().List(nil) {
		qs = append(qs, element.Fields{"source_component_id": e.ID()})
	}
	for _, e := range s.PcbComponent().List(nil) {
		qs = append(qs, element.Fields{"pcb_component_id": e.ID()})
	}
	return qs
}

// TestIndexEquivalence replays random operations against stores with
// different index configurations and checks every observable result is
// identical.
func TestIndexEquivalence(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			r := rand.New(rand.NewPCG(seed, seed*31))

			names := []string{"none", "by_id", "by_type", "relation", "group", "custom", "all"}
			stores := make([]*Store, len(names))
			for i, name := range names {
				s, err := New(context.Background(), replayCircuit(), WithIndex(indexConfigs[name]))
				require.NoError(t, err)
				stores[i] = s
			}
			ref := stores[0]

			for step := 0; step < 300; step++ {
				known := idsOf(ref, ref.Elements())
				st := randomStep(r, known)

				var want string
				for i, s := range stores {
					got := applyStep(s, st)
					if i == 0 {
						want = got
						continue
					}
					require.Equal(t, want, got, "step %d %+v on %s", step, st, names[i])
				}

				for _, s := range stores[1:] {
					assertSameView(t, ref, s, replayQueries(known), step)
				}
			}
		})
	}
}

// applyStep runs st and returns a printable outcome.
func applyStep(s *Store, st replayStep) string {
	v := s.Type(st.typ)
	switch st.op {
	case "insert":
		e, err := v.Insert(st.patch)
		if err != nil {
			return "error: " + err.Error()
		}
		return e.ID()
	case "update":
		e := v.Update(st.id, st.patch)
		if e == nil {
			return "nil"
		}
		return e.ID()
	default:
		return fmt.Sprint(v.Delete(st.id))
	}
}

func assertSameView(t *testing.T, ref, s *Store, queries []element.Fields, step int) {
	t.Helper()
	require.Equal(t, idsOf(ref, ref.Elements()), idsOf(s, s.Elements()), "step %d collection", step)

	joins := joinQueries(ref)
	for _, typ := range replayTypes {
		rv, sv := ref.Type(typ), s.Type(typ)
		for _, q := range append(queries, primaryQueries(ref, typ)...) {
			require.Equal(t, idsOf(ref, rv.List(q)), idsOf(s, sv.List(q)),
				"step %d %s.List(%v)", step, typ, q)
			assertSameElement(t, ref, s, rv.GetWhere(q), sv.GetWhere(q),
				"step %d %s.GetWhere(%v)", step, typ, q)
		}
		for _, q := range joins {
			want, werr := rv.GetUsing(q)
			got, gerr := sv.GetUsing(q)
			require.NoError(t, werr)
			require.NoError(t, gerr)
			assertSameElement(t, ref, s, want, got, "step %d %s.GetUsing(%v)", step, typ, q)
		}
		for _, e := range rv.List(nil) {
			if e.ID() == "" {
				continue
			}
			require.NotNil(t, sv.Get(e.ID()))
		}
	}
}

// assertSameElement checks want and got sit at the same position of
// their collections, or are both nil.
func assertSameElement(t *testing.T, ref, s *Store, want, got *element.Element, msg string, args ...any) {
	t.Helper()
	require.Equal(t, want == nil, got == nil, append([]any{msg}, args...)...)
	if want != nil {
		require.Equal(t, ref.position(want), s.position(got), append([]any{msg}, args...)...)
	}
}

func TestIDUniqueness(t *testing.T) {
	forEachConfig(t, func(t *testing.T, cfg index.Config) {
		s := newStore(t, nil, WithIndex(cfg))
		r := rand.New(rand.NewPCG(7, 11))

		for i := 0; i < 200; i++ {
			typ := replayTypes[r.IntN(len(replayTypes))]
			fields := element.Fields{}
			if r.IntN(3) == 0 {
				fields[typ+"_id"] = fmt.Sprintf("%s_%d", typ, r.IntN(50))
			}
			_, _ = s.Type(typ).Insert(fields)
		}

		seen := map[string]bool{}
		for _, e := range s.Elements() {
			key := e.Type + "/" + e.ID()
			assert.False(t, seen[key], "duplicate %s", key)
			seen[key] = true
		}
	})
}

func TestAutoIDMonotonicity(t *testing.T) {
	forEachConfig(t, func(t *testing.T, cfg index.Config) {
		s := newStore(t, []*element.Element{
			element.New("pcb_port", element.Fields{"pcb_port_id": "pcb_port_3"}),
		}, WithIndex(cfg))
		v := s.PcbPort()

		last := 3
		for i := 0; i < 20; i++ {
			e, err := v.Insert(nil)
			require.NoError(t, err)
			n, ok := element.ParseIDSuffix(e.ID())
			require.True(t, ok)
			assert.Equal(t, last+1, n)
			last = n

			// Deleting never rewinds the counter.
			if i%4 == 0 {
				require.True(t, v.Delete(e.ID()))
			}
		}
	})
}

func TestDeleteCompleteness(t *testing.T) {
	forEachConfig(t, func(t *testing.T, cfg index.Config) {
		s := newStore(t, []*element.Element{
			element.New("source_component", element.Fields{
				"source_component_id": "source_component_0",
				"name":                "R1",
				"subcircuit_id":       "main",
				"source_group_id":     "g",
			}),
		}, WithIndex(cfg))
		e := s.SourceComponent().Get("source_component_0")
		require.NotNil(t, e)

		require.True(t, s.SourceComponent().Delete("source_component_0"))

		for _, q := range []element.Fields{
			nil,
			{"name": "R1"},
			{"subcircuit_id": "main"},
			{"source_group_id": "g"},
			{"source_component_id": "source_component_0"},
		} {
			assert.Empty(t, s.SourceComponent().List(q), "%v", q)
		}
		if s.idx != nil {
			assert.False(t, s.idx.Contains(e))
			st := s.idx.Stats()
			assert.Zero(t, st.IDKeys+st.Types+st.RelationKeys+st.Groups+st.CustomKeys)
		}
	})
}

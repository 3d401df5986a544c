// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tscircuit/soup-util/services/soup/geometry"
	"github.com/tscircuit/soup-util/services/soup/readable"
	"github.com/tscircuit/soup-util/services/soup/selector"
)

// --- Lookups ---

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <type> <id>",
		Short:   "Get an element by its primary id",
		Example: "  soup -f board.json get pcb_port pcb_port_0",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			return a.emitOne(args[0], s.Type(args[0]).Get(args[1]))
		},
	}
}

func (a *app) whereCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "where <type> key=value...",
		Short:   "Get the first element whose fields all match",
		Example: `  soup -f board.json where source_component name=R1 ftype=simple_resistor`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := parseWhere(args[1:])
			if err != nil {
				return err
			}
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			return a.emitOne(args[0], s.Type(args[0]).GetWhere(where))
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <type> [key=value...]",
		Short:   "List elements of a type, optionally filtered",
		Example: "  soup -f board.json list source_port source_component_id=source_component_0",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := parseWhere(args[1:])
			if err != nil {
				return err
			}
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			return a.emitMany(args[0], s.Type(args[0]).List(where))
		},
	}
}

func (a *app) usingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "using <type> key=value",
		Short: "Join to an element through a related element's id",
		Long: `using looks up the element named by key's prefix (pcb_component for
pcb_component_id) and follows its <type>_id field into <type>.`,
		Example: "  soup -f board.json using source_component pcb_component_id=pcb_component_0",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := parseWhere(args[1:])
			if err != nil {
				return err
			}
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			e, err := s.Type(args[0]).GetUsing(where)
			if err != nil {
				return err
			}
			return a.emitOne(args[0], e)
		},
	}
}

// --- Selectors ---

func (a *app) selectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <selector>",
		Short: "Select elements with a CSS-like selector",
		Long: `Selectors combine type or ftype names (or aliases such as "port"),
.name classes, descendant (space) and child (>) combinators:

  soup select "simple_resistor"
  soup select ".R1 > port.left"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			m := selector.NewMatcher(selector.WithRegistry(s.Registry()))
			matched, err := m.Select(s.Elements(), args[0])
			if err != nil {
				return err
			}
			return a.emitMany(args[0], matched)
		},
	}
}

func (a *app) findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <type> <selector>",
		Short: "Find one element of a type by component or port path",
		Example: `  soup -f board.json find source_component .R1
  soup -f board.json find pcb_port ".R1 > .left"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			return a.emitOne(args[0], s.Type(args[0]).Select(args[1]))
		},
	}
}

// --- Derived views ---

func (a *app) nameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name <id>...",
		Short: "Print readable names for element ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			names := make(map[string]string, len(args))
			for _, id := range args {
				names[id] = readable.ByID(s, id)
			}
			if len(args) == 1 {
				return a.emit("name", names[args[0]])
			}
			return a.emit("names", names)
		},
	}
}

// boundsOutput is the bounds command's JSON shape. Bounds is null when
// no pcb element is positioned.
type boundsOutput struct {
	Bounds *geometry.Bounds `json:"bounds"`
	Extent geometry.Extent  `json:"extent"`
}

func (a *app) boundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bounds",
		Short: "Print the board extent of pcb elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			out := boundsOutput{Extent: geometry.FindBoundsAndCenter(s.Elements())}
			if b := geometry.PcbBounds(s.Elements()); !b.Empty() {
				out.Bounds = &b
			}
			return a.emit("bounds", out)
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print element counts and index sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			kinds := s.Options().Index.Kinds()
			labels := make([]string, len(kinds))
			for i, k := range kinds {
				labels[i] = string(k)
			}
			title := "stats"
			if len(labels) > 0 {
				title = fmt.Sprintf("stats [%s]", strings.Join(labels, ", "))
			}
			return a.emit(title, s.Stats())
		},
	}
}

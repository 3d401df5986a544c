// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package readable renders human-oriented names for circuit elements, such
// as "pcb_port[.R1 > .1]", for error messages and CLI output.
//
// Every function returns a name; lookups that fail fall back to a name
// built from the element's id.
package readable

import (
	"fmt"
	"strings"

	"github.com/tscircuit/soup-util/services/soup/element"
	"github.com/tscircuit/soup-util/services/soup/store"
)

// ByID names the element of any type whose primary id is id.
func ByID(s *store.Store, id string) string {
	e := s.ElementByID(id)
	if e == nil {
		return fmt.Sprintf("unknown (could not find element with id %s)", id)
	}
	return Name(s, e)
}

// Name names e, which should belong to s.
func Name(s *store.Store, e *element.Element) string {
	switch e.Type {
	case "pcb_port":
		return PcbPort(s, e.Str("pcb_port_id"))
	case "pcb_smtpad":
		return PcbSmtpad(s, e.Str("pcb_smtpad_id"))
	case "pcb_trace":
		return PcbTrace(s, e.Str("pcb_trace_id"))
	case "source_component":
		return fmt.Sprintf("source_component[%s]", e.Str("name"))
	}
	return fmt.Sprintf("%s[#%s]", e.Type, s.Registry().PrimaryID(e))
}

// PcbPort names a pcb port by its component and first port hint, e.g.
// "pcb_port[.R1 > .1]".
func PcbPort(s *store.Store, id string) string {
	fallback := fmt.Sprintf("pcb_port[#%s]", id)

	port := s.PcbPort().Get(id)
	if port == nil {
		return fallback
	}
	comp, source, ok := portOwner(s, port)
	if !ok || source == nil {
		return fallback
	}

	hint := id
	if hints := source.Strings("port_hints"); len(hints) > 0 {
		hint = hints[0]
	}
	return fmt.Sprintf("pcb_port[.%s > .%s]", comp.Str("name"), hint)
}

// PcbSmtpad names a pad by the pcb port it belongs to, or "smtpad[id]".
func PcbSmtpad(s *store.Store, id string) string {
	pad := s.PcbSmtpad().Get(id)
	if pad == nil || pad.Str("pcb_port_id") == "" {
		return fmt.Sprintf("smtpad[%s]", id)
	}
	return PcbPort(s, pad.Str("pcb_port_id"))
}

// PcbTrace names a trace by the ports its route starts and ends at, e.g.
// "trace[.R1 > port.left, .C1 > port.positive]".
func PcbTrace(s *store.Store, id string) string {
	fallback := fmt.Sprintf("trace[%s]", id)

	e := s.PcbTrace().Get(id)
	if e == nil {
		return fallback
	}
	trace, err := element.As[element.PcbTrace](e)
	if err != nil {
		return fallback
	}

	var portIDs []string
	for _, p := range trace.Route {
		for _, pid := range []string{p.StartPcbPortID, p.EndPcbPortID} {
			if pid != "" {
				portIDs = append(portIDs, pid)
			}
		}
	}
	if len(portIDs) == 0 {
		return fallback
	}

	parts := make([]string, len(portIDs))
	for i, pid := range portIDs {
		parts[i] = tracePortPart(s, pid)
	}
	return fmt.Sprintf("trace[%s]", strings.Join(parts, ", "))
}

// tracePortPart names one trace endpoint by component and second port
// hint (the first is usually the pin number).
func tracePortPart(s *store.Store, pcbPortID string) string {
	port := s.PcbPort().Get(pcbPortID)
	if port == nil {
		return fmt.Sprintf("port[%s]", pcbPortID)
	}
	comp, source, ok := portOwner(s, port)
	if !ok {
		return fmt.Sprintf("port[%s]", pcbPortID)
	}

	hint := ""
	if source != nil {
		if hints := source.Strings("port_hints"); len(hints) > 1 {
			hint = hints[1]
		}
	}
	return fmt.Sprintf(".%s > port.%s", comp.Str("name"), hint)
}

// portOwner walks pcb_port -> pcb_component -> source_component, and
// looks up the port's source_port. ok is false when the component chain
// breaks; source may be nil on its own.
func portOwner(s *store.Store, port *element.Element) (comp, source *element.Element, ok bool) {
	pcbComp := s.PcbComponent().Get(port.Str("pcb_component_id"))
	if pcbComp == nil {
		return nil, nil, false
	}
	comp = s.SourceComponent().Get(pcbComp.Str("source_component_id"))
	if comp == nil {
		return nil, nil, false
	}
	return comp, s.SourcePort().Get(port.Str("source_port_id")), true
}

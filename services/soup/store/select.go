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
	"regexp"
	"strings"

	"github.com/tscircuit/soup-util/services/soup/element"
)

// portPathSeparator splits "R1 > left" and ".R1 .left" alike.
var portPathSeparator = regexp.MustCompile(`[\s>]+`)

// Select resolves a short selector against this view.
//
// Description:
//
//	For component types the dots are stripped and the rest is matched
//	against "name" (".R1" finds R1). For source_port, pcb_port and
//	schematic_port the selector names a component and a port
//	(".R1 > .left"). The port is found by name or port hint on the
//	component's source ports, then mapped to this view's type through
//	source_port_id. Other types never match.
//
// Outputs:
//
//	*element.Element - The element, or nil when any hop fails.
func (v *View) Select(selector string) *element.Element {
	if v.desc.Component {
		return v.GetWhere(element.Fields{"name": strings.ReplaceAll(selector, ".", "")})
	}

	switch v.typ {
	case "source_port", "pcb_port", "schematic_port":
	default:
		return nil
	}

	path := strings.TrimSpace(strings.ReplaceAll(selector, ".", ""))
	parts := portPathSeparator.Split(path, -1)
	if len(parts) < 2 {
		return nil
	}
	componentName, portName := parts[0], parts[1]

	s := v.store
	component := s.SourceComponent().GetWhere(element.Fields{"name": componentName})
	if component == nil {
		return nil
	}
	componentID := s.registry.PrimaryID(component)

	var sourcePort *element.Element
	for _, p := range s.SourcePort().List(element.Fields{"source_component_id": componentID}) {
		if p.Str("name") == portName || p.Contains("port_hints", portName) {
			sourcePort = p
			break
		}
	}
	if sourcePort == nil {
		return nil
	}
	if v.typ == "source_port" {
		return sourcePort
	}
	return v.GetWhere(element.Fields{"source_port_id": s.registry.PrimaryID(sourcePort)})
}

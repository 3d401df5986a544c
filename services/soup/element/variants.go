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

// Typed views of the common element variants. Fields not listed land in
// Extra. Validation tags are read by the schema package.

// Point is a 2D coordinate.
type Point struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `mapstructure:"width" validate:"gte=0"`
	Height float64 `mapstructure:"height" validate:"gte=0"`
}

// SourceComponent is a logical component (resistor, capacitor, chip, ...).
type SourceComponent struct {
	Type              string         `mapstructure:"type" validate:"eq=source_component"`
	SourceComponentID string         `mapstructure:"source_component_id" validate:"required"`
	Name              string         `mapstructure:"name" validate:"required"`
	Ftype             string         `mapstructure:"ftype"`
	SubcircuitID      string         `mapstructure:"subcircuit_id"`
	SourceGroupID     string         `mapstructure:"source_group_id"`
	DisplayValue      string         `mapstructure:"display_value"`
	Extra             map[string]any `mapstructure:",remain"`
}

// SourcePort is a logical connection point on a source component.
type SourcePort struct {
	Type              string         `mapstructure:"type" validate:"eq=source_port"`
	SourcePortID      string         `mapstructure:"source_port_id" validate:"required"`
	SourceComponentID string         `mapstructure:"source_component_id"`
	Name              string         `mapstructure:"name" validate:"required"`
	PinNumber         float64        `mapstructure:"pin_number" validate:"gte=0"`
	PortHints         []string       `mapstructure:"port_hints"`
	SubcircuitID      string         `mapstructure:"subcircuit_id"`
	Extra             map[string]any `mapstructure:",remain"`
}

// SourceNet is a named net.
type SourceNet struct {
	Type         string         `mapstructure:"type" validate:"eq=source_net"`
	SourceNetID  string         `mapstructure:"source_net_id" validate:"required"`
	Name         string         `mapstructure:"name" validate:"required"`
	MemberGroups []string       `mapstructure:"member_source_group_ids"`
	IsGround     bool           `mapstructure:"is_ground"`
	IsPower      bool           `mapstructure:"is_power"`
	SubcircuitID string         `mapstructure:"subcircuit_id"`
	Extra        map[string]any `mapstructure:",remain"`
}

// SourceTrace is a logical connection between ports and nets.
type SourceTrace struct {
	Type                   string         `mapstructure:"type" validate:"eq=source_trace"`
	SourceTraceID          string         `mapstructure:"source_trace_id" validate:"required"`
	ConnectedSourcePortIDs []string       `mapstructure:"connected_source_port_ids"`
	ConnectedSourceNetIDs  []string       `mapstructure:"connected_source_net_ids"`
	SubcircuitID           string         `mapstructure:"subcircuit_id"`
	Extra                  map[string]any `mapstructure:",remain"`
}

// PcbComponent places a source component on the board.
type PcbComponent struct {
	Type              string         `mapstructure:"type" validate:"eq=pcb_component"`
	PcbComponentID    string         `mapstructure:"pcb_component_id" validate:"required"`
	SourceComponentID string         `mapstructure:"source_component_id"`
	Center            Point          `mapstructure:"center"`
	Width             float64        `mapstructure:"width" validate:"gte=0"`
	Height            float64        `mapstructure:"height" validate:"gte=0"`
	Rotation          float64        `mapstructure:"rotation"`
	Layer             string         `mapstructure:"layer" validate:"omitempty,layer"`
	SubcircuitID      string         `mapstructure:"subcircuit_id"`
	Extra             map[string]any `mapstructure:",remain"`
}

// PcbPort is a board-level connection point.
type PcbPort struct {
	Type           string         `mapstructure:"type" validate:"eq=pcb_port"`
	PcbPortID      string         `mapstructure:"pcb_port_id" validate:"required"`
	PcbComponentID string         `mapstructure:"pcb_component_id"`
	SourcePortID   string         `mapstructure:"source_port_id"`
	X              float64        `mapstructure:"x"`
	Y              float64        `mapstructure:"y"`
	Layers         []string       `mapstructure:"layers" validate:"required,min=1,dive,layer"`
	SubcircuitID   string         `mapstructure:"subcircuit_id"`
	Extra          map[string]any `mapstructure:",remain"`
}

// PcbSmtpad is a surface-mount pad.
type PcbSmtpad struct {
	Type           string         `mapstructure:"type" validate:"eq=pcb_smtpad"`
	PcbSmtpadID    string         `mapstructure:"pcb_smtpad_id" validate:"required"`
	PcbComponentID string         `mapstructure:"pcb_component_id"`
	PcbPortID      string         `mapstructure:"pcb_port_id"`
	Shape          string         `mapstructure:"shape" validate:"required,oneof=rect circle rotated_rect pill polygon"`
	X              float64        `mapstructure:"x"`
	Y              float64        `mapstructure:"y"`
	Width          float64        `mapstructure:"width" validate:"gte=0"`
	Height         float64        `mapstructure:"height" validate:"gte=0"`
	Radius         float64        `mapstructure:"radius" validate:"gte=0"`
	Layer          string         `mapstructure:"layer" validate:"required,layer"`
	PortHints      []string       `mapstructure:"port_hints"`
	SubcircuitID   string         `mapstructure:"subcircuit_id"`
	Extra          map[string]any `mapstructure:",remain"`
}

// RoutePoint is one vertex of a pcb trace route.
type RoutePoint struct {
	RouteType      string  `mapstructure:"route_type" validate:"omitempty,oneof=wire via"`
	X              float64 `mapstructure:"x"`
	Y              float64 `mapstructure:"y"`
	Width          float64 `mapstructure:"width" validate:"gte=0"`
	Layer          string  `mapstructure:"layer" validate:"omitempty,layer"`
	FromLayer      string  `mapstructure:"from_layer" validate:"omitempty,layer"`
	ToLayer        string  `mapstructure:"to_layer" validate:"omitempty,layer"`
	StartPcbPortID string  `mapstructure:"start_pcb_port_id"`
	EndPcbPortID   string  `mapstructure:"end_pcb_port_id"`
}

// PcbTrace is a routed copper trace.
type PcbTrace struct {
	Type           string         `mapstructure:"type" validate:"eq=pcb_trace"`
	PcbTraceID     string         `mapstructure:"pcb_trace_id" validate:"required"`
	SourceTraceID  string         `mapstructure:"source_trace_id"`
	PcbComponentID string         `mapstructure:"pcb_component_id"`
	Route          []RoutePoint   `mapstructure:"route" validate:"required,min=1,dive"`
	SubcircuitID   string         `mapstructure:"subcircuit_id"`
	Extra          map[string]any `mapstructure:",remain"`
}

// SchematicComponent places a source component on the schematic.
type SchematicComponent struct {
	Type                 string         `mapstructure:"type" validate:"eq=schematic_component"`
	SchematicComponentID string         `mapstructure:"schematic_component_id" validate:"required"`
	SourceComponentID    string         `mapstructure:"source_component_id"`
	Center               Point          `mapstructure:"center"`
	Size                 Size           `mapstructure:"size"`
	Rotation             float64        `mapstructure:"rotation"`
	SubcircuitID         string         `mapstructure:"subcircuit_id"`
	Extra                map[string]any `mapstructure:",remain"`
}

// SchematicPort is a schematic-level connection point.
type SchematicPort struct {
	Type                 string         `mapstructure:"type" validate:"eq=schematic_port"`
	SchematicPortID      string         `mapstructure:"schematic_port_id" validate:"required"`
	SchematicComponentID string         `mapstructure:"schematic_component_id"`
	SourcePortID         string         `mapstructure:"source_port_id"`
	Center               Point          `mapstructure:"center"`
	FacingDirection      string         `mapstructure:"facing_direction" validate:"omitempty,oneof=up down left right"`
	SubcircuitID         string         `mapstructure:"subcircuit_id"`
	Extra                map[string]any `mapstructure:",remain"`
}

// variantFactories builds an empty typed variant per known type.
var variantFactories = map[string]func() any{
	"source_component":    func() any { return &SourceComponent{} },
	"source_port":         func() any { return &SourcePort{} },
	"source_net":          func() any { return &SourceNet{} },
	"source_trace":        func() any { return &SourceTrace{} },
	"pcb_component":       func() any { return &PcbComponent{} },
	"pcb_port":            func() any { return &PcbPort{} },
	"pcb_smtpad":          func() any { return &PcbSmtpad{} },
	"pcb_trace":           func() any { return &PcbTrace{} },
	"schematic_component": func() any { return &SchematicComponent{} },
	"schematic_port":      func() any { return &SchematicPort{} },
}

// HasVariant reports whether typ has a typed view.
func HasVariant(typ string) bool {
	_, ok := variantFactories[typ]
	return ok
}

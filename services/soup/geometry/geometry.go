// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package geometry computes board-space extents of pcb elements.
package geometry

import (
	"math"
	"strings"

	"github.com/tscircuit/soup-util/services/soup/element"
)

// defaultRouteWidth is the footprint of a route point without a width.
const defaultRouteWidth = 0.1

// Bounds is an axis-aligned box. An empty input yields +Inf minimums and
// -Inf maximums.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Empty reports whether no element contributed to b.
func (b Bounds) Empty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Extent is a center point and the size of the box around it.
type Extent struct {
	Center Point   `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PcbBounds returns the box covering every pcb element's anchor point.
//
// Description:
//
//	Elements with x and y extend the box by their point, by x+width and
//	y+height when sized, and by their radius on every side when round.
//	Traces extend it by each route vertex. Non-pcb elements and elements
//	positioned only by "center" are ignored.
//
// Inputs:
//
//	elements - Any element collection.
//
// Outputs:
//
//	Bounds - The box; see Bounds.Empty for inputs with no pcb geometry.
func PcbBounds(elements []*element.Element) Bounds {
	b := Bounds{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
	for _, e := range elements {
		if e == nil || !strings.HasPrefix(e.Type, "pcb_") {
			continue
		}
		x, okX := e.Float("x")
		y, okY := e.Float("y")
		if okX && okY {
			b.add(x, y)
			if w, ok := e.Float("width"); ok {
				b.MaxX = math.Max(b.MaxX, x+w)
			}
			if h, ok := e.Float("height"); ok {
				b.MaxY = math.Max(b.MaxY, y+h)
			}
			if r, ok := e.Float("radius"); ok {
				b.add(x-r, y-r)
				b.add(x+r, y+r)
			}
			continue
		}
		if e.Type == "pcb_trace" {
			for _, p := range route(e) {
				b.add(p.X, p.Y)
			}
		}
	}
	return b
}

func (b *Bounds) add(x, y float64) {
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
}

// box is a centered rectangle.
type box struct {
	x, y, w, h float64
}

// FindBoundsAndCenter returns the extent covering the footprint of every
// pcb element and trace vertex.
//
// Description:
//
//	Each positioned pcb element (x/y or center) contributes a rectangle of
//	its width and height centered on its position. Each trace vertex
//	contributes a square of its width, or 0.1 when it has none. An input
//	with nothing positioned yields the zero Extent.
//
// Example:
//
//	ext := geometry.FindBoundsAndCenter(s.Elements())
//	fmt.Printf("%.2f x %.2f at (%.2f, %.2f)\n", ext.Width, ext.Height, ext.Center.X, ext.Center.Y)
func FindBoundsAndCenter(elements []*element.Element) Extent {
	var boxes []box
	for _, e := range elements {
		if e == nil || !strings.HasPrefix(e.Type, "pcb_") {
			continue
		}
		if b, ok := elementBox(e); ok {
			boxes = append(boxes, b)
		}
	}
	for _, e := range elements {
		if e == nil || e.Type != "pcb_trace" {
			continue
		}
		for _, p := range route(e) {
			w := p.Width
			if w <= 0 {
				w = defaultRouteWidth
			}
			boxes = append(boxes, box{x: p.X, y: p.Y, w: w, h: w})
		}
	}
	if len(boxes) == 0 {
		return Extent{}
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, b := range boxes {
		minX = math.Min(minX, b.x-b.w/2)
		maxX = math.Max(maxX, b.x+b.w/2)
		minY = math.Min(minY, b.y-b.h/2)
		maxY = math.Max(maxY, b.y+b.h/2)
	}
	width, height := maxX-minX, maxY-minY
	return Extent{
		Center: Point{X: minX + width/2, Y: minY + height/2},
		Width:  width,
		Height: height,
	}
}

// elementBox reads an element's position and size. Position comes from x
// and y, falling back to center.
func elementBox(e *element.Element) (box, bool) {
	var b box
	x, okX := e.Float("x")
	y, okY := e.Float("y")
	if okX && okY {
		b.x, b.y = x, y
	} else if c, ok := e.Get("center"); ok {
		var center map[string]any
		switch v := c.(type) {
		case map[string]any:
			center = v
		case element.Fields:
			center = v
		default:
			return box{}, false
		}
		cx, okX := element.Number(center["x"])
		cy, okY := element.Number(center["y"])
		if !okX || !okY {
			return box{}, false
		}
		b.x, b.y = cx, cy
	} else {
		return box{}, false
	}
	b.w, _ = e.Float("width")
	b.h, _ = e.Float("height")
	return b, true
}

// route decodes a trace's vertices. Traces whose route does not decode
// contribute nothing.
func route(e *element.Element) []element.RoutePoint {
	trace, err := element.As[element.PcbTrace](e)
	if err != nil {
		return nil
	}
	return trace.Route
}

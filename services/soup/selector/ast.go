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

import "strings"

// Node is a parsed selector. Nodes are immutable and safe to reuse.
type Node interface {
	// String renders the node in canonical selector syntax.
	String() string

	node()
}

// TypeSelector matches on element type, e.g. "pcb_port" or "port".
type TypeSelector struct {
	Name string
}

// ClassSelector matches on name or port hint, e.g. ".R1".
type ClassSelector struct {
	Name string
}

// Compound requires every part to match the same element, e.g.
// "port.left". Parts are TypeSelector or ClassSelector values; a type
// selector, if any, comes first.
type Compound struct {
	Parts []Node
}

// Complex selects among the children of the elements Left matches,
// e.g. ".R1 > .left". Whitespace and ">" behave the same.
type Complex struct {
	Left       Node
	Combinator string // " " or ">"
	Right      Node
}

func (TypeSelector) node()  {}
func (ClassSelector) node() {}
func (Compound) node()      {}
func (Complex) node()       {}

func (s TypeSelector) String() string { return s.Name }

func (s ClassSelector) String() string { return "." + s.Name }

func (s Compound) String() string {
	var b strings.Builder
	for _, p := range s.Parts {
		b.WriteString(p.String())
	}
	return b.String()
}

func (s Complex) String() string {
	if s.Combinator == ">" {
		return s.Left.String() + " > " + s.Right.String()
	}
	return s.Left.String() + " " + s.Right.String()
}

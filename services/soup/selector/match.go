// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selector filters circuit elements with a small CSS-like selector
// language.
//
// A type selector matches an element's type or ftype, after resolving
// short aliases ("port" is "source_port"). A class selector matches an
// element's name or any of its port hints. A chain such as ".R1 > .left"
// steps from the elements on the left to their children: the elements
// whose "<parent type>_id" field holds the parent's id.
package selector

import (
	"sync"

	"github.com/tscircuit/soup-util/services/soup/element"
)

// Abbreviations maps short type aliases to canonical type names.
type Abbreviations map[string]string

// Matcher evaluates selectors against element slices.
//
// Thread Safety: Safe for concurrent use; a Matcher is read-only after
// NewMatcher returns.
type Matcher struct {
	registry      *element.Registry
	abbreviations Abbreviations
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithRegistry sets the registry used to resolve parent id fields and,
// unless WithAbbreviations is also given, the alias table.
func WithRegistry(reg *element.Registry) Option {
	return func(m *Matcher) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithAbbreviations replaces the alias table.
func WithAbbreviations(abbr Abbreviations) Option {
	return func(m *Matcher) {
		m.abbreviations = make(Abbreviations, len(abbr))
		for k, v := range abbr {
			m.abbreviations[k] = v
		}
	}
}

// NewMatcher creates a Matcher. Defaults to the default element registry
// and its alias table.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{registry: element.DefaultRegistry()}
	for _, opt := range opts {
		opt(m)
	}
	if m.abbreviations == nil {
		m.abbreviations = m.registry.Abbreviations()
	}
	return m
}

var (
	defaultMatcher     *Matcher
	defaultMatcherOnce sync.Once
)

// Default returns the shared Matcher with default options.
func Default() *Matcher {
	defaultMatcherOnce.Do(func() {
		defaultMatcher = NewMatcher()
	})
	return defaultMatcher
}

// Select parses selector and applies it with the default Matcher.
func Select(elements []*element.Element, selector string) ([]*element.Element, error) {
	return Default().Select(elements, selector)
}

// Select parses selector and returns the matching elements in input order.
func (m *Matcher) Select(elements []*element.Element, selector string) ([]*element.Element, error) {
	n, err := Parse(selector)
	if err != nil {
		return nil, err
	}
	return m.Apply(elements, n), nil
}

// Resolve maps an alias to its canonical type name.
func (m *Matcher) Resolve(name string) string {
	if typ, ok := m.abbreviations[name]; ok {
		return typ
	}
	return name
}

// Apply evaluates n over elements.
//
// Description:
//
//	Simple and compound selectors filter elements in place. For a
//	Complex selector, Left is evaluated first; the children of every
//	matched element are gathered from elements, and Right is evaluated
//	over them. Results keep input order and hold no duplicates.
//
// Inputs:
//
//	elements - The candidates, in order. Nil entries are skipped.
//	n - A node returned by Parse.
//
// Outputs:
//
//	[]*element.Element - The matches. Nil when nothing matches.
func (m *Matcher) Apply(elements []*element.Element, n Node) []*element.Element {
	if c, ok := n.(Complex); ok {
		return m.Apply(m.children(elements, m.Apply(elements, c.Left)), c.Right)
	}
	var out []*element.Element
	for _, e := range elements {
		if e != nil && m.Matches(e, n) {
			out = append(out, e)
		}
	}
	return out
}

// Matches reports whether e satisfies a simple or compound selector.
// Complex selectors depend on other elements and never match alone.
func (m *Matcher) Matches(e *element.Element, n Node) bool {
	switch s := n.(type) {
	case TypeSelector:
		typ := m.Resolve(s.Name)
		return e.Type == typ || e.Str("ftype") == typ
	case ClassSelector:
		return e.Str("name") == s.Name || e.Contains("port_hints", s.Name)
	case Compound:
		for _, p := range s.Parts {
			if !m.Matches(e, p) {
				return false
			}
		}
		return len(s.Parts) > 0
	}
	return false
}

// children returns the elements referencing any parent through the
// parent type's id field, in input order.
func (m *Matcher) children(elements, parents []*element.Element) []*element.Element {
	if len(parents) == 0 {
		return nil
	}

	type link struct {
		parent *element.Element
		field  string
		id     any
	}
	links := make([]link, 0, len(parents))
	for _, p := range parents {
		field := m.registry.PrimaryIDField(p.Type)
		if id, ok := p.Get(field); ok && id != nil {
			links = append(links, link{parent: p, field: field, id: id})
		}
	}

	var out []*element.Element
	for _, e := range elements {
		if e == nil {
			continue
		}
		for _, l := range links {
			if e == l.parent {
				continue
			}
			if got, ok := e.Get(l.field); ok && element.Equal(got, l.id) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

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
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// unsupportedRunes start CSS constructs outside the supported subset.
const unsupportedRunes = "+~#[:*,"

// Parse parses a selector into a reusable Node.
//
// Description:
//
//	The supported grammar is type selectors ("pcb_port"), class selectors
//	(".R1"), compounds of them ("port.left"), and chains joined by
//	whitespace or ">" (".R1 > .left"). Chains associate to the left.
//
// Inputs:
//
//	s - The selector text. Surrounding whitespace is ignored.
//
// Outputs:
//
//	Node - The parsed selector.
//	error - *SyntaxError wrapping ErrInvalidSelector or
//	        ErrUnsupportedSelector.
//
// Example:
//
//	n, err := selector.Parse(".R1 > port.left")
//	// n is Complex{Left: ClassSelector{"R1"}, Combinator: ">",
//	//   Right: Compound{TypeSelector{"port"}, ClassSelector{"left"}}}
func Parse(s string) (Node, error) {
	p := &parser{src: s}
	p.skipSpace()
	if p.eof() {
		return nil, p.invalid("empty selector")
	}

	left, err := p.compound()
	if err != nil {
		return nil, err
	}
	for {
		sawSpace := p.skipSpace()
		if p.eof() {
			return left, nil
		}

		combinator := " "
		if p.peek() == '>' {
			p.pos++
			combinator = ">"
			p.skipSpace()
			if p.eof() {
				return nil, p.invalid("selector ends with a combinator")
			}
		} else if !sawSpace {
			return nil, p.unexpected()
		}

		right, err := p.compound()
		if err != nil {
			return nil, err
		}
		left = Complex{Left: left, Combinator: combinator, Right: right}
	}
}

// MustParse is like Parse but panics on error. For selectors known at
// compile time.
func MustParse(s string) Node {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() rune {
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

// skipSpace consumes whitespace and reports whether there was any.
func (p *parser) skipSpace() bool {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		p.pos += size
	}
	return p.pos > start
}

// compound parses an optional type name followed by class names.
func (p *parser) compound() (Node, error) {
	var parts []Node
	if !p.eof() && isIdentRune(p.peek()) {
		parts = append(parts, TypeSelector{Name: p.ident()})
	}
	for !p.eof() && p.peek() == '.' {
		p.pos++
		if p.eof() || !isIdentRune(p.peek()) {
			return nil, p.invalid("expected a class name after '.'")
		}
		parts = append(parts, ClassSelector{Name: p.ident()})
	}
	if len(parts) == 0 {
		return nil, p.unexpected()
	}
	if !p.eof() {
		if r := p.peek(); r != '>' && !unicode.IsSpace(r) {
			return nil, p.unexpected()
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return Compound{Parts: parts}, nil
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isIdentRune(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

// isIdentRune accepts letters, digits, '-', '_' and any non-ASCII
// non-space rune.
func isIdentRune(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	return r == '-' || r == '_' || r >= utf8.RuneSelf ||
		unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *parser) unexpected() error {
	if p.eof() {
		return p.invalid("unexpected end of selector")
	}
	r := p.peek()
	if strings.ContainsRune(unsupportedRunes, r) {
		return &SyntaxError{
			Selector: p.src,
			Offset:   p.pos,
			Msg:      fmt.Sprintf("%q is not supported", r),
			Err:      ErrUnsupportedSelector,
		}
	}
	return p.invalid(fmt.Sprintf("unexpected %q", r))
}

func (p *parser) invalid(msg string) error {
	return &SyntaxError{Selector: p.src, Offset: p.pos, Msg: msg, Err: ErrInvalidSelector}
}

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
	"fmt"
)

// Sentinel errors for selector parsing.
var (
	// ErrInvalidSelector is returned for malformed selectors.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrUnsupportedSelector is returned for valid CSS constructs the
	// matcher does not implement: "+", "~", "#id", "[attr]", ":pseudo",
	// "*" and "," lists.
	ErrUnsupportedSelector = errors.New("unsupported selector")
)

// SyntaxError locates a parse failure within the selector text.
type SyntaxError struct {
	// Selector is the full input.
	Selector string

	// Offset is the byte offset of the offending character.
	Offset int

	// Msg describes the problem.
	Msg string

	// Err is ErrInvalidSelector or ErrUnsupportedSelector.
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v %q at offset %d: %s", e.Err, e.Selector, e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

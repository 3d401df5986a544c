// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for index set operations.
var (
	// ErrDuplicateID is returned when adding an element whose
	// (type, primary id) pair is already indexed.
	ErrDuplicateID = errors.New("duplicate element ID")

	// ErrNilElement is returned when adding or removing a nil element.
	ErrNilElement = errors.New("nil element")

	// ErrNotIndexed is returned when removing or reindexing an element the
	// set does not track.
	ErrNotIndexed = errors.New("element not indexed")
)

// BatchError aggregates multiple errors from batch operations.
//
// Build collects every duplicate or nil element rather than failing on the
// first, so callers see all problems in the collection at once.
//
// BatchError implements the multi-error Unwrap interface, so errors.Is
// matches any of the collected sentinels.
type BatchError struct {
	// Errors contains the individual errors, each prefixed with the
	// element position (e.g. "element[3]: duplicate element ID").
	Errors []error
}

// Error returns a human-readable summary of the batch errors.
func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return "batch error with no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v (and %d more)",
		len(e.Errors), e.Errors[0], len(e.Errors)-1)
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	return e.Errors
}

// ErrorList returns all errors, one per line.
func (e *BatchError) ErrorList() string {
	if len(e.Errors) == 0 {
		return ""
	}
	var b strings.Builder
	for i, err := range e.Errors {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

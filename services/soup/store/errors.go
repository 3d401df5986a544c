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
	"errors"

	"github.com/tscircuit/soup-util/services/soup/index"
)

// Sentinel errors for store operations.
//
// Lookups that find nothing return nil, never an error.
var (
	// ErrAmbiguousJoinKey is returned by GetUsing when it is not given
	// exactly one key.
	ErrAmbiguousJoinKey = errors.New("getUsing requires exactly one key, e.g. { pcb_component_id }")

	// ErrValidation wraps the validator's error when Insert rejects an
	// element. errors.As still reaches the validator's own error type.
	ErrValidation = errors.New("element failed validation")

	// ErrDuplicateID is returned when an insert or the initial collection
	// would hold two elements with the same (type, primary id).
	ErrDuplicateID = index.ErrDuplicateID

	// ErrIDExhausted is returned by Insert when the type's id counter
	// already holds the largest int and an id was not supplied.
	ErrIDExhausted = errors.New("no auto id left for type")

	// ErrNilElement is returned when the initial collection holds a nil.
	ErrNilElement = index.ErrNilElement
)

// BatchError aggregates every problem found in an initial collection.
type BatchError = index.BatchError

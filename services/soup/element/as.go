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

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

var (
	// ErrUnknownVariant is returned by Variant for types with no typed view.
	ErrUnknownVariant = errors.New("no typed variant for element type")

	// ErrDecode is returned when an element's fields do not fit its typed
	// view, e.g. a string where an array is required.
	ErrDecode = errors.New("element does not match its variant")
)

// As decodes e into the typed variant T.
//
// Description:
//
//	The decode is strict about kinds: a string is never coerced into a
//	slice or a number. Unknown fields are collected in the variant's Extra
//	map rather than rejected.
//
// Inputs:
//
//	e - The element to decode. Must not be nil.
//
// Outputs:
//
//	T - The decoded variant.
//	error - Wraps ErrDecode when a field has the wrong kind.
//
// Example:
//
//	port, err := element.As[element.PcbPort](e)
//	if err != nil {
//	    return fmt.Errorf("reading pcb port: %w", err)
//	}
func As[T any](e *Element) (T, error) {
	var out T
	if err := decodeInto(e, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Variant decodes e into the typed view registered for its type and
// returns a pointer to it.
func Variant(e *Element) (any, error) {
	factory, ok := variantFactories[e.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, e.Type)
	}
	out := factory()
	if err := decodeInto(e, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto(e *Element, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: false,
		ZeroFields:       true,
	})
	if err != nil {
		return fmt.Errorf("building decoder for %s: %w", e.Type, err)
	}
	if err := dec.Decode(map[string]any(e.Fields())); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, e.Type, err)
	}
	return nil
}

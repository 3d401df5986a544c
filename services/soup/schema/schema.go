// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema validates circuit elements against their typed variants.
//
// Validation decodes an element into its typed view (element.Variant) and
// runs go-playground/validator over the struct tags. Types without a typed
// view only need a non-empty primary identifier.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tscircuit/soup-util/services/soup/element"
)

// ErrInvalidElement is wrapped by every validation failure.
var ErrInvalidElement = errors.New("invalid element")

// layerPattern matches the copper layer names.
var layerPattern = regexp.MustCompile(`^(top|bottom|inner[1-6])$`)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// elementValidate is the validator instance for element variants.
// Initialized in init() with custom validators.
var elementValidate *validator.Validate

func init() {
	elementValidate = validator.New(validator.WithRequiredStructEnabled())

	// Register custom validator for copper layer names
	_ = elementValidate.RegisterValidation("layer", validateLayer)
}

// validateLayer checks that a string field names a copper layer.
func validateLayer(fl validator.FieldLevel) bool {
	return layerPattern.MatchString(fl.Field().String())
}

// FieldError describes one rejected field.
type FieldError struct {
	// Field is the dotted field path within the variant, e.g. "Layers[0]".
	Field string

	// Rule is the failed validation tag, e.g. "required" or "layer".
	Rule string

	// Value is the offending value.
	Value any
}

// Error is returned for an element that fails validation.
type Error struct {
	// Type and ID identify the element.
	Type string
	ID   string

	// Fields lists the rejected fields. Empty when the element could not be
	// decoded into its typed view at all.
	Fields []FieldError

	// Cause is the underlying decode or validator error.
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s %q", e.Type, e.ID)
	if len(e.Fields) == 0 {
		if e.Cause != nil {
			fmt.Fprintf(&b, ": %v", e.Cause)
		}
		return b.String()
	}
	b.WriteString(": ")
	for i, f := range e.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s failed %s", f.Field, f.Rule)
	}
	return b.String()
}

// Unwrap matches ErrInvalidElement and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrInvalidElement, e.Cause}
}

// Validator checks elements against the schema of their type.
//
// Thread Safety: Safe for concurrent use.
type Validator struct {
	registry *element.Registry
}

// Option configures a Validator.
type Option func(*Validator)

// WithRegistry sets the registry used to find primary id fields.
func WithRegistry(reg *element.Registry) Option {
	return func(v *Validator) {
		if reg != nil {
			v.registry = reg
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{registry: element.DefaultRegistry()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks e.
//
// Description:
//
//	Known variants are decoded strictly and validated against their
//	struct tags. Unknown types pass when they carry a non-empty string
//	primary identifier.
//
// Inputs:
//
//	e - The candidate element, fully assembled (type, id and fields).
//
// Outputs:
//
//	error - *Error wrapping ErrInvalidElement, or nil.
func (v *Validator) Validate(e *element.Element) error {
	if e == nil {
		return fmt.Errorf("%w: nil element", ErrInvalidElement)
	}
	id := v.registry.PrimaryID(e)
	if e.Type == "" {
		return &Error{ID: id, Cause: element.ErrMissingType}
	}

	variant, err := element.Variant(e)
	if errors.Is(err, element.ErrUnknownVariant) {
		if id == "" {
			field := v.registry.PrimaryIDField(e.Type)
			return &Error{
				Type:   e.Type,
				Fields: []FieldError{{Field: field, Rule: "required"}},
				Cause:  fmt.Errorf("%s is required", field),
			}
		}
		return nil
	}
	if err != nil {
		return &Error{Type: e.Type, ID: id, Cause: err}
	}

	if err := elementValidate.Struct(variant); err != nil {
		return newError(e.Type, id, err)
	}
	return nil
}

// newError converts a validator error into an *Error.
func newError(typ, id string, err error) *Error {
	out := &Error{Type: typ, ID: id, Cause: err}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			// Drop the struct name prefix ("PcbPort.Layers[0]" -> "Layers[0]").
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			out.Fields = append(out.Fields, FieldError{
				Field: field,
				Rule:  fe.Tag(),
				Value: fe.Value(),
			})
		}
	}
	return out
}

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
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Equal reports whether two field values are equal.
//
// Numbers compare by value regardless of Go type, so a decoded float64(10)
// equals a caller-supplied int 10. Strings, bools and nil compare directly.
// Arrays and nested records compare structurally.
func Equal(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

// ScalarKey renders a string or number value as an index key.
//
// Numbers use the shortest representation that round-trips, so 10000
// becomes "10000" and 1.5 becomes "1.5". Returns false for every other
// value kind.
func ScalarKey(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	f, ok := toFloat(v)
	if !ok {
		return "", false
	}
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// IsScalar reports whether v is a string or a number.
func IsScalar(v any) bool {
	_, ok := ScalarKey(v)
	return ok
}

// Number returns v as a float64 when it holds any Go numeric kind or a
// json.Number.
func Number(v any) (float64, bool) {
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ParseIDSuffix parses the integer after the last "_" in id.
//
// Leading digits are taken and any trailing text is ignored, so
// "pcb_port_12" and "pcb_port_12b" both yield 12. Returns false when no
// digits follow the last underscore.
func ParseIDSuffix(id string) (int, bool) {
	tail := id
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		tail = id[i+1:]
	}
	tail = strings.TrimLeft(tail, " \t\n\r")

	sign := 1
	switch {
	case strings.HasPrefix(tail, "-"):
		sign = -1
		tail = tail[1:]
	case strings.HasPrefix(tail, "+"):
		tail = tail[1:]
	}

	end := 0
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(tail[:end])
	if err != nil {
		return 0, false
	}
	return sign * n, true
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tscircuit/soup-util/services/soup/element"
)

// parseWhere turns key=value arguments into a where clause.
//
// Values are numbers when they parse as finite floats, booleans for
// "true" and "false", and strings otherwise. Double quotes force a
// string: name="10" matches the string "10".
func parseWhere(args []string) (element.Fields, error) {
	where := make(element.Fields, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid condition %q: want key=value", arg)
		}
		if _, dup := where[key]; dup {
			return nil, fmt.Errorf("duplicate condition for %q", key)
		}
		where[key] = parseValue(raw)
	}
	return where, nil
}

func parseValue(raw string) any {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return raw
}

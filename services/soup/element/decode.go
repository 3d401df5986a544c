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
	"fmt"
	"io"
	"os"
)

// MaxFileSize bounds circuit files read by LoadFile (64MB).
const MaxFileSize = 64 * 1024 * 1024

// Decode reads a circuit JSON array from r.
func Decode(r io.Reader) ([]*Element, error) {
	var raw []Fields
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding circuit json: %w", err)
	}
	elements := make([]*Element, 0, len(raw))
	for i, fields := range raw {
		e, err := FromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("element[%d]: %w", i, err)
		}
		elements = append(elements, e)
	}
	return elements, nil
}

// LoadFile reads a circuit JSON file. The path "-" reads standard input.
func LoadFile(path string) ([]*Element, error) {
	if path == "-" {
		return Decode(io.LimitReader(os.Stdin, MaxFileSize))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat circuit file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("circuit file %s too large: %d bytes (max %d)", path, info.Size(), MaxFileSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening circuit file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes elements as an indented circuit JSON array.
func Encode(w io.Writer, elements []*Element) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if elements == nil {
		elements = []*Element{}
	}
	return enc.Encode(elements)
}

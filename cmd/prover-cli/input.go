// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"strings"

	"github.com/neotheprogramist/http-prover/internal/prove"
)

// parseFieldElements accepts a comma-separated list of field elements,
// optionally wrapped in brackets and spread across lines, mirroring
// cairo-prove's validate_input in
// _examples/original_source/bin/cairo-prove/src/lib.rs.
func parseFieldElements(input string) ([]prove.FieldElement, error) {
	parts := strings.Split(input, ",")
	felts := make([]prove.FieldElement, 0, len(parts))
	for _, part := range parts {
		cleaned := strings.NewReplacer("[", "", "]", "", "\n", "").Replace(part)
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		fe, err := prove.ParseFieldElement(cleaned)
		if err != nil {
			return nil, fmt.Errorf("input contains non-numeric characters or spaces: %w", err)
		}
		felts = append(felts, fe)
	}
	return felts, nil
}

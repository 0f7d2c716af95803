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

package prove

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// FieldElement is an arbitrary-precision prime-field integer, rendered as
// decimal or "0x"-prefixed hex text, matching the Felt type referenced
// throughout _examples/original_source/common/src/prover_input/*.rs and
// _examples/original_source/prover/src/threadpool/run.rs's
// starknet_types_core::felt::Felt. Go has no native field-element type;
// math/big.Int is the grounded stdlib substitute since no third-party
// bignum/field library appears anywhere in the example pack.
type FieldElement struct {
	v big.Int
}

// NewFieldElement wraps an existing big.Int value.
func NewFieldElement(v *big.Int) FieldElement {
	var fe FieldElement
	fe.v.Set(v)
	return fe
}

// FieldElementFromInt64 is a convenience constructor for tests and CLI use.
func FieldElementFromInt64(v int64) FieldElement {
	var fe FieldElement
	fe.v.SetInt64(v)
	return fe
}

// ParseFieldElement accepts a decimal string or a "0x"/"0X"-prefixed hex
// string.
func ParseFieldElement(s string) (FieldElement, error) {
	var fe FieldElement
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		if _, ok := fe.v.SetString(rest, 16); !ok {
			return FieldElement{}, fmt.Errorf("prove: invalid hex field element %q", s)
		}
		return fe, nil
	}
	if rest, ok := strings.CutPrefix(s, "0X"); ok {
		if _, ok := fe.v.SetString(rest, 16); !ok {
			return FieldElement{}, fmt.Errorf("prove: invalid hex field element %q", s)
		}
		return fe, nil
	}
	if _, ok := fe.v.SetString(s, 10); !ok {
		return FieldElement{}, fmt.Errorf("prove: invalid decimal field element %q", s)
	}
	return fe, nil
}

// String renders the canonical decimal form, matching Felt's Display used
// by prepare_input in run.rs.
func (f FieldElement) String() string {
	return f.v.String()
}

// MarshalJSON renders as a JSON string (decimal), matching serde's Felt
// serialization used in CairoProverInput/Cairo0ProverInput.
func (f FieldElement) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.v.String())
}

// UnmarshalJSON accepts either a JSON string (decimal or hex) or a JSON
// number.
func (f *FieldElement) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		fe, err := ParseFieldElement(s)
		if err != nil {
			return err
		}
		*f = fe
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("prove: field element must be a string or number: %w", err)
	}
	fe, err := ParseFieldElement(n.String())
	if err != nil {
		return err
	}
	*f = fe
	return nil
}

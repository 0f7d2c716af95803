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

package proverclient

import "fmt"

// ResponseError reports a non-2xx response from a specific endpoint,
// mirroring the per-call error variants (ProveResponseError,
// RegisterResponseError, ...) in
// _examples/original_source/prover-sdk/src/errors.rs, collapsed into one
// type since Go callers distinguish by the Op field instead of a match
// arm per variant.
type ResponseError struct {
	Op     string
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("proverclient: %s failed with status %d: %s", e.Op, e.Status, e.Body)
}

// ErrNonceNotFound mirrors SdkErrors::NonceNotFound: the /auth challenge
// response didn't carry a nonce field.
type ErrNonceNotFound struct{}

func (ErrNonceNotFound) Error() string { return "proverclient: nonce not found in challenge response" }

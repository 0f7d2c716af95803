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

// Package apperr models the error taxonomy of spec §7 (BadRequest,
// Unauthorized, NotFound, Conflict, Internal) as a typed error carrying
// its own HTTP status mapping.
//
// Grounded on _examples/original_source/prover/src/errors.rs's
// ProverError/IntoResponse pattern and
// _examples/original_source/prover/src/auth/auth_errors.rs's AuthError,
// translated to Go's explicit error + mapping idiom since Go has no
// IntoResponse trait equivalent; the teacher's
// pkg/agent/transport/http/server.go reaches for the same plain
// "classify then write" shape via sendErrorResponse.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	// Internal is the zero value so a bare `errors.New` wrapped via Wrap
	// degrades to 500 rather than silently becoming some other kind.
	Internal Kind = iota
	BadRequest
	Unauthorized
	NotFound
	Conflict
)

// Error is an application error carrying an HTTP-mappable Kind.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for e's Kind.
func (e *Error) Status() int {
	switch e.Kind {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New creates an *Error of the given kind with message msg.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// StatusFor returns the HTTP status that best represents err: the status
// of the innermost *Error if err wraps one, or 500 otherwise.
func StatusFor(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

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

// Package authorizer decides whether a given public key may initiate a
// handshake. Three variants are provided: Open (everyone authorized),
// Memory (in-process set) and File (persisted JSON array of hex keys).
//
// Grounded on _examples/original_source/prover/src/auth/authorizer.rs
// (the Open/Persistent enum and its idempotent authorize semantics) and on
// _examples/SAGE-X-project-sage/pkg/agent/crypto/storage/file.go for the
// file-backed locking and permission discipline.
package authorizer

import (
	"sync"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

// Authorizer decides whether a public key may initiate the auth handshake
// and lets a trusted admin extend the set at runtime.
type Authorizer interface {
	// IsAuthorized reports whether pk may start a handshake.
	IsAuthorized(pk accesskey.PublicKey) bool
	// Authorize grants pk handshake access. Idempotent: calling it twice
	// with the same key is a no-op on the second call.
	Authorize(pk accesskey.PublicKey) error
}

// Open authorizes every key. Used for local development and tests.
type Open struct{}

// IsAuthorized always returns true.
func (Open) IsAuthorized(accesskey.PublicKey) bool { return true }

// Authorize is a no-op for the Open variant.
func (Open) Authorize(accesskey.PublicKey) error { return nil }

// Memory is an in-process set of authorized public keys.
type Memory struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

// NewMemory creates a Memory authorizer pre-populated with keys.
func NewMemory(keys ...accesskey.PublicKey) *Memory {
	m := &Memory{set: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		m.set[k.String()] = struct{}{}
	}
	return m
}

// IsAuthorized reports whether pk is in the set.
func (m *Memory) IsAuthorized(pk accesskey.PublicKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.set[pk.String()]
	return ok
}

// Authorize adds pk to the set; idempotent.
func (m *Memory) Authorize(pk accesskey.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set[pk.String()] = struct{}{}
	return nil
}

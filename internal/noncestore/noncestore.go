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

// Package noncestore holds the short-lived map from authentication nonce to
// the public key that was challenged with it.
//
// Grounded on
// _examples/SAGE-X-project-sage/pkg/agent/core/message/nonce/manager.go
// (RWMutex-guarded map with a ticker-driven cleanup loop) and
// _examples/original_source/prover/src/auth/nonce.rs (32-byte Nonce, bound
// one-to-one to the challenged key). Unlike the Rust source — which the
// spec calls out as never actively pruning expired nonces — this store
// deletes a nonce immediately on use and additionally runs a periodic
// sweep, so memory stays bounded even for handshakes that never complete.
package noncestore

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

const nonceSize = 32

type entry struct {
	pk        accesskey.PublicKey
	expiresAt time.Time
}

// Store maps nonce (hex string) to the public key that was challenged.
type Store struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry

	stop chan struct{}
	once sync.Once
}

// New creates a Store whose entries expire after ttl and starts a
// background sweep that runs every ttl/2.
func New(ttl time.Duration) *Store {
	s := &Store{
		ttl:     ttl,
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Issue generates a fresh random nonce bound to pk and stores it.
func (s *Store) Issue(pk accesskey.PublicKey) (string, error) {
	raw := make([]byte, nonceSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	nonce := "0x" + hex.EncodeToString(raw)

	s.mu.Lock()
	s.entries[nonce] = entry{pk: pk, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return nonce, nil
}

// Consume looks up nonce, deletes it (single-use, regardless of outcome),
// and reports the bound public key if the nonce existed and had not
// expired.
func (s *Store) Consume(nonce string) (accesskey.PublicKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[nonce]
	delete(s.entries, nonce)
	if !ok || time.Now().After(e.expiresAt) {
		return accesskey.PublicKey{}, false
	}
	return e.pk, true
}

// Close stops the background sweep goroutine.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) sweepLoop() {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, nonce)
		}
	}
}

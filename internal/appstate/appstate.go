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

// Package appstate carries every shared dependency an HTTP handler needs
// as fields of one value, per spec §9's "Global-ish state... carry them
// as fields of a single app state value passed to each handler; no
// module-level mutable globals." Grounded on
// _examples/original_source/prover/src/server.rs's AppState{prover_image_name,
// nonces} struct, generalized to the full dependency set this
// implementation needs.
package appstate

import (
	"time"

	"github.com/neotheprogramist/http-prover/internal/authorizer"
	"github.com/neotheprogramist/http-prover/internal/config"
	"github.com/neotheprogramist/http-prover/internal/eventbus"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/noncestore"
	"github.com/neotheprogramist/http-prover/internal/sessiontoken"
	"github.com/neotheprogramist/http-prover/internal/workerpool"
)

// AdminSet is the set of public keys (hex strings) permitted to call
// /register, per spec §4.3's "configured admin set."
type AdminSet map[string]struct{}

// NewAdminSet builds an AdminSet from a list of hex public keys.
func NewAdminSet(keys []string) AdminSet {
	set := make(AdminSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Contains reports whether hexKey is an admin key.
func (s AdminSet) Contains(hexKey string) bool {
	_, ok := s[hexKey]
	return ok
}

// State is the single value threaded through every HTTP handler.
type State struct {
	Config *config.Config

	Authorizer  authorizer.Authorizer
	AdminKeys   AdminSet
	Nonces      *noncestore.Store
	Tokens      *sessiontoken.Issuer
	Jobs        *jobregistry.Registry
	Events      *eventbus.Bus
	Pool        *workerpool.Pool
	ScratchBase string
	SessionTTL  time.Duration
	MessageTTL  time.Duration
}

// Close releases background resources owned by State (the nonce store's
// sweep goroutine and the worker pool's goroutines). Called on graceful
// shutdown, after the HTTP listener stops accepting new connections.
func (s *State) Close() error {
	s.Nonces.Close()
	return s.Pool.Shutdown()
}

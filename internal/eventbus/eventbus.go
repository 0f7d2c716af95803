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

// Package eventbus broadcasts job-terminal (status, job id) pairs to any
// number of SSE subscribers.
//
// Grounded on
// _examples/other_examples/e6a18803_rjsadow-sortie__internal-sse-hub.go.go
// (Hub{clients map[*client]struct{}}, per-client buffered channel,
// non-blocking select{default:} fan-out, RWMutex-guarded registration)
// generalized from per-user fan-out to per-job-id fan-out, and on
// _examples/original_source/prover/src/sse.rs
// (tokio::sync::broadcast::Sender, receiver_count()>0 publish gate,
// loop-filter-by-id-then-close consumer shape).
package eventbus

import (
	"sync"

	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/metrics"
)

// subscriberBufSize is the per-subscriber channel buffer. A subscriber whose
// buffer is full misses the event being published rather than blocking it.
const subscriberBufSize = 4

// Event is a single terminal-transition notification.
type Event struct {
	Status jobregistry.Status
	JobID  uint64
}

type subscriber struct {
	ch chan Event
}

// Bus is a process-wide broadcast channel keyed by job id. It does not
// reference its subscribers back beyond the registration map: a pure
// fan-out, matching spec §9's "no cyclic references" design note.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a new listener and returns a channel of events plus
// an unsubscribe function the caller must invoke when done.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, subscriberBufSize)}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	metrics.SSESubscribers.Set(float64(len(b.subs)))
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[s]; ok {
			delete(b.subs, s)
			close(s.ch)
			metrics.SSESubscribers.Set(float64(len(b.subs)))
		}
		b.mu.Unlock()
	}
	return s.ch, unsubscribe
}

// HasSubscribers reports whether anyone is currently listening, mirroring
// the Rust source's receiver_count() > 0 publish gate so a terminal
// transition with nobody subscribed costs nothing beyond the check.
func (b *Bus) HasSubscribers() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs) > 0
}

// Publish fans ev out to every current subscriber. Slow subscribers drop
// the event (non-blocking send) rather than stalling the publisher, which
// runs from the worker pool's hot path.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

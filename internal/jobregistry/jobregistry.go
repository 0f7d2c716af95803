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

// Package jobregistry tracks prove/verify jobs through their lifecycle and
// evicts old records.
//
// Grounded on _examples/original_source/prover/src/utils/job.rs
// (JobStoreInner{jobs: BTreeMap<u64, Job>, counter}, clear_old_jobs's
// pop-first-until-young scan). Go has no BTreeMap; the ascending,
// append-only idSeq slice plays the role BTreeMap's key ordering plays in
// the Rust source, since job ids are monotone and creation order equals id
// order.
package jobregistry

import (
	"sync"
	"time"

	"github.com/neotheprogramist/http-prover/internal/metrics"
)

// Status is a job's position in its lifecycle.
type Status int

const (
	// Pending means the job has been created but not yet picked up by a worker.
	Pending Status = iota
	// Running means a worker is currently executing the job.
	Running
	// Completed means the job finished successfully.
	Completed
	// Failed means the job finished with an error.
	Failed
)

// String renders the status the way it is serialized in SSE events and
// get-job responses.
func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is Completed or Failed.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed
}

// Job is one prove or verify request's lifecycle record.
type Job struct {
	ID        uint64
	Status    Status
	Result    string // set iff terminal
	Kind      string // "cairo", "cairo0", "pie", "verify"
	CreatedAt time.Time
}

// Retention is the fixed 5-hour eviction threshold from spec §4.4.
const Retention = 5 * time.Hour

// Registry is the in-memory job store. A single mutex guards both the map
// and the id index, matching spec §5's "single mutex" locking discipline.
type Registry struct {
	mu      sync.Mutex
	jobs    map[uint64]Job
	idSeq   []uint64
	counter uint64
	now     func() time.Time
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		jobs: make(map[uint64]Job),
		now:  time.Now,
	}
}

// Create allocates a new Pending job and returns its id.
func (r *Registry) Create(kind string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.counter
	r.counter++
	r.jobs[id] = Job{ID: id, Status: Pending, Kind: kind, CreatedAt: r.now()}
	r.idSeq = append(r.idSeq, id)
	r.evictLocked()
	return id
}

// Update transitions job id to status with an optional result. A no-op if
// id is unknown, or if the job is already terminal (spec invariant (a):
// once terminal, status and result never change).
func (r *Registry) Update(id uint64, status Status, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return
	}
	job.Status = status
	if status.IsTerminal() {
		job.Result = result
		metrics.JobsCompleted.WithLabelValues(job.Kind, status.String()).Inc()
	}
	r.jobs[id] = job
	r.evictLocked()
}

// Get returns a snapshot copy of job id.
func (r *Registry) Get(id uint64) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return job, ok
}

// evictLocked removes jobs older than Retention, oldest-first, stopping at
// the first job younger than the threshold (r.mu must already be held).
func (r *Registry) evictLocked() {
	cutoff := r.now().Add(-Retention)
	evicted := 0
	i := 0
	for ; i < len(r.idSeq); i++ {
		id := r.idSeq[i]
		job, ok := r.jobs[id]
		if !ok {
			continue // already evicted by a previous sweep
		}
		if job.CreatedAt.After(cutoff) {
			break
		}
		delete(r.jobs, id)
		evicted++
	}
	if i > 0 {
		r.idSeq = r.idSeq[i:]
	}
	if evicted > 0 {
		metrics.JobsEvicted.Add(float64(evicted))
	}
}

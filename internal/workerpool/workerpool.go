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

// Package workerpool runs prove/verify jobs on a fixed number of
// long-lived goroutines behind a bounded queue.
//
// Grounded on _examples/original_source/prover/src/threadpool/mod.rs's
// ThreadPool/Worker: a channel stands in for Rust's mpsc::Sender, and
// each worker is a goroutine that loops on channel receive instead of
// locking a shared receiver. Shutdown uses golang.org/x/sync/errgroup
// (already a teacher dependency) in place of joining each worker's
// JoinHandle individually.
package workerpool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/neotheprogramist/http-prover/internal/logger"
	"github.com/neotheprogramist/http-prover/internal/metrics"
)

// QueueCapacity is the bounded channel size, matching ThreadPool::new's
// mpsc::channel(100).
const QueueCapacity = 100

// ErrShutdown is returned by Submit once the pool has begun shutting down,
// mirroring ThreadPool::execute's "Thread pool is shutdown" error.
var ErrShutdown = errors.New("workerpool: shut down")

// Pool runs Task values on a fixed number of workers pulled off a single
// bounded queue.
type Pool struct {
	tasks    chan func(context.Context)
	group    *errgroup.Group
	groupCtx context.Context

	closeOnce sync.Once
	closed    chan struct{}
}

// New starts size workers draining a queue of capacity QueueCapacity. size
// must be > 0.
func New(ctx context.Context, size int) *Pool {
	if size <= 0 {
		panic("workerpool: size must be positive")
	}
	group, groupCtx := errgroup.WithContext(ctx)
	p := &Pool{
		tasks:    make(chan func(context.Context), QueueCapacity),
		group:    group,
		groupCtx: groupCtx,
		closed:   make(chan struct{}),
	}
	for id := 0; id < size; id++ {
		id := id
		group.Go(func() error {
			p.worker(id)
			return nil
		})
	}
	metrics.WorkerPoolSize.Set(float64(size))
	return p
}

func (p *Pool) worker(id int) {
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				logger.Debug("worker detected shutdown signal", logger.Int("worker_id", id))
				return
			}
			metrics.WorkerPoolQueueDepth.Dec()
			metrics.WorkerPoolActive.Inc()
			logger.Debug("worker got a job; executing", logger.Int("worker_id", id))
			task(p.groupCtx)
			metrics.WorkerPoolActive.Dec()
			logger.Debug("worker finished the job", logger.Int("worker_id", id))
		case <-p.groupCtx.Done():
			return
		}
	}
}

// Submit enqueues task for execution by the next free worker. It blocks if
// the queue is full, applying backpressure to callers the way the Rust
// mpsc::Sender::send().await does. Returns ErrShutdown if the pool has
// already started shutting down.
func (p *Pool) Submit(ctx context.Context, task func(context.Context)) error {
	select {
	case <-p.closed:
		return ErrShutdown
	default:
	}
	select {
	case p.tasks <- task:
		metrics.WorkerPoolQueueDepth.Inc()
		return nil
	case <-p.closed:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes the queue so no further tasks are accepted, then waits
// for in-flight and already-queued tasks to finish, matching
// ThreadPool::shutdown's drop-sender-then-join-each-worker sequence.
func (p *Pool) Shutdown() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		close(p.tasks)
	})
	return p.group.Wait()
}

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

// Package metrics exposes Prometheus collectors for the proving service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prover"

// Registry is the process-wide collector registry. Handlers register
// against it instead of the default global registry so tests can spin up
// independent instances.
var Registry = prometheus.NewRegistry()

var (
	// AuthChallenges counts /auth GET challenge requests by outcome.
	AuthChallenges = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "challenges_total",
			Help:      "Total number of authentication challenges issued or rejected",
		},
		[]string{"outcome"}, // issued, unauthorized
	)

	// AuthValidations counts /auth POST response validations by outcome.
	AuthValidations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "validations_total",
			Help:      "Total number of signature validations by outcome",
		},
		[]string{"outcome"}, // success, bad_signature, nonce_not_found
	)

	// JobsSubmitted counts accepted prove/verify submissions by kind.
	JobsSubmitted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "submitted_total",
			Help:      "Total number of jobs submitted by kind",
		},
		[]string{"kind"}, // cairo, cairo0, pie, verify
	)

	// JobsCompleted counts terminal transitions by kind and status.
	JobsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Total number of jobs reaching a terminal state",
		},
		[]string{"kind", "status"}, // Completed, Failed
	)

	// JobDuration tracks wall time from Running to terminal.
	JobDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms .. ~13min
		},
		[]string{"kind"},
	)

	// JobsEvicted counts jobs removed by the retention sweep.
	JobsEvicted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "evicted_total",
			Help:      "Total number of job records evicted by the retention sweep",
		},
	)

	// WorkerPoolQueueDepth reports the number of items waiting in the work channel.
	WorkerPoolQueueDepth = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workerpool",
			Name:      "queue_depth",
			Help:      "Current number of queued work items",
		},
	)

	// WorkerPoolActive reports the number of workers currently executing a job.
	WorkerPoolActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workerpool",
			Name:      "active_workers",
			Help:      "Current number of workers executing a job",
		},
	)

	// WorkerPoolSize reports the configured number of worker goroutines.
	WorkerPoolSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workerpool",
			Name:      "size",
			Help:      "Configured number of worker goroutines",
		},
	)

	// SSESubscribers reports the number of connected SSE clients.
	SSESubscribers = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "subscribers",
			Help:      "Current number of connected SSE subscribers",
		},
	)

	// HTTPRequests counts HTTP requests by route, method and status code.
	HTTPRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks request latency by route.
	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

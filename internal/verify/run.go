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

package verify

import (
	"context"
	"time"

	"github.com/neotheprogramist/http-prover/internal/eventbus"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/metrics"
)

// RunJob drives one verify request through the job lifecycle, the same
// transition shape prove.Run uses for prove requests: Running, then a
// terminal state with the bus notified if anyone is listening.
func RunJob(ctx context.Context, jobID uint64, dir, proof string, jobs *jobregistry.Registry, bus *eventbus.Bus) {
	jobs.Update(jobID, jobregistry.Running, "")
	start := time.Now()

	ok, err := Run(ctx, dir, proof)
	metrics.JobDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())

	if err != nil {
		jobs.Update(jobID, jobregistry.Failed, err.Error())
		publish(bus, jobregistry.Failed, jobID)
		return
	}

	result := "false"
	if ok {
		result = "true"
	}
	jobs.Update(jobID, jobregistry.Completed, result)
	publish(bus, jobregistry.Completed, jobID)
}

func publish(bus *eventbus.Bus, status jobregistry.Status, jobID uint64) {
	if bus == nil || !bus.HasSubscribers() {
		return
	}
	bus.Publish(eventbus.Event{Status: status, JobID: jobID})
}

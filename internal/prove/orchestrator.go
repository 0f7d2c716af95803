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

package prove

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/neotheprogramist/http-prover/internal/eventbus"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/logger"
	"github.com/neotheprogramist/http-prover/internal/metrics"
)

// proofFileName and paramsFileName are the fixed output file names spec §4.6 step
// 2 lists alongside the run-tool artifacts already named in RunPaths.
const (
	proofFileName  = "program_proof_cairo.json"
	paramsFileName = "cpu_air_params.json"
	// proverConfigPath is passed through unchanged per spec §6; relative
	// to the process's working directory, matching
	// threadpool/prove.rs::ProvePaths::config_file.
	proverConfigPath = "config/cpu_air_prover_config.json"
)

// Request is one unit of work handed to a worker (component F's "work
// item"): the job id to update, the materialized input, the scratch
// directory to work in, and the event bus to publish the terminal
// transition on.
type Request struct {
	JobID    uint64
	Dir      string
	Input    Input
	NQueries *uint32
	PowBits  *uint32
}

// Run executes the full sequence spec §4.6 describes: transition to
// Running, materialize+run, generate FRI params, invoke the prover,
// read the proof, and transition to a terminal state. It never returns an
// error to its caller — every failure is captured as the job's Failed
// result, matching Open Question #2 in spec §9 ("convert unwrap() calls
// into Failed-job transitions rather than process aborts").
func Run(ctx context.Context, req Request, jobs *jobregistry.Registry, bus *eventbus.Bus) {
	jobs.Update(req.JobID, jobregistry.Running, "")
	start := time.Now()

	result, err := execute(ctx, req)
	duration := time.Since(start).Seconds()

	if err != nil {
		logger.Warn("prove job failed", logger.Any("job_id", req.JobID), logger.Error(err))
		jobs.Update(req.JobID, jobregistry.Failed, err.Error())
		metrics.JobDuration.WithLabelValues(jobKind(req.Input)).Observe(duration)
		publish(bus, jobregistry.Failed, req.JobID)
		return
	}

	jobs.Update(req.JobID, jobregistry.Completed, result)
	metrics.JobDuration.WithLabelValues(jobKind(req.Input)).Observe(duration)
	publish(bus, jobregistry.Completed, req.JobID)
}

func jobKind(input Input) string {
	switch input.(type) {
	case Cairo:
		return "cairo"
	case Cairo0:
		return "cairo0"
	case Pie:
		return "pie"
	default:
		return "unknown"
	}
}

// publish emits the terminal event only if anyone is listening, matching
// the receiver_count() > 0 gate in
// _examples/original_source/prover/src/threadpool/prove.rs.
func publish(bus *eventbus.Bus, status jobregistry.Status, jobID uint64) {
	if bus == nil || !bus.HasSubscribers() {
		return
	}
	bus.Publish(eventbus.Event{Status: status, JobID: jobID})
}

// execute runs steps 2-7 of spec §4.6 and returns the job result string
// (the JSON-encoded Result when ParseResult finds the precomputed hashes,
// otherwise the raw proof) or an error capturing the failing step's stderr.
func execute(ctx context.Context, req Request) (string, error) {
	paths := newRunPaths(req.Dir)
	proofPath := req.Dir + string(os.PathSeparator) + proofFileName
	paramsPath := req.Dir + string(os.PathSeparator) + paramsFileName

	if err := req.Input.PrepareAndRun(ctx, paths); err != nil {
		return "", fmt.Errorf("run tool: %w", err)
	}

	if err := GenerateParamsFile(paths.PublicInputFile, paramsPath, req.NQueries, req.PowBits); err != nil {
		return "", fmt.Errorf("generate prover params: %w", err)
	}

	if err := runProver(ctx, paths, paramsPath, proofPath); err != nil {
		return "", fmt.Errorf("cpu_air_prover: %w", err)
	}

	proof, err := os.ReadFile(proofPath)
	if err != nil {
		return "", fmt.Errorf("read proof file: %w", err)
	}

	// Best-effort parse for the precomputed hashes/outputs spec §4.6 step 7
	// names; a proof that doesn't carry them (the common case, since
	// computing them is the prover's job, not ours) still completes with
	// the raw proof string.
	if result, ok := ParseResult(string(proof)); ok {
		encoded, err := json.Marshal(result)
		if err == nil {
			return string(encoded), nil
		}
		logger.Warn("encode parsed proof result", logger.Error(err))
	}
	return string(proof), nil
}

// runProver invokes cpu_air_prover with the argument list spec §4.6 step
// 6 names, verbatim to threadpool/prove.rs::ProvePaths::prove_command.
func runProver(ctx context.Context, paths *RunPaths, paramsPath, proofPath string) error {
	cmd := exec.CommandContext(ctx, "cpu_air_prover",
		"--out_file", proofPath,
		"--private_input_file", paths.PrivateInputFile,
		"--public_input_file", paths.PublicInputFile,
		"--prover_config_file", proverConfigPath,
		"--parameter_file", paramsPath,
		"-generate-annotations",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

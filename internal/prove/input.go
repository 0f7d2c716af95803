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

// Package prove implements the Prove Orchestrator (spec §4.6/§4.6.1): it
// materializes a ProgramInput's files in a scratch directory, invokes the
// external run and prover tools, and reports the outcome back through the
// job registry and event bus.
//
// The three ProgramInput variants share a single prepare/run contract
// (spec §9 "Polymorphism over program variants"), modeled here as an
// interface with one PrepareAndRun method and dispatch via its method call —
// grounded on
// _examples/original_source/prover/src/threadpool/run.rs's
// CairoVersionedInput enum and its prepare/run match arms.
package prove

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Input is the tagged-union contract every ProgramInput variant satisfies:
// write whatever files the run tool needs into paths, then invoke it.
type Input interface {
	// PrepareAndRun materializes files into paths and invokes the
	// variant's run tool, producing trace/memory/public-input/
	// private-input files in dir.
	PrepareAndRun(ctx context.Context, paths *RunPaths) error
}

// Cairo is the Cairo 1 ProgramInput variant (spec §3).
type Cairo struct {
	Program      json.RawMessage
	ProgramInput []FieldElement
	Layout       string
	NQueries     *uint32
	PowBits      *uint32
}

// Cairo0 is the Cairo 0 ProgramInput variant.
type Cairo0 struct {
	Program      json.RawMessage
	ProgramInput json.RawMessage
	Layout       string
	NQueries     *uint32
	PowBits      *uint32
}

// Pie is the bootloader/PIE ProgramInput variant.
type Pie struct {
	PieZip   []byte
	Layout   string
	NQueries *uint32
	PowBits  *uint32
}

// RunPaths names every file path the run tools read or write, mirroring
// _examples/original_source/prover/src/threadpool/run.rs's RunPaths
// struct field-for-field.
type RunPaths struct {
	Dir              string
	TraceFile        string
	MemoryFile       string
	PublicInputFile  string
	PrivateInputFile string
	ProgramInputFile string
	ProgramFile      string
}

// newRunPaths lays out the fixed file set spec §4.6 step 2 names inside
// dir.
func newRunPaths(dir string) *RunPaths {
	join := func(name string) string {
		if dir == "" {
			return name
		}
		return dir + string(os.PathSeparator) + name
	}
	return &RunPaths{
		Dir:              dir,
		TraceFile:        join("program_trace.trace"),
		MemoryFile:       join("program_memory.memory"),
		PublicInputFile:  join("program_public_input.json"),
		PrivateInputFile: join("program_private_input.json"),
		ProgramInputFile: join("program_input.json"),
		ProgramFile:      join("program.json"),
	}
}

// touchOutputs creates empty placeholders for every file an external run
// tool is expected to populate, matching run.rs's pattern of
// `std::fs::File::create(path)?` for each output ahead of invoking the
// runner (belt-and-suspenders so a runner that only appends survives).
func touchOutputs(paths *RunPaths) error {
	for _, p := range []string{paths.TraceFile, paths.MemoryFile, paths.PublicInputFile, paths.PrivateInputFile} {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("prove: create output placeholder %s: %w", p, err)
		}
		f.Close()
	}
	return nil
}

// PrepareAndRun for Cairo: program -> JSON file, input -> "[f1 f2 ...]"
// ASCII file, then invoke cairo1-run with the input file as --args_file and
// the program file as its positional argument.
func (c Cairo) PrepareAndRun(ctx context.Context, paths *RunPaths) error {
	if err := os.WriteFile(paths.ProgramFile, c.Program, 0o600); err != nil {
		return fmt.Errorf("prove: write program.json: %w", err)
	}
	if err := os.WriteFile(paths.ProgramInputFile, []byte(PrepareInput(c.ProgramInput)), 0o600); err != nil {
		return fmt.Errorf("prove: write program_input.json: %w", err)
	}
	if err := touchOutputs(paths); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "cairo1-run",
		"--trace_file", paths.TraceFile,
		"--memory_file", paths.MemoryFile,
		"--layout", c.Layout,
		"--proof_mode",
		"--air_public_input", paths.PublicInputFile,
		"--air_private_input", paths.PrivateInputFile,
		"--args_file", paths.ProgramInputFile,
		paths.ProgramFile,
	)
	return runCommand(cmd)
}

// PrepareAndRun for Cairo0: program and input both serialize straight to
// JSON files, then invoke cairo-run.
func (c0 Cairo0) PrepareAndRun(ctx context.Context, paths *RunPaths) error {
	if err := os.WriteFile(paths.ProgramFile, c0.Program, 0o600); err != nil {
		return fmt.Errorf("prove: write program.json: %w", err)
	}
	if err := os.WriteFile(paths.ProgramInputFile, c0.ProgramInput, 0o600); err != nil {
		return fmt.Errorf("prove: write program_input.json: %w", err)
	}
	cmd := exec.CommandContext(ctx, "cairo-run",
		"--trace_file", paths.TraceFile,
		"--memory_file", paths.MemoryFile,
		"--layout", c0.Layout,
		"--proof_mode",
		"--air_public_input", paths.PublicInputFile,
		"--air_private_input", paths.PrivateInputFile,
		"--program_input", paths.ProgramInputFile,
		"--program", paths.ProgramFile,
	)
	return runCommand(cmd)
}

// PrepareAndRun for Pie: writes the zipped PIE bundle to program.pie.zip in
// the scratch directory and runs cairo1-run with it as --pie_input, which
// produces the same trace, memory and AIR input files as the other
// variants. No bootloader runs in-process; this is the adapter strategy
// recorded in SPEC_FULL.md §I.
func (p Pie) PrepareAndRun(ctx context.Context, paths *RunPaths) error {
	pieFile := paths.Dir + string(os.PathSeparator) + "program.pie.zip"
	if err := os.WriteFile(pieFile, p.PieZip, 0o600); err != nil {
		return fmt.Errorf("prove: write program pie zip: %w", err)
	}
	if err := touchOutputs(paths); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "cairo1-run",
		"--trace_file", paths.TraceFile,
		"--memory_file", paths.MemoryFile,
		"--layout", p.Layout,
		"--proof_mode",
		"--air_public_input", paths.PublicInputFile,
		"--air_private_input", paths.PrivateInputFile,
		"--pie_input", pieFile,
	)
	return runCommand(cmd)
}

// runCommand executes cmd, capturing stderr so a failure can be reported
// as the job's Failed result rather than aborting the worker goroutine
// (spec §9's "convert unwrap() into Failed-job transitions" guidance).
func runCommand(cmd *exec.Cmd) error {
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s: %s", cmd.Path, msg)
	}
	return nil
}

// PrepareInput renders felts as Cairo 1's ASCII args-file format:
// "[f1 f2 ... fN]", space separated, matching run.rs::prepare_input
// exactly, including its empty-slice "[]" case.
func PrepareInput(felts []FieldElement) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range felts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.String())
	}
	b.WriteByte(']')
	return b.String()
}

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

// Package verify checks a previously generated STARK proof against the
// cpu_air_verifier tool.
//
// Grounded on _examples/original_source/prover/src/verifier.rs's
// verify_proof handler: write the proof to a scratch file, run
// cpu_air_verifier --in_file, map its exit status to a bool, and always
// remove the scratch file. No separate Rust module covers process
// invocation for verification, so the os/exec idiom is carried over from
// threadpool/prove.rs as noted in the spec's wiring notes for this
// component.
package verify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/neotheprogramist/http-prover/internal/logger"
)

const proofFileName = "proof"

// Run writes proof into dir, invokes cpu_air_verifier against it, and
// reports whether the proof was accepted. The scratch file is always
// removed before Run returns, regardless of outcome.
func Run(ctx context.Context, dir, proof string) (bool, error) {
	path := filepath.Join(dir, proofFileName)
	if err := os.WriteFile(path, []byte(proof), 0o600); err != nil {
		return false, err
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove proof scratch file", logger.Error(err))
		}
	}()

	cmd := exec.CommandContext(ctx, "cpu_air_verifier", "--in_file", path)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return false, nil
	}
	return false, err
}

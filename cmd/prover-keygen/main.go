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

// prover-keygen generates a fresh Ed25519 access key and prints both
// halves for an operator to distribute: the public key goes to whoever
// runs prover-server (via --authorized-keys or --admin-keys), the
// private key goes to whoever will run prover-cli/prover-register
// against it.
//
// Grounded on
// _examples/original_source/bin/keygen/src/main.rs and
// _examples/original_source/bin/utils/src/bin/prover-keygen.rs, both of
// which are this same two-line tool in the original implementation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

func main() {
	root := &cobra.Command{
		Use:   "prover-keygen",
		Short: "Generates an access key for the proving service",
		RunE:  run,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	key, err := accesskey.Generate()
	if err != nil {
		return fmt.Errorf("generate access key: %w", err)
	}

	fmt.Printf("Public key:  %s, provide it to the server operator.\n", key.PublicKey().String())
	fmt.Printf("Private key: %s, pass this to the sdk to gain access, keep it secret.\n", key.SeedHex())
	return nil
}

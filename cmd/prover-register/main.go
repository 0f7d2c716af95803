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

// prover-register asks an already-authorized access key to vouch for a
// new one, authenticating against prover-server and calling /register on
// the caller's behalf.
//
// Grounded on
// _examples/original_source/bin/register/src/main.rs and
// _examples/original_source/bin/utils/src/bin/prover-register.rs's
// Args{private_key, added_key, url}, ported to cobra flags with
// environment fallback the way
// _examples/SAGE-X-project-sage/internal/config does for prover-server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
	"github.com/neotheprogramist/http-prover/pkg/proverclient"
)

func main() {
	var privateKey, addedKey, baseURL string

	root := &cobra.Command{
		Use:   "prover-register",
		Short: "Authorizes a new access key against a running prover-server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(privateKey, addedKey, baseURL)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.Flags()
	flags.StringVarP(&privateKey, "private-key", "p", envOr("PROVER_PRIVATE_KEY", ""), "hex-encoded private key of an already-authorized access key")
	flags.StringVarP(&addedKey, "added-key", "k", envOr("PROVER_ADDED_KEY", ""), "hex-encoded public key to authorize")
	flags.StringVarP(&baseURL, "url", "u", envOr("PROVER_URL", ""), "base URL of the prover-server instance")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(privateKeyHex, addedKeyHex, baseURL string) error {
	authority, err := accesskey.FromHex(privateKeyHex)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}

	addedKey, err := accesskey.ParsePublicKey(addedKeyHex)
	if err != nil {
		return fmt.Errorf("parse added key: %w", err)
	}

	ctx := context.Background()
	builder, err := proverclient.NewBuilder(baseURL, authority)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}
	if _, err := builder.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	client := builder.Build()

	if err := client.Register(ctx, addedKey); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	fmt.Printf("registered %s\n", addedKey.String())
	return nil
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

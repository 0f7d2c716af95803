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

// prover-cli submits a Cairo program to a running prover-server and,
// optionally, waits for the resulting proof, mirroring
// _examples/original_source/bin/cairo-prove's Args/prove/fetch split
// (itself a generalization of bin/prove's single-shot CairoInput tool).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
	"github.com/neotheprogramist/http-prover/pkg/proverclient"
)

// pollInterval mirrors fetch.rs's fetch_job_polling, which sleeps 10
// seconds between each /get-job poll.
const pollInterval = 10 * time.Second

type proveArgs struct {
	proverURL      string
	cairoVersion   string
	layout         string
	programPath    string
	programInput   string
	programInputFP string
	programOutput  string
	accessKey      string
	wait           bool
	sse            bool
	nQueries       uint32
	powBits        uint32
}

func main() {
	var args proveArgs

	root := &cobra.Command{Use: "prover-cli"}
	root.CompletionOptions.DisableDefaultCmd = true

	proveCmd := &cobra.Command{
		Use:   "prove",
		Short: "Submits a Cairo program to a prover-server instance",
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			return runProve(args)
		},
	}
	flags := proveCmd.Flags()
	flags.StringVar(&args.proverURL, "prover-url", envOr("PROVER_URL", ""), "base URL of the prover-server instance")
	flags.StringVarP(&args.cairoVersion, "cairo-version", "c", envOr("CAIRO_VERSION", "v1"), "cairo version: v0, v1, or pie")
	flags.StringVarP(&args.layout, "layout", "l", envOr("LAYOUT", ""), "prover layout name")
	flags.StringVar(&args.programPath, "program-path", envOr("PROGRAM_PATH", ""), "path to the compiled program (or PIE zip)")
	flags.StringVar(&args.programInputFP, "program-input-path", envOr("PROGRAM_INPUT_PATH", ""), "path to a JSON/text program input file")
	flags.StringVar(&args.programInput, "program-input", envOr("PROGRAM_INPUT", ""), "comma-separated field elements (v1 only, ignored if --program-input-path is set)")
	flags.StringVar(&args.programOutput, "program-output", envOr("PROGRAM_OUTPUT", "result.json"), "where to write the resulting proof")
	flags.StringVar(&args.accessKey, "prover-access-key", envOr("PROVER_ACCESS_KEY", ""), "hex-encoded private access key")
	flags.BoolVar(&args.wait, "wait", false, "poll /get-job until the proof is ready")
	flags.BoolVar(&args.sse, "sse", false, "wait for the proof via /sse instead of polling")
	flags.Uint32Var(&args.nQueries, "n-queries", 0, "override the prover's n_queries parameter")
	flags.Uint32Var(&args.powBits, "pow-bits", 0, "override the prover's pow_bits parameter")

	root.AddCommand(proveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runProve(args proveArgs) error {
	key, err := accesskey.FromHex(args.accessKey)
	if err != nil {
		return fmt.Errorf("parse access key: %w", err)
	}

	ctx := context.Background()
	builder, err := proverclient.NewBuilder(args.proverURL, key)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}
	if _, err := builder.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	client := builder.Build()

	var nQueries, powBits *uint32
	if args.nQueries != 0 {
		nQueries = &args.nQueries
	}
	if args.powBits != 0 {
		powBits = &args.powBits
	}

	jobID, err := submit(ctx, client, args, nQueries, powBits)
	if err != nil {
		return fmt.Errorf("submit proof: %w", err)
	}
	fmt.Printf("Job ID: %d\n", jobID)

	if !args.wait && !args.sse {
		return nil
	}

	var status proverclient.JobStatus
	if args.sse {
		status, err = client.SSE(ctx, jobID)
	} else {
		status, err = client.FetchPolling(ctx, jobID, pollInterval)
	}
	if err != nil {
		return fmt.Errorf("await job: %w", err)
	}
	if status.Status != "Completed" {
		return fmt.Errorf("job failed: %s", status.Result)
	}

	return writeResult(args.programOutput, status.Result)
}

func submit(ctx context.Context, client *proverclient.Client, args proveArgs, nQueries, powBits *uint32) (uint64, error) {
	switch args.cairoVersion {
	case "v0":
		program, err := os.ReadFile(args.programPath)
		if err != nil {
			return 0, fmt.Errorf("read program: %w", err)
		}
		if args.programInputFP == "" {
			return 0, fmt.Errorf("missing program input")
		}
		input, err := os.ReadFile(args.programInputFP)
		if err != nil {
			return 0, fmt.Errorf("read program input: %w", err)
		}
		return client.ProveCairo0(ctx, json.RawMessage(program), json.RawMessage(input), args.layout, nQueries, powBits)

	case "v1":
		program, err := os.ReadFile(args.programPath)
		if err != nil {
			return 0, fmt.Errorf("read program: %w", err)
		}
		var raw string
		if args.programInputFP != "" {
			data, err := os.ReadFile(args.programInputFP)
			if err != nil {
				return 0, fmt.Errorf("read program input: %w", err)
			}
			raw = string(data)
		} else {
			raw = args.programInput
		}
		felts, err := parseFieldElements(raw)
		if err != nil {
			return 0, err
		}
		return client.ProveCairo(ctx, json.RawMessage(program), felts, args.layout, nQueries, powBits)

	case "pie":
		pie, err := os.ReadFile(args.programPath)
		if err != nil {
			return 0, fmt.Errorf("read pie: %w", err)
		}
		return client.ProvePie(ctx, pie, args.layout, nQueries, powBits)

	default:
		return 0, fmt.Errorf("invalid cairo version %q: must be v0, v1, or pie", args.cairoVersion)
	}
}

func writeResult(path, result string) error {
	buf := []byte(result)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf, "", "  "); err == nil {
		buf = pretty.Bytes()
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

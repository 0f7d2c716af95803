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

// prover-server runs the HTTP proving service: it parses the flags spec §6
// names, wires every internal component into an appstate.State, and serves
// the route table internal/httpapi builds, shutting down gracefully on
// SIGINT/SIGTERM.
//
// Grounded on
// _examples/original_source/prover/src/main.rs's Args/start() split and
// _examples/SAGE-X-project-sage/cmd/metrics-demo/main.go's
// http.Server{...}+signal-driven Shutdown pattern, combined with cobra as
// the teacher's cmd/sage-crypto does.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
	"github.com/neotheprogramist/http-prover/internal/appstate"
	"github.com/neotheprogramist/http-prover/internal/authorizer"
	"github.com/neotheprogramist/http-prover/internal/config"
	"github.com/neotheprogramist/http-prover/internal/eventbus"
	"github.com/neotheprogramist/http-prover/internal/httpapi"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/logger"
	"github.com/neotheprogramist/http-prover/internal/metrics"
	"github.com/neotheprogramist/http-prover/internal/noncestore"
	"github.com/neotheprogramist/http-prover/internal/sessiontoken"
	"github.com/neotheprogramist/http-prover/internal/workerpool"
)

// requestTimeout bounds every request, matching server.rs's
// TimeoutLayer::new(Duration::from_secs(60)) — widened to an hour here
// since a synchronous prove/verify call is replaced by job polling/SSE in
// this implementation, so the only long-lived handler left is /sse itself.
const requestTimeout = time.Hour

func main() {
	root := &cobra.Command{
		Use:   "prover-server",
		Short: "Runs the STARK proving HTTP service",
	}
	root.CompletionOptions.DisableDefaultCmd = true

	cfg := config.RegisterFlags(root)
	var overlayPath string
	root.Flags().StringVar(&overlayPath, "config", "", "path to an optional YAML config overlay")
	var scratchBase string
	root.Flags().StringVar(&scratchBase, "scratch-dir", "", "base directory for per-job scratch directories (defaults to the OS temp dir)")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		if overlayPath != "" {
			if err := config.LoadOverlay(overlayPath, cfg); err != nil {
				return fmt.Errorf("load config overlay: %w", err)
			}
		}
		return run(cfg, scratchBase)
	}

	config.LoadDotEnv("")
	if err := root.Execute(); err != nil {
		logger.Fatal("prover-server exited", logger.Error(err))
	}
}

func run(cfg *config.Config, scratchBase string) error {
	authz, err := buildAuthorizer(cfg)
	if err != nil {
		return fmt.Errorf("build authorizer: %w", err)
	}

	tokens, err := sessiontoken.NewIssuer([]byte(cfg.JWTSecretKey))
	if err != nil {
		return fmt.Errorf("build session issuer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Not the signal context: cancelling the pool's context makes workers
	// return without draining the queue, so state.Close's Shutdown drains it.
	pool := workerpool.New(context.Background(), cfg.NumWorkers)

	state := &appstate.State{
		Config:      cfg,
		Authorizer:  authz,
		AdminKeys:   appstate.NewAdminSet(lowercaseAll(cfg.AdminKeys)),
		Nonces:      noncestore.New(cfg.MessageExpirationTime),
		Tokens:      tokens,
		Jobs:        jobregistry.New(),
		Events:      eventbus.New(),
		Pool:        pool,
		ScratchBase: scratchBase,
		SessionTTL:  cfg.SessionExpirationTime,
		MessageTTL:  cfg.MessageExpirationTime,
	}
	defer state.Close()

	handler := http.TimeoutHandler(httpapi.NewMux(state), requestTimeout, "request timed out")
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("prover-server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", logger.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errc:
		logger.Warn("server error, shutting down", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return nil
}

// buildAuthorizer selects the Authorizer variant spec §9's "pluggable
// authorizer backend" design note calls for: a file-backed store when
// AuthorizedKeysPath is set, otherwise an in-memory set seeded from
// AuthorizedKeys.
func buildAuthorizer(cfg *config.Config) (authorizer.Authorizer, error) {
	if cfg.AuthorizedKeysPath != "" {
		return authorizer.NewFile(cfg.AuthorizedKeysPath)
	}
	keys := make([]accesskey.PublicKey, 0, len(cfg.AuthorizedKeys))
	for _, hexKey := range cfg.AuthorizedKeys {
		pk, err := accesskey.ParsePublicKey(hexKey)
		if err != nil {
			return nil, fmt.Errorf("parse authorized key %q: %w", hexKey, err)
		}
		keys = append(keys, pk)
	}
	return authorizer.NewMemory(keys...), nil
}

// lowercaseAll normalizes admin keys to the same lowercase "0x"-prefixed
// form accesskey.PublicKey.String() produces, so the /register handler's
// string comparison against the authenticated authority key is
// case-insensitive to how the operator typed --admin-keys.
func lowercaseAll(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		k = strings.ToLower(k)
		if !strings.HasPrefix(k, "0x") {
			k = "0x" + k
		}
		out[i] = k
	}
	return out
}

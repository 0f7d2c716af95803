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

// Package config parses and validates the prover server's startup
// configuration: cobra flags, environment variable overrides, an
// optional ".env" file, and an optional YAML overlay for values that
// are awkward to pass as flags (long key lists).
//
// Grounded on the teacher's config/{loader,blockchain}.go (env-override
// pattern: flags set defaults, PROVER_*-prefixed environment variables
// take priority, applied in applyEnvOverrides below the same way the
// teacher's applyEnvironmentOverrides does) and
// github.com/joho/godotenv for ".env" loading (a direct teacher
// dependency, see cmd/sage-did and cmd/sage-crypto's use of it).
// gopkg.in/yaml.v3 (also a direct teacher dependency) backs the
// optional file overlay. Flag declarations follow
// _examples/SAGE-X-project-sage/cmd/sage-crypto/generate.go's
// `cmd.Flags().StringVar(...)` style, generalized from the Rust
// `#[derive(Parser)]` struct in
// _examples/original_source/prover/src/main.rs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds every value spec §6 lists as a server CLI flag.
type Config struct {
	Host                  string        `yaml:"host"`
	Port                  uint16        `yaml:"port"`
	MessageExpirationTime time.Duration `yaml:"message_expiration_time"`
	SessionExpirationTime time.Duration `yaml:"session_expiration_time"`
	JWTSecretKey          string        `yaml:"jwt_secret_key"`
	AuthorizedKeysPath    string        `yaml:"authorized_keys_path"`
	AuthorizedKeys        []string      `yaml:"authorized_keys"`
	NumWorkers            int           `yaml:"num_workers"`
	AdminKeys             []string      `yaml:"admin_keys"`
	MetricsAddr           string        `yaml:"metrics_addr"`
}

// Defaults mirror spec §6 verbatim.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort            uint16 = 3000
	DefaultMessageExpiry          = 3600 * time.Second
	DefaultSessionExpiry          = 3600 * time.Second
	DefaultNumWorkers             = 4
	DefaultMetricsAddr            = "0.0.0.0:9090"
)

// RegisterFlags attaches the spec §6 flag set to cmd with spec-mandated
// defaults, in the teacher's StringVar/IntVar declarative style.
func RegisterFlags(cmd *cobra.Command) *Config {
	cfg := &Config{}
	flags := cmd.Flags()

	flags.StringVar(&cfg.Host, "host", DefaultHost, "address to bind the server")
	var port int
	flags.IntVar(&port, "port", int(DefaultPort), "port to listen on")
	var messageExpirySeconds int
	flags.IntVar(&messageExpirySeconds, "message-expiration-time", int(DefaultMessageExpiry.Seconds()), "nonce lifetime in seconds")
	var sessionExpirySeconds int
	flags.IntVar(&sessionExpirySeconds, "session-expiration-time", int(DefaultSessionExpiry.Seconds()), "session token lifetime in seconds")
	flags.StringVar(&cfg.JWTSecretKey, "jwt-secret-key", "", "secret used to sign session tokens (required)")
	flags.StringVar(&cfg.AuthorizedKeysPath, "authorized-keys-path", "", "path to a JSON file of authorized hex public keys")
	var authorizedKeys string
	flags.StringVar(&authorizedKeys, "authorized-keys", "", "comma-separated list of authorized hex public keys")
	flags.IntVar(&cfg.NumWorkers, "num-workers", DefaultNumWorkers, "number of worker goroutines")
	var adminKeys string
	flags.StringVar(&adminKeys, "admin-keys", "", "comma-separated list of admin hex public keys")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", DefaultMetricsAddr, "address for the Prometheus metrics endpoint")

	cmd.PreRunE = func(*cobra.Command, []string) error {
		cfg.Port = uint16(port)
		cfg.MessageExpirationTime = time.Duration(messageExpirySeconds) * time.Second
		cfg.SessionExpirationTime = time.Duration(sessionExpirySeconds) * time.Second
		cfg.AuthorizedKeys = splitCSV(authorizedKeys)
		cfg.AdminKeys = splitCSV(adminKeys)
		applyEnvOverrides(cfg)
		return cfg.Validate()
	}
	return cfg
}

// LoadDotEnv loads the env file at path (".env" in the working directory
// when path is empty) into the process environment. prover-server calls it
// before the command runs, so the PROVER_* overrides applied in PreRunE can
// live in a file instead of the shell. Absence of the file is not an error.
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

// applyEnvOverrides lets PROVER_*-prefixed environment variables win over
// flag defaults, matching the teacher's applyEnvironmentOverrides
// (environment wins because it is the highest-priority layer, set last).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROVER_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PROVER_PORT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Port = uint16(n)
		}
	}
	if v := os.Getenv("PROVER_MESSAGE_EXPIRATION_TIME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MessageExpirationTime = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PROVER_SESSION_EXPIRATION_TIME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionExpirationTime = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PROVER_JWT_SECRET_KEY"); v != "" {
		cfg.JWTSecretKey = v
	}
	if v := os.Getenv("PROVER_AUTHORIZED_KEYS_PATH"); v != "" {
		cfg.AuthorizedKeysPath = v
	}
	if v := os.Getenv("PROVER_AUTHORIZED_KEYS"); v != "" {
		cfg.AuthorizedKeys = splitCSV(v)
	}
	if v := os.Getenv("PROVER_NUM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NumWorkers = n
		}
	}
	if v := os.Getenv("PROVER_ADMIN_KEYS"); v != "" {
		cfg.AdminKeys = splitCSV(v)
	}
	if v := os.Getenv("PROVER_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

// LoadOverlay merges a YAML file's fields into cfg for any field the file
// sets; zero-value fields in the overlay leave cfg's existing value alone.
// Used for the admin/authorized key lists that are awkward to pass via
// --flags or a single env var line.
func LoadOverlay(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read overlay: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: parse overlay: %w", err)
	}
	mergeOverlay(cfg, &overlay)
	return nil
}

func mergeOverlay(cfg, overlay *Config) {
	if overlay.Host != "" {
		cfg.Host = overlay.Host
	}
	if overlay.Port != 0 {
		cfg.Port = overlay.Port
	}
	if overlay.MessageExpirationTime != 0 {
		cfg.MessageExpirationTime = overlay.MessageExpirationTime
	}
	if overlay.SessionExpirationTime != 0 {
		cfg.SessionExpirationTime = overlay.SessionExpirationTime
	}
	if overlay.JWTSecretKey != "" {
		cfg.JWTSecretKey = overlay.JWTSecretKey
	}
	if overlay.AuthorizedKeysPath != "" {
		cfg.AuthorizedKeysPath = overlay.AuthorizedKeysPath
	}
	if len(overlay.AuthorizedKeys) > 0 {
		cfg.AuthorizedKeys = overlay.AuthorizedKeys
	}
	if overlay.NumWorkers != 0 {
		cfg.NumWorkers = overlay.NumWorkers
	}
	if len(overlay.AdminKeys) > 0 {
		cfg.AdminKeys = overlay.AdminKeys
	}
	if overlay.MetricsAddr != "" {
		cfg.MetricsAddr = overlay.MetricsAddr
	}
}

// Validate rejects a missing JWT secret, a non-positive worker count and an
// empty host. It does not check key formats, the authorized-keys file or
// the listen address; those fail later, when the authorizer is built or the
// server binds.
func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return errors.New("config: --jwt-secret-key is required")
	}
	if c.NumWorkers <= 0 {
		return errors.New("config: --num-workers must be positive")
	}
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("config: --host must not be empty")
	}
	return nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

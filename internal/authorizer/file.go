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

package authorizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

// File is an Authorizer backed by a JSON array of lowercase "0x"-prefixed
// hex public keys on disk. Reads and writes are whole-file (read-modify-
// write), matching FileAuthorizer in authorizer.rs. The backing file is
// created with content "[]" if it does not already exist.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile opens (or creates) the authorized-keys file at path.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("authorizer: create directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
			return nil, fmt.Errorf("authorizer: initialize file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("authorizer: stat file: %w", err)
	}
	return &File{path: path}, nil
}

// IsAuthorized reads the whole file and scans for pk.
func (f *File) IsAuthorized(pk accesskey.PublicKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.read()
	if err != nil {
		return false
	}
	target := pk.String()
	for _, k := range keys {
		if k == target {
			return true
		}
	}
	return false
}

// Authorize appends pk to the file if not already present; idempotent.
func (f *File) Authorize(pk accesskey.PublicKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.read()
	if err != nil {
		return err
	}
	target := pk.String()
	for _, k := range keys {
		if k == target {
			return nil
		}
	}
	keys = append(keys, target)
	return f.write(keys)
}

func (f *File) read() ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("authorizer: read file: %w", err)
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("authorizer: parse file: %w", err)
	}
	return keys, nil
}

func (f *File) write(keys []string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("authorizer: encode file: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("authorizer: write file: %w", err)
	}
	return nil
}

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

// Package accesskey wraps the Ed25519 key pair clients use to authenticate
// to the proving service.
package accesskey

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidLength is returned when a hex-encoded key does not decode to
// exactly ed25519.SeedSize bytes.
var ErrInvalidLength = errors.New("accesskey: expected 32 bytes")

// ErrInvalidSignature is returned by Verify when the signature does not
// match the message under the given public key.
var ErrInvalidSignature = errors.New("accesskey: invalid signature")

// PublicKey is a 32-byte Ed25519 verifying key. Its canonical text form is
// lowercase hex with a "0x" prefix.
type PublicKey struct {
	raw ed25519.PublicKey
}

// NewPublicKey wraps a raw Ed25519 public key. len(raw) must be
// ed25519.PublicKeySize.
func NewPublicKey(raw ed25519.PublicKey) (PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, ErrInvalidLength
	}
	cp := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(cp, raw)
	return PublicKey{raw: cp}, nil
}

// ParsePublicKey decodes a "0x"-prefixed (or bare) hex string into a PublicKey.
func ParsePublicKey(hexStr string) (PublicKey, error) {
	b, err := decodeHex(hexStr)
	if err != nil {
		return PublicKey{}, err
	}
	return NewPublicKey(ed25519.PublicKey(b))
}

// Bytes returns the raw 32-byte public key.
func (p PublicKey) Bytes() []byte {
	return p.raw
}

// String renders the canonical "0x"-prefixed lowercase hex form.
func (p PublicKey) String() string {
	return "0x" + hex.EncodeToString(p.raw)
}

// Equal reports whether two public keys are identical.
func (p PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(p.raw, other.raw)
}

// IsZero reports whether this PublicKey was never initialized.
func (p PublicKey) IsZero() bool {
	return len(p.raw) == 0
}

// Verify checks sig over message under this public key.
func (p PublicKey) Verify(message, sig []byte) error {
	if !ed25519.Verify(p.raw, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// AccessKey is a long-lived Ed25519 signing/verifying pair identifying a
// client to the proving service. Grounded on
// _examples/SAGE-X-project-sage/crypto/keys/ed25519.go's key generation and
// ID derivation, and on
// _examples/original_source/prover-sdk/src/access_key.rs's hex round-trip
// behavior.
type AccessKey struct {
	private ed25519.PrivateKey
	public  PublicKey
	id      string
}

// Generate creates a fresh random AccessKey.
func Generate() (AccessKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return AccessKey{}, err
	}
	public, err := NewPublicKey(pub)
	if err != nil {
		return AccessKey{}, err
	}
	return AccessKey{private: priv, public: public, id: deriveID(pub)}, nil
}

// FromHex reconstructs an AccessKey from a 32-byte ("0x"-prefixed or bare)
// hex-encoded seed, mirroring ProverAccessKey::from_hex_string.
func FromHex(hexStr string) (AccessKey, error) {
	seed, err := decodeHex(hexStr)
	if err != nil {
		return AccessKey{}, err
	}
	if len(seed) != ed25519.SeedSize {
		return AccessKey{}, ErrInvalidLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	public, err := NewPublicKey(pub)
	if err != nil {
		return AccessKey{}, err
	}
	return AccessKey{private: priv, public: public, id: deriveID(pub)}, nil
}

// PublicKey returns the verifying half of the key pair.
func (k AccessKey) PublicKey() PublicKey {
	return k.public
}

// Sign signs message with the private half of the key pair.
func (k AccessKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// ID returns a short identifier derived from the public key's SHA-256 hash,
// matching the teacher's GenerateEd25519KeyPair ID scheme.
func (k AccessKey) ID() string {
	return k.id
}

// SeedHex returns the lowercase "0x"-prefixed hex encoding of the 32-byte
// seed, the inverse of FromHex.
func (k AccessKey) SeedHex() string {
	return "0x" + hex.EncodeToString(k.private.Seed())
}

// Equal reports whether two AccessKeys share the same verifying half.
func (k AccessKey) Equal(other AccessKey) bool {
	return k.public.Equal(other.public)
}

func deriveID(pub ed25519.PublicKey) string {
	hash := sha256.Sum256(pub)
	return hex.EncodeToString(hash[:8])
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

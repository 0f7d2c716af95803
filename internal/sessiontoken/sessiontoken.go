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

// Package sessiontoken issues and validates the symmetric-signed bearer
// token returned on a successful handshake.
//
// Claims {sub, exp, session_key} mirror
// _examples/original_source/prover/src/auth/jwt.rs's Claims struct. Signing
// uses github.com/golang-jwt/jwt/v5 (a direct teacher dependency, used
// elsewhere in the teacher repo for RS256 in oidc/auth0/auth0.go) switched
// to HS256 since the spec calls for a single server secret rather than a
// keypair. The signing key itself is derived from the configured secret via
// golang.org/x/crypto/hkdf rather than used raw, so a short operator-chosen
// secret does not become the literal HMAC key.
package sessiontoken

import (
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

// ErrInvalidToken is returned for any malformed, unsigned, or expired token.
var ErrInvalidToken = errors.New("sessiontoken: invalid token")

// Claims carries the authenticated subject, expiry, and ephemeral session
// public key bound into a token.
type Claims struct {
	jwt.RegisteredClaims
	SessionKey string `json:"session_key"`
}

// Issuer mints and validates session tokens using a single server secret.
type Issuer struct {
	hmacKey []byte
}

// NewIssuer derives an HMAC signing key from secret via HKDF-SHA256.
func NewIssuer(secret []byte) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("sessiontoken: secret must not be empty")
	}
	kdf := hkdf.New(sha256.New, secret, nil, []byte("http-prover session token v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return &Issuer{hmacKey: key}, nil
}

// Issue signs a token for subject (the long-lived key's hex form) carrying
// sessionKey and expiring in ttl.
func (i *Issuer) Issue(subject accesskey.PublicKey, sessionKey accesskey.PublicKey, ttl time.Duration) (string, time.Time, error) {
	expiry := time.Now().Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		SessionKey: sessionKey.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.hmacKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// Validate parses and verifies tokenStr, returning its claims.
func (i *Issuer) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.hmacKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

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

// Package proverclient is a Go client SDK for the proving service's HTTP
// API, mirroring _examples/original_source/prover-sdk's two-stage
// builder: construct a Builder bound to a base URL and an access key, run
// Authenticate to complete the nonce/signature handshake and capture the
// session cookie, then Build a ready-to-use Client.
//
// Grounded on
// _examples/original_source/prover-sdk/src/sdk_builder.rs (ProverSDKBuilder's
// new/auth/build chain) and sdk.rs (ProverSDK's per-endpoint methods).
// net/http.Client with an http.CookieJar stands in for reqwest's
// cookie_store(true).cookie_provider(jar), the idiomatic Go equivalent; no
// example repo in the pack wraps an HTTP client behind a third-party
// library for this simple a case (see DESIGN.md).
package proverclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
)

const requestTimeout = 30 * time.Second

// Builder assembles a Client through the same two-step handshake the Rust
// SDK performs: resolve a nonce, sign it, exchange for a session cookie.
type Builder struct {
	httpClient *http.Client
	baseURL    *url.URL
	authority  accesskey.AccessKey
	jwtToken   string
}

// NewBuilder parses baseURL (normalizing it to end in "/" so url.Parse's
// relative joins behave, matching sdk.rs::new's own normalization) and
// prepares an http.Client with a private cookie jar.
func NewBuilder(baseURL string, authority accesskey.AccessKey) (*Builder, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("proverclient: parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("proverclient: create cookie jar: %w", err)
	}
	return &Builder{
		httpClient: &http.Client{Jar: jar, Timeout: requestTimeout},
		baseURL:    u,
		authority:  authority,
	}, nil
}

type authMessage struct {
	SessionKey string `json:"session_key"`
	Nonce      string `json:"nonce"`
}

type authResponseRequest struct {
	Signature string      `json:"signature"`
	Message   authMessage `json:"message"`
}

type authChallengeResponse struct {
	Nonce      string `json:"nonce"`
	Expiration int64  `json:"expiration"`
}

type authResponseResult struct {
	JWTToken string `json:"jwt_token"`
}

// Authenticate runs the full handshake spec §4.1 describes: GET /auth for
// a nonce, sign {session_key, nonce} with the authority key, POST /auth to
// trade the signature for a session cookie. The cookie jar captures the
// Set-Cookie response automatically; jwtToken is also kept for callers
// that want to inspect it directly.
func (b *Builder) Authenticate(ctx context.Context) (*Builder, error) {
	nonce, err := b.getNonce(ctx, b.authority.PublicKey())
	if err != nil {
		return nil, err
	}

	sessionKey, err := accesskey.Generate()
	if err != nil {
		return nil, fmt.Errorf("proverclient: generate session key: %w", err)
	}

	msg := authMessage{SessionKey: sessionKey.PublicKey().String(), Nonce: nonce}
	canonical, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("proverclient: encode auth message: %w", err)
	}
	sig := b.authority.Sign(canonical)

	token, err := b.validateSignature(ctx, sig, msg)
	if err != nil {
		return nil, err
	}
	b.jwtToken = token
	return b, nil
}

func (b *Builder) getNonce(ctx context.Context, pk accesskey.PublicKey) (string, error) {
	authURL := b.baseURL.JoinPath("auth")
	q := authURL.Query()
	q.Set("public_key", pk.String())
	authURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("proverclient: build nonce request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("proverclient: request nonce: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &ResponseError{Op: "get_nonce", Status: resp.StatusCode, Body: string(body)}
	}

	var challenge authChallengeResponse
	if err := json.Unmarshal(body, &challenge); err != nil {
		return "", fmt.Errorf("proverclient: decode nonce response: %w", err)
	}
	if challenge.Nonce == "" {
		return "", ErrNonceNotFound{}
	}
	return challenge.Nonce, nil
}

func (b *Builder) validateSignature(ctx context.Context, sig []byte, msg authMessage) (string, error) {
	body, err := json.Marshal(authResponseRequest{
		Signature: "0x" + encodeHex(sig),
		Message:   msg,
	})
	if err != nil {
		return "", fmt.Errorf("proverclient: encode signature request: %w", err)
	}

	authURL := b.baseURL.JoinPath("auth")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("proverclient: build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("proverclient: validate signature: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &ResponseError{Op: "validate_signature", Status: resp.StatusCode, Body: string(respBody)}
	}

	var result authResponseResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("proverclient: decode auth response: %w", err)
	}
	return result.JWTToken, nil
}

// Build finalizes the handshake into a ready-to-use Client. Authenticate
// must have succeeded first; a Builder that never authenticated can still
// Build, producing a Client that will fail its first authenticated call
// with an HTTP 401, matching the Rust SDK's fail-fast-on-first-use shape
// rather than returning an error eagerly here.
func (b *Builder) Build() *Client {
	return &Client{httpClient: b.httpClient, baseURL: b.baseURL, authority: b.authority}
}

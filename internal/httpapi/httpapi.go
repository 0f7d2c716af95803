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

// Package httpapi binds the proving service's components to the routes
// spec §4.8 names.
//
// Grounded on
// _examples/SAGE-X-project-sage/pkg/agent/transport/http/server.go (plain
// net/http, manual JSON encode/decode via small helper methods,
// http.HandlerFunc-based routing, no router library). The teacher never
// imports a router, so this uses stdlib net/http.ServeMux with Go 1.22+
// method+path patterns. Prometheus instrumentation is grounded on
// _examples/SAGE-X-project-sage/internal/metrics/{handshake,server}.go.
package httpapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
	"github.com/neotheprogramist/http-prover/internal/appstate"
	"github.com/neotheprogramist/http-prover/internal/apperr"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/logger"
	"github.com/neotheprogramist/http-prover/internal/metrics"
	"github.com/neotheprogramist/http-prover/internal/prove"
	"github.com/neotheprogramist/http-prover/internal/scratch"
	"github.com/neotheprogramist/http-prover/internal/sessiontoken"
	"github.com/neotheprogramist/http-prover/internal/verify"
)

type claimsCtxKey struct{}

// NewMux builds the full route table spec §4.8 names, wiring each route
// to state's components.
func NewMux(state *appstate.State) *http.ServeMux {
	s := &server{state: state}
	mux := http.NewServeMux()

	mux.Handle("GET /", instrument("root", http.HandlerFunc(s.handleRoot)))
	mux.Handle("GET /auth", instrument("auth_challenge", http.HandlerFunc(s.handleAuthChallenge)))
	mux.Handle("POST /auth", instrument("auth_response", http.HandlerFunc(s.handleAuthResponse)))
	mux.Handle("POST /register", instrument("register", s.requireSession(http.HandlerFunc(s.handleRegister))))
	mux.Handle("POST /prove/{variant}", instrument("prove", s.requireSession(http.HandlerFunc(s.handleProve))))
	mux.Handle("POST /verify", instrument("verify", s.requireSession(http.HandlerFunc(s.handleVerify))))
	mux.Handle("GET /get-job/{id}", instrument("get_job", s.requireSession(http.HandlerFunc(s.handleGetJob))))
	mux.Handle("GET /sse", instrument("sse", s.requireSession(http.HandlerFunc(s.handleSSE))))

	return mux
}

type server struct {
	state *appstate.State
}

// instrument wraps next with the request-count/latency metrics and
// structured access logging the teacher's metrics server pattern uses.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		logger.Debug("http request",
			logger.String("route", route),
			logger.String("method", r.Method),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying ResponseWriter's Flusher, so routes
// wrapped by instrument (every route) can still stream SSE through it.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requireSession extracts and validates the jwt_token cookie, per spec
// §4.2. On success the claims are attached to the request context.
func (s *server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("jwt_token")
		if err != nil {
			writeError(w, apperr.New(apperr.Unauthorized, "missing authorization"))
			return
		}
		claims, err := s.state.Tokens.Validate(cookie.Value)
		if err != nil {
			writeError(w, apperr.New(apperr.Unauthorized, "invalid token"))
			return
		}
		ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *sessiontoken.Claims {
	claims, _ := r.Context().Value(claimsCtxKey{}).(*sessiontoken.Claims)
	return claims
}

// handleRoot answers the liveness check spec §4.8 names.
func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

type authChallengeResponse struct {
	Nonce      string `json:"nonce"`
	Expiration int64  `json:"expiration"`
}

// handleAuthChallenge implements GET /auth (spec §4.1).
func (s *server) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	pkHex := r.URL.Query().Get("public_key")
	pk, err := accesskey.ParsePublicKey(pkHex)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid public key", err))
		return
	}
	if !s.state.Authorizer.IsAuthorized(pk) {
		metrics.AuthChallenges.WithLabelValues("unauthorized").Inc()
		writeError(w, apperr.New(apperr.Unauthorized, "key not authorized"))
		return
	}
	nonce, err := s.state.Nonces.Issue(pk)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "issue nonce", err))
		return
	}
	metrics.AuthChallenges.WithLabelValues("issued").Inc()
	writeJSON(w, http.StatusOK, authChallengeResponse{
		Nonce:      nonce,
		Expiration: int64(s.state.MessageTTL.Seconds()),
	})
}

type authMessage struct {
	SessionKey string `json:"session_key"`
	Nonce      string `json:"nonce"`
}

type authResponseRequest struct {
	Signature string      `json:"signature"`
	Message   authMessage `json:"message"`
}

type authResponseResult struct {
	JWTToken string `json:"jwt_token"`
}

// handleAuthResponse implements POST /auth (spec §4.1).
func (s *server) handleAuthResponse(w http.ResponseWriter, r *http.Request) {
	var req authResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid request body", err))
		return
	}

	pk, ok := s.state.Nonces.Consume(req.Message.Nonce)
	if !ok {
		metrics.AuthValidations.WithLabelValues("nonce_not_found").Inc()
		writeError(w, apperr.New(apperr.Unauthorized, "nonce not found"))
		return
	}

	sessionKey, err := accesskey.ParsePublicKey(req.Message.SessionKey)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid session key", err))
		return
	}
	sigBytes, err := decodeHexSignature(req.Signature)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid signature encoding", err))
		return
	}
	canonical, err := json.Marshal(req.Message)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "encode message", err))
		return
	}
	if err := pk.Verify(canonical, sigBytes); err != nil {
		metrics.AuthValidations.WithLabelValues("bad_signature").Inc()
		writeError(w, apperr.New(apperr.Unauthorized, "invalid signature"))
		return
	}

	token, expiry, err := s.state.Tokens.Issue(pk, sessionKey, s.state.SessionTTL)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "issue session token", err))
		return
	}
	metrics.AuthValidations.WithLabelValues("success").Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     "jwt_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		Expires:  expiry,
		MaxAge:   int(s.state.SessionTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, authResponseResult{JWTToken: token})
}

type registerRequest struct {
	Authority string `json:"authority"`
	NewKey    string `json:"new_key"`
	Signature string `json:"signature"`
}

// handleRegister implements POST /register (spec §4.3).
func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid request body", err))
		return
	}

	if !s.state.AdminKeys.Contains(strings.ToLower(req.Authority)) {
		writeError(w, apperr.New(apperr.Unauthorized, "authority is not an admin key"))
		return
	}

	authority, err := accesskey.ParsePublicKey(req.Authority)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid authority key", err))
		return
	}
	newKey, err := accesskey.ParsePublicKey(req.NewKey)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid new key", err))
		return
	}
	sigBytes, err := decodeHexSignature(req.Signature)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid signature encoding", err))
		return
	}
	if err := authority.Verify(newKey.Bytes(), sigBytes); err != nil {
		writeError(w, apperr.New(apperr.Unauthorized, "invalid signature"))
		return
	}

	if err := s.state.Authorizer.Authorize(newKey); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "persist authorized key", err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

type jobAcceptedResponse struct {
	JobID uint64 `json:"job_id"`
}

// proveCairoRequest is the wire shape of POST /prove/cairo (spec §4.6).
type proveCairoRequest struct {
	Program      json.RawMessage      `json:"program"`
	ProgramInput []prove.FieldElement `json:"program_input"`
	Layout       string               `json:"layout"`
	NQueries     *uint32              `json:"n_queries,omitempty"`
	PowBits      *uint32              `json:"pow_bits,omitempty"`
}

// proveCairo0Request is the wire shape of POST /prove/cairo0.
type proveCairo0Request struct {
	Program      json.RawMessage `json:"program"`
	ProgramInput json.RawMessage `json:"program_input"`
	Layout       string          `json:"layout"`
	NQueries     *uint32         `json:"n_queries,omitempty"`
	PowBits      *uint32         `json:"pow_bits,omitempty"`
}

// provePieRequest is the wire shape of POST /prove/pie. PieZip travels
// base64-encoded inside the JSON body, decoded by json.Unmarshal's native
// []byte handling.
type provePieRequest struct {
	PieZip   []byte  `json:"pie_zip"`
	Layout   string  `json:"layout"`
	NQueries *uint32 `json:"n_queries,omitempty"`
	PowBits  *uint32 `json:"pow_bits,omitempty"`
}

// handleProve implements POST /prove/{variant} (spec §4.6): decode the
// variant-specific body, create a job record, and hand the actual STARK
// toolchain invocation to the worker pool so the HTTP response returns
// immediately with a job id to poll or subscribe to.
func (s *server) handleProve(w http.ResponseWriter, r *http.Request) {
	variant := r.PathValue("variant")

	var input prove.Input
	var nQueries, powBits *uint32
	switch variant {
	case "cairo":
		var req proveCairoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Wrap(apperr.BadRequest, "invalid request body", err))
			return
		}
		input = prove.Cairo{
			Program:      req.Program,
			ProgramInput: req.ProgramInput,
			Layout:       req.Layout,
			NQueries:     req.NQueries,
			PowBits:      req.PowBits,
		}
		nQueries, powBits = req.NQueries, req.PowBits
	case "cairo0":
		var req proveCairo0Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Wrap(apperr.BadRequest, "invalid request body", err))
			return
		}
		input = prove.Cairo0{
			Program:      req.Program,
			ProgramInput: req.ProgramInput,
			Layout:       req.Layout,
			NQueries:     req.NQueries,
			PowBits:      req.PowBits,
		}
		nQueries, powBits = req.NQueries, req.PowBits
	case "pie":
		var req provePieRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Wrap(apperr.BadRequest, "invalid request body", err))
			return
		}
		input = prove.Pie{
			PieZip:   req.PieZip,
			Layout:   req.Layout,
			NQueries: req.NQueries,
			PowBits:  req.PowBits,
		}
		nQueries, powBits = req.NQueries, req.PowBits
	default:
		writeError(w, apperr.New(apperr.BadRequest, "unknown program variant"))
		return
	}

	kind := variant
	jobID := s.state.Jobs.Create(kind)
	metrics.JobsSubmitted.WithLabelValues(kind).Inc()

	dir, err := scratch.New(s.state.ScratchBase, jobID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create scratch directory", err))
		return
	}

	req := prove.Request{JobID: jobID, Dir: dir.Path, Input: input, NQueries: nQueries, PowBits: powBits}
	if !s.submit(w, jobID, kind, func(ctx context.Context) {
		defer dir.Remove()
		prove.Run(ctx, req, s.state.Jobs, s.state.Events)
	}) {
		dir.Remove()
		return
	}

	writeJSON(w, http.StatusAccepted, jobAcceptedResponse{JobID: jobID})
}

// handleVerify implements POST /verify (spec §4.7): the request body is a
// JSON object whose "proof" field holds the proof text to check against
// cpu_air_verifier.
func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Proof string `json:"proof"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid request body", err))
		return
	}

	jobID := s.state.Jobs.Create("verify")
	metrics.JobsSubmitted.WithLabelValues("verify").Inc()

	dir, err := scratch.New(s.state.ScratchBase, jobID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create scratch directory", err))
		return
	}

	proof := req.Proof
	if !s.submit(w, jobID, "verify", func(ctx context.Context) {
		defer dir.Remove()
		verify.RunJob(ctx, jobID, dir.Path, proof, s.state.Jobs, s.state.Events)
	}) {
		dir.Remove()
		return
	}

	writeJSON(w, http.StatusAccepted, jobAcceptedResponse{JobID: jobID})
}

// submit hands task to the worker pool, marking the job Failed and writing
// the HTTP error response itself if the pool refuses it (it has shut down).
// Submit gets a background context, so while the queue is full the call
// blocks until a slot frees. It reports whether the caller may still
// respond 202; on false the caller must not write another response.
func (s *server) submit(w http.ResponseWriter, jobID uint64, kind string, task func(context.Context)) bool {
	if err := s.state.Pool.Submit(context.Background(), task); err != nil {
		s.state.Jobs.Update(jobID, jobregistry.Failed, err.Error())
		writeError(w, apperr.Wrap(apperr.Internal, "submit job", err))
		return false
	}
	return true
}

type getJobResponse struct {
	ID     *uint64 `json:"id,omitempty"`
	Status string  `json:"status,omitempty"`
	Result string  `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// handleGetJob implements GET /get-job/:id (spec §4.8).
func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid job id", err))
		return
	}
	job, ok := s.state.Jobs.Get(id)
	if !ok {
		writeError(w, apperr.New(apperr.NotFound, "job not found"))
		return
	}

	switch job.Status {
	case jobregistry.Failed:
		writeJSON(w, http.StatusInternalServerError, getJobResponse{Error: job.Result})
	case jobregistry.Completed:
		writeJSON(w, http.StatusOK, getJobResponse{Status: job.Status.String(), Result: job.Result})
	default:
		writeJSON(w, http.StatusOK, getJobResponse{ID: &job.ID, Status: job.Status.String()})
	}
}

// handleSSE implements GET /sse?job_id=… (spec §4.8).
func (s *server) handleSSE(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("job_id"), 10, 64)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid job_id", err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperr.New(apperr.Internal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if job, ok := s.state.Jobs.Get(id); ok && job.Status.IsTerminal() {
		writeSSEEvent(w, job.Status, id)
		flusher.Flush()
		return
	}

	events, unsubscribe := s.state.Events.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.JobID != id {
				continue
			}
			writeSSEEvent(w, ev.Status, ev.JobID)
			flusher.Flush()
			return
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, status jobregistry.Status, jobID uint64) {
	payload, _ := json.Marshal([]any{status.String(), jobID})
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode JSON response", logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusFor(err), getJobResponse{Error: err.Error()})
}

// decodeHexSignature decodes a "0x"-prefixed (or bare) hex-encoded
// signature, mirroring accesskey's own tolerant hex convention for values
// that aren't themselves public keys.
func decodeHexSignature(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

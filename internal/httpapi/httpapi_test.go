package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
	"github.com/neotheprogramist/http-prover/internal/appstate"
	"github.com/neotheprogramist/http-prover/internal/authorizer"
	"github.com/neotheprogramist/http-prover/internal/eventbus"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/noncestore"
	"github.com/neotheprogramist/http-prover/internal/sessiontoken"
	"github.com/neotheprogramist/http-prover/internal/workerpool"
)

func newTestState(t *testing.T) (*appstate.State, accesskey.AccessKey) {
	t.Helper()
	key, err := accesskey.Generate()
	require.NoError(t, err)

	issuer, err := sessiontoken.NewIssuer([]byte("test-secret-test-secret-32bytes!"))
	require.NoError(t, err)

	pool := workerpool.New(context.Background(), 2)
	t.Cleanup(func() { pool.Shutdown() })

	state := &appstate.State{
		Authorizer:  authorizer.NewMemory(key.PublicKey()),
		AdminKeys:   appstate.NewAdminSet([]string{key.PublicKey().String()}),
		Nonces:      noncestore.New(time.Minute),
		Tokens:      issuer,
		Jobs:        jobregistry.New(),
		Events:      eventbus.New(),
		Pool:        pool,
		ScratchBase: t.TempDir(),
		SessionTTL:  time.Hour,
		MessageTTL:  time.Minute,
	}
	t.Cleanup(func() { state.Nonces.Close() })
	return state, key
}

func TestHandleRootOK(t *testing.T) {
	state, _ := newTestState(t)
	mux := NewMux(state)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthChallengeRejectsUnauthorizedKey(t *testing.T) {
	state, _ := newTestState(t)
	mux := NewMux(state)

	other, err := accesskey.Generate()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth?public_key="+other.PublicKey().String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFullAuthHandshakeIssuesSessionCookie(t *testing.T) {
	state, key := newTestState(t)
	mux := NewMux(state)

	req := httptest.NewRequest(http.MethodGet, "/auth?public_key="+key.PublicKey().String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var challenge authChallengeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&challenge))

	sessionKey, err := accesskey.Generate()
	require.NoError(t, err)

	msg := authMessage{SessionKey: sessionKey.PublicKey().String(), Nonce: challenge.Nonce}
	canonical, err := json.Marshal(msg)
	require.NoError(t, err)
	sig := key.Sign(canonical)

	body, err := json.Marshal(authResponseRequest{
		Signature: "0x" + hexEncode(sig),
		Message:   msg,
	})
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(string(body)))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

// writeStubBinary drops a POSIX shell script standing in for one of the
// external run/prove tools and prepends its directory to PATH, mirroring
// internal/prove/orchestrator_test.go's writeStubBinary so /prove/cairo
// can be driven end-to-end here without the real STARK toolchain.
func writeStubBinary(t *testing.T, dir, name, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub binaries are POSIX shell scripts")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
}

func stubToolchain(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	writeStubBinary(t, dir, "cairo1-run", `
pub=""
while [ $# -gt 0 ]; do
  case "$1" in
    --air_public_input) pub="$2"; shift 2;;
    *) shift;;
  esac
done
echo '{"n_steps": 128}' > "$pub"
`)
	writeStubBinary(t, dir, "cpu_air_prover", `
out=""
params=""
while [ $# -gt 0 ]; do
  case "$1" in
    --out_file) out="$2"; shift 2;;
    --parameter_file) params="$2"; shift 2;;
    *) shift;;
  esac
done
cp "$params" "$out"
`)
}

func waitForTerminal(t *testing.T, jobs *jobregistry.Registry, id uint64) jobregistry.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := jobs.Get(id)
		if ok && job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for job to reach a terminal state")
	return jobregistry.Job{}
}

func TestProveCairoAppliesNQueriesAndPowBitsOverrides(t *testing.T) {
	stubToolchain(t)
	state, key := newTestState(t)
	mux := NewMux(state)

	token, _, err := state.Tokens.Issue(key.PublicKey(), key.PublicKey(), time.Hour)
	require.NoError(t, err)

	nQueries := uint32(42)
	powBits := uint32(17)
	body, err := json.Marshal(proveCairoRequest{
		Program:      json.RawMessage(`{"data":[]}`),
		ProgramInput: nil,
		Layout:       "recursive",
		NQueries:     &nQueries,
		PowBits:      &powBits,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/prove/cairo", strings.NewReader(string(body)))
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted jobAcceptedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&accepted))

	job := waitForTerminal(t, state.Jobs, accepted.JobID)
	require.Equal(t, jobregistry.Completed, job.Status)
	assert.Contains(t, job.Result, `"n_queries": 42`)
	assert.Contains(t, job.Result, `"proof_of_work_bits": 17`)
}

func TestProveRouteRejectsWithoutSession(t *testing.T) {
	state, _ := newTestState(t)
	mux := NewMux(state)

	req := httptest.NewRequest(http.MethodPost, "/prove/cairo", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetJobUnknownIDReturnsNotFound(t *testing.T) {
	state, key := newTestState(t)
	mux := NewMux(state)

	token, _, err := state.Tokens.Issue(key.PublicKey(), key.PublicKey(), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/get-job/999", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobReflectsCompletedStatus(t *testing.T) {
	state, key := newTestState(t)
	mux := NewMux(state)

	token, _, err := state.Tokens.Issue(key.PublicKey(), key.PublicKey(), time.Hour)
	require.NoError(t, err)

	id := state.Jobs.Create("verify")
	state.Jobs.Update(id, jobregistry.Completed, "true")

	req := httptest.NewRequest(http.MethodGet, "/get-job/"+itoaTest(id), nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp getJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "true", resp.Result)
}

func TestRegisterRequiresAdminAuthority(t *testing.T) {
	state, key := newTestState(t)
	mux := NewMux(state)

	token, _, err := state.Tokens.Issue(key.PublicKey(), key.PublicKey(), time.Hour)
	require.NoError(t, err)

	nonAdmin, err := accesskey.Generate()
	require.NoError(t, err)
	newKey, err := accesskey.Generate()
	require.NoError(t, err)
	sig := nonAdmin.Sign(newKey.PublicKey().Bytes())

	body, err := json.Marshal(registerRequest{
		Authority: nonAdmin.PublicKey().String(),
		NewKey:    newKey.PublicKey().String(),
		Signature: "0x" + hexEncode(sig),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAuthorizesNewKeyForAdmin(t *testing.T) {
	state, key := newTestState(t)
	mux := NewMux(state)

	token, _, err := state.Tokens.Issue(key.PublicKey(), key.PublicKey(), time.Hour)
	require.NoError(t, err)

	newKey, err := accesskey.Generate()
	require.NoError(t, err)
	sig := key.Sign(newKey.PublicKey().Bytes())

	body, err := json.Marshal(registerRequest{
		Authority: key.PublicKey().String(),
		NewKey:    newKey.PublicKey().String(),
		Signature: "0x" + hexEncode(sig),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, state.Authorizer.IsAuthorized(newKey.PublicKey()))
}

func TestSSEReturnsImmediatelyForTerminalJob(t *testing.T) {
	state, key := newTestState(t)
	mux := NewMux(state)

	token, _, err := state.Tokens.Issue(key.PublicKey(), key.PublicKey(), time.Hour)
	require.NoError(t, err)

	id := state.Jobs.Create("verify")
	state.Jobs.Update(id, jobregistry.Completed, "true")

	req := httptest.NewRequest(http.MethodGet, "/sse?job_id="+itoaTest(id), nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: message")
	assert.Contains(t, rec.Body.String(), "Completed")
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0f]
	}
	return string(out)
}

func itoaTest(id uint64) string {
	if id == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for id > 0 {
		pos--
		buf[pos] = byte('0' + id%10)
		id /= 10
	}
	return string(buf[pos:])
}

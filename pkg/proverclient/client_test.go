package proverclient

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotheprogramist/http-prover/internal/accesskey"
	"github.com/neotheprogramist/http-prover/internal/appstate"
	"github.com/neotheprogramist/http-prover/internal/authorizer"
	"github.com/neotheprogramist/http-prover/internal/eventbus"
	"github.com/neotheprogramist/http-prover/internal/httpapi"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
	"github.com/neotheprogramist/http-prover/internal/noncestore"
	"github.com/neotheprogramist/http-prover/internal/sessiontoken"
	"github.com/neotheprogramist/http-prover/internal/workerpool"
)

func newTestServer(t *testing.T, key accesskey.AccessKey) (*httptest.Server, *appstate.State) {
	t.Helper()
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
	t.Cleanup(state.Nonces.Close)

	srv := httptest.NewServer(httpapi.NewMux(state))
	t.Cleanup(srv.Close)
	return srv, state
}

func authenticatedClient(t *testing.T, baseURL string, key accesskey.AccessKey) *Client {
	t.Helper()
	builder, err := NewBuilder(baseURL, key)
	require.NoError(t, err)
	_, err = builder.Authenticate(context.Background())
	require.NoError(t, err)
	return builder.Build()
}

func TestAuthenticateAndGetUnknownJob(t *testing.T) {
	key, err := accesskey.Generate()
	require.NoError(t, err)
	srv, _ := newTestServer(t, key)

	client := authenticatedClient(t, srv.URL, key)

	_, err = client.GetJob(context.Background(), 9999)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "get_job", respErr.Op)
	assert.Equal(t, 404, respErr.Status)
}

func TestGetJobReflectsCompletedStatus(t *testing.T) {
	key, err := accesskey.Generate()
	require.NoError(t, err)
	srv, state := newTestServer(t, key)

	id := state.Jobs.Create("verify")
	state.Jobs.Update(id, jobregistry.Completed, "true")

	client := authenticatedClient(t, srv.URL, key)

	status, err := client.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Completed", status.Status)
	assert.Equal(t, "true", status.Result)
	assert.True(t, status.Done())
}

func TestFetchPollingReturnsOnceTerminal(t *testing.T) {
	key, err := accesskey.Generate()
	require.NoError(t, err)
	srv, state := newTestServer(t, key)

	id := state.Jobs.Create("verify")
	client := authenticatedClient(t, srv.URL, key)

	go func() {
		time.Sleep(20 * time.Millisecond)
		state.Jobs.Update(id, jobregistry.Completed, "true")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, err := client.FetchPolling(ctx, id, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Completed", status.Status)
}

func TestRegisterAuthorizesNewKey(t *testing.T) {
	key, err := accesskey.Generate()
	require.NoError(t, err)
	srv, state := newTestServer(t, key)

	client := authenticatedClient(t, srv.URL, key)

	newKey, err := accesskey.Generate()
	require.NoError(t, err)

	require.NoError(t, client.Register(context.Background(), newKey.PublicKey()))
	assert.True(t, state.Authorizer.IsAuthorized(newKey.PublicKey()))
}

func TestVerifySubmitsJob(t *testing.T) {
	key, err := accesskey.Generate()
	require.NoError(t, err)
	srv, _ := newTestServer(t, key)

	client := authenticatedClient(t, srv.URL, key)

	jobID, err := client.Verify(context.Background(), "not-a-real-proof")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), jobID)
}

package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotheprogramist/http-prover/internal/eventbus"
	"github.com/neotheprogramist/http-prover/internal/jobregistry"
)

func TestRunJobCompletesTrueOnAcceptedProof(t *testing.T) {
	writeStubVerifier(t, 0)
	dir := t.TempDir()
	jobs := jobregistry.New()
	bus := eventbus.New()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	id := jobs.Create("verify")
	RunJob(context.Background(), id, dir, "proof-data", jobs, bus)

	job, ok := jobs.Get(id)
	require.True(t, ok)
	assert.Equal(t, jobregistry.Completed, job.Status)
	assert.Equal(t, "true", job.Result)

	select {
	case ev := <-events:
		assert.Equal(t, id, ev.JobID)
		assert.Equal(t, jobregistry.Completed, ev.Status)
	default:
		t.Fatal("expected a published event")
	}
}

func TestRunJobCompletesFalseOnRejectedProof(t *testing.T) {
	writeStubVerifier(t, 1)
	dir := t.TempDir()
	jobs := jobregistry.New()
	bus := eventbus.New()

	id := jobs.Create("verify")
	RunJob(context.Background(), id, dir, "proof-data", jobs, bus)

	job, ok := jobs.Get(id)
	require.True(t, ok)
	assert.Equal(t, jobregistry.Completed, job.Status)
	assert.Equal(t, "false", job.Result)
}

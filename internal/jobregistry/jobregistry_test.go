package jobregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	r := New()
	id := r.Create("cairo")

	job, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, Pending, job.Status)
	assert.Equal(t, "cairo", job.Kind)
}

func TestGetUnknownID(t *testing.T) {
	r := New()
	_, ok := r.Get(999)
	assert.False(t, ok)
}

func TestUpdateTransitionsStatus(t *testing.T) {
	r := New()
	id := r.Create("verify")

	r.Update(id, Running, "")
	job, _ := r.Get(id)
	assert.Equal(t, Running, job.Status)

	r.Update(id, Completed, "true")
	job, _ = r.Get(id)
	assert.Equal(t, Completed, job.Status)
	assert.Equal(t, "true", job.Result)
}

func TestUpdateIgnoresUnknownID(t *testing.T) {
	r := New()
	r.Update(42, Completed, "x") // must not panic
}

func TestUpdateIsNoOpOnceTerminal(t *testing.T) {
	r := New()
	id := r.Create("cairo")
	r.Update(id, Completed, "first")
	r.Update(id, Failed, "second")

	job, _ := r.Get(id)
	assert.Equal(t, Completed, job.Status)
	assert.Equal(t, "first", job.Result)
}

func TestEvictsJobsOlderThanRetention(t *testing.T) {
	r := New()
	now := time.Now()
	r.now = func() time.Time { return now }

	oldID := r.Create("cairo")
	r.now = func() time.Time { return now.Add(Retention + time.Minute) }
	freshID := r.Create("cairo0")

	_, oldStillThere := r.Get(oldID)
	assert.False(t, oldStillThere)

	fresh, ok := r.Get(freshID)
	require.True(t, ok)
	assert.Equal(t, "cairo0", fresh.Kind)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Pending", Pending.String())
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "Completed", Completed.String())
	assert.Equal(t, "Failed", Failed.String())
	assert.True(t, Completed.IsTerminal())
	assert.True(t, Failed.IsTerminal())
	assert.False(t, Running.IsTerminal())
}

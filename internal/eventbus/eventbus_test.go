package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotheprogramist/http-prover/internal/jobregistry"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	assert.True(t, b.HasSubscribers())
	b.Publish(Event{Status: jobregistry.Completed, JobID: 42})

	select {
	case ev := <-ch:
		assert.Equal(t, uint64(42), ev.JobID)
		assert.Equal(t, jobregistry.Completed, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNonMatchingSubscribersNeverFilteredAtBusLevel(t *testing.T) {
	// The bus itself fans out everything; filtering by job id is the
	// consumer's job (see httpapi's SSE handler). Verify two subscribers
	// both receive the same event.
	b := New()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Publish(Event{Status: jobregistry.Failed, JobID: 7})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, uint64(7), ev.JobID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestUnsubscribeStopsFutureDelivery(t *testing.T) {
	b := New()
	_, unsubscribe := b.Subscribe()
	unsubscribe()
	assert.False(t, b.HasSubscribers())
	// Publishing with no subscribers must not panic or block.
	b.Publish(Event{Status: jobregistry.Completed, JobID: 1})
}

func TestHasSubscribersGatesPublish(t *testing.T) {
	b := New()
	require.False(t, b.HasSubscribers())
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()
	require.True(t, b.HasSubscribers())
	_ = ch
}

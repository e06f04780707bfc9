package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	require.Equal(t, 1*time.Minute, BackoffDelay(0))
	require.Equal(t, 2*time.Minute, BackoffDelay(1))
	require.Equal(t, 4*time.Minute, BackoffDelay(2))
	require.Equal(t, 8*time.Minute, BackoffDelay(3))

	for i := 1; i < 10; i++ {
		require.Greater(t, BackoffDelay(i), BackoffDelay(i-1))
	}
}

func TestEventStatusTerminal(t *testing.T) {
	require.False(t, EventPending.Terminal())
	require.False(t, EventProcessing.Terminal())
	require.True(t, EventCompleted.Terminal())
	require.True(t, EventFailed.Terminal())
	require.True(t, EventDeadLetter.Terminal())
}

func TestLeaseExpired(t *testing.T) {
	now := time.Now()

	fresh := now.Add(-time.Minute)
	stale := now.Add(-LeaseTimeout - time.Second)

	event := &Event{Status: EventProcessing, ProcessingStartedAt: &fresh}
	require.False(t, event.LeaseExpired(now))

	event.ProcessingStartedAt = &stale
	require.True(t, event.LeaseExpired(now))

	// Only processing rows hold a lease.
	event.Status = EventPending
	require.False(t, event.LeaseExpired(now))

	event.Status = EventProcessing
	event.ProcessingStartedAt = nil
	require.False(t, event.LeaseExpired(now))
}

func TestMessageEventPayloadValid(t *testing.T) {
	require.True(t, MessageEventPayload{TenantID: 1, ConversationID: 2, MessageID: 3}.Valid())
	require.False(t, MessageEventPayload{ConversationID: 2, MessageID: 3}.Valid())
	require.False(t, MessageEventPayload{TenantID: 1, MessageID: 3}.Valid())
	require.False(t, MessageEventPayload{TenantID: 1, ConversationID: 2}.Valid())
}

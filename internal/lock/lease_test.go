package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLease_SecondAcquireIsSkipped(t *testing.T) {
	client := getTestClient(t)
	lease := NewLease(client)
	ctx := context.Background()
	calendarID := "cal-" + uuid.NewString()

	release, ok, err := lease.Acquire(ctx, calendarID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	_, ok, err = lease.Acquire(ctx, calendarID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "overlapping pass must be skipped, not queued")
}

func TestLease_ReleaseAllowsReacquire(t *testing.T) {
	client := getTestClient(t)
	lease := NewLease(client)
	ctx := context.Background()
	calendarID := "cal-" + uuid.NewString()

	release, ok, err := lease.Acquire(ctx, calendarID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release()

	release2, ok, err := lease.Acquire(ctx, calendarID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestLease_ReleaseDoesNotStealNewOwner(t *testing.T) {
	client := getTestClient(t)
	lease := NewLease(client)
	ctx := context.Background()
	calendarID := "cal-" + uuid.NewString()

	// First holder with a very short TTL.
	release1, ok, err := lease.Acquire(ctx, calendarID, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	// Lease expired; a second run takes it.
	release2, ok, err := lease.Acquire(ctx, calendarID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release2()

	// The stale holder's release must not remove the new owner's lease.
	release1()

	_, ok, err = lease.Acquire(ctx, calendarID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

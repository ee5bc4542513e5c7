package locking

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ramsey-B/clover/pkg/merging"
)

func startRedis(t *testing.T) *Client {
	t.Helper()
	if testing.Short() || os.Getenv("CLOVER_INTEGRATION") == "" {
		t.Skip("set CLOVER_INTEGRATION=1 to run against a Redis container")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client, err := NewClient(ctx, Config{Host: host, Port: portNum}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocker_AcquireIsExclusive(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	locker := NewLocker(client, "")

	lock, err := locker.Acquire(ctx, "merge:a:b", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "merge:a:b", time.Minute)
	assert.ErrorIs(t, err, merging.ErrLockNotAcquired)

	other, err := locker.Acquire(ctx, "merge:a:c", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))

	again, err := locker.Acquire(ctx, "merge:a:b", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_ReleaseAfterExpiry(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	locker := NewLocker(client, "test:")

	lock, err := locker.Acquire(ctx, "short", 50*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	// someone else took the key after expiry; our release must not delete it
	theirs, err := locker.Acquire(ctx, "short", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
	_, err = locker.Acquire(ctx, "short", time.Minute)
	assert.ErrorIs(t, err, merging.ErrLockNotAcquired)

	require.NoError(t, theirs.Release(ctx))
}

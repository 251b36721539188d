//go:build integration

package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ldotspots/zuco-motors/internal/models"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t)
	st := NewRedisStore(client, time.Hour, 24*time.Hour)

	s := models.Session{
		UserID:    "DLR001",
		Role:      models.UserRoleDealer,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ExpiresAt: time.Now().UTC().Add(-time.Minute).Truncate(time.Second),
	}
	require.NoError(t, st.Put(ctx, "c1", ScopeLong, NamespaceDealer, s))

	got, ns, ok, err := Find(ctx, st, "c1", "")
	require.NoError(t, err)
	require.True(t, ok, "expired sessions stay readable during the grace period")
	assert.Equal(t, NamespaceDealer, ns)
	assert.Equal(t, s.UserID, got.UserID)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, st.SetRemember(ctx, "c1"))
	remembered, err := st.Remembered(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, remembered)

	require.NoError(t, Clear(ctx, st, "c1"))
	_, _, ok, err = Find(ctx, st, "c1", "")
	require.NoError(t, err)
	assert.False(t, ok)
	remembered, err = st.Remembered(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, remembered)
}

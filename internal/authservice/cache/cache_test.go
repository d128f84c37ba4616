package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты кэша отозванных токенов поверх реального Redis
// (testcontainers-go, образ redis:7-alpine).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/authservice/cache -v -race -count=1

// startRedis — поднимает временный Redis и возвращает инициализированный
// кэш с функцией очистки. Без GO_TEST_INTEGRATION тест пропускается.
func startRedis(t *testing.T) (RevocationCache, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")

	rc, err := NewRedisCache(fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "")
	require.NoError(t, err)

	cleanup := func() {
		_ = rc.Close()
		_ = c.Terminate(context.Background())
	}
	return rc, cleanup
}

// TestIntegration_MarkRevoked_And_IsRevoked — запись видна после отзыва
// и не видна для чужого токена.
func TestIntegration_MarkRevoked_And_IsRevoked(t *testing.T) {
	rc, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()

	revoked, err := rc.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, rc.MarkRevoked(ctx, "token-a", time.Hour))

	revoked, err = rc.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = rc.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	require.False(t, revoked)
}

// TestIntegration_MarkRevoked_TTLExpires — запись исчезает после истечения TTL.
func TestIntegration_MarkRevoked_TTLExpires(t *testing.T) {
	rc, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, rc.MarkRevoked(ctx, "short-lived", 500*time.Millisecond))

	revoked, err := rc.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	require.True(t, revoked)

	time.Sleep(time.Second)

	revoked, err = rc.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	require.False(t, revoked)
}

// TestIntegration_MarkRevoked_NonPositiveTTL — запись с неположительным TTL
// не создаётся: токен и так истёк.
func TestIntegration_MarkRevoked_NonPositiveTTL(t *testing.T) {
	rc, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, rc.MarkRevoked(ctx, "already-expired", -time.Minute))

	revoked, err := rc.IsRevoked(ctx, "already-expired")
	require.NoError(t, err)
	require.False(t, revoked)
}

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Интеграционные тесты списка отозванных токенов:
// - идемпотентность RevokeToken и его CAS-семантика (inserted только у первого);
// - IsTokenRevoked до/после отзыва;
// - очистка истекших записей DeleteExpiredRemovedTokens;
// - поведение при конкурентных отзывах одного токена.

// TestIntegration_RevokeToken_Idempotent — первый отзыв даёт inserted=true,
// повторный — inserted=false без ошибки.
func TestIntegration_RevokeToken_Idempotent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	removeAt := time.Now().UTC().Add(time.Hour)

	inserted, err := st.RevokeToken(ctx, "token-a", removeAt)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = st.RevokeToken(ctx, "token-a", removeAt)
	require.NoError(t, err)
	require.False(t, inserted)
}

// TestIntegration_IsTokenRevoked — токен виден в списке только после отзыва.
func TestIntegration_IsTokenRevoked(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	revoked, err := st.IsTokenRevoked(ctx, "token-b")
	require.NoError(t, err)
	require.False(t, revoked)

	_, err = st.RevokeToken(ctx, "token-b", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	revoked, err = st.IsTokenRevoked(ctx, "token-b")
	require.NoError(t, err)
	require.True(t, revoked)
}

// TestIntegration_DeleteExpiredRemovedTokens — очистка удаляет только записи
// с прошедшим remove_at.
func TestIntegration_DeleteExpiredRemovedTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.RevokeToken(ctx, "expired-token", now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = st.RevokeToken(ctx, "live-token", now.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, st.DeleteExpiredRemovedTokens(ctx, now))

	revoked, err := st.IsTokenRevoked(ctx, "expired-token")
	require.NoError(t, err)
	require.False(t, revoked)

	revoked, err = st.IsTokenRevoked(ctx, "live-token")
	require.NoError(t, err)
	require.True(t, revoked)
}

// TestIntegration_RevokeToken_ConcurrentSingleWinner — при конкурентных
// отзывах одного токена inserted=true получает ровно один вызов.
func TestIntegration_RevokeToken_ConcurrentSingleWinner(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	const workers = 8
	removeAt := time.Now().UTC().Add(time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			inserted, err := st.RevokeToken(context.Background(), "contested-token", removeAt)
			require.NoError(t, err)

			if inserted {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	require.Equal(t, 1, winners)
}

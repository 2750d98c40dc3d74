package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
)

const adminID = 42

func newTestService(t *testing.T) (*Service, *economy.Service, *time.Time) {
	t.Helper()
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	cfg := &config.Config{
		AdminIDs:             []int64{adminID},
		AdminPasswordHash:    hash,
		AdminSessionTTL:      24 * time.Hour,
		EconomyRankingLimit:  10,
		EconomyHistoryLimit:  10,
		EconomyIncomeTaxRate: 0.3,
	}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	svc := NewService(NewMemoryStore(), econ, cfg)
	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, econ, &clock
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("пароль")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("пароль", hash))
	assert.False(t, VerifyPassword("другой", hash))
	assert.False(t, VerifyPassword("пароль", "not-a-hash"))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("not admin", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Login(ctx, 1, "secret")
		assert.ErrorIs(t, err, common.ErrNotAdmin)
	})

	t.Run("session lifetime", func(t *testing.T) {
		svc, _, clock := newTestService(t)
		assert.ErrorIs(t, svc.Authorize(ctx, adminID), common.ErrSessionExpired)

		session, err := svc.Login(ctx, adminID, "secret")
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		require.NoError(t, svc.Authorize(ctx, adminID))

		*clock = clock.Add(25 * time.Hour)
		assert.ErrorIs(t, svc.Authorize(ctx, adminID), common.ErrSessionExpired)

		removed, err := svc.CleanupSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
	})

	t.Run("lockout after three failures", func(t *testing.T) {
		svc, _, clock := newTestService(t)
		for i := 0; i < MaxFailedAttempts; i++ {
			_, err := svc.Login(ctx, adminID, "wrong")
			assert.ErrorIs(t, err, common.ErrWrongPassword)
		}
		_, err := svc.Login(ctx, adminID, "secret")
		assert.ErrorIs(t, err, common.ErrTooManyAttempts)

		*clock = clock.Add(AttemptWindow + time.Minute)
		_, err = svc.Login(ctx, adminID, "secret")
		assert.NoError(t, err)
	})

	t.Run("logout", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Login(ctx, adminID, "secret")
		require.NoError(t, err)
		require.NoError(t, svc.Logout(ctx, adminID))
		assert.ErrorIs(t, svc.Authorize(ctx, adminID), common.ErrSessionExpired)
	})
}

func TestGiveTake(t *testing.T) {
	ctx := context.Background()
	svc, econ, _ := newTestService(t)

	assert.ErrorIs(t, svc.Give(ctx, adminID, 7, 100), common.ErrSessionExpired)

	_, err := svc.Login(ctx, adminID, "secret")
	require.NoError(t, err)

	require.NoError(t, svc.Give(ctx, adminID, 7, 500))
	assert.ErrorIs(t, svc.Give(ctx, adminID, 7, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Take(ctx, adminID, 7, 501), common.ErrInsufficientBalance)
	require.NoError(t, svc.Take(ctx, adminID, 7, 200))

	balance, err := econ.GetBalance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	history, err := econ.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, economy.TxTypeAdminTake, history[0].Type)
	assert.Equal(t, economy.TxTypeAdminGive, history[1].Type)
}

package members

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
)

func TestResolveUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	require.NoError(t, svc.EnsureMember(ctx, 42, "alice", "Алиса"))
	require.NoError(t, svc.EnsureMember(ctx, 7, "bob", ""))

	cases := map[string]int64{
		"<@42>":  42,
		"<@!42>": 42,
		"42":     42,
		"@alice": 42,
		"ALICE":  42,
		"Алиса":  42,
		"bob":    7,
	}
	for arg, want := range cases {
		t.Run(arg, func(t *testing.T) {
			id, err := svc.ResolveUser(ctx, arg)
			require.NoError(t, err)
			assert.Equal(t, want, id)
		})
	}

	_, err := svc.ResolveUser(ctx, "@nobody")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
	_, err = svc.ResolveUser(ctx, "@")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestEnsureMemberUpdatesNames(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store)

	require.NoError(t, svc.EnsureMember(ctx, 1, "carol", ""))
	assert.Equal(t, "carol", svc.DisplayName(ctx, 1))

	require.NoError(t, svc.EnsureMember(ctx, 1, "carol", "Кэрол"))
	assert.Equal(t, "Кэрол", svc.DisplayName(ctx, 1))

	assert.Equal(t, "<@99>", svc.DisplayName(ctx, 99))
}

package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/common"
)

func TestPrompterAnswer(t *testing.T) {
	api := &fakeAPI{}
	p := NewPrompter(api, time.Second)

	type result struct {
		choice int
		err    error
	}
	done := make(chan result, 1)
	go func() {
		choice, err := p.Ask(context.Background(), "c1", 7, "Выбирай", []string{"❌", "🎲"})
		done <- result{choice, err}
	}()

	require.Eventually(t, func() bool { return p.waiting() == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, p.HandleReaction("m1", 8, "🎲"), "чужая реакция не считается")
	assert.False(t, p.HandleReaction("m1", 7, "👍"), "посторонний эмодзи не считается")
	assert.True(t, p.HandleReaction("m1", 7, "🎲"))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.choice)
	assert.Equal(t, 0, p.waiting())
	assert.Contains(t, api.messages()[0].content, "<@7>")
}

func TestPrompterTimeout(t *testing.T) {
	p := NewPrompter(&fakeAPI{}, 20*time.Millisecond)
	_, err := p.Ask(context.Background(), "c1", 7, "Выбирай", []string{"1️⃣"})
	assert.ErrorIs(t, err, common.ErrPromptTimeout)
	assert.False(t, p.HandleReaction("m1", 7, "1️⃣"))
}

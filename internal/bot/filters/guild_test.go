package filters

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

type fakeLookup struct {
	members map[string]*discordgo.Member
}

func (f fakeLookup) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	if m, ok := f.members[userID]; ok {
		return m, nil
	}
	return nil, errors.New("unknown member")
}

func message(guildID, userID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID:   guildID,
		ChannelID: "c1",
		Author:    &discordgo.User{ID: userID, Username: "user" + userID},
	}}
}

func TestCheckAccess(t *testing.T) {
	ctx := context.Background()
	memberService := members.NewService(members.NewMemoryStore())
	lookup := fakeLookup{members: map[string]*discordgo.Member{
		"2": {Nick: "Ник"},
	}}
	rec := &notify.Recorder{}
	f := NewGuildFilter("100", memberService, lookup, rec)

	assert.True(t, f.CheckAccess(ctx, message("100", "1")), "основной сервер")
	assert.False(t, f.CheckAccess(ctx, message("200", "1")), "чужой сервер")

	bot := message("100", "3")
	bot.Author.Bot = true
	assert.False(t, f.CheckAccess(ctx, bot), "боты игнорируются")

	t.Run("DM from guild member is backfilled", func(t *testing.T) {
		assert.True(t, f.CheckAccess(ctx, message("", "2")))
		ok, err := memberService.IsMember(ctx, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Ник", memberService.DisplayName(ctx, 2))
	})

	t.Run("DM from stranger is denied", func(t *testing.T) {
		assert.False(t, f.CheckAccess(ctx, message("", "9")))
		assert.Contains(t, rec.LastSent(), "только для участников")
	})
}

func TestDisplayName(t *testing.T) {
	u := &discordgo.User{Username: "login"}
	assert.Equal(t, "login", DisplayName(u, nil))
	u.GlobalName = "Глобал"
	assert.Equal(t, "Глобал", DisplayName(u, &discordgo.Member{}))
	assert.Equal(t, "Ник", DisplayName(u, &discordgo.Member{Nick: "Ник"}))
}

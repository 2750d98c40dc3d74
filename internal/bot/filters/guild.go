// Package filters решает, отвечать ли боту на сообщение.
package filters

import (
	"context"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

// MemberLookup проверяет членство на сервере через Discord API.
type MemberLookup interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// GuildFilter пропускает сообщения с основного сервера и ЛС его участников.
type GuildFilter struct {
	guildID       string
	memberService *members.Service
	lookup        MemberLookup
	sender        notify.Sender
}

// NewGuildFilter создаёт фильтр.
func NewGuildFilter(guildID string, memberService *members.Service, lookup MemberLookup, sender notify.Sender) *GuildFilter {
	return &GuildFilter{
		guildID:       guildID,
		memberService: memberService,
		lookup:        lookup,
		sender:        sender,
	}
}

// CheckAccess возвращает true, если сообщение нужно обработать.
func (f *GuildFilter) CheckAccess(ctx context.Context, m *discordgo.MessageCreate) bool {
	if m == nil || m.Message == nil || m.Author == nil {
		return false
	}
	if m.Author.Bot {
		return false
	}

	logger := log.WithFields(log.Fields{
		"component":  "GuildFilter",
		"guild_id":   m.GuildID,
		"channel_id": m.ChannelID,
		"user_id":    m.Author.ID,
	})

	// 1) Основной сервер
	if m.GuildID == f.guildID {
		return true
	}
	// 2) Другие серверы игнорируем
	if m.GuildID != "" {
		logger.Debug("deny: foreign guild")
		return false
	}

	// 3) ЛС: сначала по БД
	userID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		logger.WithError(err).Warn("bad user id")
		return false
	}
	isMember, err := f.memberService.IsMember(ctx, userID)
	if err != nil {
		logger.WithError(err).Error("member check failed (db)")
		return false
	}
	if isMember {
		return true
	}

	// 3.1) БД не знает пользователя: спрашиваем Discord
	member, err := f.lookup.GuildMember(f.guildID, m.Author.ID, discordgo.WithContext(ctx))
	if err != nil || member == nil {
		logger.WithError(err).Info("deny: private (not a guild member)")
		if sendErr := f.sender.Send(ctx, m.ChannelID, "❌ Бот работает только для участников сервера"); sendErr != nil {
			logger.WithError(sendErr).Warn("failed to send deny message")
		}
		return false
	}

	if err := f.memberService.EnsureMember(ctx, userID, m.Author.Username, DisplayName(m.Author, member)); err != nil {
		logger.WithError(err).Warn("failed to backfill member to DB (allowing anyway)")
	}
	logger.Info("allow: private (guild member, backfilled)")
	return true
}

// DisplayName выбирает имя для рейтингов: ник на сервере, глобальное имя или логин.
func DisplayName(user *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

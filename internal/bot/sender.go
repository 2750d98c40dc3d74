package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageLength — лимит Discord на длину одного сообщения.
const MaxMessageLength = 2000

// discordAPI — часть *discordgo.Session, которой пользуются Sender и Prompter.
type discordAPI interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// Sender реализует notify.Sender поверх discordgo.
type Sender struct {
	api              discordAPI
	generalChannelID string
}

// NewSender создаёт отправителя. Broadcast пишет в generalChannelID.
func NewSender(api discordAPI, generalChannelID string) *Sender {
	return &Sender{api: api, generalChannelID: generalChannelID}
}

// Send пишет в канал, разбивая длинный текст на части.
func (s *Sender) Send(ctx context.Context, channelID, text string) error {
	for _, part := range splitMessage(text, MaxMessageLength) {
		if _, err := s.api.ChannelMessageSend(channelID, part, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("ошибка отправки в канал %s: %w", channelID, err)
		}
	}
	return nil
}

// DM пишет пользователю в личные сообщения.
func (s *Sender) DM(ctx context.Context, userID int64, text string) error {
	ch, err := s.api.UserChannelCreate(strconv.FormatInt(userID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ошибка открытия ЛС user_id=%d: %w", userID, err)
	}
	return s.Send(ctx, ch.ID, text)
}

// Broadcast пишет в общий канал.
func (s *Sender) Broadcast(ctx context.Context, text string) error {
	return s.Send(ctx, s.generalChannelID, text)
}

// splitMessage режет текст по строкам на части не длиннее limit символов.
// Строка длиннее limit режется посимвольно.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		parts   []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			parts = append(parts, string(current))
			current = current[:0]
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		if len(current)+len(runes) > limit {
			flush()
		}
		for len(runes) > limit {
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		current = append(current, runes...)
	}
	flush()
	return parts
}

package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Prompter реализует notify.Prompter на реакциях: бот ставит под вопросом
// варианты-эмодзи и ждёт, пока нужный пользователь нажмёт один из них.
type Prompter struct {
	api     discordAPI
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*prompt // по ID сообщения с вопросом
}

type prompt struct {
	userID  int64
	options []string
	answer  chan int
}

// NewPrompter создаёт Prompter с таймаутом ответа.
func NewPrompter(api discordAPI, timeout time.Duration) *Prompter {
	return &Prompter{api: api, timeout: timeout, pending: make(map[string]*prompt)}
}

// Ask отправляет вопрос и ждёт выбор userID.
// По истечении таймаута возвращает common.ErrPromptTimeout.
func (p *Prompter) Ask(ctx context.Context, channelID string, userID int64, text string, options []string) (int, error) {
	msg, err := p.api.ChannelMessageSend(channelID, notify.Mention(userID)+" "+text, discordgo.WithContext(ctx))
	if err != nil {
		return -1, err
	}

	pr := &prompt{userID: userID, options: options, answer: make(chan int, 1)}
	p.mu.Lock()
	p.pending[msg.ID] = pr
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, msg.ID)
		p.mu.Unlock()
	}()

	for _, option := range options {
		if err := p.api.MessageReactionAdd(channelID, msg.ID, option, discordgo.WithContext(ctx)); err != nil {
			log.WithError(err).WithField("option", option).Warn("Не удалось поставить реакцию")
		}
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case i := <-pr.answer:
		return i, nil
	case <-timer.C:
		return -1, common.ErrPromptTimeout
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// HandleReaction передаёт реакцию ожидающему вопросу.
// Возвращает true, если реакция оказалась ответом.
func (p *Prompter) HandleReaction(messageID string, userID int64, emoji string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	pr, ok := p.pending[messageID]
	if !ok || pr.userID != userID {
		return false
	}
	for i, option := range pr.options {
		if option == emoji {
			select {
			case pr.answer <- i:
			default:
			}
			return true
		}
	}
	return false
}

func (p *Prompter) waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

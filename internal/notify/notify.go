// Package notify описывает исходящие сообщения бота.
// Фичи зависят только от этих интерфейсов, реализация на discordgo живёт в internal/bot.
package notify

import (
	"context"
	"fmt"
	"sync"
)

// Message — входящая команда: где и от кого она пришла.
type Message struct {
	ChannelID string
	UserID    int64
	Username  string
	IsDM      bool
}

// Sender отправляет текстовые сообщения.
type Sender interface {
	// Send пишет в канал.
	Send(ctx context.Context, channelID, text string) error
	// DM пишет пользователю в личные сообщения.
	DM(ctx context.Context, userID int64, text string) error
	// Broadcast пишет в общий канал сервера.
	Broadcast(ctx context.Context, text string) error
}

// Prompter задаёт пользователю вопрос с вариантами ответа и ждёт выбор.
// Возвращает индекс варианта или common.ErrPromptTimeout.
type Prompter interface {
	Ask(ctx context.Context, channelID string, userID int64, text string, options []string) (int, error)
}

// PrompterFunc позволяет использовать функцию как Prompter.
type PrompterFunc func(ctx context.Context, channelID string, userID int64, text string, options []string) (int, error)

// Ask вызывает f.
func (f PrompterFunc) Ask(ctx context.Context, channelID string, userID int64, text string, options []string) (int, error) {
	return f(ctx, channelID, userID, text, options)
}

// Mention форматирует упоминание пользователя Discord.
func Mention(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}

// Recorder — Sender, который запоминает сообщения вместо отправки (для тестов).
type Recorder struct {
	mu         sync.Mutex
	Sent       []Record
	DMs        []Record
	Broadcasts []string
}

// Record — одно записанное сообщение.
type Record struct {
	To   string
	User int64
	Text string
}

// Send записывает сообщение в канал.
func (r *Recorder) Send(_ context.Context, channelID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, Record{To: channelID, Text: text})
	return nil
}

// DM записывает личное сообщение.
func (r *Recorder) DM(_ context.Context, userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DMs = append(r.DMs, Record{User: userID, Text: text})
	return nil
}

// Broadcast записывает сообщение в общий канал.
func (r *Recorder) Broadcast(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Broadcasts = append(r.Broadcasts, text)
	return nil
}

// DMsTo возвращает личные сообщения одному пользователю.
func (r *Recorder) DMsTo(userID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, d := range r.DMs {
		if d.User == userID {
			out = append(out, d.Text)
		}
	}
	return out
}

// LastSent возвращает текст последнего сообщения в канал.
func (r *Recorder) LastSent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sent) == 0 {
		return ""
	}
	return r.Sent[len(r.Sent)-1].Text
}

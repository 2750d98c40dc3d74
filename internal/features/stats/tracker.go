// Package stats считает дневную активность сервера, начисляет доход
// за сообщения и голос и раз в сутки подводит итоги дня.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/features/tax"
	"serotonyl.ru/discord-bot/internal/notify"
)

// Ключи глобальных настроек
const (
	SettingLastRecord = "stats.last_record"
	SettingToday      = "stats.today"
)

// Counters — счётчики текущего дня.
type Counters struct {
	Messages      int64 `json:"messages"`
	MessageLength int64 `json:"message_length"`
	Reactions     int64 `json:"reactions"`
	VoiceJoins    int64 `json:"voice_joins"`
	VoiceMinutes  int64 `json:"voice_minutes"`
	People        int64 `json:"people"` // Разных активных людей
}

type snapshot struct {
	Counters
	PeopleIDs []int64 `json:"people_ids"`
}

// Tracker копит статистику в памяти и сбрасывает её в настройки каждую минуту.
type Tracker struct {
	economy *economy.Service
	tax     *tax.Service
	sender  notify.Sender
	cfg     *config.Config

	mu       sync.Mutex
	counters Counters
	people   map[int64]struct{}
	voice    map[int64]struct{}
}

// NewTracker создаёт трекер статистики.
func NewTracker(economyService *economy.Service, taxService *tax.Service, sender notify.Sender, cfg *config.Config) *Tracker {
	return &Tracker{
		economy: economyService,
		tax:     taxService,
		sender:  sender,
		cfg:     cfg,
		people:  make(map[int64]struct{}),
		voice:   make(map[int64]struct{}),
	}
}

// RecordMessage учитывает сообщение и платит автору доход:
// столько центило, сколько разных символов в тексте.
func (t *Tracker) RecordMessage(ctx context.Context, userID int64, content string) error {
	t.mu.Lock()
	t.counters.Messages++
	t.counters.MessageLength += int64(len([]rune(content)))
	t.people[userID] = struct{}{}
	t.mu.Unlock()

	if !t.cfg.FeatureIncomeEnabled {
		return nil
	}
	_, _, err := t.economy.ApplyIncomeWithTax(ctx, userID, MessageIncome(content), economy.TxTypeIncome, "Доход за сообщение")
	return err
}

// RecordReaction учитывает реакцию.
func (t *Tracker) RecordReaction(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters.Reactions++
	t.people[userID] = struct{}{}
}

// VoiceJoin отмечает, что пользователь зашёл в голосовой канал.
func (t *Tracker) VoiceJoin(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.voice[userID]; ok {
		return
	}
	t.voice[userID] = struct{}{}
	t.people[userID] = struct{}{}
	t.counters.VoiceJoins++
}

// VoiceLeave отмечает выход из голосового канала.
func (t *Tracker) VoiceLeave(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.voice, userID)
}

// PayVoiceIncome начисляет поминутный доход всем, кто сейчас в голосе.
func (t *Tracker) PayVoiceIncome(ctx context.Context) error {
	t.mu.Lock()
	ids := make([]int64, 0, len(t.voice))
	for id := range t.voice {
		ids = append(ids, id)
	}
	t.counters.VoiceMinutes += int64(len(ids))
	t.mu.Unlock()

	if !t.cfg.FeatureIncomeEnabled || t.cfg.EconomyVoiceIncome <= 0 {
		return nil
	}
	var firstErr error
	for _, id := range ids {
		if _, _, err := t.economy.ApplyIncomeWithTax(ctx, id, t.cfg.EconomyVoiceIncome, economy.TxTypeIncome, "Доход за голосовой канал"); err != nil {
			log.WithError(err).WithField("user_id", id).Error("Ошибка начисления дохода за голос")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Today возвращает счётчики текущего дня.
func (t *Tracker) Today() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.counters
	c.People = int64(len(t.people))
	return c
}

// Rollover вызывается каждую минуту. Если сменились сутки (UTC) относительно
// stats.last_record, индекс PPL становится числом активных людей за прошедший
// день, итоги уходят в общий канал, счётчики обнуляются. Первого числа
// дополнительно собираются налоги. Возвращает true, если день закрыт.
func (t *Tracker) Rollover(ctx context.Context, now time.Time) (bool, error) {
	now = now.UTC()
	last, ok, err := t.economy.GetTime(ctx, SettingLastRecord)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Info("Статистика: первая запись времени")
		return false, t.economy.SetTime(ctx, SettingLastRecord, now)
	}
	if common.SameDay(last.UTC(), now) {
		return false, t.Flush(ctx)
	}

	if err := t.economy.SetTime(ctx, SettingLastRecord, now); err != nil {
		return false, err
	}

	t.mu.Lock()
	day := t.counters
	day.People = int64(len(t.people))
	t.counters = Counters{}
	t.people = make(map[int64]struct{})
	t.mu.Unlock()

	index, err := t.economy.GetInt(ctx, economy.SettingPPLIndex)
	if err != nil {
		return false, err
	}
	if err := t.economy.SetInt(ctx, economy.SettingPPLYesterday, index); err != nil {
		return false, err
	}
	if err := t.economy.SetInt(ctx, economy.SettingPPLIndex, day.People); err != nil {
		return false, err
	}
	if err := t.Flush(ctx); err != nil {
		log.WithError(err).Error("Ошибка сохранения счётчиков")
	}

	if err := t.sender.Broadcast(ctx, FormatDay(last.UTC(), day)); err != nil {
		log.WithError(err).Error("Ошибка отправки статистики дня")
	}
	log.WithFields(log.Fields{
		"day":      common.FormatDate(last.UTC()),
		"messages": day.Messages,
		"people":   day.People,
	}).Info("День закрыт, индекс PPL обновлён")

	if now.Day() == 1 {
		if _, err := t.tax.CollectTaxes(ctx, now); err != nil {
			return true, fmt.Errorf("ошибка сбора налогов: %w", err)
		}
	}
	return true, nil
}

// Flush сохраняет счётчики дня в настройки.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	snap := snapshot{Counters: t.counters, PeopleIDs: make([]int64, 0, len(t.people))}
	for id := range t.people {
		snap.PeopleIDs = append(snap.PeopleIDs, id)
	}
	t.mu.Unlock()
	sort.Slice(snap.PeopleIDs, func(i, j int) bool { return snap.PeopleIDs[i] < snap.PeopleIDs[j] })

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("ошибка сериализации статистики: %w", err)
	}
	return t.economy.SetSetting(ctx, SettingToday, string(data))
}

// Restore поднимает счётчики после перезапуска.
func (t *Tracker) Restore(ctx context.Context) error {
	raw, ok, err := t.economy.GetSetting(ctx, SettingToday)
	if err != nil || !ok {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return fmt.Errorf("повреждена настройка %s: %w", SettingToday, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters = snap.Counters
	for _, id := range snap.PeopleIDs {
		t.people[id] = struct{}{}
	}
	return nil
}

// MessageIncome — доход за сообщение: число разных символов.
func MessageIncome(content string) int64 {
	seen := make(map[rune]struct{})
	for _, r := range content {
		seen[r] = struct{}{}
	}
	return int64(len(seen))
}

// FormatDay форматирует итоги дня.
func FormatDay(day time.Time, c Counters) string {
	return fmt.Sprintf("📊 Статистика за %s\n"+
		"• Сообщений: %s (всего %s символов)\n"+
		"• Реакций: %s\n"+
		"• Заходов в голос: %s, человеко-минут в голосе: %s\n"+
		"• Активных участников: %s",
		common.FormatDate(day),
		common.FormatNumber(c.Messages), common.FormatNumber(c.MessageLength),
		common.FormatNumber(c.Reactions),
		common.FormatNumber(c.VoiceJoins), common.FormatNumber(c.VoiceMinutes),
		common.FormatNumber(c.People))
}

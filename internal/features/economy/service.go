// Package economy — service.go содержит бизнес-логику экономики:
// баланс, налоговый долг, доход, инвентарь, рейтинг, переводы и расчёты.
package economy

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
)

// Ключи глобальных настроек индекса PPL.
const (
	SettingPPLIndex     = "ppl.index"
	SettingPPLYesterday = "ppl.yesterday"
)

// Service управляет экономикой бота (лофаны).
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService создаёт новый сервис экономики.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// EnsureAccount создаёт счёт нового участника (0 Ł).
func (s *Service) EnsureAccount(ctx context.Context, userID int64) error {
	return s.store.EnsureAccount(ctx, userID)
}

// GetAccount возвращает счёт целиком (баланс и налог).
func (s *Service) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	return s.store.GetAccount(ctx, userID)
}

// GetBalance возвращает баланс; отсутствующий счёт создаётся.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	a, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// AddBalance прибавляет delta без проверки остатка.
func (s *Service) AddBalance(ctx context.Context, userID, delta int64, txType, description string) error {
	return s.store.AddBalance(ctx, userID, delta, txType, description)
}

// SetBalance перезаписывает баланс.
func (s *Service) SetBalance(ctx context.Context, userID, value int64) error {
	return s.store.SetBalance(ctx, userID, value)
}

// Withdraw списывает amount или возвращает common.ErrInsufficientBalance.
func (s *Service) Withdraw(ctx context.Context, userID, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	return s.store.Withdraw(ctx, userID, amount, txType, description)
}

// GetTax возвращает налоговый долг.
func (s *Service) GetTax(ctx context.Context, userID int64) (int64, error) {
	a, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return a.Tax, nil
}

// AddTax меняет налоговый долг (результат не ниже нуля).
func (s *Service) AddTax(ctx context.Context, userID, delta int64) error {
	return s.store.AddTax(ctx, userID, delta)
}

// ApplyIncomeWithTax начисляет доход, удерживая часть в счёт налогового долга.
// Неположительный доход ничего не меняет.
func (s *Service) ApplyIncomeWithTax(ctx context.Context, userID, gross int64, txType, description string) (net, withheld int64, err error) {
	if gross <= 0 {
		return 0, 0, nil
	}
	return s.store.ApplyIncome(ctx, userID, gross, s.cfg.EconomyIncomeTaxRate, txType, description)
}

// GetInventory возвращает инвентарь пользователя.
func (s *Service) GetInventory(ctx context.Context, userID int64) (map[string]InventoryLine, error) {
	return s.store.GetInventory(ctx, userID)
}

// AddInventory прибавляет quantity к строке инвентаря.
func (s *Service) AddInventory(ctx context.Context, userID int64, name string, quantity, price int64) error {
	return s.store.AddInventory(ctx, userID, name, quantity, price)
}

// SetInventory перезаписывает строку инвентаря.
func (s *Service) SetInventory(ctx context.Context, userID int64, name string, quantity, price int64) error {
	return s.store.SetInventory(ctx, userID, name, quantity, price)
}

// TotalInventoryValue возвращает стоимость инвентаря.
func (s *Service) TotalInventoryValue(ctx context.Context, userID int64) (int64, error) {
	return s.store.TotalInventoryValue(ctx, userID)
}

// Ranking возвращает топ по балансу.
func (s *Service) Ranking(ctx context.Context, limit int) ([]RankEntry, error) {
	if limit <= 0 {
		limit = s.cfg.EconomyRankingLimit
	}
	return s.store.Ranking(ctx, limit)
}

// PPLPrice возвращает текущую цену единицы PPL в центило (индекс × 1 Ł).
func (s *Service) PPLPrice(ctx context.Context) (int64, error) {
	index, err := s.GetInt(ctx, SettingPPLIndex)
	if err != nil {
		return 0, err
	}
	return index * common.CentilosPerLofan, nil
}

// TotalAssets считает активы: баланс + инвентарь + PPL по цене pplPrice − налог.
// Строка PPL хранится с нулевой ценой, поэтому в стоимость инвентаря не входит.
func (s *Service) TotalAssets(ctx context.Context, userID, pplPrice int64) (int64, error) {
	a, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	items, err := s.store.GetInventory(ctx, userID)
	if err != nil {
		return 0, err
	}
	var value int64
	for name, line := range items {
		if name == PPLItem {
			value += line.Quantity * pplPrice
			continue
		}
		value += line.Quantity * line.UnitPrice
	}
	return a.Balance + value - a.Tax, nil
}

// Transfer переводит лофаны от одного пользователя другому.
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID, amount int64) error {
	if fromUserID == toUserID {
		return common.ErrSelfTransfer
	}
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	if err := s.store.Transfer(ctx, fromUserID, toUserID, amount, "Перевод"); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"from":   fromUserID,
		"to":     toUserID,
		"amount": amount,
	}).Info("Перевод выполнен")
	return nil
}

// CheckBalanceOf показывает счёт target. Просмотр чужого счёта стоит комиссию.
// Возвращает счёт и списанную комиссию.
func (s *Service) CheckBalanceOf(ctx context.Context, viewerID, targetID int64) (*Account, int64, error) {
	var fee int64
	if viewerID != targetID && s.cfg.EconomyCheckFee > 0 {
		fee = s.cfg.EconomyCheckFee
		if err := s.store.Withdraw(ctx, viewerID, fee, TxTypeFee, "Просмотр чужого баланса"); err != nil {
			return nil, 0, err
		}
	}
	a, err := s.store.GetAccount(ctx, targetID)
	if err != nil {
		return nil, fee, err
	}
	return a, fee, nil
}

// History возвращает последние операции пользователя.
func (s *Service) History(ctx context.Context, userID int64) ([]*Transaction, error) {
	return s.store.Transactions(ctx, userID, s.cfg.EconomyHistoryLimit)
}

// AccountIDs возвращает все известные счета.
func (s *Service) AccountIDs(ctx context.Context) ([]int64, error) {
	return s.store.AccountIDs(ctx)
}

// Settle применяет выплату расчёта (может быть отрицательной).
func (s *Service) Settle(ctx context.Context, userID, payout int64, description string) (int64, error) {
	shortfall, err := s.store.Settle(ctx, userID, payout, description)
	if err != nil {
		return 0, err
	}
	if shortfall > 0 {
		log.WithFields(log.Fields{
			"user_id":   userID,
			"shortfall": shortfall,
		}).Info("Недостача расчёта перенесена в налог")
	}
	return shortfall, nil
}

// GetSetting читает глобальную настройку.
func (s *Service) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return s.store.GetValue(ctx, key)
}

// SetSetting записывает глобальную настройку.
func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	return s.store.SetValue(ctx, key, value)
}

// GetInt читает целочисленную настройку; отсутствующая равна 0.
func (s *Service) GetInt(ctx context.Context, key string) (int64, error) {
	v, ok, err := s.store.GetValue(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("повреждена настройка %s: %w", key, err)
	}
	return n, nil
}

// SetInt записывает целочисленную настройку.
func (s *Service) SetInt(ctx context.Context, key string, value int64) error {
	return s.store.SetValue(ctx, key, strconv.FormatInt(value, 10))
}

// GetTime читает момент времени (RFC 3339); ok == false, если его нет.
func (s *Service) GetTime(ctx context.Context, key string) (time.Time, bool, error) {
	v, ok, err := s.store.GetValue(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("повреждена настройка %s: %w", key, err)
	}
	return t, true, nil
}

// SetTime записывает момент времени в RFC 3339.
func (s *Service) SetTime(ctx context.Context, key string, t time.Time) error {
	return s.store.SetValue(ctx, key, t.UTC().Format(time.RFC3339))
}

// Withholding считает удержание из дохода: min(round(gross*rate), owed).
func Withholding(gross int64, rate float64, owed int64) int64 {
	if gross <= 0 || owed <= 0 || rate <= 0 {
		return 0
	}
	w := int64(math.Round(float64(gross) * rate))
	if w > owed {
		w = owed
	}
	return w
}

// SettleOutcome возвращает новый баланс и недостачу для выплаты расчёта.
// Если баланса не хватает на отрицательную выплату, баланс обнуляется,
// а недостача уходит в налог.
func SettleOutcome(balance, payout int64) (newBalance, shortfall int64) {
	if balance+payout >= 0 {
		return balance + payout, 0
	}
	return 0, -payout - balance
}

// DenseRank проставляет плотный ранг записям, уже отсортированным по балансу.
func DenseRank(entries []RankEntry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Balance != entries[i-1].Balance {
			rank++
		}
		entries[i].Rank = rank
	}
}

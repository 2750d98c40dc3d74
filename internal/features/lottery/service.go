// Package lottery — service.go: покупка билетов и розыгрыш.
package lottery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/notify"
)

// SettingLastDraw — время последнего розыгрыша в глобальных настройках.
const SettingLastDraw = "lottery.last_draw"

// Service продаёт билеты и проводит розыгрыши.
type Service struct {
	store    Store
	economy  *economy.Service
	sender   notify.Sender
	cfg      *config.Config
	validate *validator.Validate
	pick     func() Numbers

	locks *common.KeyedMutex
	// Покупки берут RLock, розыгрыш берёт Lock
	drawMu sync.RWMutex
}

// NewService создаёт сервис лотереи.
func NewService(store Store, economyService *economy.Service, sender notify.Sender, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		economy:  economyService,
		sender:   sender,
		cfg:      cfg,
		validate: validator.New(),
		pick:     RandomNumbers,
		locks:    common.NewKeyedMutex(),
	}
}

// BuyAuto покупает count билетов со случайными числами.
func (s *Service) BuyAuto(ctx context.Context, userID int64, count int) ([]Numbers, error) {
	if count <= 0 {
		return nil, common.ErrInvalidAmount
	}
	// Потолок проверяется до генерации: count приходит от пользователя
	if count > s.cfg.LotteryMaxTickets {
		return nil, fmt.Errorf("%w: можно держать не больше %d",
			common.ErrTooManyTickets, s.cfg.LotteryMaxTickets)
	}
	tickets := make([]Numbers, count)
	for i := range tickets {
		tickets[i] = s.pick()
	}
	return tickets, s.buy(ctx, userID, tickets)
}

// BuyManual покупает один билет с выбранными числами.
func (s *Service) BuyManual(ctx context.Context, userID int64, numbers []int) (Numbers, error) {
	ticket, ok := ParseNumbers(s.validate, numbers)
	if !ok {
		return nil, common.ErrInvalidTicket
	}
	return ticket, s.buy(ctx, userID, []Numbers{ticket})
}

func (s *Service) buy(ctx context.Context, userID int64, tickets []Numbers) error {
	s.drawMu.RLock()
	defer s.drawMu.RUnlock()
	unlock := s.locks.Lock(userID)
	defer unlock()

	held, err := s.held(ctx, userID)
	if err != nil {
		return err
	}
	if held+int64(len(tickets)) > int64(s.cfg.LotteryMaxTickets) {
		return fmt.Errorf("%w: можно держать не больше %d, у вас %d",
			common.ErrTooManyTickets, s.cfg.LotteryMaxTickets, held)
	}
	balance, err := s.economy.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	if balance < int64(len(tickets))*s.cfg.LotteryPrice {
		return common.ErrInsufficientBalance
	}

	total := int64(len(tickets)) * s.cfg.LotteryPrice
	description := fmt.Sprintf("Билеты лотереи (%d)", len(tickets))
	if err := s.economy.Withdraw(ctx, userID, total, economy.TxTypeLottery, description); err != nil {
		return err
	}
	for i, t := range tickets {
		if err := s.store.AddTicket(ctx, userID, t, 1); err != nil {
			refund := int64(len(tickets)-i) * s.cfg.LotteryPrice
			if refundErr := s.economy.AddBalance(ctx, userID, refund, economy.TxTypeLottery, "Возврат за билеты"); refundErr != nil {
				log.WithError(refundErr).WithField("user_id", userID).Error("Ошибка возврата за билеты")
			}
			return err
		}
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"tickets": len(tickets),
	}).Info("Куплены билеты лотереи")
	return nil
}

func (s *Service) held(ctx context.Context, userID int64) (int64, error) {
	tickets, err := s.store.UserTickets(ctx, userID)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, t := range tickets {
		n += t.Quantity
	}
	return n, nil
}

// MyTickets возвращает билеты пользователя.
func (s *Service) MyTickets(ctx context.Context, userID int64) ([]Ticket, error) {
	return s.store.UserTickets(ctx, userID)
}

// CheckDraw проводит розыгрыш, если прошлого не было или прошёл интервал.
// Возвращает nil, если розыгрыш ещё не пора проводить.
func (s *Service) CheckDraw(ctx context.Context, now time.Time) (*Draw, error) {
	last, ok, err := s.economy.GetTime(ctx, SettingLastDraw)
	if err != nil {
		return nil, err
	}
	if ok && now.Sub(last) < s.cfg.LotteryDrawInterval {
		return nil, nil
	}
	return s.Draw(ctx, now)
}

// Draw разыгрывает все проданные билеты и очищает их.
// Время розыгрыша сохраняется первым, чтобы повторный тик не провёл его дважды.
func (s *Service) Draw(ctx context.Context, now time.Time) (*Draw, error) {
	s.drawMu.Lock()
	defer s.drawMu.Unlock()

	if err := s.economy.SetTime(ctx, SettingLastDraw, now); err != nil {
		return nil, err
	}
	tickets, err := s.store.AllTickets(ctx)
	if err != nil {
		return nil, err
	}

	d := &Draw{ID: uuid.New(), Winning: s.pick(), DrawnAt: now}
	if len(tickets) == 0 {
		log.WithField("draw", d.ID).Info("Розыгрыш лотереи: билетов нет")
		return d, nil
	}
	d.Tickets, d.Pool, d.Winners = Resolve(d.Winning, tickets, s.cfg.LotteryPrice, s.cfg.LotteryFeeRate)

	for _, w := range d.Winners {
		if w.Payout <= 0 {
			continue
		}
		if err := s.economy.AddBalance(ctx, w.UserID, w.Payout, economy.TxTypeLottery, "Выигрыш лотереи"); err != nil {
			log.WithError(err).WithField("user_id", w.UserID).Error("Ошибка выплаты лотереи")
		}
	}
	if err := s.store.ClearTickets(ctx); err != nil {
		return d, err
	}
	if err := s.store.SaveDraw(ctx, d); err != nil {
		log.WithError(err).WithField("draw", d.ID).Error("Ошибка сохранения розыгрыша")
	}

	for _, w := range d.Winners {
		if err := s.sender.DM(ctx, w.UserID, FormatWinner(d, w)); err != nil {
			log.WithError(err).WithField("user_id", w.UserID).Warn("Не удалось отправить итог лотереи")
		}
	}
	if err := s.sender.Broadcast(ctx, FormatDraw(d)); err != nil {
		log.WithError(err).Error("Ошибка отправки итогов лотереи")
	}

	log.WithFields(log.Fields{
		"draw":    d.ID,
		"tickets": d.Tickets,
		"pool":    d.Pool,
		"holders": len(d.Winners),
	}).Info("Розыгрыш лотереи проведён")
	return d, nil
}

// Status возвращает число билетов, держателей, фонд и время розыгрышей.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	tickets, err := s.store.AllTickets(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{}
	holders := make(map[int64]struct{})
	for _, t := range tickets {
		st.Tickets += t.Quantity
		holders[t.UserID] = struct{}{}
	}
	st.Holders = len(holders)
	st.Pool = PoolSize(st.Tickets, s.cfg.LotteryPrice, s.cfg.LotteryFeeRate)

	last, ok, err := s.economy.GetTime(ctx, SettingLastDraw)
	if err != nil {
		return nil, err
	}
	if ok {
		next := last.Add(s.cfg.LotteryDrawInterval)
		st.LastDraw, st.NextDraw = &last, &next
	}
	prev, err := s.store.LastDraw(ctx)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		st.LastNumbers = prev.Winning
	}
	return st, nil
}

// PoolSize — призовой фонд: билеты × цена × (1 − комиссия).
// Отрицательная комиссия означает доплату в фонд.
func PoolSize(tickets, price int64, feeRate float64) int64 {
	return decimal.NewFromInt(tickets * price).
		Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(feeRate))).
		Round(0).IntPart()
}

// Resolve делит фонд между держателями пропорционально Σ близость × количество.
// Победители отсортированы по убыванию выплаты.
func Resolve(winning Numbers, tickets []Ticket, price int64, feeRate float64) (count, pool int64, winners []Winner) {
	byUser := make(map[int64]*Winner)
	var scoreSum float64
	for _, t := range tickets {
		w, ok := byUser[t.UserID]
		if !ok {
			w = &Winner{UserID: t.UserID}
			byUser[t.UserID] = w
		}
		score := Similarity(winning, t.Numbers) * float64(t.Quantity)
		w.Score += score
		w.Tickets = append(w.Tickets, t)
		scoreSum += score
		count += t.Quantity
	}
	pool = PoolSize(count, price, feeRate)

	winners = make([]Winner, 0, len(byUser))
	for _, w := range byUser {
		if scoreSum > 0 {
			w.Payout = decimal.NewFromInt(pool).
				Mul(decimal.NewFromFloat(w.Score)).
				Div(decimal.NewFromFloat(scoreSum)).
				Round(0).IntPart()
		}
		winners = append(winners, *w)
	}
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Payout != winners[j].Payout {
			return winners[i].Payout > winners[j].Payout
		}
		return winners[i].UserID < winners[j].UserID
	})
	return count, pool, winners
}

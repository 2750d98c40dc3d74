// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: поминутный тик статистики и дохода,
// ежечасная проверка лотереи и очистка админ-сессий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/features/admin"
	"serotonyl.ru/discord-bot/internal/features/lottery"
	"serotonyl.ru/discord-bot/internal/features/stats"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron           *cron.Cron
	tracker        *stats.Tracker
	lotteryService *lottery.Service
	adminService   *admin.Service
	now            func() time.Time
}

// NewScheduler создаёт планировщик в часовом поясе loc.
// Задача, не успевшая завершиться, пропускает следующий запуск.
func NewScheduler(tracker *stats.Tracker, lotteryService *lottery.Service, adminService *admin.Service, loc *time.Location) *Scheduler {
	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		cron:           c,
		tracker:        tracker,
		lotteryService: lotteryService,
		adminService:   adminService,
		now:            time.Now,
	}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		fn   func(context.Context)
	}{
		{"* * * * *", s.Tick},
		{"0 * * * *", s.CheckLottery},
		{"30 * * * *", s.CleanupSessions},
	}
	for _, j := range jobs {
		fn := j.fn
		if _, err := s.cron.AddFunc(j.spec, func() { fn(ctx) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.WithField("jobs", len(jobs)).Info("Планировщик задач запущен")
	return nil
}

// Tick — поминутная задача: доход за голос и смена суток статистики.
func (s *Scheduler) Tick(ctx context.Context) {
	if err := s.tracker.PayVoiceIncome(ctx); err != nil {
		log.WithError(err).Error("[CRON] Ошибка начисления дохода за голос")
	}
	closed, err := s.tracker.Rollover(ctx, s.now())
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка смены суток")
		return
	}
	if closed {
		log.Info("[CRON] День закрыт")
	}
}

// CheckLottery — ежечасная проверка, не пора ли разыграть лотерею.
func (s *Scheduler) CheckLottery(ctx context.Context) {
	log.Debug("[CRON] Проверка лотереи")
	d, err := s.lotteryService.CheckDraw(ctx, s.now())
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка розыгрыша лотереи")
		return
	}
	if d != nil {
		log.WithField("draw", d.ID).Info("[CRON] Лотерея разыграна")
	}
}

// CleanupSessions удаляет истёкшие админ-сессии.
func (s *Scheduler) CleanupSessions(ctx context.Context) {
	removed, err := s.adminService.CleanupSessions(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки админ-сессий")
		return
	}
	if removed > 0 {
		log.WithField("removed", removed).Debug("[CRON] Админ-сессии очищены")
	}
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

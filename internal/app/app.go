// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: хранилища, сервисы, обработчики, бот,
// планировщик и HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/bot"
	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/db/postgres"
	"serotonyl.ru/discord-bot/internal/features/admin"
	"serotonyl.ru/discord-bot/internal/features/attendance"
	"serotonyl.ru/discord-bot/internal/features/betting"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/features/lottery"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/features/pig"
	"serotonyl.ru/discord-bot/internal/features/ppl"
	"serotonyl.ru/discord-bot/internal/features/prediction"
	"serotonyl.ru/discord-bot/internal/features/scratch"
	"serotonyl.ru/discord-bot/internal/features/settle"
	"serotonyl.ru/discord-bot/internal/features/stats"
	"serotonyl.ru/discord-bot/internal/features/tax"
	"serotonyl.ru/discord-bot/internal/httpapi"
	"serotonyl.ru/discord-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	API       *httpapi.Server
	DB        *pgxpool.Pool // nil в режиме memory
	Session   *discordgo.Session

	cfg *config.Config
}

// stores — набор хранилищ фич.
type stores struct {
	members    members.Store
	economy    economy.Store
	lottery    lottery.Store
	scratch    scratch.Store
	pig        pig.Store
	attendance attendance.Store
	admin      admin.Store
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен: компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Хранилище ===
	st, pool, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// === 2. Discord ===
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		closePool(pool)
		return nil, fmt.Errorf("ошибка создания Discord-сессии: %w", err)
	}
	sender := bot.NewSender(session, cfg.GeneralChannelID)
	prompter := bot.NewPrompter(session, cfg.PromptTimeout)

	// === 3. Сервисы ===
	memberService := members.NewService(st.members)
	economyService := economy.NewService(st.economy, cfg)
	taxService := tax.NewService(economyService, sender)
	bettingService := betting.NewService(economyService)
	settleService := settle.NewService(economyService)
	predictionService := prediction.NewService(economyService, cfg)
	lotteryService := lottery.NewService(st.lottery, economyService, sender, cfg)
	pplService := ppl.NewService(economyService)
	tracker := stats.NewTracker(economyService, taxService, sender, cfg)
	scratchService := scratch.NewService(st.scratch, economyService, prompter, cfg)
	pigService := pig.NewService(st.pig, economyService, prompter, cfg)
	attendanceService := attendance.NewService(st.attendance, economyService, cfg)
	adminService := admin.NewService(st.admin, economyService, cfg)

	// Суточные счётчики переживают рестарт
	if err := tracker.Restore(ctx); err != nil {
		log.WithError(err).Warn("Не удалось восстановить счётчики активности")
	}

	// === 4. Обработчики ===
	handlers := bot.Handlers{
		Members:    members.NewHandler(memberService),
		Economy:    economy.NewHandler(economyService, memberService, sender),
		Tax:        tax.NewHandler(taxService, economyService, sender),
		Betting:    betting.NewHandler(bettingService, memberService, sender),
		Settle:     settle.NewHandler(settleService, memberService, sender),
		Prediction: prediction.NewHandler(predictionService, memberService, sender, cfg),
		Lottery:    lottery.NewHandler(lotteryService, sender),
		PPL:        ppl.NewHandler(pplService, sender),
		Scratch:    scratch.NewHandler(scratchService, sender),
		Pig:        pig.NewHandler(pigService, memberService, sender),
		Attendance: attendance.NewHandler(attendanceService, memberService, sender),
		Stats:      stats.NewHandler(tracker, sender),
		Admin:      admin.NewHandler(adminService, memberService, lotteryService, taxService, sender),
	}

	// === 5. Бот, планировщик, API ===
	b := bot.New(session, cfg, handlers, memberService, tracker, sender, prompter)
	scheduler := jobs.NewScheduler(tracker, lotteryService, adminService, cfg.Location())
	api := httpapi.New(economyService, lotteryService, memberService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		API:       api,
		DB:        pool,
		Session:   session,
		cfg:       cfg,
	}, nil
}

// openStores выбирает хранилища по APP_STORAGE.
func openStores(ctx context.Context, cfg *config.Config) (*stores, *pgxpool.Pool, error) {
	if cfg.AppStorage == config.StorageMemory {
		log.Warn("Используется хранилище в памяти: данные не переживут рестарт")
		return &stores{
			members:    members.NewMemoryStore(),
			economy:    economy.NewMemoryStore(),
			lottery:    lottery.NewMemoryStore(),
			scratch:    scratch.NewMemoryStore(),
			pig:        pig.NewMemoryStore(),
			attendance: attendance.NewMemoryStore(),
			admin:      admin.NewMemoryStore(),
		}, nil, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.Migrate(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ошибка миграций: %w", err)
	}
	return &stores{
		members:    members.NewRepository(pool),
		economy:    economy.NewRepository(pool),
		lottery:    lottery.NewRepository(pool),
		scratch:    scratch.NewRepository(pool),
		pig:        pig.NewRepository(pool),
		attendance: attendance.NewRepository(pool),
		admin:      admin.NewRepository(pool),
	}, pool, nil
}

// Run запускает планировщик, HTTP API и бота и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("ошибка запуска планировщика: %w", err)
	}
	defer a.Scheduler.Stop()

	apiErr := make(chan error, 1)
	if a.cfg.HTTPAddr != "" {
		go func() {
			apiErr <- a.API.ListenAndServe(ctx, a.cfg.HTTPAddr)
		}()
	}
	botErr := make(chan error, 1)
	go func() {
		botErr <- a.Bot.Start(ctx)
	}()

	select {
	case err := <-apiErr:
		// API остановлен: останавливаем бота и ждём закрытия сессии
		cancel()
		<-botErr
		if err != nil {
			return fmt.Errorf("HTTP API: %w", err)
		}
		return nil
	case err := <-botErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// Close освобождает ресурсы.
func (a *App) Close() {
	closePool(a.DB)
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

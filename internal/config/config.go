// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// validator — для проверки диапазонов.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // APP_TIMEZONE в образах без zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Режимы хранения данных.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Discord ---
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`
	// Сервер, в котором бот считает статистику и начисляет доход
	GuildID string `envconfig:"DISCORD_GUILD_ID" required:"true" validate:"required,numeric"`
	// Канал для ежедневной статистики и результатов лотереи
	GeneralChannelID string `envconfig:"DISCORD_GENERAL_CHANNEL_ID" required:"true" validate:"required,numeric"`
	CommandPrefix    string `envconfig:"COMMAND_PREFIX" default:"!" validate:"required,max=3"`

	AdminIDsRaw string  `envconfig:"ADMIN_IDS"`
	AdminIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Database ---
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432" validate:"min=1,max=65535"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"economy_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
	// postgres — рабочий режим, memory — локальный запуск без БД
	AppStorage string `envconfig:"APP_STORAGE" default:"postgres" validate:"oneof=postgres memory"`
	// Адрес HTTP API статуса; пустая строка отключает API
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8081"`

	// --- Bot runtime ---
	BotMaxInflight int           `envconfig:"BOT_MAX_INFLIGHT" default:"64" validate:"gt=0"`
	PromptTimeout  time.Duration `envconfig:"PROMPT_TIMEOUT" default:"60s"`

	// --- Admin ---
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	AdminSessionTTL   time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`

	// --- Economy (все суммы в центило, 1 Ł = 100 cŁ) ---
	EconomyCheckFee      int64   `envconfig:"ECONOMY_CHECK_FEE" default:"50" validate:"gte=0"`
	EconomyIncomeTaxRate float64 `envconfig:"ECONOMY_INCOME_TAX_RATE" default:"0.3" validate:"gte=0,lte=1"`
	EconomyVoiceIncome   int64   `envconfig:"ECONOMY_VOICE_INCOME" default:"5" validate:"gte=0"`
	EconomyRankingLimit  int     `envconfig:"ECONOMY_RANKING_LIMIT" default:"10" validate:"gt=0"`
	EconomyHistoryLimit  int     `envconfig:"ECONOMY_HISTORY_LIMIT" default:"10" validate:"gt=0"`

	// --- Prediction ---
	PredictionFee int64 `envconfig:"PREDICTION_FEE" default:"500" validate:"gte=0"`

	// --- Lottery ---
	LotteryPrice        int64         `envconfig:"LOTTERY_PRICE" default:"2000" validate:"gt=0"`
	LotteryMaxTickets   int           `envconfig:"LOTTERY_MAX_TICKETS" default:"10" validate:"gt=0"`
	LotteryFeeRate      float64       `envconfig:"LOTTERY_FEE_RATE" default:"-0.1" validate:"lt=1"`
	LotteryDrawInterval time.Duration `envconfig:"LOTTERY_DRAW_INTERVAL" default:"168h"`

	// --- Amusements ---
	PigStartCost    int64   `envconfig:"PIG_START_COST" default:"100000" validate:"gte=0"`
	ScratchMaxShare float64 `envconfig:"SCRATCH_MAX_SHARE" default:"0.1" validate:"gt=0,lte=1"`

	// --- Attendance ---
	AttendanceBaseReward int64 `envconfig:"ATTENDANCE_BASE_REWARD" default:"1000" validate:"gte=0"`
	AttendanceMaxDays    int   `envconfig:"ATTENDANCE_MAX_DAYS" default:"7" validate:"gt=0"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureAmusementsEnabled bool `envconfig:"FEATURE_AMUSEMENTS_ENABLED" default:"true"`
	FeatureIncomeEnabled     bool `envconfig:"FEATURE_INCOME_ENABLED" default:"true"`
	FeatureAttendanceEnabled bool `envconfig:"FEATURE_ATTENDANCE_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Location возвращает часовой пояс приложения (UTC, если не загрузился).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate проверяет значения, которые envconfig пропускает.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	if c.AppStorage == StoragePostgres {
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD не задан")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	}
	if c.PromptTimeout <= 0 {
		return fmt.Errorf("PROMPT_TIMEOUT должен быть > 0")
	}
	if c.LotteryDrawInterval <= 0 {
		return fmt.Errorf("LOTTERY_DRAW_INTERVAL должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

package app

import "serotonyl.ru/discord-bot/internal/db/postgres"

// migrations встроены в код для упрощения деплоя. Суммы хранятся в центило (BIGINT).
var migrations = []postgres.Migration{
	{Version: 1, Name: "members", SQL: migration001Members},
	{Version: 2, Name: "economy", SQL: migration002Economy},
	{Version: 3, Name: "settings", SQL: migration003Settings},
	{Version: 4, Name: "lottery", SQL: migration004Lottery},
	{Version: 5, Name: "games", SQL: migration005Games},
	{Version: 6, Name: "attendance", SQL: migration006Attendance},
	{Version: 7, Name: "admin", SQL: migration007Admin},
}

const migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255) NOT NULL DEFAULT '',
    display_name VARCHAR(255) NOT NULL DEFAULT '',
    joined_at TIMESTAMPTZ DEFAULT NOW(),
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_username ON members(LOWER(username));
CREATE INDEX IF NOT EXISTS idx_members_display_name ON members(LOWER(display_name));
`

const migration002Economy = `
CREATE TABLE IF NOT EXISTS accounts (
    user_id BIGINT PRIMARY KEY,
    balance BIGINT NOT NULL DEFAULT 0,
    tax BIGINT NOT NULL DEFAULT 0 CHECK (tax >= 0),
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accounts_balance ON accounts(balance DESC);
CREATE TABLE IF NOT EXISTS inventory (
    user_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    quantity BIGINT NOT NULL,
    unit_price BIGINT NOT NULL DEFAULT 0 CHECK (unit_price >= 0),
    PRIMARY KEY (user_id, name)
);
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    from_user_id BIGINT,
    to_user_id BIGINT,
    amount BIGINT NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    description TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions(from_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions(to_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);
`

const migration003Settings = `
CREATE TABLE IF NOT EXISTS settings (
    key VARCHAR(100) PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
`

const migration004Lottery = `
CREATE TABLE IF NOT EXISTS lottery_tickets (
    user_id BIGINT NOT NULL,
    numbers INTEGER[] NOT NULL,
    quantity BIGINT NOT NULL CHECK (quantity > 0),
    PRIMARY KEY (user_id, numbers)
);
CREATE TABLE IF NOT EXISTS lottery_draws (
    id UUID PRIMARY KEY,
    winning INTEGER[] NOT NULL,
    tickets BIGINT NOT NULL,
    pool BIGINT NOT NULL,
    winners JSONB NOT NULL DEFAULT '[]',
    drawn_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lottery_draws_drawn_at ON lottery_draws(drawn_at DESC);
`

const migration005Games = `
CREATE TABLE IF NOT EXISTS games (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    game_type VARCHAR(50) NOT NULL,
    bet_amount BIGINT NOT NULL,
    result_amount BIGINT NOT NULL,
    game_data JSONB,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_games_user_id ON games(user_id);
CREATE TABLE IF NOT EXISTS game_stats (
    user_id BIGINT NOT NULL,
    game_type VARCHAR(50) NOT NULL,
    total_plays INTEGER DEFAULT 0,
    total_wagered BIGINT DEFAULT 0,
    total_won BIGINT DEFAULT 0,
    biggest_win BIGINT DEFAULT 0,
    return_rate DECIMAL(10,2) DEFAULT 0,
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (user_id, game_type)
);
CREATE TABLE IF NOT EXISTS pig_records (
    user_id BIGINT PRIMARY KEY,
    score BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
`

const migration006Attendance = `
CREATE TABLE IF NOT EXISTS attendance (
    user_id BIGINT PRIMARY KEY,
    streak INTEGER NOT NULL DEFAULT 0,
    max_streak INTEGER NOT NULL DEFAULT 0,
    last_attend TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_attendance_streak ON attendance(streak DESC);
`

const migration007Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    session_token VARCHAR(64) PRIMARY KEY,
    user_id BIGINT NOT NULL,
    authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time);
`

package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsOrdered(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "миграция %s", m.Name)
		assert.NotEmpty(t, m.Name)
		assert.Contains(t, m.SQL, "CREATE TABLE IF NOT EXISTS")
	}
}

func TestMigrationsCoverTables(t *testing.T) {
	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.SQL)
	}
	for _, table := range []string{
		"members", "accounts", "inventory", "transactions", "settings",
		"lottery_tickets", "lottery_draws", "games", "game_stats", "pig_records",
		"attendance", "admin_sessions", "admin_login_attempts",
	} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discord-bot/internal/config"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/features/lottery"
	"serotonyl.ru/discord-bot/internal/features/members"
	"serotonyl.ru/discord-bot/internal/notify"
)

func newTestServer(t *testing.T) (*Server, *economy.Service, *lottery.Service) {
	t.Helper()
	cfg := &config.Config{
		EconomyIncomeTaxRate: 0.3,
		EconomyRankingLimit:  10,
		EconomyHistoryLimit:  10,
		LotteryPrice:         2000,
		LotteryMaxTickets:    10,
		LotteryFeeRate:       -0.1,
		LotteryDrawInterval:  7 * 24 * time.Hour,
	}
	econ := economy.NewService(economy.NewMemoryStore(), cfg)
	lot := lottery.NewService(lottery.NewMemoryStore(), econ, &notify.Recorder{}, cfg)
	memberService := members.NewService(members.NewMemoryStore())
	require.NoError(t, memberService.EnsureMember(context.Background(), 1, "alice", "Алиса"))
	return New(econ, lot, memberService), econ, lot
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestRanking(t *testing.T) {
	ctx := context.Background()
	s, econ, _ := newTestServer(t)
	require.NoError(t, econ.SetBalance(ctx, 1, 1500))
	require.NoError(t, econ.SetBalance(ctx, 2, 700))
	require.NoError(t, econ.SetBalance(ctx, 3, 100))

	rec := get(t, s, "/api/ranking?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rows []rankingRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 2)
	assert.Equal(t, rankingRow{Rank: 1, UserID: "1", Name: "Алиса", Balance: 1500, Display: "15.00 Ł"}, body.Rows[0])
	assert.Equal(t, "<@2>", body.Rows[1].Name)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/ranking?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/ranking?limit=0").Code)
}

func TestLottery(t *testing.T) {
	ctx := context.Background()
	s, econ, lot := newTestServer(t)
	require.NoError(t, econ.SetBalance(ctx, 1, 10_000))
	_, err := lot.BuyAuto(ctx, 1, 2)
	require.NoError(t, err)

	rec := get(t, s, "/api/lottery")
	require.Equal(t, http.StatusOK, rec.Code)

	var st lottery.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, int64(2), st.Tickets)
	assert.Equal(t, 1, st.Holders)
	assert.Equal(t, int64(4400), st.Pool)
	assert.Nil(t, st.LastDraw)
}

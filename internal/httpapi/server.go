// Package httpapi — HTTP API статуса бота: здоровье хранилища, рейтинг, лотерея.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/common"
	"serotonyl.ru/discord-bot/internal/features/economy"
	"serotonyl.ru/discord-bot/internal/features/lottery"
	"serotonyl.ru/discord-bot/internal/features/members"
)

// MaxRankingLimit — наибольший размер рейтинга через API.
const MaxRankingLimit = 100

// Server отдаёт JSON со статусом экономики.
type Server struct {
	economy       *economy.Service
	lottery       *lottery.Service
	memberService *members.Service
	mux           *chi.Mux
}

// New создаёт сервер и регистрирует маршруты.
func New(economyService *economy.Service, lotteryService *lottery.Service, memberService *members.Service) *Server {
	s := &Server{
		economy:       economyService,
		lottery:       lotteryService,
		memberService: memberService,
		mux:           chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler возвращает корневой http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/ranking", s.handleRanking)
		r.Get("/lottery", s.handleLottery)
	})
}

// ListenAndServe слушает addr до отмены ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Ошибка остановки HTTP API")
		}
	}()

	log.WithField("addr", addr).Info("HTTP API запущен")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.economy.Ping(r.Context()); err != nil {
		log.WithError(err).Warn("healthz: хранилище недоступно")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type rankingRow struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Display string `json:"balance_display"`
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxRankingLimit)
	}

	entries, err := s.economy.Ranking(r.Context(), limit)
	if err != nil {
		log.WithError(err).Error("api: ошибка получения рейтинга")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rows := make([]rankingRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, rankingRow{
			Rank:    e.Rank,
			UserID:  strconv.FormatInt(e.UserID, 10),
			Name:    s.memberService.DisplayName(r.Context(), e.UserID),
			Balance: e.Balance,
			Display: common.FormatMoney(e.Balance),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleLottery(w http.ResponseWriter, r *http.Request) {
	st, err := s.lottery.Status(r.Context())
	if err != nil {
		log.WithError(err).Error("api: ошибка получения статуса лотереи")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// requestLogger пишет каждый запрос в logrus.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP запрос")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

// Package bot содержит транспорт Discord: приём событий, маршрутизацию команд,
// отправку сообщений и вопросы с ответом реакцией.
package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/bot/filters"
	"serotonyl.ru/discord-bot/internal/bot/middleware"
	"serotonyl.ru/discord-bot/internal/config"
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
	"serotonyl.ru/discord-bot/internal/notify"
)

// Intents — события Discord, на которые подписывается бот.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Handlers — обработчики команд всех фич.
type Handlers struct {
	Members    *members.Handler
	Economy    *economy.Handler
	Tax        *tax.Handler
	Betting    *betting.Handler
	Settle     *settle.Handler
	Prediction *prediction.Handler
	Lottery    *lottery.Handler
	PPL        *ppl.Handler
	Scratch    *scratch.Handler
	Pig        *pig.Handler
	Attendance *attendance.Handler
	Stats      *stats.Handler
	Admin      *admin.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	filter      *filters.GuildFilter
	rateLimiter *middleware.RateLimiter
	router      *Router

	handlers      Handlers
	memberService *members.Service
	tracker       *stats.Tracker
	sender        *Sender
	prompter      *Prompter

	ctx context.Context

	// ограничитель параллелизма обработки событий
	inflight chan struct{}
}

// New создаёт бота. Sender и Prompter создаются заранее, потому что
// ими пользуются сервисы фич.
func New(
	session *discordgo.Session,
	cfg *config.Config,
	handlers Handlers,
	memberService *members.Service,
	tracker *stats.Tracker,
	sender *Sender,
	prompter *Prompter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	b := &Bot{
		session:       session,
		cfg:           cfg,
		filter:        filters.NewGuildFilter(cfg.GuildID, memberService, session, sender),
		rateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		router:        NewRouter(NewCommandParser(cfg.CommandPrefix)),
		handlers:      handlers,
		memberService: memberService,
		tracker:       tracker,
		sender:        sender,
		prompter:      prompter,
		ctx:           context.Background(),
		inflight:      make(chan struct{}, maxInFlight),
	}
	b.registerCommands()
	return b
}

// Start подключается к Discord и обрабатывает события до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx
	b.session.Identify.Intents = Intents
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onVoiceStateUpdate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("ошибка подключения к Discord: %w", err)
	}
	log.WithFields(log.Fields{
		"guild_id":     b.cfg.GuildID,
		"max_inflight": cap(b.inflight),
	}).Info("Бот запущен и ожидает сообщения...")

	<-ctx.Done()
	log.Info("Бот останавливается (ctx done)...")
	b.rateLimiter.Close()
	return b.session.Close()
}

// registerCommands связывает русские команды с обработчиками.
func (b *Bot) registerCommands() {
	h := b.handlers
	r := b.router

	r.Handle(b.handleHelp, "помощь", "help")

	r.Handle(h.Economy.HandleBalance, "баланс", "лофаны")
	r.Handle(h.Economy.HandleInventory, "инвентарь")
	r.Handle(h.Economy.HandleTransfer, "перевод")
	r.Handle(h.Economy.HandleRanking, "рейтинг")
	r.Handle(h.Economy.HandleHistory, "история")
	r.Handle(h.Tax.HandleTax, "налог")

	r.Handle(h.Betting.HandleRaise, "ставка")
	r.Handle(h.Betting.HandleInfo, "ставки")
	r.Handle(h.Betting.HandleUnroll, "раздать")
	r.Handle(h.Settle.HandleSettle, "расчёт")
	r.Handle(h.Prediction.HandlePrediction, "прогноз")

	r.Handle(h.Lottery.HandleLottery, "лотерея")
	r.Handle(h.PPL.HandlePPL, "ппл", "ppl")
	r.Handle(h.Stats.HandleToday, "сегодня")

	if b.cfg.FeatureAmusementsEnabled {
		r.Handle(h.Scratch.HandleScratch, "моменталка")
		r.Handle(h.Pig.HandlePig, "свинья")
	}
	if b.cfg.FeatureAttendanceEnabled {
		r.Handle(h.Attendance.HandleCheckIn, "отметка")
		r.Handle(h.Attendance.HandleStreak, "серия")
	}

	r.Handle(h.Admin.HandleLogin, "вход", "login")
	r.Handle(h.Admin.HandleLogout, "выход")
	r.Handle(h.Admin.HandleGive, "выдать")
	r.Handle(h.Admin.HandleTake, "изъять")
	r.Handle(h.Admin.HandleDraw, "розыгрыш")
	r.Handle(h.Admin.HandleTaxes, "налоги")
}

// run выполняет обработчик события с лимитом параллелизма и защитой от паники.
func (b *Bot) run(event string, fn func(ctx context.Context)) {
	ctx := b.ctx
	select {
	case b.inflight <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-b.inflight }()
	defer middleware.RecoverFromPanic(event)
	fn(ctx)
}

func (b *Bot) isSelf(s *discordgo.Session, userID string) bool {
	return s.State != nil && s.State.User != nil && s.State.User.ID == userID
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil || b.isSelf(s, m.Author.ID) {
		return
	}
	b.run("message_create", func(ctx context.Context) {
		b.handleMessage(ctx, m)
	})
}

// handleMessage обрабатывает одно сообщение.
func (b *Bot) handleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	middleware.LogMessage(m)

	if !b.filter.CheckAccess(ctx, m) {
		return
	}
	userID, err := parseID(m.Author.ID)
	if err != nil {
		log.WithError(err).WithField("author", m.Author.ID).Warn("bad user id")
		return
	}

	if err := b.memberService.EnsureMember(ctx, userID, m.Author.Username, filters.DisplayName(m.Author, m.Member)); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsureMember failed")
	}

	msg := notify.Message{
		ChannelID: m.ChannelID,
		UserID:    userID,
		Username:  m.Author.Username,
		IsDM:      m.GuildID == "",
	}

	if m.GuildID == b.cfg.GuildID {
		if err := b.tracker.RecordMessage(ctx, userID, m.Content); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка учёта сообщения")
		}
	}

	if _, _, isCommand := b.router.parser.ParseCommand(m.Content); !isCommand {
		return
	}
	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}
	b.router.Dispatch(ctx, msg, m.Content)
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.GuildID != b.cfg.GuildID || m.User.Bot {
		return
	}
	b.run("guild_member_add", func(ctx context.Context) {
		userID, err := parseID(m.User.ID)
		if err != nil {
			return
		}
		b.handlers.Members.HandleJoin(ctx, userID, m.User.Username, filters.DisplayName(m.User, m.Member))
		log.WithField("user", m.User.Username).Info("Новый участник обработан")
	})
}

func (b *Bot) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil || b.isSelf(s, r.UserID) {
		return
	}
	userID, err := parseID(r.UserID)
	if err != nil {
		return
	}
	if b.prompter.HandleReaction(r.MessageID, userID, r.Emoji.Name) {
		return
	}
	if r.GuildID == b.cfg.GuildID && (r.Member == nil || r.Member.User == nil || !r.Member.User.Bot) {
		b.tracker.RecordReaction(userID)
	}
}

func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || v.GuildID != b.cfg.GuildID {
		return
	}
	userID, err := parseID(v.UserID)
	if err != nil {
		return
	}

	wasInVoice := v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != ""
	switch {
	case v.ChannelID == "":
		b.tracker.VoiceLeave(userID)
	case !wasInVoice:
		b.tracker.VoiceJoin(userID)
	}
}

func (b *Bot) handleHelp(ctx context.Context, msg notify.Message, _ []string) {
	p := b.router.parser.prefix
	text := fmt.Sprintf("📖 Команды:\n"+
		"%[1]sбаланс [всего|@user], %[1]sинвентарь, %[1]sперевод @user сумма, %[1]sрейтинг, %[1]sистория, %[1]sналог\n"+
		"%[1]sставка @дилер сумма, %[1]sставки, %[1]sраздать @user\n"+
		"%[1]sрасчёт, %[1]sпрогноз, %[1]sлотерея, %[1]sппл, %[1]sсегодня\n", p)
	if b.cfg.FeatureAmusementsEnabled {
		text += fmt.Sprintf("%[1]sмоменталка сумма, %[1]sсвинья\n", p)
	}
	if b.cfg.FeatureAttendanceEnabled {
		text += fmt.Sprintf("%[1]sотметка, %[1]sсерия\n", p)
	}
	if err := b.sender.Send(ctx, msg.ChannelID, text); err != nil {
		log.WithError(err).WithField("channel_id", msg.ChannelID).Error("Ошибка отправки сообщения")
	}
}

// parseID переводит снежинку Discord в int64.
func parseID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

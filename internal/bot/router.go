package bot

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discord-bot/internal/notify"
)

// HandlerFunc — обработчик команды.
type HandlerFunc func(ctx context.Context, msg notify.Message, args []string)

// CommandParser парсит русские команды с префиксом.
type CommandParser struct {
	prefix string
}

// NewCommandParser создаёт парсер команд с префиксом prefix ("!" по умолчанию).
func NewCommandParser(prefix string) *CommandParser {
	if prefix == "" {
		prefix = "!"
	}
	return &CommandParser{prefix: prefix}
}

// ParseCommand разбирает текст на команду и аргументы.
// Команда приводится к нижнему регистру, «ё» заменяется на «е».
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, p.prefix) {
		return "", nil, false
	}

	parts := strings.Fields(strings.TrimPrefix(text, p.prefix))
	if len(parts) == 0 {
		return "", nil, false
	}

	command := normalizeCommand(parts[0])
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}

func normalizeCommand(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "ё", "е")
}

// Router сопоставляет команды обработчикам.
type Router struct {
	parser *CommandParser
	routes map[string]HandlerFunc
}

// NewRouter создаёт пустой маршрутизатор.
func NewRouter(parser *CommandParser) *Router {
	return &Router{parser: parser, routes: make(map[string]HandlerFunc)}
}

// Handle регистрирует обработчик под именем и синонимами.
func (r *Router) Handle(h HandlerFunc, names ...string) {
	for _, name := range names {
		r.routes[normalizeCommand(name)] = h
	}
}

// Dispatch выполняет команду из text. Возвращает false, если text не команда
// или команда неизвестна.
func (r *Router) Dispatch(ctx context.Context, msg notify.Message, text string) bool {
	cmd, args, ok := r.parser.ParseCommand(text)
	if !ok {
		return false
	}
	h, ok := r.routes[cmd]
	if !ok {
		log.WithField("cmd", cmd).Debug("unknown command")
		return false
	}

	log.WithFields(log.Fields{
		"cmd":     cmd,
		"args":    args,
		"user_id": msg.UserID,
	}).Debug("routing command")
	h(ctx, msg, args)
	return true
}

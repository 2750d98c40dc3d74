package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/discord-bot/internal/notify"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser("!")

	tests := []struct {
		text     string
		wantCmd  string
		wantArgs []string
		wantOK   bool
	}{
		{"!баланс", "баланс", nil, true},
		{"  !Перевод <@1> 12.50 ", "перевод", []string{"<@1>", "12.50"}, true},
		{"!РАСЧЁТ старт 2", "расчет", []string{"старт", "2"}, true},
		{"баланс", "", nil, false},
		{"!", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, ok := p.ParseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	r := NewRouter(NewCommandParser("!"))

	var got []string
	r.Handle(func(_ context.Context, _ notify.Message, args []string) {
		got = args
	}, "расчёт", "settle")

	msg := notify.Message{ChannelID: "c", UserID: 1}
	assert.True(t, r.Dispatch(context.Background(), msg, "!расчет вход <@2> 5"))
	assert.Equal(t, []string{"вход", "<@2>", "5"}, got)

	assert.True(t, r.Dispatch(context.Background(), msg, "!SETTLE"))
	assert.False(t, r.Dispatch(context.Background(), msg, "!неизвестно"))
	assert.False(t, r.Dispatch(context.Background(), msg, "просто текст"))
}

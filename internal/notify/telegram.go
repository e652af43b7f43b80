package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends alerts as Telegram messages. The guardian address is
// a numeric chat ID.
type TelegramNotifier struct {
	bot sender
}

// NewTelegramNotifier connects to the Bot API with token. client may be nil.
func NewTelegramNotifier(token string, client *http.Client) (*TelegramNotifier, error) {
	if client == nil {
		client = &http.Client{}
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &TelegramNotifier{bot: api}, nil
}

func (n *TelegramNotifier) Notify(_ context.Context, a Alert) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(a.Guardian), 10, 64)
	if err != nil {
		return fmt.Errorf("guardian %q is not a telegram chat id: %w", a.Guardian, err)
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, Message(a))); err != nil {
		return fmt.Errorf("sending telegram alert: %w", err)
	}
	return nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

package telegram

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/qarzdaftar/backend/internal/apperr"
	"github.com/qarzdaftar/backend/internal/metrics"
)

// Messenger is what the rest of the engine needs from the chat channel.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	BotUsername(ctx context.Context) (string, error)
}

// BotClient talks to the Bot API. The underlying bot is created on first use
// so a slow or unreachable Telegram never blocks startup.
type BotClient struct {
	token    string
	endpoint string
	http     *http.Client

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

func NewBotClient(token, endpoint string, timeout time.Duration) *BotClient {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return &BotClient{
		token:    token,
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

var errNoToken = errors.New("telegram bot token is not set")

func (c *BotClient) bot() (*tgbotapi.BotAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	if c.token == "" {
		return nil, apperr.Unavailable("telegram", errNoToken)
	}
	api, err := tgbotapi.NewBotAPIWithClient(c.token, c.endpoint, c.http)
	if err != nil {
		return nil, apperr.Unavailable("telegram", err)
	}
	c.api = api
	return api, nil
}

// BotUsername returns the bot handle, fetched once with getMe.
func (c *BotClient) BotUsername(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	api, err := c.bot()
	if err != nil {
		return "", err
	}
	return api.Self.UserName, nil
}

// SendMessage sends HTML-formatted text to chatID.
func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api, err := c.bot()
	if err != nil {
		metrics.ChatMessagesTotal.WithLabelValues("failed").Inc()
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := api.Send(msg); err != nil {
		metrics.ChatMessagesTotal.WithLabelValues("failed").Inc()
		return apperr.Unavailable("telegram sendMessage", err)
	}
	metrics.ChatMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}

// SetWebhook points the bot at url. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header of every update.
func (c *BotClient) SetWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api, err := c.bot()
	if err != nil {
		return err
	}
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	// MakeRequest already turns ok=false into an error.
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return apperr.Unavailable("telegram setWebhook", err)
	}
	return nil
}

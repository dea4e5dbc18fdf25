package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/ports"
)

// Notifier sends watch-mode digests to a Telegram chat.
type Notifier struct {
	botToken string
	chatID   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	once   sync.Once
	api    *tgbotapi.BotAPI
	apiErr error
}

var _ ports.Notifier = (*Notifier)(nil)

// Option customizes a Notifier.
type Option func(*Notifier)

// WithAPIEndpoint overrides the bot API endpoint format (token, method).
func WithAPIEndpoint(endpoint string) Option {
	return func(n *Notifier) { n.endpoint = endpoint }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) { n.client = client }
}

// NewNotifier registers bot token and chat identifier. The bot is contacted on first publish.
func NewNotifier(botToken, chatID string, logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		botToken: botToken,
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Configured reports whether both credentials are present.
func (n *Notifier) Configured() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// PublishDigest posts a plain-text message to the chat.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if !n.Configured() {
		return domain.NewError(domain.ErrConfiguration, "Telegram bot token and chat ID are required.", nil)
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(n.chatID), 10, 64)
	if err != nil {
		return domain.NewError(domain.ErrConfiguration, "Telegram chat ID must be numeric.", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	api, err := n.bot()
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, digest)
	msg.DisableWebPagePreview = true
	sent, err := api.Send(msg)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	if n.logger != nil {
		n.logger.Debug("digest published", "chat", chatID, "message", sent.MessageID)
	}
	return nil
}

func (n *Notifier) bot() (*tgbotapi.BotAPI, error) {
	n.once.Do(func() {
		n.api, n.apiErr = tgbotapi.NewBotAPIWithClient(n.botToken, n.endpoint, n.client)
	})
	return n.api, n.apiErr
}

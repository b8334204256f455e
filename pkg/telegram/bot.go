// Package telegram implements the bot update handler. The handler is created
// strictly after configuration validation passes, long-polls the Telegram API
// until its context is cancelled, and propagates fatal polling errors back to
// the orchestrator instead of retrying forever.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tradeai-hq/companion/pkg/cache"
	"tradeai-hq/companion/pkg/config"
	"tradeai-hq/companion/pkg/security"
	"tradeai-hq/companion/pkg/telemetry/audit"
)

// ErrUpdateStreamClosed is returned by Run when the update stream terminates
// without the context being cancelled. The orchestrator treats it as a
// handler crash.
var ErrUpdateStreamClosed = errors.New("telegram update stream closed unexpectedly")

// botClient is the slice of the Telegram API client the handler uses.
// *tgbotapi.BotAPI satisfies it.
type botClient interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Recorder counts inbound updates by disposition. May be nil.
type Recorder interface {
	RecordUpdate(status string)
}

// Handler receives Telegram updates and answers them. Every inbound update
// passes the allow-list, the per-user rate limiter and input validation
// before it reaches a command.
type Handler struct {
	cfg       config.BotConfig
	client    botClient
	username  string
	limiter   *security.RateLimiter
	validator *security.InputValidator
	quotes    QuoteSource
	cache     *cache.Cache
	recorder  Recorder
	auditLog  *audit.Log
	logger    *slog.Logger

	active atomic.Bool
}

// New connects to the Telegram API and returns a ready handler. It must only
// be called after the configuration gate has passed; the token reaching this
// point has already been validated. The rate limiter and input validator are
// injected so their lifecycle (sweeping, sharing) stays with the caller.
func New(cfg config.BotConfig, limiter *security.RateLimiter, validator *security.InputValidator, quotes QuoteSource, responseCache *cache.Cache, recorder Recorder, auditLog *audit.Log, logger *slog.Logger) (*Handler, error) {
	client, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	client.Debug = cfg.Debug

	h := newHandler(cfg, client, limiter, validator, quotes, responseCache, recorder, auditLog, logger)
	h.username = client.Self.UserName
	return h, nil
}

func newHandler(cfg config.BotConfig, client botClient, limiter *security.RateLimiter, validator *security.InputValidator, quotes QuoteSource, responseCache *cache.Cache, recorder Recorder, auditLog *audit.Log, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:       cfg,
		client:    client,
		limiter:   limiter,
		validator: validator,
		quotes:    quotes,
		cache:     responseCache,
		recorder:  recorder,
		auditLog:  auditLog,
		logger:    logger.With("component", "telegram"),
	}
}

// Username is the bot account name reported by the Telegram API.
func (h *Handler) Username() string {
	return h.username
}

// Active reports whether the handler is currently polling for updates.
func (h *Handler) Active() bool {
	return h.active.Load()
}

// Run long-polls for updates until ctx is cancelled. Cancellation is a clean
// stop and returns nil; a closed update stream without cancellation is a
// crash and returns ErrUpdateStreamClosed.
func (h *Handler) Run(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = int(h.cfg.PollTimeout / time.Second)

	updates := h.client.GetUpdatesChan(updateCfg)

	h.active.Store(true)
	defer h.active.Store(false)

	h.logger.Info("telegram handler started", "poll_timeout", h.cfg.PollTimeout)

	for {
		select {
		case <-ctx.Done():
			h.client.StopReceivingUpdates()
			h.logger.Info("telegram handler stopped")
			return nil

		case update, ok := <-updates:
			if !ok {
				return ErrUpdateStreamClosed
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	userID := msg.From.ID

	if !h.validator.Authorized(userID) {
		// Unauthorized senders are dropped without a reply so the bot does
		// not confirm its own existence to strangers.
		h.recordUpdate("rejected_unauthorized")
		h.recordSecurityEvent("unauthorized_access", fmt.Sprintf("update from user %d rejected", userID))
		return
	}

	if !h.limiter.Allow(userID) {
		h.recordUpdate("rejected_rate_limited")
		h.recordSecurityEvent("rate_limit_exceeded", fmt.Sprintf("user %d throttled", userID))
		h.reply(msg.Chat.ID, "You are sending messages too quickly. Please slow down.")
		return
	}

	if err := h.validator.ValidateMessage(msg.Text); err != nil {
		h.recordUpdate("rejected_invalid")
		h.logger.Warn("rejected invalid message", "user_id", userID, "error", err)
		h.reply(msg.Chat.ID, "Sorry, I could not read that message.")
		return
	}

	h.recordUpdate("accepted")
	h.dispatch(ctx, msg)
}

func (h *Handler) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	command, args := parseCommand(msg.Text)

	switch command {
	case "start":
		h.reply(msg.Chat.ID, "Welcome to TradeAI Companion. Send /help to see what I can do.")
	case "help":
		h.reply(msg.Chat.ID, helpText)
	case "price":
		h.handlePrice(ctx, msg.Chat.ID, args)
	case "":
		h.reply(msg.Chat.ID, "I only understand commands. Send /help to see them.")
	default:
		h.reply(msg.Chat.ID, fmt.Sprintf("Unknown command /%s. Send /help to see what I can do.", command))
	}
}

const helpText = `Available commands:
/price <symbol> - latest cached quote for a symbol
/help - this message`

func (h *Handler) handlePrice(ctx context.Context, chatID int64, args string) {
	symbol := strings.ToUpper(strings.TrimSpace(args))
	if symbol == "" {
		h.reply(chatID, "Usage: /price <symbol>")
		return
	}

	if h.cache != nil {
		if cached, ok := h.cache.Get(quoteCacheKey(symbol)); ok {
			if quote, ok := cached.(Quote); ok {
				h.reply(chatID, quote.String())
				return
			}
		}
	}

	if h.quotes == nil {
		h.reply(chatID, fmt.Sprintf("No quote available for %s right now.", symbol))
		return
	}

	quote, err := h.quotes.Quote(ctx, symbol)
	if err != nil {
		h.logger.Warn("quote lookup failed", "symbol", symbol, "error", err)
		h.reply(chatID, fmt.Sprintf("No quote available for %s right now.", symbol))
		return
	}

	if h.cache != nil {
		h.cache.Set(quoteCacheKey(symbol), quote)
	}
	h.reply(chatID, quote.String())
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.client.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Warn("failed to send reply", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) recordUpdate(status string) {
	if h.recorder != nil {
		h.recorder.RecordUpdate(status)
	}
}

func (h *Handler) recordSecurityEvent(name, detail string) {
	if h.auditLog != nil {
		h.auditLog.RecordSecurityEvent(name, detail, audit.SeverityWarning)
	}
}

// parseCommand splits "/price BTC" into ("price", "BTC"). A "@botname"
// suffix on the command is stripped so group mentions work. Non-command text
// yields an empty command.
func parseCommand(text string) (command, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	command, args, _ = strings.Cut(text[1:], " ")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"shop-insights/internal/assistant"
	"shop-insights/internal/auth"
	"shop-insights/internal/chat"
	"shop-insights/internal/dashboard"
	"shop-insights/internal/pending"
	"shop-insights/internal/storage"
)

const resetCmd = "reset_ctx"

const (
	textWelcome      = "Ask any question about our entire data model (Orders, Payments, Products, Inventory, Customers, Suppliers, Shipping, etc.) and receive detailed insights."
	textUnauthorized = "Access to this bot is restricted. Your request has been logged."
	textReset        = "Conversation cleared."
	textEmpty        = "Please send a non-empty question."
	textAdminOnly    = "This command is available to the administrator only."
)

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	authSvc     *auth.Service
	pending     *pending.Queue
	assistant   *assistant.Service
	logger      *zap.Logger
	adminUserID int64
	parseMode   string
}

func New(botToken string, authSvc *auth.Service, queue *pending.Queue, svc *assistant.Service, logger *zap.Logger, adminUserID int64, parseMode string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	return &Bot{
		api:         api,
		s:           botAPISender{api: api},
		authSvc:     authSvc,
		pending:     queue,
		assistant:   svc,
		logger:      logger,
		adminUserID: adminUserID,
		parseMode:   parseMode,
	}, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func sessionKey(userID int64) string { return "tg:" + strconv.FormatInt(userID, 10) }

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !b.authSvc.IsAllowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		b.sendMessage(msg.Chat.ID, textUnauthorized)
		b.requestAccess(msg.From)
		return
	}

	b.logger.Info("incoming message", zap.Int64("user_id", msg.From.ID), zap.Int("length", len(msg.Text)))

	reply, err := b.assistant.Ask(ctx, sessionKey(msg.From.ID), storage.ChannelTelegram, msg.Text)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyInput) {
			b.sendMessage(msg.Chat.ID, textEmpty)
			return
		}
		b.logger.Error("chat turn failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong.")
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Reset conversation", resetCmd),
		),
	)
	out := tgbotapi.NewMessage(msg.Chat.ID, b.escapeIfNeeded(reply.Text))
	out.ParseMode = b.parseMode
	out.ReplyMarkup = kb
	if _, err := b.s.Send(out); err != nil {
		b.logger.Error("failed to send message", zap.Error(err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.sendMessage(msg.Chat.ID, textWelcome)
		return
	case "reset":
		if !b.authSvc.IsAllowed(msg.From.ID) {
			b.sendMessage(msg.Chat.ID, textUnauthorized)
			return
		}
		b.reset(ctx, msg.Chat.ID, msg.From.ID)
		return
	case "kpi":
		if !b.authSvc.IsAllowed(msg.From.ID) {
			b.sendMessage(msg.Chat.ID, textUnauthorized)
			return
		}
		b.sendMessage(msg.Chat.ID, formatKPIs(dashboard.Build(nil, dashboard.DefaultRange(time.Now()))))
		return
	}

	// admin-only commands
	if b.adminUserID == 0 || msg.From.ID != b.adminUserID {
		b.sendMessage(msg.Chat.ID, textAdminOnly)
		return
	}
	switch msg.Command() {
	case "pending":
		var bld strings.Builder
		bld.WriteString("Pending requests:\n")
		if b.pending != nil {
			for _, u := range b.pending.List() {
				bld.WriteString(fmt.Sprintf("- id=%d @%s %s %s\n", u.ID, u.Username, u.FirstName, u.LastName))
			}
		}
		b.sendMessage(msg.Chat.ID, bld.String())
	case "allowlist":
		var bld strings.Builder
		bld.WriteString("Allowlist:\n")
		for _, u := range b.authSvc.List() {
			bld.WriteString(fmt.Sprintf("- id=%d @%s %s %s\n", u.ID, u.Username, u.FirstName, u.LastName))
		}
		b.sendMessage(msg.Chat.ID, bld.String())
	case "allow", "remove":
		args := strings.Fields(msg.CommandArguments())
		if len(args) != 1 {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Usage: /%s <user_id>", msg.Command()))
			return
		}
		uid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			b.sendMessage(msg.Chat.ID, "Invalid user_id")
			return
		}
		if msg.Command() == "allow" {
			err = b.authSvc.Upsert(b.takePending(uid))
		} else {
			err = b.authSvc.Remove(uid)
		}
		if err != nil {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Failed to update allowlist: %v", err))
			return
		}
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("Allowlist updated: /%s %d", msg.Command(), uid))
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command")
	}
}

// requestAccess queues an unknown user and tells the administrator the first
// time that user shows up.
func (b *Bot) requestAccess(from *tgbotapi.User) {
	if b.pending == nil {
		return
	}
	u := auth.User{ID: from.ID, Username: from.UserName, FirstName: from.FirstName, LastName: from.LastName}
	added, err := b.pending.Add(u)
	if err != nil {
		b.logger.Warn("failed to persist access request", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	if added && b.adminUserID != 0 {
		b.sendMessage(b.adminUserID, fmt.Sprintf("Access request from id=%d @%s %s %s. Approve with /allow %d",
			u.ID, u.Username, u.FirstName, u.LastName, u.ID))
	}
}

func (b *Bot) takePending(uid int64) auth.User {
	if b.pending == nil {
		return auth.User{ID: uid}
	}
	u, ok, err := b.pending.Take(uid)
	if err != nil {
		b.logger.Warn("failed to drop access request", zap.Int64("user_id", uid), zap.Error(err))
	}
	if !ok {
		return auth.User{ID: uid}
	}
	return u
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Data == resetCmd && cb.Message != nil {
		b.reset(ctx, cb.Message.Chat.ID, cb.From.ID)
	}
}

func (b *Bot) reset(ctx context.Context, chatID, userID int64) {
	if err := b.assistant.Reset(ctx, sessionKey(userID)); err != nil {
		b.logger.Error("failed to reset session", zap.Int64("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, "Sorry, something went wrong.")
		return
	}
	b.sendMessage(chatID, textReset)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, b.escapeIfNeeded(text))
	msg.ParseMode = b.parseMode
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Error(err))
	}
}

func (b *Bot) escapeIfNeeded(s string) string {
	if strings.EqualFold(b.parseMode, tgbotapi.ModeHTML) {
		return html.EscapeString(s)
	}
	return s
}

func formatKPIs(d dashboard.Dashboard) string {
	var bld strings.Builder
	bld.WriteString(d.Title + "\n\n")
	for _, k := range d.KPIs {
		bld.WriteString(fmt.Sprintf("%s: %s (%s)\n", k.Label, k.Value, k.Delta))
	}
	if len(d.Alerts) > 0 {
		bld.WriteString("\nAlerts:\n")
		for _, a := range d.Alerts {
			bld.WriteString("- " + a + "\n")
		}
	}
	return bld.String()
}

// SendReport delivers a scheduled report to the administrator, if one is set.
func (b *Bot) SendReport(text string) {
	if b.adminUserID == 0 {
		return
	}
	b.sendMessage(b.adminUserID, text)
}

// Package bot runs the auto-reply engine against a Telegram chat. Inbound
// text is matched against the tenant's quick replies; admins manage those
// replies with bot commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/autoreply"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/storage"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	tenantID string
	admins   map[int64]struct{}
	storage  storage.Storage
	service  *autoreply.Service
	logger   *zap.Logger
}

func New(token, tenantID string, adminIDs []int64, storage storage.Storage, service *autoreply.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:      api,
		tenantID: tenantID,
		admins:   adminSet(adminIDs),
		storage:  storage,
		service:  service,
		logger:   logger,
	}, nil
}

// Start polls for updates until ctx is done. Each message is handled in its
// own goroutine; Start returns only after in-flight handlers have finished.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("Telegram bot started",
		zap.String("username", b.api.Self.UserName),
		zap.String("tenant_id", b.tenantID))

	dispatch(ctx, updates, b.handleMessage)

	b.logger.Info("Telegram bot stopped")
	return nil
}

// dispatch runs handle for every user message until ctx is done or updates
// is closed, then waits for the running handlers. Handlers get a context
// that is not cancelled with ctx, so a reply being sent is not cut off
// halfway through shutdown.
func dispatch(ctx context.Context, updates <-chan tgbotapi.Update, handle func(context.Context, *tgbotapi.Message)) {
	var wg sync.WaitGroup
	defer wg.Wait()

	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer wg.Done()
				handle(handlerCtx, message)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	replies, err := b.storage.ListQuickReplies(ctx, b.tenantID)
	if err != nil {
		b.logger.Error("Failed to load quick replies",
			zap.Error(err),
			zap.String("tenant_id", b.tenantID))
		return
	}

	mc := matchContextFor(b.tenantID, message, content)
	result := b.service.ProcessAutoReply(ctx, mc, replies)
	if result == nil {
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, result.Reply.Content)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send auto-reply",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID),
			zap.String("quick_reply_id", result.Reply.ID))
		return
	}

	if err := b.storage.IncrementUsage(ctx, result.Reply.ID, message.Time()); err != nil {
		b.logger.Warn("Failed to record quick reply usage",
			zap.Error(err),
			zap.String("quick_reply_id", result.Reply.ID))
	}
}

func matchContextFor(tenantID string, message *tgbotapi.Message, content string) *models.MatchContext {
	return models.NewMatchContext(
		tenantID,
		strconv.FormatInt(message.From.ID, 10),
		strconv.FormatInt(message.Chat.ID, 10),
		content,
		message.Time(),
	)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "replies":
		b.handleReplies(ctx, message)
	case "add":
		b.handleAdd(ctx, message)
	case "toggle":
		b.handleToggle(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome! 💬
Messages sent here are answered automatically when they match one of the saved quick replies.

Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/replies - List quick replies

Admin commands:
/add shortcut | reply text - Add a quick reply
/toggle shortcut - Enable or disable a quick reply`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleReplies(ctx context.Context, message *tgbotapi.Message) {
	replies, err := b.storage.ListQuickReplies(ctx, b.tenantID)
	if err != nil {
		b.logger.Error("Failed to list quick replies",
			zap.Error(err),
			zap.String("tenant_id", b.tenantID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't load the quick replies.")
		return
	}

	if len(replies) == 0 {
		b.sendMessage(message.Chat.ID, "There are no quick replies yet.")
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, formatReplies(replies))
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send quick reply list",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleAdd(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message.From.ID) {
		b.sendErrorMessage(message.Chat.ID, "Only admins can add quick replies.")
		return
	}

	shortcut, content, err := parseAddArgs(message.CommandArguments())
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, err.Error())
		return
	}

	reply := &models.QuickReply{
		TenantID: b.tenantID,
		Shortcut: shortcut,
		Content:  content,
		IsActive: true,
	}
	if err := b.storage.SaveQuickReply(ctx, reply); err != nil {
		b.logger.Error("Failed to save quick reply",
			zap.Error(err),
			zap.String("shortcut", shortcut))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save the quick reply.")
		return
	}

	b.sendMessage(message.Chat.ID, fmt.Sprintf("Saved quick reply %q.", shortcut))
}

func (b *Bot) handleToggle(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(message.From.ID) {
		b.sendErrorMessage(message.Chat.ID, "Only admins can change quick replies.")
		return
	}

	shortcut := strings.TrimSpace(message.CommandArguments())
	if shortcut == "" {
		b.sendErrorMessage(message.Chat.ID, "Usage: /toggle shortcut")
		return
	}

	replies, err := b.storage.ListQuickReplies(ctx, b.tenantID)
	if err != nil {
		b.logger.Error("Failed to list quick replies",
			zap.Error(err),
			zap.String("tenant_id", b.tenantID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't load the quick replies.")
		return
	}

	reply := findByShortcut(replies, shortcut)
	if reply == nil {
		b.sendErrorMessage(message.Chat.ID, fmt.Sprintf("No quick reply named %q.", shortcut))
		return
	}

	if err := b.storage.SetActive(ctx, reply.ID, !reply.IsActive); err != nil {
		b.logger.Error("Failed to toggle quick reply",
			zap.Error(err),
			zap.String("quick_reply_id", reply.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't update the quick reply.")
		return
	}

	state := "enabled"
	if reply.IsActive {
		state = "disabled"
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Quick reply %q %s.", reply.Shortcut, state))
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

func adminSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// parseAddArgs splits "shortcut | reply text".
func parseAddArgs(args string) (string, string, error) {
	shortcut, content, ok := strings.Cut(args, "|")
	shortcut = strings.TrimSpace(shortcut)
	content = strings.TrimSpace(content)
	if !ok || shortcut == "" || content == "" {
		return "", "", errors.New("Usage: /add shortcut | reply text")
	}
	return shortcut, content, nil
}

func findByShortcut(replies []*models.QuickReply, shortcut string) *models.QuickReply {
	for _, r := range replies {
		if strings.EqualFold(strings.TrimSpace(r.Shortcut), shortcut) {
			return r
		}
	}
	return nil
}

func formatReplies(replies []*models.QuickReply) string {
	response := "*Quick replies:*\n"
	for _, r := range replies {
		marker := "✅"
		if !r.IsActive {
			marker = "⏸"
		}
		response += fmt.Sprintf("%s *%s* \\(%d\\)\n", marker, escapeMarkdown(r.Shortcut), r.UsageCount)
	}
	return response
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

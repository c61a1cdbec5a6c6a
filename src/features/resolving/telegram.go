package resolving

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/contre95/snapsaver/src/media"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const callbackPrefix = "resolve_"

// Telegram callback actions. The full callback data is resolve_<action>_<file id>.
const (
	actionSave     = "save"
	actionCopy     = "copy"
	actionCopyMove = "copymove"
	actionRename   = "rename"
	actionDelete   = "delete"
	actionDismiss  = "dismiss"
)

// TelegramHandler handles Telegram commands and buttons for decisions
type TelegramHandler struct {
	service *Service

	mu            sync.Mutex
	renamePrompts map[string]string // chatID_messageID -> file id
}

// NewTelegramHandler creates a new Telegram handler for decisions
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{
		service:       service,
		renamePrompts: make(map[string]string),
	}
}

// DetectionMessage builds the prompt sent when a new file shows up.
func DetectionMessage(chatID int64, file media.DetectedFile) tgbotapi.MessageConfig {
	text := fmt.Sprintf("📸 New file detected\n\n%s\n%s", file.Filename, filepath.Dir(file.Path))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = decisionKeyboard(file.ID)
	return msg
}

func decisionKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	data := func(action string) string {
		return callbackPrefix + action + "_" + id
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Save", data(actionSave)),
			tgbotapi.NewInlineKeyboardButtonData("📋 Copy", data(actionCopy)),
			tgbotapi.NewInlineKeyboardButtonData("📦 Copy & delete", data(actionCopyMove)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Rename", data(actionRename)),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Delete", data(actionDelete)),
			tgbotapi.NewInlineKeyboardButtonData("🙈 Dismiss", data(actionDismiss)),
		),
	)
}

// parseCallback splits resolve_<action>_<id>.
func parseCallback(data string) (action, id string, ok bool) {
	rest, found := strings.CutPrefix(data, callbackPrefix)
	if !found {
		return "", "", false
	}
	action, id, found = strings.Cut(rest, "_")
	if !found || action == "" || id == "" {
		return "", "", false
	}
	return action, id, true
}

// decisionFor turns a button into a decision for file. The file keeps its
// current base name unless it is renamed.
func (h *TelegramHandler) decisionFor(ctx context.Context, action string, file media.DetectedFile) (media.Decision, error) {
	name := strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	switch action {
	case actionSave:
		return media.CopyMove(name, ""), nil
	case actionCopy:
		return media.CopyKeep(name, ""), nil
	case actionCopyMove:
		cfg, err := h.service.config.Snapshot(ctx)
		if err != nil {
			return media.Decision{}, err
		}
		if cfg.CopyPath == "" {
			return media.Decision{}, fmt.Errorf("%w: no copy folder configured", media.ErrConfiguration)
		}
		return media.CopyMove(name, cfg.CopyPath), nil
	case actionDelete:
		return media.Delete(), nil
	case actionDismiss:
		return media.Dismiss(), nil
	default:
		return media.Decision{}, fmt.Errorf("%w: unknown action %q", media.ErrConfiguration, action)
	}
}

// HandleCommand processes decision related commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	ctx := context.Background()
	switch command {
	case "pending":
		file, err := h.service.PendingFile()
		if err != nil {
			_, err = bot.Send(tgbotapi.NewMessage(chatID, "📭 No file waiting for a decision"))
			return err
		}
		_, err = bot.Send(DetectionMessage(chatID, file))
		return err
	case "history":
		records, err := h.service.History(ctx, 10)
		if err != nil {
			return err
		}
		_, err = bot.Send(tgbotapi.NewMessage(chatID, formatHistory(records)))
		return err
	default:
		return fmt.Errorf("unknown resolving command: %s", command)
	}
}

// GetCommands returns the commands handled by this feature
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"pending": "Show the file waiting for a decision",
		"history": "Show the last decisions",
	}
}

// HandleCallback applies the decision behind a prompt button
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	action, id, ok := parseCallback(callback.Data)
	if !ok {
		return false
	}
	chatID := callback.Message.Chat.ID
	ctx := context.Background()

	file, err := h.service.pending.Lookup(id)
	if err != nil {
		bot.Send(tgbotapi.NewMessage(chatID, "⚠️ "+err.Error()))
		return true
	}

	if action == actionRename {
		h.promptRename(bot, chatID, file)
		return true
	}

	decision, err := h.decisionFor(ctx, action, file)
	if err != nil {
		bot.Send(tgbotapi.NewMessage(chatID, "❌ "+err.Error()))
		return true
	}
	// Results reach the chat through the notification sink.
	if _, err := h.service.ResolvePending(ctx, id, decision); err != nil {
		slog.Debug("Telegram decision failed", "action", action, "id", id, "error", err)
	}
	return true
}

// HandleReply handles a reply to a rename prompt
func (h *TelegramHandler) HandleReply(bot *tgbotapi.BotAPI, message *tgbotapi.Message) bool {
	key := fmt.Sprintf("%d_%d", message.Chat.ID, message.ReplyToMessage.MessageID)
	h.mu.Lock()
	id, ok := h.renamePrompts[key]
	if ok {
		delete(h.renamePrompts, key)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}
	if _, err := h.service.ResolvePending(context.Background(), id, media.Rename(message.Text)); err != nil {
		slog.Debug("Telegram rename failed", "id", id, "error", err)
	}
	return true
}

func (h *TelegramHandler) promptRename(bot *tgbotapi.BotAPI, chatID int64, file media.DetectedFile) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("✏️ Reply with the new name for %s (the extension is kept)", file.Filename))
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}
	sent, err := bot.Send(msg)
	if err != nil {
		slog.Error("Failed to send rename prompt", "error", err)
		return
	}
	h.mu.Lock()
	h.renamePrompts[fmt.Sprintf("%d_%d", chatID, sent.MessageID)] = file.ID
	h.mu.Unlock()
}

func formatHistory(records []media.Record) string {
	if len(records) == 0 {
		return "📜 No decisions yet"
	}
	var b strings.Builder
	b.WriteString("📜 Last decisions\n")
	for _, r := range records {
		icon := "✅"
		if r.Failed {
			icon = "❌"
		}
		fmt.Fprintf(&b, "\n%s %s %s: %s", icon, r.CreatedAt.Format("Jan 02 15:04"), r.Decision, r.Message)
	}
	return b.String()
}

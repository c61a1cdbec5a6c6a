package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the directory settings
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for settings
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes settings commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	ctx := context.Background()
	picker := PathPicker(strings.TrimSpace(args))

	var (
		label string
		path  string
		err   error
	)
	switch command {
	case "settings":
		return h.sendSettings(ctx, bot, chatID)
	case "setwatch":
		label = "Watch"
		path, err = h.service.SelectWatchFolder(ctx, picker)
	case "setsave":
		label = "Save"
		path, err = h.service.SelectSaveFolder(ctx, picker)
	case "setcopy":
		label = "Copy"
		path, err = h.service.SelectCopyFolder(ctx, picker)
	default:
		return fmt.Errorf("unknown settings command: %s", command)
	}

	if err != nil {
		slog.Error("Failed to update folder from Telegram", "command", command, "error", err)
		bot.Send(tgbotapi.NewMessage(chatID, "❌ "+err.Error()))
		return nil
	}
	if path == "" {
		bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Usage: /%s <absolute folder path>", command)))
		return nil
	}
	bot.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ %s folder set to %s", label, path)))
	return nil
}

// GetCommands returns the commands handled by this feature
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"settings": "Show watch, save and copy folders",
		"setwatch": "Set the watched folder: /setwatch <path>",
		"setsave":  "Set the save folder: /setsave <path>",
		"setcopy":  "Set the copy folder: /setcopy <path>",
	}
}

// HandleCallback handles settings callbacks
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	if callback.Data != "settings_show" {
		return false
	}
	if err := h.sendSettings(context.Background(), bot, callback.Message.Chat.ID); err != nil {
		slog.Error("Failed to show settings", "error", err)
	}
	return true
}

func (h *TelegramHandler) sendSettings(ctx context.Context, bot *tgbotapi.BotAPI, chatID int64) error {
	cfg, err := h.service.Snapshot(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("📁 Folders\n\nWatch: %s\nSave: %s\nCopy: %s",
		orUnset(cfg.WatchPath), orUnset(cfg.SavePath), orUnset(cfg.CopyPath))
	_, err = bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func orUnset(path string) string {
	if path == "" {
		return "(not set)"
	}
	return path
}

package watching

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the watcher
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the watcher
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes watcher commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "status":
		_, err := bot.Send(tgbotapi.NewMessage(chatID, h.formatStatus()))
		return err
	case "restart":
		if err := h.service.Restart("manual"); err != nil {
			bot.Send(tgbotapi.NewMessage(chatID, "❌ Failed to restart watcher: "+err.Error()))
			return nil
		}
		_, err := bot.Send(tgbotapi.NewMessage(chatID, "🔄 Watcher restarted\n\n"+h.formatStatus()))
		return err
	default:
		return fmt.Errorf("unknown watching command: %s", command)
	}
}

// GetCommands returns the commands handled by this feature
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"status":  "Show watcher status and the pending file",
		"restart": "Restart the file watcher",
	}
}

// HandleCallback handles watcher callbacks
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	if callback.Data != "watcher_status" {
		return false
	}
	if _, err := bot.Send(tgbotapi.NewMessage(callback.Message.Chat.ID, h.formatStatus())); err != nil {
		slog.Error("Failed to send watcher status", "error", err)
	}
	return true
}

func (h *TelegramHandler) formatStatus() string {
	status := h.service.Status()
	text := "👀 Watcher: stopped"
	if status.Running {
		text = "👀 Watcher: watching " + status.Root
	}
	if status.RetryScheduled {
		text += "\n⏳ Restart scheduled"
	}
	if status.Pending != nil {
		text += fmt.Sprintf("\n📄 Pending: %s (detected %s)", status.Pending.Filename, status.Pending.DetectedAt.Format("15:04:05"))
	} else {
		text += "\n📭 No file waiting"
	}
	return text
}

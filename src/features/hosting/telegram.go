package hosting

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/contre95/snapsaver/src/features/config"
	"github.com/contre95/snapsaver/src/features/notifying"
	"github.com/contre95/snapsaver/src/features/resolving"
	"github.com/contre95/snapsaver/src/features/settings"
	"github.com/contre95/snapsaver/src/features/watching"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramCommandHandler interface that each feature implements
type TelegramCommandHandler interface {
	HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error
	GetCommands() map[string]string                                             // Returns command -> description mapping
	HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool // Handle feature-specific callbacks
}

// TelegramReplyHandler is implemented by features that prompt for free text.
type TelegramReplyHandler interface {
	HandleReply(bot *tgbotapi.BotAPI, message *tgbotapi.Message) bool
}

// TelegramBot handles Telegram bot operations
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	config   *config.Manager
	updates  tgbotapi.UpdatesChannel
	stopChan chan struct{}
	stopOnce sync.Once

	handlers map[string]TelegramCommandHandler
	commands map[string]string // command -> feature
}

// NewTelegramBot creates a new Telegram bot instance
func NewTelegramBot(cfg *config.Manager, settingsService *settings.Service, watchingService *watching.Service, resolvingService *resolving.Service) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}

	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	telegramBot := &TelegramBot{
		bot:      bot,
		config:   cfg,
		updates:  bot.GetUpdatesChan(updateConfig),
		stopChan: make(chan struct{}),
		handlers: make(map[string]TelegramCommandHandler),
		commands: make(map[string]string),
	}

	telegramBot.RegisterHandler("resolving", resolving.NewTelegramHandler(resolvingService))
	telegramBot.RegisterHandler("watching", watching.NewTelegramHandler(watchingService))
	telegramBot.RegisterHandler("settings", settings.NewTelegramHandler(settingsService))

	return telegramBot, nil
}

// RegisterHandler registers a feature's command handler and its commands
func (t *TelegramBot) RegisterHandler(feature string, handler TelegramCommandHandler) {
	t.handlers[feature] = handler
	for command := range handler.GetCommands() {
		t.commands[command] = feature
	}
	slog.Debug("Registered Telegram handler", "feature", feature)
}

// Start begins listening for Telegram updates
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update := <-t.updates:
			if update.Message != nil {
				go t.handleMessage(update.Message)
			}
			if update.CallbackQuery != nil {
				go t.handleCallbackQuery(update.CallbackQuery)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			t.bot.StopReceivingUpdates()
			return
		}
	}
}

// Stop gracefully stops the bot
func (t *TelegramBot) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Notify pushes a notification to the configured chats. It never blocks.
func (t *TelegramBot) Notify(n notifying.Notification) {
	chatIDs := t.config.Get().Telegram.ChatIDs
	if len(chatIDs) == 0 {
		return
	}
	for _, chatID := range chatIDs {
		var msg tgbotapi.MessageConfig
		switch n.Kind {
		case notifying.KindFileDetected:
			if n.File == nil {
				continue
			}
			msg = resolving.DetectionMessage(chatID, *n.File)
		case notifying.KindSuccess:
			msg = tgbotapi.NewMessage(chatID, "✅ "+n.Message)
		case notifying.KindError:
			msg = tgbotapi.NewMessage(chatID, "❌ "+n.Message)
		default:
			continue
		}
		go func(msg tgbotapi.MessageConfig) {
			if _, err := t.bot.Send(msg); err != nil {
				slog.Error("Failed to send notification", "error", err, "chat_id", msg.ChatID, "kind", n.Kind)
			}
		}(msg)
	}
}

// authorized reports whether the user may talk to the bot
func (t *TelegramBot) authorized(user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	username := user.UserName
	if username == "" {
		username = user.FirstName
		if user.LastName != "" {
			username += " " + user.LastName
		}
	}
	return slices.Contains(t.config.Get().Telegram.AllowedUsers, username)
}

// handleMessage processes incoming messages
func (t *TelegramBot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if len(t.config.Get().Telegram.AllowedUsers) == 0 {
		slog.Warn("No allowed users configured", "chat_id", chatID)
		t.sendMessage(chatID, "❌ Access denied: No users configured. Please add users to the config.")
		return
	}
	if !t.authorized(message.From) {
		slog.Warn("Unauthorized user", "chat_id", chatID)
		t.sendMessage(chatID, "Unknown user, please add your user to the config")
		return
	}

	if message.IsCommand() {
		t.handleCommand(message)
		return
	}

	if message.ReplyToMessage != nil && t.handleReplyInput(message) {
		return
	}

	t.sendMessage(chatID, "🤖 Send /menu or /help to see available options")
}

// handleCommand processes bot commands
func (t *TelegramBot) handleCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	command := message.Command()
	args := message.CommandArguments()

	slog.Debug("Processing command", "command", command, "args", args, "chat_id", chatID)

	switch command {
	case "help", "start", "menu":
		t.handleHelp(chatID)
	default:
		if err := t.routeCommand(command, args, chatID); err != nil {
			slog.Error("Failed to handle command", "command", command, "error", err)
			t.sendMessage(chatID, "❌ Failed to process command")
		}
	}
}

// routeCommand routes commands to the feature that registered them
func (t *TelegramBot) routeCommand(command, args string, chatID int64) error {
	feature, exists := t.commands[command]
	if !exists {
		t.sendMessage(chatID, "❌ Unknown command. Send /help to see available commands.")
		return nil
	}
	return t.handlers[feature].HandleCommand(t.bot, chatID, command, args)
}

// handleReplyInput offers a reply to every feature that prompts for text
func (t *TelegramBot) handleReplyInput(message *tgbotapi.Message) bool {
	for _, handler := range t.handlers {
		if replier, ok := handler.(TelegramReplyHandler); ok && replier.HandleReply(t.bot, message) {
			return true
		}
	}
	return false
}

// sendMessage sends a message to the specified chat
func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}

// handleCallbackQuery handles callback queries from inline keyboards
func (t *TelegramBot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	defer t.bot.Request(tgbotapi.NewCallback(callback.ID, ""))

	if !t.authorized(callback.From) {
		slog.Warn("Unauthorized callback", "data", callback.Data)
		return
	}
	if callback.Message == nil {
		return
	}
	if strings.HasPrefix(callback.Data, "menu_") {
		t.handleMenuCallback(callback)
		return
	}
	for _, handler := range t.handlers {
		if handler.HandleCallback(t.bot, callback) {
			return
		}
	}
	slog.Debug("Unhandled callback", "data", callback.Data)
}

// handleHelp shows the command list and the main menu
func (t *TelegramBot) handleHelp(chatID int64) {
	commands := make([]string, 0, len(t.commands))
	for command := range t.commands {
		commands = append(commands, command)
	}
	sort.Strings(commands)

	var b strings.Builder
	b.WriteString("🤖 SnapSaver\n\n")
	for _, command := range commands {
		description := t.handlers[t.commands[command]].GetCommands()[command]
		fmt.Fprintf(&b, "/%s - %s\n", command, description)
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 Pending", "menu_pending"),
			tgbotapi.NewInlineKeyboardButtonData("👀 Status", "menu_status"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📜 History", "menu_history"),
			tgbotapi.NewInlineKeyboardButtonData("📁 Folders", "menu_settings"),
		),
	)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send menu", "error", err, "chat_id", chatID)
	}
}

// handleMenuCallback maps menu buttons to commands
func (t *TelegramBot) handleMenuCallback(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	command := strings.TrimPrefix(callback.Data, "menu_")
	if err := t.routeCommand(command, "", chatID); err != nil {
		slog.Error("Failed to handle menu command", "command", command, "error", err)
		t.sendMessage(chatID, "❌ Failed to process menu selection")
	}
}

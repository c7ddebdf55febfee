package handler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mareevma/skladbot/internal/core/domain"
	"github.com/mareevma/skladbot/internal/core/service"
	"github.com/mareevma/skladbot/internal/port"
)

const helpText = `
*Команды бота*
` + "`/stock`" + ` — показать всё содержимое склада
` + "`/export`" + ` — выгрузить таблицу *stock* в CSV
` + "`/logs`" + ` — последние операции в читаемом виде
` + "`/help`" + ` — эта справка

*Примеры запросов*
• «положи 4 майки L в а2»
• «забрал все гайки 5 из c9»
• «перемести 3 браслета из в5 в а3»
• «где лежат блокноты»
`

const recentLogsLimit = 15

type TelegramHandler struct {
	bot      *tgbotapi.BotAPI
	commands *service.CommandService
	store    port.WarehouseStore
	timeout  time.Duration
	logger   *zap.Logger
}

func NewTelegramHandler(bot *tgbotapi.BotAPI, commands *service.CommandService, store port.WarehouseStore, timeout time.Duration, logger *zap.Logger) *TelegramHandler {
	return &TelegramHandler{
		bot:      bot,
		commands: commands,
		store:    store,
		timeout:  timeout,
		logger:   logger,
	}
}

// SetupCommands registers the menu button commands with Telegram.
func (h *TelegramHandler) SetupCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "stock", Description: "📦 Показать всё на складе"},
		tgbotapi.BotCommand{Command: "logs", Description: "📖 Посмотреть последние операции"},
		tgbotapi.BotCommand{Command: "export", Description: "📥 Экспорт склада в CSV"},
		tgbotapi.BotCommand{Command: "help", Description: "❓ Помощь по командам"},
	)
	if _, err := h.bot.Request(cfg); err != nil {
		return err
	}
	return nil
}

// Run consumes updates until the context is cancelled. Updates are
// handled strictly in order, which together with the service mutex
// gives the single-flight discipline the store requires.
func (h *TelegramHandler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			h.handleMessage(ctx, update.Message)
		}
	}
}

func (h *TelegramHandler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "help", "start":
			h.reply(msg.Chat.ID, escape(helpText))
		case "stock":
			h.handleStock(ctx, msg.Chat.ID)
		case "logs":
			h.handleLogs(ctx, msg.Chat.ID)
		case "export":
			h.handleExport(ctx, msg.Chat.ID)
		}
		return
	}
	h.handleUtterance(ctx, msg)
}

func (h *TelegramHandler) handleUtterance(ctx context.Context, msg *tgbotapi.Message) {
	utterance := strings.TrimSpace(msg.Text)
	username := "unknown_user"
	if msg.From != nil && msg.From.UserName != "" {
		username = msg.From.UserName
	}

	status, err := h.bot.Send(h.message(msg.Chat.ID, escape("Думаю…")))
	if err != nil {
		h.logger.Error("send status message", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result, err := h.commands.Handle(ctx, username, utterance)
	if err != nil {
		h.edit(msg.Chat.ID, status.MessageID, escape(failureText(err)))
		return
	}

	if result.Mode == domain.ModeRead {
		text := FormatTable(result.Rows)
		if strings.HasPrefix(text, "```") {
			h.edit(msg.Chat.ID, status.MessageID, text)
		} else {
			h.edit(msg.Chat.ID, status.MessageID, escape(text))
		}
		return
	}

	text := escape("✅ Операция выполнена успешно.")
	if result.Summary != "" {
		text += "\n\n_" + escape(result.Summary) + "_"
	}
	h.edit(msg.Chat.ID, status.MessageID, text)
}

// failureText maps the pipeline error taxonomy onto user-facing
// messages. Store errors stay non-technical; the detail is in the log.
func failureText(err error) string {
	var bizErr *service.BusinessError
	switch {
	case errors.As(err, &bizErr):
		return "⚠️ " + bizErr.Reason
	case errors.Is(err, service.ErrScriptRejected):
		return "⚠️ Запрос отклонён проверкой безопасности."
	case errors.Is(err, service.ErrGeneratorFailed):
		return "🤖 Ошибка разбора ответа LLM."
	case errors.Is(err, service.ErrBadPayload):
		return "🤖 Неправильный формат JSON."
	default:
		return "⚠️ Ошибка базы данных, операция отменена."
	}
}

func (h *TelegramHandler) handleStock(ctx context.Context, chatID int64) {
	rows, err := h.store.ListStock(ctx)
	if err != nil {
		h.logger.Error("list stock", zap.Error(err))
		h.reply(chatID, escape("⚠️ Не удалось получить содержимое склада."))
		return
	}
	text := FormatTable(StockReadResult(rows))
	if strings.HasPrefix(text, "```") {
		h.reply(chatID, text)
	} else {
		h.reply(chatID, escape(text))
	}
}

func (h *TelegramHandler) handleLogs(ctx context.Context, chatID int64) {
	logs, err := h.store.RecentLogs(ctx, recentLogsLimit)
	if err != nil {
		h.logger.Error("recent logs", zap.Error(err))
		h.reply(chatID, escape("⚠️ Не удалось получить журнал операций."))
		return
	}
	if len(logs) == 0 {
		h.reply(chatID, escape("Пока не было выполнено ни одной операции."))
		return
	}

	lines := make([]string, 0, len(logs))
	for _, l := range logs {
		// Non-breaking hyphens keep the date on one line.
		ts := strings.ReplaceAll(l.TS.Format("2006-01-02 15:04"), "-", "‑")
		lines = append(lines, "`"+ts+"` — *"+escape(l.User)+"* — "+escape(l.Summary))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

func (h *TelegramHandler) handleExport(ctx context.Context, chatID int64) {
	rows, err := h.store.ListStock(ctx)
	if err != nil {
		h.logger.Error("list stock for export", zap.Error(err))
		h.reply(chatID, escape("⚠️ Не удалось выгрузить склад."))
		return
	}

	var buf bytes.Buffer
	if err := WriteStockCSV(&buf, rows); err != nil {
		h.logger.Error("write stock csv", zap.Error(err))
		h.reply(chatID, escape("⚠️ Не удалось выгрузить склад."))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "stock.csv", Bytes: buf.Bytes()})
	if _, err := h.bot.Send(doc); err != nil {
		h.logger.Error("send export document", zap.Error(err))
	}
}

func (h *TelegramHandler) message(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return msg
}

func (h *TelegramHandler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(h.message(chatID, text)); err != nil {
		h.logger.Error("send message", zap.Error(err))
	}
}

func (h *TelegramHandler) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := h.bot.Send(edit); err != nil {
		h.logger.Error("edit message", zap.Error(err))
	}
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

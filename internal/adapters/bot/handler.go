package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

const (
	msgWelcome       = "Welcome! This chat is registered. Use /daily_on to get a puzzle every day, or /random for one right now."
	msgAlreadyJoined = "This chat is already registered."
	msgStartFirst    = "This chat is not registered yet. Send /start first."
	msgDailyOn       = "Daily puzzle enabled for this chat."
	msgDailyOff      = "Daily puzzle disabled for this chat."
	msgNoToday       = "There's no puzzle for today yet. Please wait for the daily puzzle or use the /random command."
	msgUnknown       = "Unknown command. Use /help"
	msgFailed        = "Something went wrong, please try again later."
)

// Handler обрабатывает команды бота.
type Handler struct {
	messenger domain.Messenger
	registry  domain.ChatRegistry
	catalog   domain.PuzzleCatalog
	deliverer domain.Deliverer
	dailyAt   string
	log       zerolog.Logger
}

// NewHandler создаёт обработчик. dailyAt попадает в текст /help.
func NewHandler(messenger domain.Messenger, registry domain.ChatRegistry, catalog domain.PuzzleCatalog, deliverer domain.Deliverer, dailyAt string, log zerolog.Logger) *Handler {
	return &Handler{
		messenger: messenger,
		registry:  registry,
		catalog:   catalog,
		deliverer: deliverer,
		dailyAt:   dailyAt,
		log:       log.With().Str("component", "bot").Logger(),
	}
}

// Commands возвращает меню для setMyCommands.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Register this chat"},
		{Command: "random", Description: "Random puzzle, optionally /random 1, 2 or 3"},
		{Command: "today", Description: "Show today's puzzle again"},
		{Command: "daily_on", Description: "Get the daily puzzle"},
		{Command: "daily_off", Description: "Stop the daily puzzle"},
		{Command: "help", Description: "List commands"},
	}
}

// HandleUpdate обрабатывает входящий апдейт. Обычный текст игнорируется.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	command := msg.Command()
	args := strings.Fields(msg.CommandArguments())

	switch command {
	case "start":
		h.handleStart(ctx, chatID)
	case "daily_on":
		h.handleDaily(ctx, chatID, true)
	case "daily_off":
		h.handleDaily(ctx, chatID, false)
	case "random":
		h.handleRandom(ctx, chatID, args)
	case "today":
		h.handleToday(ctx, chatID)
	case "help":
		h.reply(ctx, chatID, h.buildHelpMessage())
	default:
		command = "unknown"
		h.reply(ctx, chatID, msgUnknown)
	}
	metrics.IncCommand(command)
}

func (h *Handler) handleStart(ctx context.Context, chatID int64) {
	err := h.registry.Register(chatID)
	switch {
	case errors.Is(err, domain.ErrAlreadyRegistered):
		h.reply(ctx, chatID, msgAlreadyJoined)
	case err != nil:
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("не удалось зарегистрировать чат")
		h.reply(ctx, chatID, msgFailed)
	default:
		h.log.Info().Int64("chat_id", chatID).Msg("чат зарегистрирован")
		h.reply(ctx, chatID, msgWelcome)
	}
}

func (h *Handler) handleDaily(ctx context.Context, chatID int64, enabled bool) {
	err := h.registry.SetDailyOptIn(chatID, enabled)
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		h.reply(ctx, chatID, msgStartFirst)
	case err != nil:
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("не удалось изменить подписку")
		h.reply(ctx, chatID, msgFailed)
	case enabled:
		h.reply(ctx, chatID, msgDailyOn)
	default:
		h.reply(ctx, chatID, msgDailyOff)
	}
}

// handleRandom: аргумент 1, 2 или 3 ограничивает выборку матом в N, любой другой игнорируется.
func (h *Handler) handleRandom(ctx context.Context, chatID int64, args []string) {
	set := h.catalog.All()
	depth := 0
	if len(args) > 0 {
		if d, ok := domain.ParseMateDepth(args[0]); ok {
			depth = d
			set = h.catalog.FilterByTheme(domain.MateTheme(d))
		}
	}
	puzzle, err := h.catalog.SampleOne(set)
	if errors.Is(err, domain.ErrEmptyResult) {
		if depth > 0 {
			h.reply(ctx, chatID, fmt.Sprintf("No puzzles found for mate in %d.", depth))
		} else {
			h.reply(ctx, chatID, "No puzzles found.")
		}
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось выбрать задачу")
		h.reply(ctx, chatID, msgFailed)
		return
	}
	h.deliver(ctx, chatID, puzzle)
}

func (h *Handler) handleToday(ctx context.Context, chatID int64) {
	id, err := h.registry.LastDelivered(chatID)
	if errors.Is(err, domain.ErrNoHistory) || errors.Is(err, domain.ErrNotRegistered) {
		h.reply(ctx, chatID, msgNoToday)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("не удалось прочитать историю")
		h.reply(ctx, chatID, msgFailed)
		return
	}
	puzzle, ok := h.catalog.Get(id)
	if !ok {
		h.log.Warn().Str("puzzle", id).Int64("chat_id", chatID).Msg("задачи из истории нет в каталоге")
		h.reply(ctx, chatID, msgNoToday)
		return
	}
	h.deliver(ctx, chatID, puzzle)
}

func (h *Handler) deliver(ctx context.Context, chatID int64, puzzle domain.Puzzle) {
	err := h.deliverer.Deliver(ctx, chatID, puzzle, domain.DeliveryCauseManual)
	if err == nil {
		return
	}
	var renderErr *domain.RenderError
	if errors.As(err, &renderErr) {
		h.reply(ctx, chatID, fmt.Sprintf("Puzzle %s could not be drawn, try /random again.", puzzle.ID))
		return
	}
	h.log.Error().Err(err).Int64("chat_id", chatID).Str("puzzle", puzzle.ID).Msg("задача не доставлена")
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.messenger.SendMessage(ctx, chatID, text); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("не удалось отправить ответ")
	}
}

func (h *Handler) buildHelpMessage() string {
	lines := []string{
		"This bot sends chess puzzles to solve with mate in 1, 2 or 3 moves.",
		"Here are the available commands:",
		"",
		"/start - Registers this chat",
		"/random - Sends a random puzzle",
		"/random 1,2,3 - Specifies the number of moves till mate",
		"/today - Shows today's puzzle",
		"/daily_on - Enables the daily puzzle",
		"/daily_off - Disables the daily puzzle",
		"/help - Displays this help message",
		"",
		fmt.Sprintf("A daily puzzle will be posted automatically at %s every day.", h.dailyAt),
	}
	return strings.Join(lines, "\n")
}

// SecretTokenHeader несёт секрет, заданный при setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler принимает апдейты от Telegram по HTTP. Запросы без верного секрета отклоняются.
func WebhookHandler(h *Handler, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(SecretTokenHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			h.log.Warn().Str("remote", r.RemoteAddr).Msg("вебхук без верного секрета")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}

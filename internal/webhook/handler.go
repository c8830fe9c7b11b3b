// Package webhook sequences the per-message pipeline: whitelist checks,
// admission, input validation, intent dispatch, collaborator calls, and the
// reply. Every outcome maps to at most one outbound message.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/quailyquaily/bildbot/internal/admission"
	"github.com/quailyquaily/bildbot/internal/command"
	"github.com/quailyquaily/bildbot/internal/mention"
	"github.com/quailyquaily/bildbot/internal/retryutil"
	"github.com/quailyquaily/bildbot/internal/telegram"
	"github.com/quailyquaily/bildbot/llm"
)

// Messenger is the outbound surface of the chat platform. telegram.API
// implements it; tests substitute fakes.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string, replyToMessageID int64) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	DownloadPhoto(ctx context.Context, fileID string, maxBytes int64, timeout time.Duration) ([]byte, error)
}

type Config struct {
	BotUsername string
	BotID       int64

	// AllowedUsers empty means nobody is allowed (visible denial in
	// private chats, silent ignore in groups). AllowedGroups empty means
	// every group is allowed.
	AllowedUsers  map[int64]bool
	AllowedGroups map[int64]bool

	GroupMentionRequired bool
	MaxMessageChars      int

	ChatModel    string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64

	ImageModel     string // generations
	ImageEditModel string // edits and variations
	ImageSize      string
	ImageQuality   string

	RequestTimeout   time.Duration
	DownloadTimeout  time.Duration
	DownloadMaxBytes int64
}

type Handler struct {
	cfg       Config
	messenger Messenger
	chat      llm.Client
	images    llm.ImageClient
	text      *admission.Limiter
	image     *admission.Limiter
	logger    *slog.Logger
	startedAt time.Time
}

func NewHandler(cfg Config, messenger Messenger, chat llm.Client, images llm.ImageClient, text, image *admission.Limiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxMessageChars <= 0 {
		cfg.MaxMessageChars = 2000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Second
	}
	return &Handler{
		cfg:       cfg,
		messenger: messenger,
		chat:      chat,
		images:    images,
		text:      text,
		image:     image,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Register mounts the webhook and the two read-only status endpoints.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/telegram", h.handleWebhook)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		// Malformed body is the delivery mechanism's problem: a client
		// error lets it decide about redelivery.
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	logger := h.logger.With("request_id", uuid.NewString(), "update_id", upd.UpdateID)

	// A message's failure must never bubble into the webhook response:
	// acknowledge so the platform does not redeliver indefinitely.
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("webhook_panic", "panic", rec)
			writeOK(w)
		}
	}()

	msg := upd.InboundMessage()
	if msg == nil || msg.Chat == nil || msg.From == nil {
		logger.Debug("webhook_ignored", "reason", "unsupported_update_shape")
		writeOK(w)
		return
	}

	h.process(r.Context(), logger, msg)
	writeOK(w)
}

// process runs the admission pipeline for one message, short-circuiting at
// the first failing gate.
func (h *Handler) process(ctx context.Context, logger *slog.Logger, msg *telegram.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	isGroup := telegram.IsGroup(msg.Chat.Type)
	text := msg.TextOrCaption()
	logger = logger.With("chat_id", chatID, "user_id", userID, "chat_type", msg.Chat.Type)

	// Reply threading only in groups; private chats get flat answers.
	replyTo := int64(0)
	if isGroup {
		replyTo = msg.MessageID
	}

	if isGroup && len(h.cfg.AllowedGroups) > 0 && !h.cfg.AllowedGroups[chatID] {
		logger.Debug("webhook_ignored", "reason", "group_not_allowed")
		return
	}

	if isGroup && h.cfg.GroupMentionRequired {
		mentioned, cleaned := mention.Resolve(msg, h.cfg.BotUsername, h.cfg.BotID)
		if !mentioned {
			logger.Debug("webhook_ignored", "reason", "not_mentioned")
			return
		}
		text = cleaned
	}

	if !h.cfg.AllowedUsers[userID] {
		if isGroup {
			// Deliberately silent: group policy prefers not spamming the
			// group over informing the rejected user.
			logger.Info("user_rejected", "visible", false)
			return
		}
		logger.Info("user_rejected", "visible", true)
		h.reply(ctx, logger, chatID, replyAccessDenied, replyTo)
		return
	}

	intent := command.Classify(text)
	logger = logger.With("intent", intent.Kind.String())

	switch intent.Kind {
	case command.Help:
		h.reply(ctx, logger, chatID, replyUsage, replyTo)
	case command.ImageGenerate, command.ImageEdit, command.ImageVariation:
		h.handleImage(ctx, logger, msg, intent, chatID, replyTo)
	default:
		h.handleChat(ctx, logger, intent.Payload, chatID, replyTo, userID)
	}
}

func (h *Handler) handleChat(ctx context.Context, logger *slog.Logger, text string, chatID, replyTo, userID int64) {
	if dec := h.text.Check(userID); !dec.Allowed {
		logger.Info("rate_limited", "class", "text", "retry_after", dec.RetryAfter.String())
		h.reply(ctx, logger, chatID, rateLimitedReply(dec.RetryAfter), replyTo)
		return
	}

	if text == "" {
		h.reply(ctx, logger, chatID, replyEmptyMessage, replyTo)
		return
	}
	if utf8.RuneCountInString(text) > h.cfg.MaxMessageChars {
		h.reply(ctx, logger, chatID, tooLongReply(h.cfg.MaxMessageChars), replyTo)
		return
	}

	// Best-effort by contract; the result is discarded.
	_ = h.messenger.SendChatAction(ctx, chatID, "typing")

	callCtx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancel()
	res, err := h.chat.Chat(callCtx, llm.Request{
		Model: h.cfg.ChatModel,
		Messages: []llm.Message{
			{Role: "system", Content: h.cfg.SystemPrompt},
			{Role: "user", Content: text},
		},
		MaxTokens:   h.cfg.MaxTokens,
		Temperature: h.cfg.Temperature,
	})
	if err != nil {
		logger.Warn("llm_call_failed", "kind", string(llm.KindOf(err)), "error", err.Error())
		h.reply(ctx, logger, chatID, collaboratorFailureReply(err), replyTo)
		return
	}

	logger.Info("chat_completed", "tokens", res.Usage.TotalTokens, "duration", res.Duration.String())
	h.reply(ctx, logger, chatID, res.Text, replyTo)
}

func (h *Handler) handleImage(ctx context.Context, logger *slog.Logger, msg *telegram.Message, intent command.Intent, chatID, replyTo int64) {
	userID := msg.From.ID
	if dec := h.image.Check(userID); !dec.Allowed {
		logger.Info("rate_limited", "class", "image", "retry_after", dec.RetryAfter.String())
		h.reply(ctx, logger, chatID, rateLimitedReply(dec.RetryAfter), replyTo)
		return
	}

	needsPrompt := intent.Kind == command.ImageGenerate || intent.Kind == command.ImageEdit
	if needsPrompt && intent.Payload == "" {
		h.reply(ctx, logger, chatID, replyMissingPrompt, replyTo)
		return
	}

	var source []byte
	if intent.Kind == command.ImageEdit || intent.Kind == command.ImageVariation {
		fileID := msg.LargestPhoto()
		if fileID == "" {
			h.reply(ctx, logger, chatID, replyMissingPhoto, replyTo)
			return
		}
		raw, err := h.messenger.DownloadPhoto(ctx, fileID, h.cfg.DownloadMaxBytes, h.cfg.DownloadTimeout)
		if err != nil {
			logger.Warn("photo_download_failed", "error", err.Error())
			h.reply(ctx, logger, chatID, replyPhotoFailed, replyTo)
			return
		}
		source = raw
	}

	_ = h.messenger.SendChatAction(ctx, chatID, "upload_photo")

	callCtx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancel()

	var img llm.Image
	var err error
	switch intent.Kind {
	case command.ImageGenerate:
		img, err = h.images.Generate(callCtx, llm.GenerateRequest{
			Model:   h.cfg.ImageModel,
			Prompt:  intent.Payload,
			Size:    h.cfg.ImageSize,
			Quality: h.cfg.ImageQuality,
		})
	case command.ImageEdit:
		img, err = h.images.Edit(callCtx, llm.EditRequest{
			Model:  h.cfg.ImageEditModel,
			Image:  source,
			Prompt: intent.Payload,
			Size:   h.cfg.ImageSize,
		})
	default:
		img, err = h.images.Variation(callCtx, llm.VariationRequest{
			Model: h.cfg.ImageEditModel,
			Image: source,
			Size:  h.cfg.ImageSize,
		})
	}
	if err != nil {
		logger.Warn("image_call_failed", "kind", string(llm.KindOf(err)), "error", err.Error())
		h.reply(ctx, logger, chatID, collaboratorFailureReply(err), replyTo)
		return
	}

	logger.Info("image_completed", "bytes", len(img.Bytes))
	if err := h.messenger.SendPhoto(ctx, chatID, img.Bytes, intent.Payload, replyTo); err != nil {
		logger.Error("send_photo_failed", "error", err.Error())
		photo, caption := img.Bytes, intent.Payload
		retryutil.AsyncRetry(logger, "send_photo", 0, 0, func(ctx context.Context) error {
			return h.messenger.SendPhoto(ctx, chatID, photo, caption, replyTo)
		})
	}
}

// reply sends text and schedules one background retry when delivery fails.
// Delivery failure never propagates into the pipeline.
func (h *Handler) reply(ctx context.Context, logger *slog.Logger, chatID int64, text string, replyTo int64) {
	if err := h.messenger.SendMessage(ctx, chatID, text, replyTo); err != nil {
		logger.Error("send_message_failed", "error", err.Error())
		retryutil.AsyncRetry(logger, "send_message", 0, 0, func(ctx context.Context) error {
			return h.messenger.SendMessage(ctx, chatID, text, replyTo)
		})
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

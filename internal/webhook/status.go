package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type limitStatus struct {
	MaxRequests int    `json:"max_requests"`
	Window      string `json:"window"`
	Tracked     int    `json:"tracked_users"`
}

type statusResponse struct {
	Status               string      `json:"status"`
	Version              string      `json:"version"`
	StartedAt            time.Time   `json:"started_at"`
	UptimeSecs           float64     `json:"uptime_seconds"`
	AllowedUsers         int         `json:"allowed_users"`
	AllowedGroups        int         `json:"allowed_groups"`
	GroupMentionRequired bool        `json:"group_mention_required"`
	MaxMessageChars      int         `json:"max_message_chars"`
	TextLimit            limitStatus `json:"text_limit"`
	ImageLimit           limitStatus `json:"image_limit"`
	ChatModel            string      `json:"chat_model"`
	ImageModel           string      `json:"image_model"`
}

// handleHealth answers a liveness probe. No side effects, always succeeds.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: Version})
}

// handleStatus reports the configuration summary: allow-list sizes,
// configured limits, and feature flags. Read-only.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:               "ok",
		Version:              Version,
		StartedAt:            h.startedAt,
		UptimeSecs:           time.Since(h.startedAt).Seconds(),
		AllowedUsers:         len(h.cfg.AllowedUsers),
		AllowedGroups:        len(h.cfg.AllowedGroups),
		GroupMentionRequired: h.cfg.GroupMentionRequired,
		MaxMessageChars:      h.cfg.MaxMessageChars,
		TextLimit: limitStatus{
			MaxRequests: h.text.Limit(),
			Window:      h.text.Window().String(),
			Tracked:     h.text.TrackedUsers(),
		},
		ImageLimit: limitStatus{
			MaxRequests: h.image.Limit(),
			Window:      h.image.Window().String(),
			Tracked:     h.image.TrackedUsers(),
		},
		ChatModel:  h.cfg.ChatModel,
		ImageModel: h.cfg.ImageModel,
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("status_encode_failed", "error", err.Error())
	}
}

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage_EscapesBeforeSendingMarkdownV2(t *testing.T) {
	var parseModes []string
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req sendMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		parseModes = append(parseModes, req.ParseMode)
		texts = append(texts, req.Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := NewAPI(srv.Client(), srv.URL, "TOKEN", nil)
	if err := api.SendMessage(context.Background(), 1001, "hello-world", 0); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if len(parseModes) != 1 {
		t.Fatalf("expected 1 send attempt, got %d", len(parseModes))
	}
	if parseModes[0] != "MarkdownV2" {
		t.Fatalf("first attempt parse_mode mismatch: got %q", parseModes[0])
	}
	if texts[0] != "hello\\-world" {
		t.Fatalf("MarkdownV2 text should be escaped on first attempt: got %q", texts[0])
	}
}

func TestSendMessage_FallbackToPlainOnParseError(t *testing.T) {
	var parseModes []string
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req sendMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		parseModes = append(parseModes, req.ParseMode)
		texts = append(texts, req.Text)

		w.Header().Set("Content-Type", "application/json")
		if len(parseModes) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Character '-' is reserved and must be escaped"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	api := NewAPI(srv.Client(), srv.URL, "TOKEN", logger)
	if err := api.SendMessage(context.Background(), 1001, "hello-world", 0); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if len(parseModes) != 2 {
		t.Fatalf("expected 2 send attempts, got %d", len(parseModes))
	}
	if parseModes[0] != "MarkdownV2" || parseModes[1] != "" {
		t.Fatalf("unexpected parse_mode attempts: %#v", parseModes)
	}
	if texts[1] != "hello-world" {
		t.Fatalf("plain-text fallback should use original text: got %q", texts[1])
	}
	if !strings.Contains(logBuf.String(), "telegram_markdown_send_failed") {
		t.Fatalf("fallback warning should go through the injected logger, got %q", logBuf.String())
	}
}

func TestSendMessage_DoesNotFallbackOnNonParseError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	api := NewAPI(srv.Client(), srv.URL, "TOKEN", nil)
	err := api.SendMessage(context.Background(), 1001, "hello", 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected no plain-text fallback for non-parse errors, got %d attempts", attempts)
	}
}

func TestSendMessage_IncludesReplyToMessageID(t *testing.T) {
	var gotReplyTo int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req sendMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotReplyTo = req.ReplyToMessageID
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := NewAPI(srv.Client(), srv.URL, "TOKEN", nil)
	if err := api.SendMessage(context.Background(), 1001, "hello", 7788); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if gotReplyTo != 7788 {
		t.Fatalf("reply_to_message_id mismatch: got %d want 7788", gotReplyTo)
	}
}

func TestSendPhoto_UploadsMultipart(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendPhoto") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("chat_id"); got != "1001" {
			t.Fatalf("chat_id = %q", got)
		}
		if got := r.FormValue("caption"); got != "ein Apfel" {
			t.Fatalf("caption = %q", got)
		}
		f, _, err := r.FormFile("photo")
		if err != nil {
			t.Fatalf("photo part: %v", err)
		}
		raw, _ := io.ReadAll(f)
		if string(raw) != string(png) {
			t.Fatalf("photo bytes mismatch")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := NewAPI(srv.Client(), srv.URL, "TOKEN", nil)
	if err := api.SendPhoto(context.Background(), 1001, png, "ein Apfel", 0); err != nil {
		t.Fatalf("SendPhoto() error = %v", err)
	}
}

func TestDownloadPhoto_ResolvesAndFetchesBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getFile"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"abc","file_path":"photos/file_1.jpg"}}`))
		case strings.Contains(r.URL.Path, "/file/bot"):
			if !strings.HasSuffix(r.URL.Path, "photos/file_1.jpg") {
				t.Fatalf("unexpected download path: %s", r.URL.Path)
			}
			_, _ = w.Write([]byte("JPEGDATA"))
		default:
			t.Fatalf("unexpected request: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	api := NewAPI(srv.Client(), srv.URL, "TOKEN", nil)
	raw, err := api.DownloadPhoto(context.Background(), "abc", 1024, 0)
	if err != nil {
		t.Fatalf("DownloadPhoto() error = %v", err)
	}
	if string(raw) != "JPEGDATA" {
		t.Fatalf("unexpected bytes: %q", raw)
	}
}

func TestDownloadFile_RejectsOversizedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	api := NewAPI(srv.Client(), srv.URL, "TOKEN", nil)
	if _, err := api.DownloadFile(context.Background(), "photos/big.jpg", 10); err == nil {
		t.Fatalf("expected size-cap error")
	}
}

func TestLargestPhoto_PrefersOwnThenReplyPhoto(t *testing.T) {
	msg := &Message{
		Photo: []PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "big", Width: 800, Height: 600},
		},
	}
	if got := msg.LargestPhoto(); got != "big" {
		t.Fatalf("LargestPhoto() = %q, want big", got)
	}

	reply := &Message{
		ReplyTo: &Message{Photo: []PhotoSize{{FileID: "replied", Width: 100, Height: 100}}},
	}
	if got := reply.LargestPhoto(); got != "replied" {
		t.Fatalf("LargestPhoto() = %q, want replied", got)
	}

	if got := (&Message{}).LargestPhoto(); got != "" {
		t.Fatalf("LargestPhoto() = %q, want empty", got)
	}
}

func TestIsGroup(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"private", false},
		{"group", true},
		{"supergroup", true},
		{"SuperGroup", true},
		{"channel", false},
		{"", false},
	} {
		if got := IsGroup(tc.in); got != tc.want {
			t.Fatalf("IsGroup(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

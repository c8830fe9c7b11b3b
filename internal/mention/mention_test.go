package mention

import (
	"testing"
	"unicode/utf8"

	"github.com/quailyquaily/bildbot/internal/telegram"
)

func TestResolve_LiteralHandleCaseInsensitive(t *testing.T) {
	msg := &telegram.Message{Text: "hey @MyBot what is up"}
	ok, cleaned := Resolve(msg, "mybot", 42)
	if !ok {
		t.Fatalf("literal handle should resolve as mentioned")
	}
	if cleaned != "hey  what is up" {
		t.Fatalf("cleaned = %q", cleaned)
	}
}

func TestResolve_NoMentionNoReply(t *testing.T) {
	msg := &telegram.Message{Text: "just chatting"}
	ok, cleaned := Resolve(msg, "mybot", 42)
	if ok {
		t.Fatalf("plain text must not resolve as mentioned")
	}
	if cleaned != "just chatting" {
		t.Fatalf("cleaned = %q", cleaned)
	}
}

func TestResolve_ReplyToBotIgnoresText(t *testing.T) {
	msg := &telegram.Message{
		Text:    "anything at all",
		ReplyTo: &telegram.Message{From: &telegram.User{ID: 42}},
	}
	if ok, _ := Resolve(msg, "mybot", 42); !ok {
		t.Fatalf("reply to the bot's own message must resolve as mentioned")
	}

	other := &telegram.Message{
		Text:    "anything at all",
		ReplyTo: &telegram.Message{From: &telegram.User{ID: 7}},
	}
	if ok, _ := Resolve(other, "mybot", 42); ok {
		t.Fatalf("reply to someone else must not resolve")
	}
}

func TestResolve_MentionEntity(t *testing.T) {
	msg := &telegram.Message{
		Text:     "@mybot please check",
		Entities: []telegram.Entity{{Type: "mention", Offset: 0, Length: 6}},
	}
	if ok, _ := Resolve(msg, "mybot", 42); !ok {
		t.Fatalf("mention entity should resolve")
	}
}

func TestResolve_TextMentionEntityByID(t *testing.T) {
	// text_mention spans carry the display name, not the handle; the user
	// id is what identifies the bot.
	msg := &telegram.Message{
		Text: "Bild Bot please check",
		Entities: []telegram.Entity{
			{Type: "text_mention", Offset: 0, Length: 8, User: &telegram.User{ID: 42}},
		},
	}
	if ok, _ := Resolve(msg, "mybot", 42); !ok {
		t.Fatalf("text_mention with bot id should resolve")
	}
}

func TestResolve_BotCommandEntityWithHandleSuffix(t *testing.T) {
	msg := &telegram.Message{
		Text:     "/bild@mybot a cat",
		Entities: []telegram.Entity{{Type: "bot_command", Offset: 0, Length: 11}},
	}
	ok, cleaned := Resolve(msg, "mybot", 42)
	if !ok {
		t.Fatalf("bot_command with @handle should resolve")
	}
	if cleaned != "/bild a cat" {
		t.Fatalf("cleaned = %q, want %q", cleaned, "/bild a cat")
	}
}

func TestResolve_CaptionCarriesMention(t *testing.T) {
	msg := &telegram.Message{
		Caption:         "/edit@mybot mach es blau",
		CaptionEntities: []telegram.Entity{{Type: "bot_command", Offset: 0, Length: 11}},
		Photo:           []telegram.PhotoSize{{FileID: "f1", Width: 10, Height: 10}},
	}
	ok, cleaned := Resolve(msg, "mybot", 42)
	if !ok {
		t.Fatalf("caption command with handle should resolve")
	}
	if cleaned != "/edit mach es blau" {
		t.Fatalf("cleaned = %q", cleaned)
	}
}

func TestStrip(t *testing.T) {
	cases := []struct {
		text, bot, want string
	}{
		{"/bild@mybot a cat", "mybot", "/bild a cat"},
		{"@mybot hallo", "mybot", "hallo"},
		{"hallo @MYBOT", "mybot", "hallo"},
		{"@mybot @mybot doppelt", "mybot", "doppelt"},
		{"kein handle", "mybot", "kein handle"},
		{"text", "", "text"},
	}
	for _, tc := range cases {
		if got := Strip(tc.text, tc.bot); got != tc.want {
			t.Fatalf("Strip(%q, %q) = %q, want %q", tc.text, tc.bot, got, tc.want)
		}
	}
}

func TestStrip_MultibyteLowercaseKeepsOffsets(t *testing.T) {
	// Some runes shrink or grow when lowercased (U+212A KELVIN SIGN → "k",
	// U+0130 "İ" → "i̇"). Stripping must slice the original text at the
	// right byte offsets regardless.
	cases := []struct {
		text, bot, want string
	}{
		{"\u212A @mybot hallo", "mybot", "\u212A  hallo"},
		{"\u0130 @mybot", "mybot", "\u0130"},
		{"gr\u1E9E @MyBot ja", "mybot", "gr\u1E9E  ja"},
	}
	for _, tc := range cases {
		got := Strip(tc.text, tc.bot)
		if !utf8.ValidString(got) {
			t.Fatalf("Strip(%q, %q) = %q, invalid UTF-8", tc.text, tc.bot, got)
		}
		if got != tc.want {
			t.Fatalf("Strip(%q, %q) = %q, want %q", tc.text, tc.bot, got, tc.want)
		}
	}
}

func TestSliceByUTF16_AstralCharacters(t *testing.T) {
	// The emoji occupies two UTF-16 code units, shifting the entity offset.
	text := "\U0001F34E @mybot"
	if got := sliceByUTF16(text, 3, 6); got != "@mybot" {
		t.Fatalf("sliceByUTF16() = %q, want @mybot", got)
	}
}

// Package mention decides whether a group message is addressed to the bot
// and strips the bot handle before command classification.
package mention

import (
	"strings"

	"github.com/quailyquaily/bildbot/internal/telegram"
)

// Resolve reports whether msg targets the bot identified by botUser/botID
// and returns the text with the handle stripped. Detection passes, any of
// which suffices:
//
//   - the literal "@handle" appears anywhere in the text, case-insensitive
//   - a mention entity's span equals "@handle" (or a text_mention entity
//     carries the bot's user id)
//   - a bot_command entity's span contains "@handle" (the /cmd@bot form)
//   - the message replies to a message the bot sent; this pass ignores the
//     text entirely
//
// Private chats never reach this resolver; callers treat them as addressed.
func Resolve(msg *telegram.Message, botUser string, botID int64) (bool, string) {
	if msg == nil {
		return false, ""
	}
	text := msg.TextOrCaption()
	cleaned := Strip(text, botUser)

	// Reply-to-bot, independent of text content.
	if msg.ReplyTo != nil && msg.ReplyTo.From != nil && botID != 0 && msg.ReplyTo.From.ID == botID {
		return true, cleaned
	}

	if strings.TrimSpace(text) == "" || strings.TrimSpace(botUser) == "" {
		return false, cleaned
	}
	handle := "@" + strings.TrimPrefix(botUser, "@")

	// Entity-based detection. Entity offsets count UTF-16 code units.
	for _, e := range entitiesOf(msg) {
		span := sliceByUTF16(text, e.Offset, e.Length)
		switch strings.ToLower(strings.TrimSpace(e.Type)) {
		case "text_mention":
			if e.User != nil && botID != 0 && e.User.ID == botID {
				return true, cleaned
			}
		case "mention":
			if strings.EqualFold(span, handle) {
				return true, cleaned
			}
		case "bot_command":
			if containsFold(span, handle) {
				return true, cleaned
			}
		}
	}

	// Fallback literal @mention (some clients omit entities).
	if containsFold(text, handle) {
		return true, cleaned
	}
	return false, cleaned
}

// Strip removes every case-insensitive occurrence of "@handle" from text
// and trims the result. This also rewrites "/cmd@handle" to "/cmd".
func Strip(text, botUser string) string {
	botUser = strings.TrimPrefix(strings.TrimSpace(botUser), "@")
	if botUser == "" {
		return strings.TrimSpace(text)
	}
	handle := "@" + botUser

	// Handles are ASCII, so lowercasing only ASCII bytes keeps the search
	// string byte-aligned with text; full Unicode lowering can change byte
	// lengths (U+212A → "k") and desynchronize the indices.
	var b strings.Builder
	b.Grow(len(text))
	lower := lowerASCII(text)
	needle := lowerASCII(handle)
	i := 0
	for i < len(text) {
		j := strings.Index(lower[i:], needle)
		if j < 0 {
			b.WriteString(text[i:])
			break
		}
		b.WriteString(text[i : i+j])
		i += j + len(needle)
	}
	return strings.TrimSpace(b.String())
}

func entitiesOf(msg *telegram.Message) []telegram.Entity {
	if msg == nil {
		return nil
	}
	if strings.TrimSpace(msg.Text) != "" {
		return msg.Entities
	}
	return msg.CaptionEntities
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(lowerASCII(haystack), lowerASCII(needle))
}

func lowerASCII(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c + ('a' - 'A')
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}

// sliceByUTF16 extracts the substring addressed by a Telegram entity, whose
// offset and length are counted in UTF-16 code units.
func sliceByUTF16(s string, offset, length int) string {
	if offset < 0 {
		offset = 0
	}
	if length <= 0 || s == "" {
		return ""
	}
	start := utf16OffsetToByteIndex(s, offset)
	end := utf16OffsetToByteIndex(s, offset+length)
	if start > end || start < 0 {
		return ""
	}
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}

func utf16OffsetToByteIndex(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	utf16Count := 0
	for i, r := range s {
		if utf16Count >= offset {
			return i
		}
		if r <= 0xFFFF {
			utf16Count++
		} else {
			utf16Count += 2
		}
	}
	return len(s)
}

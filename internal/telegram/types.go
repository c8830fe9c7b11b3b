package telegram

import (
	"strings"
	"time"
)

// Update is one webhook delivery from the Bot API (subset).
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
	// Some clients/users may @mention by editing an existing message.
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// InboundMessage returns the message carried by the update, treating edited
// messages like fresh ones. Nil when the update carries nothing we handle.
func (u *Update) InboundMessage() *Message {
	if u == nil {
		return nil
	}
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

type Message struct {
	MessageID int64    `json:"message_id"`
	Date      int64    `json:"date,omitempty"`
	Chat      *Chat    `json:"chat,omitempty"`
	From      *User    `json:"from,omitempty"`
	ReplyTo   *Message `json:"reply_to_message,omitempty"`
	Entities  []Entity `json:"entities,omitempty"`
	Text      string   `json:"text,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	// Entities inside caption text.
	CaptionEntities []Entity    `json:"caption_entities,omitempty"`
	Photo           []PhotoSize `json:"photo,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	User   *User  `json:"user,omitempty"` // for text_mention
}

type PhotoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// TextOrCaption returns the message text, falling back to the caption for
// media messages carrying their command in the caption.
func (m *Message) TextOrCaption() string {
	if m == nil {
		return ""
	}
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	return m.Caption
}

// LargestPhoto returns the file id of the biggest photo size attached to
// the message itself or, failing that, to the replied-to message.
func (m *Message) LargestPhoto() string {
	if m == nil {
		return ""
	}
	if id := largestPhotoOf(m.Photo); id != "" {
		return id
	}
	if m.ReplyTo != nil {
		return largestPhotoOf(m.ReplyTo.Photo)
	}
	return ""
}

func largestPhotoOf(sizes []PhotoSize) string {
	best := ""
	bestArea := -1
	for _, p := range sizes {
		if strings.TrimSpace(p.FileID) == "" {
			continue
		}
		area := p.Width * p.Height
		if area > bestArea {
			best = p.FileID
			bestArea = area
		}
	}
	return best
}

func (m *Message) SentAt() time.Time {
	if m != nil && m.Date > 0 {
		return time.Unix(m.Date, 0).UTC()
	}
	return time.Now().UTC()
}

// IsGroup reports whether the chat type denotes a multi-party conversation.
func IsGroup(chatType string) bool {
	chatType = strings.ToLower(strings.TrimSpace(chatType))
	return chatType == "group" || chatType == "supergroup"
}

// Package command classifies inbound message text into a bot intent.
package command

import "strings"

type Kind int

const (
	// Chat is the fallthrough intent: free-form text forwarded to the
	// completion endpoint.
	Chat Kind = iota
	ImageGenerate
	ImageEdit
	ImageVariation
	Help
)

func (k Kind) String() string {
	switch k {
	case Chat:
		return "chat"
	case ImageGenerate:
		return "image_generate"
	case ImageEdit:
		return "image_edit"
	case ImageVariation:
		return "image_variation"
	case Help:
		return "help"
	default:
		return "unknown"
	}
}

// Intent is the classified purpose of a message. Payload holds the text
// after the command token, case-preserved; for Chat it is the full trimmed
// text, for ImageVariation and Help it is always empty.
type Intent struct {
	Kind    Kind
	Payload string
}

// commandTable maps slash-command spellings to intents. The German alias
// and the English token are equally valid spellings, not fallbacks of each
// other. First match in table order wins.
var commandTable = []struct {
	tokens []string
	kind   Kind
}{
	{[]string{"/bild", "/generate"}, ImageGenerate},
	{[]string{"/edit", "/bearbeite"}, ImageEdit},
	{[]string{"/variation", "/variante"}, ImageVariation},
	{[]string{"/help", "/hilfe", "/start"}, Help},
}

// Classify derives the intent of text. Command tokens match
// case-insensitively and tolerate a "@botname" suffix; the payload keeps
// its original casing. Anything that is not a known command is Chat.
func Classify(text string) Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Intent{Kind: Chat}
	}

	token, payload := splitCommand(trimmed)
	if token != "" {
		for _, entry := range commandTable {
			for _, want := range entry.tokens {
				if token != want {
					continue
				}
				switch entry.kind {
				case ImageVariation, Help:
					// No payload; trailing text is ignored.
					return Intent{Kind: entry.kind}
				default:
					return Intent{Kind: entry.kind, Payload: payload}
				}
			}
		}
	}

	return Intent{Kind: Chat, Payload: trimmed}
}

// splitCommand separates a leading slash command from its payload. The
// returned token is lowercased with any "@botname" suffix removed; payload
// is everything after the first whitespace run, untouched.
func splitCommand(text string) (token, payload string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head := text
	if i := strings.IndexFunc(text, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }); i >= 0 {
		head = text[:i]
		payload = strings.TrimSpace(text[i:])
	}
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), payload
}

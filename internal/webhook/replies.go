package webhook

import (
	"fmt"
	"math"
	"time"

	"github.com/quailyquaily/bildbot/llm"
)

// User-facing replies. The bot speaks German to its users; log lines stay
// English.
const (
	replyAccessDenied  = "⛔ Zugriff nicht erlaubt."
	replyEmptyMessage  = "🤔 Deine Nachricht ist leer."
	replyMissingPrompt = "📝 Bitte gib eine Beschreibung an, z. B. /bild ein roter Apfel."
	replyMissingPhoto  = "🖼️ Bitte schicke ein Foto mit dem Befehl oder antworte auf ein Foto."
	replyPhotoFailed   = "⚠️ Das Foto konnte nicht geladen werden."

	replyQuotaExceeded    = "😕 Das OpenAI-Kontingent ist aufgebraucht. Bitte versuche es später erneut."
	replyConnectionFailed = "📡 Verbindung zu OpenAI fehlgeschlagen. Bitte versuche es später erneut."
	replyContentPolicy    = "🚫 Die Anfrage wurde von der Inhaltsrichtlinie abgelehnt."
	replyGenericFailure   = "⚠️ Da ist etwas schiefgelaufen. Bitte versuche es später erneut."

	replyUsage = "Ich bin ein KI-Assistent. So erreichst du mich:\n\n" +
		"• Schreib mir einfach eine Nachricht für eine Antwort.\n" +
		"• /bild <Beschreibung> – erzeugt ein Bild (auch: /generate)\n" +
		"• /edit <Anweisung> – bearbeitet ein angehängtes Foto (auch: /bearbeite)\n" +
		"• /variation – erzeugt eine Variante eines angehängten Fotos (auch: /variante)\n" +
		"• /help – zeigt diese Hilfe (auch: /hilfe, /start)\n\n" +
		"In Gruppen: erwähne mich mit @ oder antworte auf meine Nachricht."
)

// rateLimitedReply formats the wait hint. RetryAfter may be zero or
// negative under clock skew; the shown countdown is clamped to at least
// one second.
func rateLimitedReply(retryAfter time.Duration) string {
	secs := int64(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("⏳ Rate Limit erreicht. Bitte warte %d Sekunden.", secs)
}

func tooLongReply(maxChars int) string {
	return fmt.Sprintf("✂️ Nachricht zu lang. Maximal %d Zeichen.", maxChars)
}

// collaboratorFailureReply maps a classified LLM error to its canned user
// message. Every kind gets its own wording; detail stays in the logs.
func collaboratorFailureReply(err error) string {
	switch llm.KindOf(err) {
	case llm.ErrKindQuota:
		return replyQuotaExceeded
	case llm.ErrKindConnection:
		return replyConnectionFailed
	case llm.ErrKindContentPolicy:
		return replyContentPolicy
	default:
		return replyGenericFailure
	}
}

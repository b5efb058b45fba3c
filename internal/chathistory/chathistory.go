package chathistory

import (
	"strings"

	"github.com/hazuki-io/threadrelay/llm"
)

// ThreadMessage is one message of a fetched conversation thread, in thread order.
type ThreadMessage struct {
	UserID string
	BotID  string
	Text   string
	TS     string
}

func MentionToken(botUserID string) string {
	return "<@" + strings.TrimSpace(botUserID) + ">"
}

// StripMention removes every occurrence of the mention token anywhere in the
// text, then trims leading spaces and newlines. Whitespace after the first
// non-whitespace character is left alone. Applying it twice yields the same
// result as applying it once.
func StripMention(text, mention string) string {
	if strings.TrimSpace(mention) != "" {
		text = strings.ReplaceAll(text, mention, "")
	}
	for len(text) > 0 && (text[0] == ' ' || text[0] == '\n') {
		text = text[1:]
	}
	return text
}

func IsBotAuthored(msg ThreadMessage, botUserID, botID string) bool {
	if botUserID != "" && msg.UserID == botUserID {
		return true
	}
	if botID != "" && msg.BotID == botID {
		return true
	}
	return false
}

// BuildMessages converts a fetched thread into the completion prompt: the
// system prompt first, then one message per thread message in thread order.
// Messages authored by the bot map to the assistant role, everything else to
// the user role.
func BuildMessages(systemPrompt, botUserID, botID string, thread []ThreadMessage) []llm.Message {
	mention := MentionToken(botUserID)
	out := make([]llm.Message, 0, len(thread)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, msg := range thread {
		role := llm.RoleUser
		if IsBotAuthored(msg, botUserID, botID) {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: StripMention(msg.Text, mention)})
	}
	return out
}

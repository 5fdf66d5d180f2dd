package prompt

import (
	"fmt"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// BuildMessages assembles the outgoing message set for one turn: at most one
// system message and exactly one user message.
func BuildMessages(userQuery, context, systemPrompt string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	}

	content := userQuery
	if context != "" {
		content = fmt.Sprintf("Dado el siguiente contexto:\n%s\n\nResponde a la pregunta:\n%s", context, userQuery)
	}
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: content})
	return messages
}

// EstimateTokens approximates the token count of a message list: a fixed
// overhead per message plus roughly one token per four runes, plus the
// priming tokens for the reply. Close enough for budget guards; not a
// tokenizer.
func EstimateTokens(messages []domain.ChatMessage) int {
	total := 2
	for _, msg := range messages {
		total += 4
		total += runeTokens(msg.Role)
		total += runeTokens(msg.Content)
	}
	return total
}

func runeTokens(s string) int {
	runes := len([]rune(s))
	if runes == 0 {
		return 0
	}
	return (runes + 3) / 4
}

package usecase

import (
	"strings"

	"sermon-agent/internal/domain"
)

// buildTurns maps the prior conversation to provider turns and appends the
// new question as the latest user turn. System notices and empty messages are
// excluded; only the most recent maxHistory messages are replayed.
func buildTurns(history []domain.Message, question string, maxHistory int) []domain.Turn {
	turns := make([]domain.Turn, 0, len(history)+1)
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		turns = append(turns, domain.Turn{Role: m.Role, Text: text})
	}
	if maxHistory > 0 && len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}
	return append(turns, domain.Turn{Role: domain.RoleUser, Text: question})
}

// Package conversation holds the per-user conversation state and the pure
// functions that derive planner context from it: the bounded turn history,
// the keyword-based topic extractor, and the history summarizer.
package conversation

import "time"

// Role tags a turn as coming from the user or from the bot.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message exchanged in a conversation. Turns are immutable once
// appended; slice order defines recency.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryCapacity is the maximum number of turns kept per user. Appending
// beyond the capacity drops the oldest turns.
const HistoryCapacity = 10

// Append returns a new history with turn added at the end, truncated from the
// front so that len(result) <= HistoryCapacity. The input slice is never
// mutated; callers can keep references to the old history.
func Append(history []Turn, turn Turn) []Turn {
	out := make([]Turn, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, turn)
	if len(out) > HistoryCapacity {
		out = out[len(out)-HistoryCapacity:]
	}
	return out
}

// UserContents returns the contents of all user-role turns in order.
func UserContents(history []Turn) []string {
	var out []string
	for _, t := range history {
		if t.Role == RoleUser {
			out = append(out, t.Content)
		}
	}
	return out
}

package conversation

import (
	"fmt"
	"strings"
)

// NewConversationSummary is returned by Summarize for an empty history.
const NewConversationSummary = "This is a new conversation."

// maxQuotedRunes caps how much of the last user message is quoted verbatim in
// the summary.
const maxQuotedRunes = 50

// greetings are the phrases that mark a conversation as opened with a greeting.
var greetings = []string{
	"hello", "hi", "hey", "greetings",
	"good morning", "good afternoon", "good evening",
}

// exclamationRuns match literally against the raw message text, in any case.
var exclamationRuns = []string{"!", "!!", "!!!"}

// frustrationShouts must match case-exactly; a lowercase "help" is a topic,
// an uppercase "HELP" is a signal.
var frustrationShouts = []string{"HELP", "FIX", "ERROR"}

// frustrationPhrases match case-insensitively.
var frustrationPhrases = []string{
	"not working", "doesn't work", "can't understand", "you don't understand",
	"wrong", "incorrect", "not what i asked", "try again", "frustrated",
}

// Summarize renders a short natural-language summary of the history for use
// as planner context. The composition order is fixed: turn count, the most
// recent user message (truncated), the topic list, a greeting note, and a
// frustration note. It is pure and never fails; empty histories produce the
// new-conversation marker.
func Summarize(history []Turn, topics TopicTable) string {
	if len(history) == 0 {
		return NewConversationSummary
	}

	userMessages := UserContents(history)

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation with %d messages.", len(history))

	if len(userMessages) > 0 {
		last := userMessages[len(userMessages)-1]
		fmt.Fprintf(&b, " User last asked about: %q.", truncate(last, maxQuotedRunes))
	}

	if matched := topics.Extract(userMessages); len(matched) > 0 {
		fmt.Fprintf(&b, " Main topics: %s.", strings.Join(matched, ", "))
	}

	if len(userMessages) > 0 && hasGreeting(userMessages[0]) {
		b.WriteString(" Conversation started with a greeting.")
	}

	recent := userMessages
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	if detectFrustration(recent) {
		b.WriteString(" User may be showing signs of frustration.")
	}

	return b.String()
}

// truncate shortens s to at most n runes, appending "..." when content was
// dropped.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// hasGreeting reports whether the message contains a greeting phrase.
func hasGreeting(message string) bool {
	if message == "" {
		return false
	}
	lower := strings.ToLower(message)
	for _, g := range greetings {
		if strings.Contains(lower, g) {
			return true
		}
	}
	return false
}

// detectFrustration reports whether any of the recent user messages carries a
// frustration indicator: a run of exclamation marks, an all-caps shout
// (matched case-exactly), or one of the known phrases (case-insensitive).
func detectFrustration(recentMessages []string) bool {
	for _, message := range recentMessages {
		if message == "" {
			continue
		}
		for _, run := range exclamationRuns {
			if strings.Contains(message, run) {
				return true
			}
		}
		for _, shout := range frustrationShouts {
			if strings.Contains(message, shout) {
				return true
			}
		}
		lower := strings.ToLower(message)
		for _, phrase := range frustrationPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}

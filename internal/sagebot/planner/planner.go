// Package planner defines the planning-service contract and an HTTP client
// for it. The planner maps (message, conversation context) to a response text
// and an optional tool invocation; the engine treats it as a black box.
package planner

import "context"

// ToolInfo is the planner-facing description of one registered tool.
type ToolInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Context is the conversation context sent alongside the prompt.
type Context struct {
	UserID              string            `json:"userId"`
	FirstName           string            `json:"firstName,omitempty"`
	Preferences         map[string]string `json:"preferences,omitempty"`
	ConversationSummary string            `json:"conversationSummary"`
	AvailableTools      []ToolInfo        `json:"availableTools"`
}

// Request is one planning query.
type Request struct {
	Prompt  string  `json:"prompt"`
	Context Context `json:"context"`
}

// ToolCall is the planner's (optional) tool selection. Params carry whatever
// the planner chose to pass; the dispatcher sanitizes them before execution.
type ToolCall struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params,omitempty"`
}

// Decision is the planner's answer: the text to send back to the user and an
// optional tool call whose output is appended to that text.
type Decision struct {
	ResponseText string    `json:"response"`
	ToolCall     *ToolCall `json:"tool,omitempty"`
}

// Planner is the interface the conversation engine depends on.
type Planner interface {
	Plan(ctx context.Context, req Request) (*Decision, error)
}

package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/planner"
)

// reminderTimeLayouts are the accepted due-time formats, tried in order.
var reminderTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006 at 15:04",
	"January 2, 2006 at 3:04pm",
	"Jan 2, 2006 15:04",
}

// reminderTimeGuidance explains the accepted formats when the planner passes
// an unparseable time. Creation is all-or-nothing: guidance text means no
// record was written.
const reminderTimeGuidance = `Sorry, I couldn't understand the time %q. ` +
	`Please use a format like "2026-04-15 10:00" or "April 15, 2026 at 10:00".`

// ReminderCreator is the subset of the store needed by ReminderTool. It is
// satisfied by *store.Store and by a recording stub in unit tests.
type ReminderCreator interface {
	CreateReminder(ctx context.Context, ownerID, message string, dueAt time.Time) (string, error)
}

// ReminderTool persists a time-triggered reminder for the calling user. The
// reminder batch job delivers it later.
type ReminderTool struct {
	store ReminderCreator
}

// NewReminderTool returns the reminder tool backed by the given store.
func NewReminderTool(store ReminderCreator) *ReminderTool {
	return &ReminderTool{store: store}
}

// Info identifies the reminder tool to the planner.
func (t *ReminderTool) Info() planner.ToolInfo {
	return planner.ToolInfo{
		ID:          "reminder",
		Description: "Set a reminder with a message for a specific time",
	}
}

// Schema requires the reminder time and message. The userId is injected by
// the dispatcher, never trusted from the planner.
func (t *ReminderTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"time": map[string]any{
				"type":        "string",
				"description": "When to deliver the reminder, e.g. \"2026-04-15 10:00\"",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "The reminder text to deliver",
			},
		},
	}
}

// Handle validates the owner, due time, and message, then persists the
// reminder. Validation problems come back as user-facing guidance text; only
// store failures are internal faults.
func (t *ReminderTool) Handle(ctx context.Context, params Params) (string, error) {
	ownerID, ok := params.String("userId")
	if !ok || ownerID == "" {
		return "Missing required parameters for setting a reminder.", nil
	}
	message, ok := params.String("message")
	if !ok || message == "" {
		return "Missing required parameters for setting a reminder.", nil
	}
	rawTime, ok := params.String("time")
	if !ok || rawTime == "" {
		return "Missing required parameters for setting a reminder.", nil
	}

	dueAt, ok := params.Time("time", reminderTimeLayouts...)
	if !ok {
		return fmt.Sprintf(reminderTimeGuidance, rawTime), nil
	}

	id, err := t.store.CreateReminder(ctx, ownerID, message, dueAt)
	if err != nil {
		return "", fmt.Errorf("create reminder: %w", err)
	}
	observability.WithTrace(ctx).Info("reminder created",
		"reminder_id", id, "owner", ownerID, "due_at", dueAt)

	return fmt.Sprintf("I'll remind you on %s: %q",
		dueAt.Format("Monday, January 2, 2006 at 15:04"), message), nil
}

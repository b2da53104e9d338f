package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

// recordingReminderStore captures CreateReminder calls.
type recordingReminderStore struct {
	created []struct {
		ownerID string
		message string
		dueAt   time.Time
	}
	err error
}

func (r *recordingReminderStore) CreateReminder(_ context.Context, ownerID, message string, dueAt time.Time) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.created = append(r.created, struct {
		ownerID string
		message string
		dueAt   time.Time
	}{ownerID, message, dueAt})
	return "rem-1", nil
}

func TestReminderTool_CreatesReminder(t *testing.T) {
	store := &recordingReminderStore{}
	tool := NewReminderTool(store)

	got, err := tool.Handle(context.Background(), Params{
		"userId":  "42",
		"time":    "2026-04-15 10:00",
		"message": "buy milk",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 reminder created, got %d", len(store.created))
	}
	created := store.created[0]
	if created.ownerID != "42" || created.message != "buy milk" {
		t.Errorf("unexpected reminder record: %+v", created)
	}
	want := time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)
	if !created.dueAt.Equal(want) {
		t.Errorf("expected due at %v, got %v", want, created.dueAt)
	}
	if !strings.Contains(got, "I'll remind you on") || !strings.Contains(got, "buy milk") {
		t.Errorf("unexpected confirmation text %q", got)
	}
}

func TestReminderTool_UnparseableTimeCreatesNothing(t *testing.T) {
	store := &recordingReminderStore{}
	tool := NewReminderTool(store)

	got, err := tool.Handle(context.Background(), Params{
		"userId":  "42",
		"time":    "not a real date",
		"message": "buy milk",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("unparseable time must not create a record, got %d", len(store.created))
	}
	if !strings.Contains(got, `couldn't understand the time "not a real date"`) {
		t.Errorf("expected time guidance, got %q", got)
	}
	if !strings.Contains(got, "format like") {
		t.Errorf("guidance must explain expected formats, got %q", got)
	}
}

func TestReminderTool_MissingParams(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"no owner", Params{"time": "2026-04-15 10:00", "message": "x"}},
		{"no time", Params{"userId": "42", "message": "x"}},
		{"no message", Params{"userId": "42", "time": "2026-04-15 10:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &recordingReminderStore{}
			tool := NewReminderTool(store)
			got, err := tool.Handle(context.Background(), tc.params)
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if got != "Missing required parameters for setting a reminder." {
				t.Errorf("expected missing-params text, got %q", got)
			}
			if len(store.created) != 0 {
				t.Error("no record may be created on validation failure")
			}
		})
	}
}

func TestReminderTool_StoreFaultIsInternal(t *testing.T) {
	store := &recordingReminderStore{err: context.DeadlineExceeded}
	tool := NewReminderTool(store)

	_, err := tool.Handle(context.Background(), Params{
		"userId":  "42",
		"time":    "2026-04-15 10:00",
		"message": "buy milk",
	})
	if err == nil {
		t.Fatal("store failures must surface as internal faults, not user text")
	}
}

func TestReminderTool_AcceptsMultipleLayouts(t *testing.T) {
	for _, raw := range []string{
		"2026-04-15T10:00",
		"2026-04-15 10:00:30",
		"2026-04-15",
		"April 15, 2026 at 10:00",
		"2026-04-15T10:00:00Z",
	} {
		store := &recordingReminderStore{}
		tool := NewReminderTool(store)
		got, err := tool.Handle(context.Background(), Params{
			"userId": "42", "time": raw, "message": "x",
		})
		if err != nil {
			t.Fatalf("Handle(%q): %v", raw, err)
		}
		if len(store.created) != 1 {
			t.Errorf("layout %q not accepted: %q", raw, got)
		}
	}
}

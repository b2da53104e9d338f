package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/conversation"
	"github.com/mlemos/sagebot/internal/sagebot/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "sagebot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetUser_AbsentIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	_, found, err := s.GetUser(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if found {
		t.Fatal("unseen user must not be found")
	}
}

func TestUser_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u := &store.User{
		ID:           "42",
		FirstName:    "Ada",
		Username:     "ada42",
		Preferences:  map[string]string{"units": "metric"},
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	history := conversation.Append(nil, conversation.Turn{
		Role: conversation.RoleUser, Content: "hello", Timestamp: now,
	})
	if err := s.SaveConversation(ctx, "42", history, now.Add(time.Minute)); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	got, found, err := s.GetUser(ctx, "42")
	if err != nil || !found {
		t.Fatalf("GetUser: found=%v err=%v", found, err)
	}
	if got.FirstName != "Ada" || got.Preferences["units"] != "metric" {
		t.Errorf("profile fields lost: %+v", got)
	}
	if len(got.History) != 1 || got.History[0].Content != "hello" {
		t.Errorf("history not round-tripped: %+v", got.History)
	}
	if !got.LastActivity.After(got.CreatedAt) {
		t.Errorf("last activity not bumped: %v <= %v", got.LastActivity, got.CreatedAt)
	}
}

func TestSaveConversation_UnknownUser(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveConversation(context.Background(), "ghost", nil, time.Now())
	if err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestDueReminders_SelectionAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustCreate := func(msg string, due time.Time) string {
		t.Helper()
		id, err := s.CreateReminder(ctx, "42", msg, due)
		if err != nil {
			t.Fatalf("CreateReminder: %v", err)
		}
		return id
	}

	mustCreate("past 1", now.Add(-2*time.Hour))
	mustCreate("past 2", now.Add(-time.Hour))
	mustCreate("future", now.Add(time.Hour))

	due, err := s.DueReminders(ctx, now, 100)
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due reminders, got %d", len(due))
	}
	if due[0].Message != "past 1" || due[1].Message != "past 2" {
		t.Errorf("expected oldest-first ordering, got %v, %v", due[0].Message, due[1].Message)
	}

	limited, err := s.DueReminders(ctx, now, 1)
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit not honored, got %d rows", len(limited))
	}
}

func TestMarkNotified_RemovesFromDueSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := s.CreateReminder(ctx, "42", "call home", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	if err := s.MarkNotified(ctx, id, ""); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	due, err := s.DueReminders(ctx, now, 100)
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("notified reminder reappeared in due set: %+v", due)
	}
}

func TestMarkNotified_RecordsErrorNote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := s.CreateReminder(ctx, "42", "call home", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if err := s.MarkNotified(ctx, id, "recipient blocked the bot"); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	// The row is out of the due set but keeps the failure note.
	due, err := s.DueReminders(ctx, now, 100)
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	if len(due) != 0 {
		t.Fatal("permanently failed reminder must not be retried")
	}
}

// Package store provides SQLite-backed persistence for users (with their
// bounded conversation history) and reminders.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mlemos/sagebot/internal/sagebot/conversation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs all pending
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// runMigrations applies any SQL files not yet recorded in schema_migrations.
func (s *Store) runMigrations() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	_ = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
		slog.Info("applied migration", "version", version, "file", name)
	}
	return nil
}

// ── Users ────────────────────────────────────────────────────────────────────

// User is one chat user with profile fields and the bounded conversation
// history.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Username     string
	Preferences  map[string]string
	History      []conversation.Turn
	CreatedAt    time.Time
	LastActivity time.Time
}

// GetUser loads a user by ID. found is false for an unseen ID; that is not an
// error.
func (s *Store) GetUser(ctx context.Context, id string) (*User, bool, error) {
	var (
		u           User
		prefsJSON   string
		historyJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, username, preferences, history_json, created_at, last_activity
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &prefsJSON, &historyJSON, &u.CreatedAt, &u.LastActivity)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query user %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(prefsJSON), &u.Preferences); err != nil {
		return nil, false, fmt.Errorf("decode preferences for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &u.History); err != nil {
		return nil, false, fmt.Errorf("decode history for %s: %w", id, err)
	}
	return &u, true, nil
}

// CreateUser inserts a new user record. The history starts empty.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	prefs := u.Preferences
	if prefs == nil {
		prefs = map[string]string{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	historyJSON, err := json.Marshal(u.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, username, preferences, history_json, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Username,
		string(prefsJSON), string(historyJSON), u.CreatedAt, u.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.ID, err)
	}
	return nil
}

// SaveConversation replaces the user's conversation history and bumps the
// last-activity timestamp; profile fields are untouched.
func (s *Store) SaveConversation(ctx context.Context, userID string, history []conversation.Turn, lastActivity time.Time) error {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET history_json = ?, last_activity = ? WHERE id = ?`,
		string(historyJSON), lastActivity, userID,
	)
	if err != nil {
		return fmt.Errorf("update conversation for %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update conversation: user %s not found", userID)
	}
	return nil
}

// ── Reminders ────────────────────────────────────────────────────────────────

// Reminder is one scheduled reminder row.
type Reminder struct {
	ID        string
	OwnerID   string
	Message   string
	DueAt     time.Time
	Notified  bool
	ErrorNote string
	CreatedAt time.Time
}

// CreateReminder persists a new unnotified reminder and returns its ID.
func (s *Store) CreateReminder(ctx context.Context, ownerID, message string, dueAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, owner_id, message, due_at, notified)
		VALUES (?, ?, ?, ?, 0)`,
		id, ownerID, message, dueAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

// DueReminders returns up to limit reminders with dueAt <= now that have not
// been notified, oldest first.
func (s *Store) DueReminders(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, message, due_at, notified, COALESCE(error_note, ''), created_at
		FROM reminders
		WHERE notified = 0 AND due_at <= ?
		ORDER BY due_at
		LIMIT ?`, now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Message, &r.DueAt, &r.Notified, &r.ErrorNote, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkNotified flips a reminder to notified and records the delivery time.
// errorNote is empty on success and carries the permanent-failure cause
// otherwise. The transition happens at most once; later calls are no-ops on
// an already-notified row's note.
func (s *Store) MarkNotified(ctx context.Context, id, errorNote string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reminders
		SET notified = 1, sent_at = CURRENT_TIMESTAMP, error_note = ?
		WHERE id = ? AND notified = 0`,
		nullableString(errorNote), id,
	)
	if err != nil {
		return fmt.Errorf("mark reminder %s notified: %w", id, err)
	}
	return nil
}

// nullableString converts "" to NULL for optional text columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

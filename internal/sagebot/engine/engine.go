// Package engine orchestrates one conversation turn: load or create the user
// record, append the user turn to the bounded history, summarize it, ask the
// planner for a decision, dispatch the chosen tool, deliver the reply, and
// persist the updated history.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/channel"
	"github.com/mlemos/sagebot/internal/sagebot/conversation"
	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/planner"
	"github.com/mlemos/sagebot/internal/sagebot/store"
	"github.com/mlemos/sagebot/internal/sagebot/tools"
)

// InboundMessage is one normalized incoming chat message.
type InboundMessage struct {
	SenderID  string
	ChatID    string
	Text      string
	FirstName string
	LastName  string
	Username  string
}

// UserStore is the subset of the record store the engine needs. Satisfied by
// *store.Store.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*store.User, bool, error)
	CreateUser(ctx context.Context, u *store.User) error
	SaveConversation(ctx context.Context, userID string, history []conversation.Turn, lastActivity time.Time) error
}

// Engine composes the conversation core for one inbound message at a time.
type Engine struct {
	store      UserStore
	planner    planner.Planner
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	channel    channel.Channel
	topics     conversation.TopicTable
	now        func() time.Time
	locks      keyedMutex
}

// New wires an Engine from its collaborators. now may be nil (wall clock).
func New(
	userStore UserStore,
	plan planner.Planner,
	registry *tools.Registry,
	dispatcher *tools.Dispatcher,
	ch channel.Channel,
	topics conversation.TopicTable,
	now func() time.Time,
) *Engine {
	if now == nil {
		now = time.Now
	}
	if topics == nil {
		topics = conversation.DefaultTopics()
	}
	return &Engine{
		store:      userStore,
		planner:    plan,
		registry:   registry,
		dispatcher: dispatcher,
		channel:    ch,
		topics:     topics,
		now:        now,
	}
}

// HandleMessage runs one full conversation turn. Store and delivery failures
// fail the turn (the transport decides what the caller sees); planner tool
// hallucinations and tool faults degrade inside the dispatcher and never
// surface here.
//
// Turns for the same user are serialized on a per-user mutex so that two
// concurrent messages cannot interleave the read-modify-write on the history
// and drop a turn. Distinct users proceed in parallel.
func (e *Engine) HandleMessage(ctx context.Context, msg InboundMessage) error {
	log := observability.WithTrace(ctx)

	unlock := e.locks.lock(msg.SenderID)
	defer unlock()

	user, found, err := e.store.GetUser(ctx, msg.SenderID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !found {
		user = &store.User{
			ID:           msg.SenderID,
			FirstName:    msg.FirstName,
			LastName:     msg.LastName,
			Username:     msg.Username,
			Preferences:  map[string]string{},
			CreatedAt:    e.now().UTC(),
			LastActivity: e.now().UTC(),
		}
		if err := e.store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		log.Info("created user record", "user", msg.SenderID)
	}

	history := conversation.Append(user.History, conversation.Turn{
		Role:      conversation.RoleUser,
		Content:   msg.Text,
		Timestamp: e.now().UTC(),
	})

	summary := conversation.Summarize(history, e.topics)

	decision, err := e.planner.Plan(ctx, planner.Request{
		Prompt: msg.Text,
		Context: planner.Context{
			UserID:              user.ID,
			FirstName:           user.FirstName,
			Preferences:         user.Preferences,
			ConversationSummary: summary,
			AvailableTools:      e.registry.List(),
		},
	})
	if err != nil {
		return fmt.Errorf("plan response: %w", err)
	}

	responseText := e.dispatcher.Dispatch(ctx, decision, user.ID)

	// Delivery happens before persistence: a failed send fails the turn and
	// leaves the previously stored history untouched.
	if err := e.channel.Send(ctx, msg.ChatID, responseText); err != nil {
		return fmt.Errorf("deliver response: %w", err)
	}

	history = conversation.Append(history, conversation.Turn{
		Role:      conversation.RoleAssistant,
		Content:   responseText,
		Timestamp: e.now().UTC(),
	})
	if err := e.store.SaveConversation(ctx, user.ID, history, e.now().UTC()); err != nil {
		return fmt.Errorf("persist conversation: %w", err)
	}

	log.Info("turn completed",
		"user", user.ID, "chat", msg.ChatID, "history_len", len(history))
	return nil
}

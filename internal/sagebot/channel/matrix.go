package channel

import (
	"context"
	"errors"
	"fmt"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// MatrixConfig holds the Matrix connection parameters.
type MatrixConfig struct {
	Homeserver  string
	UserID      string
	AccessToken string
}

// Matrix delivers messages to Matrix rooms via mautrix. The chat ID in this
// channel is a Matrix room ID.
type Matrix struct {
	mxc *mautrix.Client
}

// NewMatrix creates the Matrix channel.
func NewMatrix(cfg MatrixConfig) (*Matrix, error) {
	mxc, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	return &Matrix{mxc: mxc}, nil
}

// Send delivers a plain-text m.text message to the given room. M_FORBIDDEN
// from the homeserver (kicked, banned, never invited) is permanent and wraps
// ErrBlocked.
func (m *Matrix) Send(ctx context.Context, chatID, text string) error {
	_, err := m.mxc.SendText(ctx, id.RoomID(chatID), text)
	if err == nil {
		return nil
	}
	if errors.Is(err, mautrix.MForbidden) {
		return fmt.Errorf("matrix room %s: %v: %w", chatID, err, ErrBlocked)
	}
	return fmt.Errorf("matrix send: %w", err)
}

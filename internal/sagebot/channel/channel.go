// Package channel abstracts the outbound chat delivery channel. The engine
// and the reminder batch only need Send; concrete adapters exist for the
// Telegram Bot API and for Matrix.
package channel

import (
	"context"
	"errors"
)

// ErrBlocked marks a delivery failure as permanent: the recipient has blocked
// the bot or otherwise made themselves unreachable. Callers must classify
// with errors.Is and stop retrying; any other delivery error is transient.
var ErrBlocked = errors.New("recipient is unreachable")

// Channel delivers a text message to a chat.
type Channel interface {
	Send(ctx context.Context, chatID, text string) error
}

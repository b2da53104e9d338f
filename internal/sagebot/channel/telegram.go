package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mlemos/sagebot/common/redact"
)

const defaultTelegramBase = "https://api.telegram.org"

// TelegramConfig holds the Telegram Bot API connection parameters.
type TelegramConfig struct {
	// Token is the bot token from @BotFather.
	Token string
	// BaseURL overrides the Bot API endpoint (used in tests).
	BaseURL string
	// Timeout for each API call. Defaults to 10s.
	Timeout time.Duration
}

// Telegram sends messages through the Telegram Bot API over plain HTTP.
//
// The token is part of every request URL, so every error string is passed
// through redact before it can reach a log line.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram returns a Telegram channel.
func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTelegramBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Telegram{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// tgResponse is the Bot API result envelope.
type tgResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Send delivers text to chatID via the sendMessage method. A 403 from the
// Bot API means the user blocked the bot; that is wrapped in ErrBlocked so
// callers can classify it as permanent.
func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", t.redacted(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", t.redacted(err))
	}
	defer resp.Body.Close()

	var body tgResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode sendMessage response (status %d): %w", resp.StatusCode, err)
	}
	if body.OK {
		return nil
	}

	if resp.StatusCode == http.StatusForbidden || body.ErrorCode == http.StatusForbidden {
		return fmt.Errorf("telegram chat %s: %s: %w", chatID, body.Description, ErrBlocked)
	}
	return fmt.Errorf("telegram sendMessage failed (code %d): %s", body.ErrorCode, body.Description)
}

// redacted strips the bot token out of an error before it propagates.
func (t *Telegram) redacted(err error) error {
	return fmt.Errorf("%s", redact.String(err.Error(), t.cfg.Token))
}

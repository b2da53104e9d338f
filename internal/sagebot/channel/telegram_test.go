package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramSend_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "123:abc", BaseURL: srv.URL})
	if err := tg.Send(context.Background(), "42", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "hello" {
		t.Errorf("unexpected payload %v", gotBody)
	}
}

func TestTelegramSend_BlockedIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "123:abc", BaseURL: srv.URL})
	err := tg.Send(context.Background(), "42", "hello")
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestTelegramSend_OtherErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "123:abc", BaseURL: srv.URL})
	err := tg.Send(context.Background(), "42", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrBlocked) {
		t.Fatalf("429 must not classify as permanent: %v", err)
	}
}

func TestTelegramSend_RedactsTokenFromTransportErrors(t *testing.T) {
	// Point at a closed server so the HTTP client fails; the resulting error
	// embeds the request URL, which contains the token.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "123456:very-secret-token", BaseURL: srv.URL})
	err := tg.Send(context.Background(), "42", "hello")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "very-secret-token") {
		t.Fatalf("token leaked into error: %v", err)
	}
	if !strings.Contains(err.Error(), "[REDACTED]") {
		t.Fatalf("expected redaction placeholder in %v", err)
	}
}

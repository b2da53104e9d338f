// Package gateway exposes the inbound HTTP surface: the Telegram webhook and
// a health endpoint. It normalizes webhook updates to engine messages and
// attaches a trace ID to every request.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mlemos/sagebot/common/trace"
	"github.com/mlemos/sagebot/internal/sagebot/engine"
	"github.com/mlemos/sagebot/internal/sagebot/observability"
)

// MessageHandler consumes one normalized inbound message. Satisfied by
// *engine.Engine.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg engine.InboundMessage) error
}

// update is the subset of a Telegram webhook update the gateway consumes.
// Updates without a message (edits, channel posts, callbacks) are outside it.
type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Username  string `json:"username"`
		} `json:"from"`
		Chat *struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// Router builds the HTTP routes over handler.
func Router(handler MessageHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(traceMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/telegram/webhook", webhookHandler(handler))

	return r
}

// traceMiddleware stamps each request context with a fresh trace ID so every
// log line within the turn can be correlated.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := trace.WithTraceID(r.Context(), trace.GenerateID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func webhookHandler(handler MessageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := observability.WithTrace(r.Context())

		var u update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			log.Warn("malformed webhook payload", "err", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		// Telegram sends update types we do not handle; acknowledge them so
		// it stops redelivering.
		if u.Message == nil || u.Message.From == nil || u.Message.Chat == nil || u.Message.Text == "" {
			log.Info("ignoring update without a text message", "update", u.UpdateID)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}

		msg := engine.InboundMessage{
			SenderID:  strconv.FormatInt(u.Message.From.ID, 10),
			ChatID:    strconv.FormatInt(u.Message.Chat.ID, 10),
			Text:      u.Message.Text,
			FirstName: u.Message.From.FirstName,
			LastName:  u.Message.From.LastName,
			Username:  u.Message.From.Username,
		}

		if err := handler.HandleMessage(r.Context(), msg); err != nil {
			log.Error("webhook turn failed", "update", u.UpdateID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

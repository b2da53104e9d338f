package planner_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mlemos/sagebot/internal/sagebot/planner"
)

func TestPlan_RoundTripsDecision(t *testing.T) {
	var gotAuth string
	var gotReq planner.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": "Let me check that for you.",
			"tool": map[string]any{
				"id":     "weather",
				"params": map[string]any{"location": "Paris"},
			},
		})
	}))
	defer srv.Close()

	p := planner.NewHTTP(planner.HTTPConfig{BaseURL: srv.URL, APIKey: "test-key"})
	decision, err := p.Plan(context.Background(), planner.Request{
		Prompt: "what's the weather in Paris?",
		Context: planner.Context{
			UserID:              "42",
			ConversationSummary: "This is a new conversation.",
			AvailableTools:      []planner.ToolInfo{{ID: "weather", Description: "weather lookups"}},
		},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotReq.Context.UserID != "42" {
		t.Errorf("request context not forwarded: %+v", gotReq.Context)
	}
	if decision.ResponseText != "Let me check that for you." {
		t.Errorf("unexpected response text %q", decision.ResponseText)
	}
	if decision.ToolCall == nil || decision.ToolCall.ID != "weather" {
		t.Fatalf("expected weather tool call, got %+v", decision.ToolCall)
	}
	if loc, _ := decision.ToolCall.Params["location"].(string); loc != "Paris" {
		t.Errorf("expected location param, got %v", decision.ToolCall.Params)
	}
}

func TestPlan_NoToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Hi there!"}`))
	}))
	defer srv.Close()

	p := planner.NewHTTP(planner.HTTPConfig{BaseURL: srv.URL})
	decision, err := p.Plan(context.Background(), planner.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if decision.ToolCall != nil {
		t.Fatalf("expected no tool call, got %+v", decision.ToolCall)
	}
}

func TestPlan_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"capacity"}}`))
	}))
	defer srv.Close()

	p := planner.NewHTTP(planner.HTTPConfig{BaseURL: srv.URL})
	_, err := p.Plan(context.Background(), planner.Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error from failing planner")
	}
}

package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig configures the HTTP planner client.
type HTTPConfig struct {
	// BaseURL is the planning service endpoint, without a trailing slash.
	BaseURL string
	// APIKey is the bearer token for the service.
	APIKey string
	// Timeout for each planning call. Defaults to 30s.
	Timeout time.Duration
}

// httpPlanner implements Planner against the planning service's POST /query
// endpoint.
type httpPlanner struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTP returns a Planner backed by the remote planning service.
func NewHTTP(cfg HTTPConfig) Planner {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &httpPlanner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// queryError is the error envelope the planning service returns on failure.
type queryError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Plan sends one planning query.
func (p *httpPlanner) Plan(ctx context.Context, req Request) (*Decision, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/query", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope queryError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return nil, fmt.Errorf("planner error %s: %s", envelope.Error.Type, envelope.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("planner returned status %d", resp.StatusCode)
	}

	var decision Decision
	if err := json.Unmarshal(body, &decision); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &decision, nil
}

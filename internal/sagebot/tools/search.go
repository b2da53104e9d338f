package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/planner"
)

const defaultSearchBase = "https://www.googleapis.com/customsearch/v1"

// searchResultCount caps how many results are folded into the response.
const searchResultCount = 3

// SearchConfig configures the web search tool.
type SearchConfig struct {
	// APIKey is the Custom Search API key.
	APIKey string
	// EngineID is the Custom Search engine ID (cx).
	EngineID string
	// BaseURL overrides the API endpoint (used in tests).
	BaseURL string
	// Timeout for each search. Defaults to 10s.
	Timeout time.Duration
}

// SearchTool runs a web search and formats the top results as plain text.
type SearchTool struct {
	cfg    SearchConfig
	client *http.Client
}

// NewSearchTool returns the search tool.
func NewSearchTool(cfg SearchConfig) *SearchTool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSearchBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SearchTool{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Info identifies the search tool to the planner.
func (t *SearchTool) Info() planner.ToolInfo {
	return planner.ToolInfo{
		ID:          "search",
		Description: "Search for information online",
	}
}

// Schema requires a query string.
func (t *SearchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		},
	}
}

// searchResponse is the subset of the Custom Search payload the tool reads.
type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

// Handle searches for params["query"] and formats the top results.
func (t *SearchTool) Handle(ctx context.Context, params Params) (string, error) {
	query, ok := params.String("query")
	if !ok || query == "" {
		return "Please provide a search query.", nil
	}

	q := url.Values{}
	q.Set("key", t.cfg.APIKey)
	q.Set("cx", t.cfg.EngineID)
	q.Set("q", query)
	q.Set("num", fmt.Sprint(searchResultCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		observability.WithTrace(ctx).Warn("search failed",
			"err", observability.RedactSecrets(err.Error(), t.cfg.APIKey))
		return t.lookupFailureText(query), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.WithTrace(ctx).Warn("search API returned error",
			"status", resp.StatusCode)
		return t.lookupFailureText(query), nil
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	if len(data.Items) == 0 {
		return fmt.Sprintf("No results found for %q.", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are some results for %q:\n\n", query)
	for i, item := range data.Items {
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, item.Title, item.Snippet, item.Link)
	}
	return strings.TrimSpace(b.String()), nil
}

// lookupFailureText is the user-facing text for a failed search.
func (t *SearchTool) lookupFailureText(query string) string {
	return fmt.Sprintf("Sorry, I couldn't retrieve search results for %q. "+
		"Please try again later.", query)
}

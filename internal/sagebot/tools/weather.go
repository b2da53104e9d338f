package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/planner"
)

const defaultWeatherBase = "https://api.openweathermap.org/data/2.5/weather"

// WeatherConfig configures the weather tool.
type WeatherConfig struct {
	// APIKey is the OpenWeatherMap API key.
	APIKey string
	// BaseURL overrides the API endpoint (used in tests). Defaults to the
	// public OpenWeatherMap current-weather endpoint.
	BaseURL string
	// Timeout for each lookup. Defaults to 10s.
	Timeout time.Duration
}

// WeatherTool fetches current conditions for a location. Lookup failures are
// handled failures: the user gets a plain apology naming the location, and
// the cause is logged.
type WeatherTool struct {
	cfg    WeatherConfig
	client *http.Client
}

// NewWeatherTool returns the weather tool.
func NewWeatherTool(cfg WeatherConfig) *WeatherTool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWeatherBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WeatherTool{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Info identifies the weather tool to the planner.
func (t *WeatherTool) Info() planner.ToolInfo {
	return planner.ToolInfo{
		ID:          "weather",
		Description: "Get current weather information for a location",
	}
}

// Schema requires a non-empty location string.
func (t *WeatherTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{
				"type":        "string",
				"description": "Location name, e.g. \"Paris\" or \"Paris,FR\"",
			},
		},
	}
}

// weatherResponse is the subset of the OpenWeatherMap payload the tool reads.
type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Handle looks up current weather for params["location"].
func (t *WeatherTool) Handle(ctx context.Context, params Params) (string, error) {
	location, ok := params.String("location")
	if !ok || location == "" {
		return "Please provide a location for weather information.", nil
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", t.cfg.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build weather request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		observability.WithTrace(ctx).Warn("weather lookup failed",
			"location", location,
			"err", observability.RedactSecrets(err.Error(), t.cfg.APIKey))
		return t.lookupFailureText(location), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		observability.WithTrace(ctx).Warn("weather API returned error",
			"location", location, "status", resp.StatusCode)
		return t.lookupFailureText(location), nil
	}

	var data weatherResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("decode weather response: %w", err)
	}
	if len(data.Weather) == 0 {
		return t.lookupFailureText(location), nil
	}

	return fmt.Sprintf("Weather in %s, %s: %d°C, %s. Humidity: %d%%, Wind: %.1f m/s",
		data.Name, data.Sys.Country,
		int(math.Round(data.Main.Temp)), data.Weather[0].Description,
		data.Main.Humidity, data.Wind.Speed), nil
}

// lookupFailureText is the user-facing text for a failed lookup.
func (t *WeatherTool) lookupFailureText(location string) string {
	return fmt.Sprintf("Sorry, I couldn't retrieve weather information for %q. "+
		"Please check the location name and try again.", location)
}

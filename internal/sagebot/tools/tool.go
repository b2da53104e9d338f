// Package tools implements the tool capability surface of the bot: the Tool
// contract, the startup-time registry the planner picks from, the dispatcher
// that executes a planner decision, and the built-in weather, search, and
// reminder tools.
package tools

import (
	"context"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/planner"
)

// Params is the sanitized parameter map handed to a tool handler. Values come
// from a JSON document, so they are one of: string, float64, bool, or (for
// timestamps) a string a tool parses itself. The typed accessors let tools
// validate required keys without runtime probing.
type Params map[string]any

// String returns the string value under key, and whether it was present and
// of string type.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number returns the numeric value under key.
func (p Params) Number(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

// Bool returns the boolean value under key.
func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Time parses the string value under key with the given layouts, trying each
// in order. Returns the zero time and false when the key is absent, not a
// string, or matches no layout.
func (p Params) Time(key string, layouts ...string) (time.Time, bool) {
	s, ok := p.String(key)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Tool is one capability the planner can invoke.
//
// Handle returns plain text on both success and handled failure (e.g.
// "couldn't retrieve weather for X") — that text is shown to the end user
// verbatim. A non-nil error marks an internal fault: the dispatcher logs the
// cause and substitutes a generic notice, so error text never reaches users.
type Tool interface {
	// Info returns the tool's unique ID and the description surfaced to the
	// planner.
	Info() planner.ToolInfo

	// Schema returns the JSON Schema for the tool's parameters, or nil when
	// the tool validates its own inputs. The registry compiles it at startup.
	Schema() map[string]any

	// Handle executes the tool with sanitized parameters.
	Handle(ctx context.Context, params Params) (string, error)
}

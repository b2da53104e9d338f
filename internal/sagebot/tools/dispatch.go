package tools

import (
	"context"
	"strings"

	"github.com/mlemos/sagebot/common/redact"
	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/planner"
)

// genericToolFailure is shown to the user when a tool handler faults. The
// underlying cause is logged, never surfaced.
const genericToolFailure = "Sorry, something went wrong while handling that request. Please try again later."

// Dispatcher executes the tool portion of a planner decision and folds the
// result into the outgoing response text.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher returns a Dispatcher resolving tools in registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch produces the final response text for a planner decision.
//
// Decisions without a tool call pass through unchanged. An unknown tool ID
// degrades silently to the bare response text: the planner hallucinated a
// capability and the user should not see an error for that. Before execution
// the caller's identity is injected into the params, overwriting any
// userId/callerId the planner echoed, so identity cannot be spoofed through
// attacker-controlled params.
func (d *Dispatcher) Dispatch(ctx context.Context, decision *planner.Decision, callerID string) string {
	log := observability.WithTrace(ctx)

	if decision.ToolCall == nil {
		return decision.ResponseText
	}

	call := decision.ToolCall
	tool, ok := d.registry.Resolve(call.ID)
	if !ok {
		log.Warn("planner selected unknown tool; responding without it",
			"tool", call.ID)
		return decision.ResponseText
	}

	params := make(Params, len(call.Params)+1)
	for k, v := range call.Params {
		params[k] = v
	}
	params["userId"] = callerID
	params["callerId"] = callerID

	if err := d.registry.ValidateParams(call.ID, params); err != nil {
		log.Warn("planner supplied invalid tool params",
			"tool", call.ID, "err", err, "params", redact.Map(params))
		return joinResponse(decision.ResponseText, genericToolFailure)
	}

	result, err := tool.Handle(ctx, params)
	if err != nil {
		log.Error("tool execution failed",
			"tool", call.ID, "err", err)
		return joinResponse(decision.ResponseText, genericToolFailure)
	}

	return joinResponse(decision.ResponseText, result)
}

// joinResponse concatenates the planner response and the tool output with a
// blank-line separator, trimming trailing whitespace.
func joinResponse(responseText, toolText string) string {
	return strings.TrimRight(responseText+"\n\n"+toolText, " \t\n")
}

package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mlemos/sagebot/internal/sagebot/planner"
)

// Registry holds all registered tools and provides ID-based lookup. It is not
// safe to call Register concurrently with Resolve or List — populate the
// registry at startup before serving requests; it is read-only afterwards.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty Registry ready for tool registration.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds t to the registry and compiles its parameter schema. It
// panics on a duplicate ID or an invalid schema, which indicates a
// configuration error in the startup sequence — neither is recoverable at
// request time.
func (r *Registry) Register(t Tool) {
	id := t.Info().ID
	if _, dup := r.tools[id]; dup {
		panic("tools: duplicate tool registration: " + id)
	}
	if raw := t.Schema(); raw != nil {
		schema, err := compileSchema(id, raw)
		if err != nil {
			panic(fmt.Sprintf("tools: invalid parameter schema for %q: %v", id, err))
		}
		r.schemas[id] = schema
	}
	r.tools[id] = t
}

// Resolve returns the tool registered under id. A missing tool is a normal
// branch (the planner can name tools that do not exist), not an error.
func (r *Registry) Resolve(id string) (Tool, bool) {
	t, ok := r.tools[id]
	return t, ok
}

// List returns the ID and description of every registered tool, sorted by ID,
// for inclusion in the planner context.
func (r *Registry) List() []planner.ToolInfo {
	infos := make([]planner.ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		infos = append(infos, t.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// ValidateParams checks params against the tool's compiled schema. Tools
// without a schema accept any params.
func (r *Registry) ValidateParams(id string, params Params) error {
	schema, ok := r.schemas[id]
	if !ok {
		return nil
	}
	return schema.Validate(map[string]any(params))
}

// compileSchema turns a schema document (as a decoded map) into a compiled
// validator.
func compileSchema(id string, raw map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return jsonschema.CompileString(id+".schema.json", string(data))
}

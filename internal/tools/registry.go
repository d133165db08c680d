package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/bus"
)

// maxPreviewLen bounds what tool arguments/results contribute to log lines
// and monitor events. Full payloads still flow to callers untouched.
const maxPreviewLen = 200

// Handler executes a tool call. The returned string is the tool result,
// usually JSON, handed back verbatim to the reasoning loop.
type Handler func(ctx context.Context, args map[string]interface{}) (string, error)

// Param describes one declared parameter of a tool.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Definition is a registered tool: its contract plus the handler behind it.
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	Handler     Handler `json:"-"`
}

// ErrorKind classifies tool invocation failures.
type ErrorKind string

const (
	ErrUnknownTool     ErrorKind = "unknown_tool"
	ErrSchemaViolation ErrorKind = "schema_violation"
	ErrHandlerFailure  ErrorKind = "handler_failure"
)

// ToolError is returned by Invoke for anything that goes wrong around or
// inside a handler.
type ToolError struct {
	Kind ErrorKind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	switch e.Kind {
	case ErrUnknownTool:
		return fmt.Sprintf("unknown tool: %s", e.Tool)
	case ErrSchemaViolation:
		return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
	default:
		return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
	}
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Registry holds an agent's tools. Registration order is preserved so card
// skills and OpenAI tool lists render deterministically. Safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]*Definition
	order    []string
	logger   *logrus.Logger
	eventBus *bus.EventBus
}

func NewRegistry(logger *logrus.Logger, eventBus *bus.EventBus) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		defs:     make(map[string]*Definition),
		logger:   logger,
		eventBus: eventBus,
	}
}

// Register adds a tool. Registering a name twice is a programming error and
// is rejected rather than silently overwritten.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool definition requires a name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	d := def
	r.defs[def.Name] = &d
	r.order = append(r.order, def.Name)
	r.logger.Debugf("Registered tool: %s", def.Name)
	return nil
}

// MustRegister panics on registration failure. Used during agent startup
// where a duplicate tool name means the binary is miswired.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// List returns tool definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.defs[name])
	}
	return out
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Invoke validates args against the tool's declared parameters and runs the
// handler. taskID is for log attribution only and may be empty.
func (r *Registry) Invoke(ctx context.Context, taskID, name string, args map[string]interface{}) (string, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()

	if !ok {
		return "", &ToolError{Kind: ErrUnknownTool, Tool: name}
	}

	if err := validateArgs(def, args); err != nil {
		return "", &ToolError{Kind: ErrSchemaViolation, Tool: name, Err: err}
	}

	r.logger.Infof("[TaskID: %s] Invoking tool %s with args: %s", taskID, name, previewArgs(args))
	if r.eventBus != nil {
		r.eventBus.PublishToolInvocation(taskID, name, previewArgs(args))
	}

	result, err := def.Handler(ctx, args)
	if err != nil {
		r.logger.Warnf("[TaskID: %s] Tool %s failed: %v", taskID, name, err)
		if r.eventBus != nil {
			r.eventBus.PublishToolResult(taskID, name, truncate(err.Error()), true)
		}
		return "", &ToolError{Kind: ErrHandlerFailure, Tool: name, Err: err}
	}

	r.logger.Infof("[TaskID: %s] Tool %s completed: %s", taskID, name, truncate(result))
	if r.eventBus != nil {
		r.eventBus.PublishToolResult(taskID, name, truncate(result), false)
	}
	return result, nil
}

func validateArgs(def *Definition, args map[string]interface{}) error {
	for _, p := range def.Params {
		val, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required parameter: %s", p.Name)
			}
			continue
		}
		if err := checkType(p, val); err != nil {
			return err
		}
	}

	declared := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		declared[p.Name] = true
	}
	for name := range args {
		if !declared[name] {
			return fmt.Errorf("unexpected parameter: %s", name)
		}
	}
	return nil
}

func checkType(p Param, val interface{}) error {
	switch p.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return fmt.Errorf("parameter %s must be a string", p.Name)
		}
	case "number", "integer":
		// JSON numbers arrive as float64
		switch val.(type) {
		case float64, int:
		default:
			return fmt.Errorf("parameter %s must be a number", p.Name)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("parameter %s must be a boolean", p.Name)
		}
	case "array":
		if _, ok := val.([]interface{}); !ok {
			return fmt.Errorf("parameter %s must be an array", p.Name)
		}
	}
	return nil
}

// OpenAITools renders the registry as OpenAI function-calling tool specs,
// in registration order.
func (r *Registry) OpenAITools() []openai.Tool {
	defs := r.List()
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		properties := make(map[string]interface{}, len(def.Params))
		var required []string
		for _, p := range def.Params {
			paramType := p.Type
			if paramType == "" {
				paramType = "string"
			}
			prop := map[string]interface{}{
				"type":        paramType,
				"description": p.Description,
			}
			// OpenAI rejects array properties without an items schema. All
			// declared array parameters carry string elements.
			if paramType == "array" {
				prop["items"] = map[string]interface{}{"type": "string"}
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return out
}

// Names returns the sorted tool names, for card rendering and diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// ParseArguments decodes a JSON argument blob, as delivered by OpenAI tool
// calls, into the map form Invoke expects.
func ParseArguments(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

func previewArgs(args map[string]interface{}) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return truncate(string(data))
}

func truncate(s string) string {
	if len(s) <= maxPreviewLen {
		return s
	}
	return s[:maxPreviewLen] + "..."
}

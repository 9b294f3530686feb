package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/mixtape-sh/mixtape/internal/mcp"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

// Handler executes a tool call with already-validated arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Definition describes one remote procedure: its name, human-readable
// description, input contract, and handler.
type Definition struct {
	Name        string
	Description string
	InputSchema mcp.ToolInputSchema
	Handler     Handler
}

// Registry maps procedure names to their definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition, replacing any previous tool of the same name.
func (r *Registry) Register(def Definition) {
	r.defs[def.Name] = def
}

// List returns the registered tools as wire descriptors, sorted by name.
func (r *Registry) List() []mcp.Tool {
	list := make([]mcp.Tool, 0, len(r.defs))
	for _, def := range r.defs {
		list = append(list, mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Dispatch validates args against the named tool's schema and invokes its
// handler. Unknown tools fail with [shared.ErrToolNotFound]; invalid arguments
// with [shared.ErrInvalidArgument]. Handler failures are folded into the
// result with IsError set, so the caller still receives a well-formed payload.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrToolNotFound, name)
	}

	if err := validateArgs(def.InputSchema, args); err != nil {
		return nil, err
	}

	value, err := def.Handler(ctx, args)
	if err != nil {
		return &mcp.CallToolResult{
			Content: mcp.TextContent(err.Error()),
			IsError: true,
		}, nil
	}

	text, err := renderResult(value)
	if err != nil {
		return nil, err
	}

	return &mcp.CallToolResult{Content: mcp.TextContent(text)}, nil
}

func renderResult(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "ok", nil
	case string:
		return v, nil
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode tool result: %w", err)
		}
		return string(data), nil
	}
}

// validateArgs checks the raw arguments against the schema's required list and
// primitive property types. Unknown properties are tolerated unless the schema
// forbids them.
func validateArgs(schema mcp.ToolInputSchema, raw json.RawMessage) error {
	args := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("%w: arguments are not an object: %v", shared.ErrInvalidArgument, err)
		}
	}

	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
		}
	}

	for name, value := range args {
		prop, ok := schema.Properties[name]
		if !ok {
			if !schema.AdditionalProperties {
				return fmt.Errorf("%w: unknown argument %q", shared.ErrInvalidArgument, name)
			}
			continue
		}
		if err := checkType(name, prop, value); err != nil {
			return err
		}
	}

	return nil
}

func checkType(name string, prop mcp.SchemaProperty, value any) error {
	if value == nil || prop.Type == "" {
		return nil
	}

	switch prop.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return typeError(name, "string")
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return typeError(name, "number")
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != float64(int64(n)) {
			return typeError(name, "integer")
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeError(name, "boolean")
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return typeError(name, "array")
		}
		if prop.Items != nil {
			for _, item := range items {
				if err := checkType(name, *prop.Items, item); err != nil {
					return err
				}
			}
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return typeError(name, "object")
		}
	}

	return nil
}

func typeError(name, want string) error {
	return fmt.Errorf("%w: %s must be a %s", shared.ErrInvalidArgument, name, want)
}

// SchemaFor derives a wire input schema from a Go argument struct.
func SchemaFor(v any) mcp.ToolInputSchema {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}

	reflected := reflector.Reflect(v)

	schema := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]mcp.SchemaProperty{},
		Required:   reflected.Required,
	}

	if reflected.Properties != nil {
		for pair := reflected.Properties.Oldest(); pair != nil; pair = pair.Next() {
			schema.Properties[pair.Key] = convertProperty(pair.Value)
		}
	}

	return schema
}

func convertProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	prop := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}

	if s.Items != nil {
		items := convertProperty(s.Items)
		prop.Items = &items
	}

	if s.Properties != nil {
		prop.Properties = map[string]mcp.SchemaProperty{}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			prop.Properties[pair.Key] = convertProperty(pair.Value)
		}
	}

	if len(s.Enum) > 0 {
		prop.Enum = append(prop.Enum, s.Enum...)
	}

	return prop
}

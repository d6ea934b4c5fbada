package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

// ResultKey is a top-level key every successful result must carry.
type ResultKey struct {
	Name    string
	Default any
}

// ResultShape lists the keys filled with empty defaults when the remote
// body omits them.
type ResultShape []ResultKey

// EmptyList declares a key defaulting to [].
func EmptyList(name string) ResultKey {
	return ResultKey{Name: name, Default: []any{}}
}

// EmptyObject declares a key defaulting to {}.
func EmptyObject(name string) ResultKey {
	return ResultKey{Name: name, Default: map[string]any{}}
}

// Operation is one remote capability: an endpoint, a parameter table and a
// result shape. Operations are immutable once registered.
type Operation struct {
	Name        string
	Description string
	Method      string
	// Path may contain {name} segments filled from InPath fields.
	Path   string
	Fields []Field
	// Exclusive groups: at most one member of each may be supplied.
	Exclusive [][]string
	Result    ResultShape
	// Timeout overrides the transport default when non-zero.
	Timeout time.Duration
	// ListKey names the collection checked for emptiness; EmptyMessage is
	// rendered instead of an empty collection.
	ListKey      string
	EmptyMessage string
	// Render reshapes a normalized body before it is encoded.
	Render func(params Params, body map[string]any) any
}

func (op *Operation) field(name string) (Field, bool) {
	for _, f := range op.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Descriptor builds the tool descriptor advertised over tools/list.
func (op *Operation) Descriptor() protocol.ToolDescriptor {
	props := make(map[string]protocol.JSONSchema, len(op.Fields))
	required := []string{}
	for _, f := range op.Fields {
		s := protocol.JSONSchema{
			Type:        f.Kind.String(),
			Description: f.Description,
			Enum:        f.Enum,
		}
		if f.Kind == KindArray {
			s.Items = &protocol.JSONSchema{Type: f.Items.String()}
		}
		if f.Default != nil && f.Kind != KindObject && f.Kind != KindArray {
			s.Default = f.Default
		}
		props[f.Name] = s
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return protocol.ToolDescriptor{
		Name:        op.Name,
		Description: op.Description,
		InputSchema: &protocol.JSONSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

func (op *Operation) check() error {
	if op.Name == "" {
		return fmt.Errorf("operation without a name")
	}
	switch op.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("operation %s: unsupported method %q", op.Name, op.Method)
	}
	if !strings.HasPrefix(op.Path, "/") {
		return fmt.Errorf("operation %s: path must start with /", op.Name)
	}
	seen := map[string]bool{}
	for _, f := range op.Fields {
		if seen[f.Name] {
			return fmt.Errorf("operation %s: duplicate field %s", op.Name, f.Name)
		}
		seen[f.Name] = true
		if f.In == InPath && !strings.Contains(op.Path, "{"+f.Name+"}") {
			return fmt.Errorf("operation %s: path field %s not in %s", op.Name, f.Name, op.Path)
		}
		if f.In == InPath && !f.Required {
			return fmt.Errorf("operation %s: path field %s must be required", op.Name, f.Name)
		}
	}
	for _, group := range op.Exclusive {
		for _, name := range group {
			if !seen[name] {
				return fmt.Errorf("operation %s: exclusive group names unknown field %s", op.Name, name)
			}
		}
	}
	return compileSchema(op)
}

// compileSchema makes sure the advertised input schema is valid Draft 7.
func compileSchema(op *Operation) error {
	raw, err := json.Marshal(op.Descriptor().InputSchema)
	if err != nil {
		return fmt.Errorf("operation %s: marshal schema: %w", op.Name, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	resource := op.Name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("operation %s: add schema: %w", op.Name, err)
	}
	if _, err := compiler.Compile(resource); err != nil {
		return fmt.Errorf("operation %s: compile schema: %w", op.Name, err)
	}
	return nil
}

// Registry is the static registration table. It is read-only after
// NewRegistry returns and safe for concurrent use.
type Registry struct {
	ops    []*Operation
	byName map[string]*Operation
}

// NewRegistry validates and indexes operations in registration order.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{
		ops:    make([]*Operation, 0, len(ops)),
		byName: make(map[string]*Operation, len(ops)),
	}
	for i := range ops {
		op := ops[i]
		if err := op.check(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[op.Name]; dup {
			return nil, fmt.Errorf("operation %s registered twice", op.Name)
		}
		r.ops = append(r.ops, &op)
		r.byName[op.Name] = &op
	}
	return r, nil
}

// Operations returns the operations in registration order.
func (r *Registry) Operations() []*Operation {
	out := make([]*Operation, len(r.ops))
	copy(out, r.ops)
	return out
}

// Lookup finds an operation by name.
func (r *Registry) Lookup(name string) (*Operation, error) {
	op, ok := r.byName[name]
	if !ok {
		return nil, &UnknownOperationError{Name: name}
	}
	return op, nil
}

// Route resolves the HTTP method and path for an invocation.
func (r *Registry) Route(name string, params Params) (string, string, error) {
	op, err := r.Lookup(name)
	if err != nil {
		return "", "", err
	}
	path := op.Path
	for _, f := range op.Fields {
		if f.In != InPath {
			continue
		}
		path = strings.ReplaceAll(path, "{"+f.Name+"}", url.PathEscape(fmt.Sprint(params[f.Name])))
	}
	return op.Method, path, nil
}

package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the JSON type a parameter must have after coercion.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindBoolean
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Location says where a parameter goes in the outbound request.
type Location int

const (
	InBody Location = iota
	InQuery
	InPath
)

// Field is one row of an operation's parameter table.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	// Default is substituted when an optional field is absent. Maps and
	// slices are copied per invocation.
	Default any
	// Enum lists the canonical members. Input matches case-insensitively and
	// is replaced by the canonical spelling.
	Enum []string
	// Wire is the outbound name when it differs from Name.
	Wire string
	In   Location
	// Items is the element kind advertised for array fields.
	Items Kind
	// Check runs after coercion. A non-nil error rejects the value.
	Check func(v any) error
	// Transform rewrites a valid value before it is sent.
	Transform func(v any) any
}

// WireName returns the outbound parameter name.
func (f Field) WireName() string {
	if f.Wire != "" {
		return f.Wire
	}
	return f.Name
}

// Params are validated arguments: only declared fields, required ones
// present, optional ones supplied or defaulted.
type Params map[string]any

// String returns a string parameter or "".
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Validate checks args against op's parameter table. It has no side effects.
func Validate(op *Operation, args map[string]any) (Params, error) {
	verr := &ValidationError{}
	params := make(Params, len(op.Fields))

	for _, f := range op.Fields {
		raw, present := args[f.Name]
		if present && raw == nil {
			present = false
		}
		if !present {
			if f.Required {
				verr.Missing = append(verr.Missing, f.Name)
				continue
			}
			params[f.Name] = cloneValue(f.Default)
			continue
		}

		v, err := coerce(f.Kind, raw)
		if err != nil {
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		if len(f.Enum) > 0 {
			member, ok := matchEnum(f.Enum, v)
			if !ok {
				verr.InvalidEnum = append(verr.InvalidEnum, fmt.Sprintf("%s: %q (must be one of: %s)", f.Name, fmt.Sprint(v), strings.Join(f.Enum, ", ")))
				continue
			}
			v = member
		}
		if f.Check != nil {
			if err := f.Check(v); err != nil {
				verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
		}
		if f.Transform != nil {
			v = f.Transform(v)
		}
		params[f.Name] = v
	}

	for _, group := range op.Exclusive {
		var supplied []string
		for _, name := range group {
			if v, ok := args[name]; ok && v != nil {
				supplied = append(supplied, name)
			}
		}
		if len(supplied) > 1 {
			verr.Conflicting = append(verr.Conflicting, supplied...)
		}
	}

	if !verr.empty() {
		return nil, verr
	}
	return params, nil
}

// Unknown lists argument names the operation does not declare, sorted.
func Unknown(op *Operation, args map[string]any) []string {
	var extra []string
	for name := range args {
		if _, ok := op.field(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", jsonType(v))
		}
		return s, nil
	case KindInteger:
		return coerceInteger(v)
	case KindBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", b)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("expected boolean, got %s", jsonType(v))
	case KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %s", jsonType(v))
		}
		return m, nil
	case KindArray:
		s, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %s", jsonType(v))
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

// Integer applies the validator's integer coercion to a single value. It is
// meant for Check functions that inspect members of nested objects.
func Integer(v any) (int64, error) {
	n, err := coerceInteger(v)
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

func coerceInteger(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return nil, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %s", n.String())
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", n)
		}
		return i, nil
	}
	return nil, fmt.Errorf("expected integer, got %s", jsonType(v))
}

func matchEnum(members []string, v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	for _, m := range members {
		if strings.EqualFold(m, s) {
			return m, true
		}
	}
	return "", false
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// cloneValue copies maps and slices so per-call params never alias the
// shared operation table.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

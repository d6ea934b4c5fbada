package tools

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
)

func positive(v any) error {
	if n, _ := v.(int64); n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func nonNegative(v any) error {
	if n, _ := v.(int64); n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func absolutePath(v any) error {
	if s, _ := v.(string); !strings.HasPrefix(s, "/") {
		return fmt.Errorf("must be an absolute workspace path")
	}
	return nil
}

func notBlank(v any) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

// intMember reads a whole-number member of a decoded JSON object.
func intMember(m map[string]any, key string) (int64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := gateway.Integer(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// integerMembers rewrites the named members of an object to int64 so that
// "2" and 2.0 go out on the wire as 2.
func integerMembers(keys ...string) func(v any) any {
	return func(v any) any {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		for _, k := range keys {
			if n, err := gateway.Integer(m[k]); err == nil {
				out[k] = n
			}
		}
		return out
	}
}

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

func isBase64(s string) bool {
	if s == "" || !base64Pattern.MatchString(s) {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

// encodeBase64 leaves already-encoded content alone.
func encodeBase64(v any) any {
	s, _ := v.(string)
	if isBase64(s) {
		return s
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

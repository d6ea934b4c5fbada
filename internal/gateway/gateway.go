package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

// Stage is a step of one invocation. Any failure jumps straight to
// StageRendered.
type Stage int

const (
	StageReceived Stage = iota
	StageValidating
	StageRouting
	StageTransporting
	StageNormalizing
	StageRendered
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageValidating:
		return "validating"
	case StageRouting:
		return "routing"
	case StageTransporting:
		return "transporting"
	case StageNormalizing:
		return "normalizing"
	case StageRendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Gateway turns tool invocations into Databricks API calls and back.
// It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	registry *Registry
	sender   Sender
	logger   *logrus.Entry
}

// New wires a gateway.
func New(registry *Registry, sender Sender, logger *logrus.Entry) *Gateway {
	return &Gateway{registry: registry, sender: sender, logger: logger}
}

// Registry exposes the registration table.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Invoke runs one invocation end to end. It always returns exactly one
// result; failures come back as {"error": ...} with IsError set.
func (g *Gateway) Invoke(ctx context.Context, name string, raw json.RawMessage) (result protocol.CallResult) {
	start := time.Now()
	stage := StageReceived
	log := g.logger.WithField("tool", name)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("stage", stage.String()).Errorf("panic: %v", r)
			result = render(Failure(fmt.Errorf("internal error while %s: %v", stage, r)))
		}
	}()

	fail := func(err error) protocol.CallResult {
		entry := log.WithFields(logrus.Fields{
			"stage":       stage.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		var remote *RemoteError
		if errors.As(err, &remote) {
			entry = entry.WithField("kind", string(remote.Kind))
			if remote.StatusCode != 0 {
				entry = entry.WithField("status", remote.StatusCode)
			}
		}
		entry.Warnf("invocation failed: %v", err)
		stage = StageRendered
		return render(Failure(err))
	}

	stage = StageValidating
	op, err := g.registry.Lookup(name)
	if err != nil {
		return fail(err)
	}
	args, err := decodeArgs(op, raw)
	if err != nil {
		return fail(err)
	}
	if extra := Unknown(op, args); len(extra) > 0 {
		log.Debugf("ignoring undeclared parameters: %v", extra)
	}
	params, err := Validate(op, args)
	if err != nil {
		return fail(err)
	}

	stage = StageRouting
	method, path, err := g.registry.Route(op.Name, params)
	if err != nil {
		return fail(err)
	}
	req := buildRequest(op, method, path, params)

	stage = StageTransporting
	resp, err := g.sender.Send(ctx, req)
	if err != nil {
		return fail(err)
	}

	stage = StageNormalizing
	normalized := Normalize(op.Result, resp, nil)

	stage = StageRendered
	result = renderSuccess(op, params, normalized.Body)
	log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("invocation completed")
	return result
}

// InvokeError renders err the same way a failed invocation is rendered.
func InvokeError(err error) protocol.CallResult {
	return render(Failure(err))
}

// decodeArgs parses the raw argument object. A lone "params" object is
// unwrapped when the operation does not declare a field by that name.
func decodeArgs(op *Operation, raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, &ValidationError{Invalid: []string{"arguments must be a JSON object"}}
	}
	if inner, ok := args["params"].(map[string]any); ok && len(args) == 1 {
		if _, declared := op.field("params"); !declared {
			return inner, nil
		}
	}
	return args, nil
}

func buildRequest(op *Operation, method, path string, params Params) Request {
	req := Request{Method: method, Path: path, Timeout: op.Timeout}
	for _, f := range op.Fields {
		v, ok := params[f.Name]
		if !ok || isEmpty(v) {
			continue
		}
		switch f.In {
		case InQuery:
			if req.Query == nil {
				req.Query = url.Values{}
			}
			req.Query.Set(f.WireName(), queryValue(v))
		case InBody:
			if req.Body == nil {
				req.Body = map[string]any{}
			}
			req.Body[f.WireName()] = v
		}
	}
	if req.Body == nil && method != http.MethodGet {
		req.Body = map[string]any{}
	}
	return req
}

// isEmpty reports values that are left out of the outbound request: nulls
// and empty collections.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	}
	return false
}

func queryValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func renderSuccess(op *Operation, params Params, body map[string]any) protocol.CallResult {
	if op.ListKey != "" && op.EmptyMessage != "" {
		if items, ok := body[op.ListKey].([]any); ok && len(items) == 0 {
			return protocol.TextResult(op.EmptyMessage)
		}
	}
	var payload any = body
	if op.Render != nil {
		payload = op.Render(params, body)
	}
	text, err := encodeCompact(payload)
	if err != nil {
		return render(Failure(fmt.Errorf("encode result: %w", err)))
	}
	return protocol.TextResult(text)
}

func render(n Normalized) protocol.CallResult {
	text, err := encodeCompact(n.Body)
	if err != nil {
		text = `{"error":"failed to encode result"}`
	}
	result := protocol.TextResult(text)
	result.IsError = n.Failed
	return result
}

func encodeCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

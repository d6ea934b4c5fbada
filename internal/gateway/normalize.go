package gateway

import "errors"

// Normalized is either a success body with every declared key present, or
// a single-key error object.
type Normalized struct {
	Body   map[string]any
	Failed bool
}

// Normalize maps a remote outcome onto the operation's result shape. It
// never fails.
func Normalize(shape ResultShape, resp *Response, err error) Normalized {
	if err != nil {
		return Failure(err)
	}
	body := map[string]any{}
	if resp != nil && resp.Body != nil {
		body = resp.Body
	}
	for _, key := range shape {
		if v, ok := body[key.Name]; !ok || v == nil {
			body[key.Name] = cloneValue(key.Default)
		}
	}
	return Normalized{Body: body}
}

// Failure renders any error as {"error": message}.
func Failure(err error) Normalized {
	message := "unknown error"
	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		message = remote.Message
	case err != nil:
		message = err.Error()
	}
	return Normalized{Body: map[string]any{"error": message}, Failed: true}
}

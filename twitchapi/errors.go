package twitchapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUserNotFound is returned when Helix answers with an empty users list.
var ErrUserNotFound = errors.New("user not found")

// UpstreamError describes a non-success answer from a Twitch endpoint.
type UpstreamError struct {
	Op         string // "token exchange", "get users", ...
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("twitch %s failed: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), strings.TrimSpace(string(e.Body)))
}

// Details returns the upstream body as raw JSON when it is valid JSON, as trimmed text otherwise,
// and nil when the body was empty.
func (e *UpstreamError) Details() any {
	b := []byte(strings.TrimSpace(string(e.Body)))
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	return string(b)
}

// ErrorDetails picks the most useful detail for a failed call: the upstream body when err wraps
// an UpstreamError with one, otherwise the error text.
func ErrorDetails(err error) any {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		if d := ue.Details(); d != nil {
			return d
		}
	}
	return err.Error()
}

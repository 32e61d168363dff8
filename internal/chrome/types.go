package chrome

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrProtocolError    = errors.New("protocol error")
	ErrNoDebuggerURL    = errors.New("no WebSocket URL in response")
	ErrNoMainFrame      = errors.New("target has no main frame")
)

// ProtocolError represents an error returned by the Chrome DevTools Protocol.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolError
}

// ScriptError is returned when evaluated JavaScript throws instead of returning.
type ScriptError struct {
	Text string
}

func (e *ScriptError) Error() string {
	return "JS exception: " + e.Text
}

// VersionInfo contains browser version information.
type VersionInfo struct {
	Browser         string `json:"browser"`
	ProtocolVersion string `json:"protocol"`
	UserAgent       string `json:"userAgent,omitempty"`
	V8Version       string `json:"v8,omitempty"`
}

// TargetInfo contains information about a browser target (tab/page).
type TargetInfo struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EvalResult contains the result of evaluating a JavaScript expression.
// Raw holds the by-value result exactly as the browser serialized it.
type EvalResult struct {
	Value interface{}     `json:"value"`
	Type  string          `json:"type,omitempty"`
	Raw   json.RawMessage `json:"-"`
}

// Decode unmarshals the by-value result into v.
func (r *EvalResult) Decode(v interface{}) error {
	if len(r.Raw) == 0 {
		return fmt.Errorf("no value returned (type %q)", r.Type)
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decoding %s result: %w", r.Type, err)
	}
	return nil
}

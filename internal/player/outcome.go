package player

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrControlNotFound matches every "no-...-found" page error.
var ErrControlNotFound = errors.New("control not found")

// PageError is a failure reported by a script from inside the page.
type PageError struct {
	Reason string
}

func (e *PageError) Error() string {
	return "page: " + e.Reason
}

func (e *PageError) Unwrap() error {
	if strings.HasPrefix(e.Reason, "no-") && strings.HasSuffix(e.Reason, "-found") {
		return ErrControlNotFound
	}
	return nil
}

// Outcome is what a script returned for one tab. Which fields are set
// depends on the branch of the chain that ran. It marshals back to exactly
// the object the page produced.
type Outcome struct {
	Method      string   `json:"method,omitempty"`
	Action      string   `json:"action,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Paused      *bool    `json:"paused,omitempty"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	Error       string   `json:"error,omitempty"`

	raw json.RawMessage
}

type outcomeFields Outcome

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var f outcomeFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*o = Outcome(f)
	o.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if len(o.raw) > 0 {
		return o.raw, nil
	}
	return json.Marshal(outcomeFields(o))
}

// Err returns the page error as a Go error, or nil when the script succeeded.
func (o *Outcome) Err() error {
	if o == nil || o.Error == "" {
		return nil
	}
	return &PageError{Reason: o.Error}
}

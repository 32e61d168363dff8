package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/tomyan/playtab/internal/chrome"
)

// ErrNoOutcome is returned when a script produced no object.
var ErrNoOutcome = errors.New("script returned no outcome")

// Evaluator runs an expression inside a tab.
type Evaluator interface {
	EvalIsolated(ctx context.Context, targetID string, expression string) (*chrome.EvalResult, error)
}

// Injector runs scripts in tabs.
type Injector struct {
	eval Evaluator
}

// NewInjector returns an Injector evaluating through e.
func NewInjector(e Evaluator) *Injector {
	return &Injector{eval: e}
}

// Inject runs s in the tab and returns its outcome. Exceptions thrown in the
// page come back as an Outcome with Error set. Only failures to reach the
// tab are returned as errors.
func (i *Injector) Inject(ctx context.Context, targetID string, s Script) (*Outcome, error) {
	res, err := i.eval.EvalIsolated(ctx, targetID, s.Expression())
	var se *chrome.ScriptError
	if errors.As(err, &se) {
		return &Outcome{Error: se.Text}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("injecting %s: %w", s.Name, err)
	}

	if len(res.Raw) == 0 || bytes.Equal(res.Raw, []byte("null")) {
		return nil, fmt.Errorf("injecting %s: %w", s.Name, ErrNoOutcome)
	}
	var out Outcome
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("injecting %s: %w", s.Name, err)
	}
	return &out, nil
}

// Package dispatch runs a controller script in every tab of the controlled
// site and collects the outcomes.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomyan/playtab/internal/chrome"
	"github.com/tomyan/playtab/internal/logging"
	"github.com/tomyan/playtab/internal/player"
)

// NoTabMessage is the Result message when no tab matches.
const NoTabMessage = "No tab open"

// Locator finds the tabs to act on.
type Locator interface {
	Find(ctx context.Context) ([]chrome.TargetInfo, error)
}

// Injector runs a script in one tab.
type Injector interface {
	Inject(ctx context.Context, targetID string, s player.Script) (*player.Outcome, error)
}

// TabResult is the outcome for one tab.
type TabResult struct {
	TabID string          `json:"tabId"`
	URL   string          `json:"url,omitempty"`
	Res   *player.Outcome `json:"res"`
}

// Result is the reply to one action. Either Success is false and Message
// says why, or Success is true and Results holds an entry for every tab the
// script ran in.
type Result struct {
	Success bool
	Message string
	Results []TabResult
}

// NoTab returns the failed Result for an empty locator.
func NoTab() *Result {
	return &Result{Success: false, Message: NoTabMessage}
}

// MarshalJSON encodes {success:false, message} or {success:true, results}.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{false, r.Message})
	}
	results := r.Results
	if results == nil {
		results = []TabResult{}
	}
	return json.Marshal(struct {
		Success bool        `json:"success"`
		Results []TabResult `json:"results"`
	}{true, results})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Results []TabResult `json:"results"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result{Success: wire.Success, Message: wire.Message, Results: wire.Results}
	return nil
}

// Dispatcher fans a script out over the located tabs.
type Dispatcher struct {
	locator  Locator
	injector Injector
}

// New returns a Dispatcher.
func New(locator Locator, injector Injector) *Dispatcher {
	return &Dispatcher{locator: locator, injector: injector}
}

// Run injects s into each located tab, one at a time in the order the
// locator returned them. A tab whose injection fails is logged and left out
// of the results; the rest still run. With no tabs, Run injects nothing and
// returns NoTab().
//
// Run returns an error when the tabs cannot be listed, and stops early with
// the partial Result and ctx.Err() when ctx ends.
func (d *Dispatcher) Run(ctx context.Context, s player.Script) (*Result, error) {
	log := logging.FromContext(ctx).With("dispatch", uuid.NewString(), "script", s.Name)

	tabs, err := d.locator.Find(ctx)
	if err != nil {
		return nil, err
	}
	if len(tabs) == 0 {
		log.Warn("no tab found")
		return NoTab(), nil
	}

	res := &Result{Success: true, Results: make([]TabResult, 0, len(tabs))}
	for _, tab := range tabs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("dispatch stopped after %d of %d tabs: %w", len(res.Results), len(tabs), err)
		}

		out, err := d.injector.Inject(ctx, tab.ID, s)
		if err != nil {
			log.Warn("inject failed", "tab", tab.ID, "url", tab.URL, "err", err)
			continue
		}
		log.Debug("injected", "tab", tab.ID, "outcome_error", out.Error)
		res.Results = append(res.Results, TabResult{TabID: tab.ID, URL: tab.URL, Res: out})
	}
	return res, nil
}

// Package player holds the page controller scripts: ordered fallback chains
// that find and operate a media page's playback controls, compiled into
// JavaScript that runs inside the tab.
package player

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Mode says what a chain does with the element it finds.
type Mode string

const (
	// ModeClick clicks the first control found, or flips a native <audio>.
	ModeClick Mode = "click"
	// ModeRead reports playback state without touching the page.
	ModeRead Mode = "read"
)

// Selector is one CSS lookup in a chain. Method tags the outcome when the
// selector wins; Action is reported alongside it when set.
type Selector struct {
	CSS    string `json:"css"`
	Method string `json:"method,omitempty"`
	Action string `json:"action,omitempty"`
}

// Chain is an ordered fallback list, first match wins:
//  1. the native <audio> element, when Media is set;
//  2. Selectors in order;
//  3. the first button whose title matches any of Titles (case-insensitive
//     JavaScript regular expressions), click mode only.
//
// When nothing matches a click chain reports NotFound as its error.
type Chain struct {
	Mode      Mode       `json:"mode,omitempty"`
	Media     bool       `json:"media,omitempty"`
	Selectors []Selector `json:"selectors,omitempty"`
	Titles    []string   `json:"titles,omitempty"`
	NotFound  string     `json:"notFound,omitempty"`
}

var (
	ErrEmptyChain    = errors.New("chain has no steps")
	ErrEmptySelector = errors.New("chain has an empty selector")
	ErrUnknownMode   = errors.New("unknown chain mode")
)

// IsZero reports whether c sets nothing at all.
func (c Chain) IsZero() bool {
	return c.Mode == "" && !c.Media && len(c.Selectors) == 0 && len(c.Titles) == 0 && c.NotFound == ""
}

// Validate checks that c can be compiled.
func (c Chain) Validate() error {
	switch c.Mode {
	case ModeClick, ModeRead:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
	if !c.Media && len(c.Selectors) == 0 && len(c.Titles) == 0 {
		return ErrEmptyChain
	}
	if lo.ContainsBy(c.Selectors, func(s Selector) bool { return strings.TrimSpace(s.CSS) == "" }) {
		return ErrEmptySelector
	}
	return nil
}

// Chains holds the chain for every action.
type Chains struct {
	Toggle Chain `json:"toggle"`
	Next   Chain `json:"next"`
	Prev   Chain `json:"prev"`
	Status Chain `json:"status"`
}

// DefaultChains returns the built-in chains for open.spotify.com.
func DefaultChains() Chains {
	return Chains{
		Toggle: Chain{
			Mode:  ModeClick,
			Media: true,
			Selectors: []Selector{
				{CSS: `button[aria-label="Play"]`, Method: "aria", Action: "play"},
				{CSS: `button[aria-label="Pause"]`, Method: "aria", Action: "pause"},
			},
			Titles:   []string{"play", "pause"},
			NotFound: "no-control-found",
		},
		Next: Chain{
			Mode: ModeClick,
			Selectors: []Selector{
				{CSS: `button[aria-label="Next"]`, Method: "button"},
				{CSS: `[data-testid="control-button-skip-forward"]`, Method: "button"},
				{CSS: `.spoticon-skip-forward, .control-button--next`, Method: "button"},
			},
			Titles:   []string{"next", "skip forward"},
			NotFound: "no-next-found",
		},
		Prev: Chain{
			Mode: ModeClick,
			Selectors: []Selector{
				{CSS: `button[aria-label="Previous"]`, Method: "button"},
				{CSS: `[data-testid="control-button-skip-back"]`, Method: "button"},
				{CSS: `.spoticon-skip-back, .control-button--prev`, Method: "button"},
			},
			Titles:   []string{"previous", "back", "skip back"},
			NotFound: "no-prev-found",
		},
		Status: Chain{
			Mode:  ModeRead,
			Media: true,
			Selectors: []Selector{
				{CSS: `[data-testid="nowplaying-track-link"], .TrackName, .track-info__name`},
			},
		},
	}
}

// Merge returns c with every non-zero chain of override swapped in. An
// override that leaves Mode or NotFound empty keeps the base value.
func (c Chains) Merge(override Chains) Chains {
	pick := func(base, o Chain) Chain {
		if o.IsZero() {
			return base
		}
		if o.Mode == "" {
			o.Mode = base.Mode
		}
		if o.NotFound == "" {
			o.NotFound = base.NotFound
		}
		return o
	}
	return Chains{
		Toggle: pick(c.Toggle, override.Toggle),
		Next:   pick(c.Next, override.Next),
		Prev:   pick(c.Prev, override.Prev),
		Status: pick(c.Status, override.Status),
	}
}

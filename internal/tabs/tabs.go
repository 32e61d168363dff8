// Package tabs finds the browser tabs showing the controlled site.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/tomyan/playtab/internal/chrome"
)

// ErrNoSite is returned by Find when the locator has no site to match.
var ErrNoSite = errors.New("no site configured")

// Lister enumerates the browser's page targets.
type Lister interface {
	Pages(ctx context.Context) ([]chrome.TargetInfo, error)
}

// Locator filters the browser's tabs down to one site.
type Locator struct {
	lister Lister
	site   string
}

// New returns a Locator matching tabs whose URL contains site, a host name
// fragment such as "open.spotify.com".
func New(lister Lister, site string) *Locator {
	return &Locator{lister: lister, site: site}
}

// Site returns the fragment tabs are matched against.
func (l *Locator) Site() string {
	return l.site
}

// Find returns the matching tabs in the order the browser lists them. No
// match is not an error.
func (l *Locator) Find(ctx context.Context) ([]chrome.TargetInfo, error) {
	if l.site == "" {
		return nil, ErrNoSite
	}

	pages, err := l.lister.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tabs: %w", err)
	}

	return lo.Filter(pages, func(p chrome.TargetInfo, _ int) bool {
		return p.URL != "" && strings.Contains(p.URL, l.site)
	}), nil
}

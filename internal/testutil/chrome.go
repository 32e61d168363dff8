// Package testutil provides test browsers: a fake CDP endpoint for unit
// tests and a real headless Chrome for page script tests.
package testutil

import (
	"github.com/tomyan/playtab/internal/chrome/launcher"
)

// ChromeInstance represents a running Chrome instance for testing.
type ChromeInstance struct {
	*launcher.Instance
}

// StartChrome starts a headless Chrome instance on the specified port.
// It returns launcher.ErrChromeNotFound when no Chrome binary is installed,
// so callers can skip. The instance must be stopped with Stop().
func StartChrome(port int) (*ChromeInstance, error) {
	inst, err := launcher.Launch(launcher.LaunchOptions{
		Port:     port,
		Headless: true,
		ExtraArgs: []string{
			"--mute-audio",
			"--autoplay-policy=no-user-gesture-required",
		},
	})
	if err != nil {
		return nil, err
	}
	return &ChromeInstance{Instance: inst}, nil
}

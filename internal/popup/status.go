// Package popup is the terminal popup: prev / play-pause / next buttons
// over a one-line status that reflects the last reply.
package popup

import (
	"github.com/tomyan/playtab/internal/dispatch"
)

// ActionStatus renders the status line after an action reply.
func ActionStatus(res *dispatch.Result, err error, siteName string) string {
	if line, done := failureStatus(res, err); done {
		return line
	}
	if len(res.Results) > 0 {
		return "Action sent to " + siteName + " tab(s)."
	}
	return "Action attempted."
}

// OpenStatus renders the status line after the status query sent when the
// popup opens.
func OpenStatus(res *dispatch.Result, err error, siteName string) string {
	if line, done := failureStatus(res, err); done {
		return line
	}
	return siteName + " tab found"
}

func failureStatus(res *dispatch.Result, err error) (string, bool) {
	switch {
	case err != nil:
		return "Status: " + err.Error(), true
	case res == nil:
		return "Status: no response", true
	case !res.Success && res.Message != "":
		return "Status: " + res.Message, true
	}
	return "", false
}

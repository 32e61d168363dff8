package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tomyan/playtab/internal/dispatch"
	"github.com/tomyan/playtab/internal/popup"
	"github.com/tomyan/playtab/internal/router"
)

// TextValuer is implemented by result types that have an obvious plain-text representation.
type TextValuer interface {
	TextValue() string
}

// actionReply is the output of an action command: the dispatch result in
// JSON modes, the popup's status line in text mode.
type actionReply struct {
	res      *dispatch.Result
	action   router.Action
	siteName string
}

func (r actionReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.res)
}

func (r actionReply) TextValue() string {
	if r.action == router.Status {
		return nowPlaying(r.res, r.siteName)
	}
	return popup.ActionStatus(r.res, nil, r.siteName)
}

// nowPlaying summarises a status reply from the first tab that answered.
func nowPlaying(res *dispatch.Result, siteName string) string {
	if res == nil || !res.Success || len(res.Results) == 0 {
		return popup.OpenStatus(res, nil, siteName)
	}

	out := res.Results[0].Res
	if out == nil {
		return popup.OpenStatus(res, nil, siteName)
	}
	if out.Error != "" {
		return "Status: " + out.Error
	}

	var parts []string
	if out.Paused != nil {
		if *out.Paused {
			parts = append(parts, "paused")
		} else {
			parts = append(parts, "playing")
		}
	}
	if out.Title != nil && *out.Title != "" {
		parts = append(parts, *out.Title)
	}
	if out.CurrentTime != nil {
		pos := formatSeconds(*out.CurrentTime)
		if out.Duration != nil {
			pos += "/" + formatSeconds(*out.Duration)
		}
		parts = append(parts, pos)
	}
	if len(parts) == 0 {
		return popup.OpenStatus(res, nil, siteName)
	}
	return strings.Join(parts, " · ")
}

func formatSeconds(s float64) string {
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "ndjson":
		enc := json.NewEncoder(cfg.Stdout)
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.TextValue())
		} else {
			// Fall back to JSON for complex types
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}

package main

import (
	"context"
	"strings"

	"github.com/tomyan/playtab/internal/chrome"
	"github.com/tomyan/playtab/internal/tabs"
)

// tabList is the output of the tabs command.
type tabList []chrome.TargetInfo

func (t tabList) TextValue() string {
	lines := make([]string, len(t))
	for i, tab := range t {
		lines[i] = tab.ID + "\t" + tab.URL
	}
	return strings.Join(lines, "\n")
}

// versionResult is the output of the version command.
type versionResult struct {
	*chrome.VersionInfo
}

func (v versionResult) TextValue() string {
	return v.Browser
}

func cmdTabs(cfg *Config) int {
	return withClient(cfg, func(ctx context.Context, client *chrome.Client) (interface{}, error) {
		found, err := tabs.New(client, cfg.Site).Find(ctx)
		if err != nil {
			return nil, err
		}
		return tabList(found), nil
	})
}

func cmdVersion(cfg *Config) int {
	return withClient(cfg, func(ctx context.Context, client *chrome.Client) (interface{}, error) {
		info, err := client.Version(ctx)
		if err != nil {
			return nil, err
		}
		return versionResult{info}, nil
	})
}

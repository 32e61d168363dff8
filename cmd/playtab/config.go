package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/tomyan/playtab/internal/player"
)

// fileConfig represents the JSON config file structure.
type fileConfig struct {
	Port            *int           `json:"port,omitempty"`
	Host            *string        `json:"host,omitempty"`
	Timeout         *string        `json:"timeout,omitempty"` // duration string, e.g. "30s"
	Output          *string        `json:"output,omitempty"`
	Site            *string        `json:"site,omitempty"`
	SiteName        *string        `json:"siteName,omitempty"`
	Listen          *string        `json:"listen,omitempty"`
	LogLevel        *string        `json:"logLevel,omitempty"`
	ConnectAttempts *int           `json:"connectAttempts,omitempty"`
	Chains          *player.Chains `json:"chains,omitempty"`
}

// configPaths lists where .playtabrc is looked for, in order.
func configPaths() []string {
	paths := []string{
		filepath.Join(".", ".playtabrc"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".playtabrc"))
	}
	return paths
}

// loadConfigFile loads a .playtabrc file and applies it to cfg.
// It checks CWD first, then home directory. Values in the file
// override defaults but are themselves overridden by env vars and CLI flags.
func loadConfigFile(cfg *Config) {
	for _, p := range configPaths() {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var fc fileConfig
		if err := json.Unmarshal(data, &fc); err != nil {
			continue // silently skip malformed config
		}
		applyFileConfig(cfg, &fc)
		return // use first file found
	}
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Timeout != nil {
		if d, err := time.ParseDuration(*fc.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if fc.Output != nil {
		cfg.Output = *fc.Output
	}
	if fc.Site != nil {
		cfg.Site = *fc.Site
	}
	if fc.SiteName != nil {
		cfg.SiteName = *fc.SiteName
	}
	if fc.Listen != nil {
		cfg.Listen = *fc.Listen
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.ConnectAttempts != nil {
		cfg.ConnectAttempts = *fc.ConnectAttempts
	}
	if fc.Chains != nil {
		cfg.Chains = *fc.Chains
	}
}

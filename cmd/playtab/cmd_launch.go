package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomyan/playtab/internal/chrome/launcher"
)

// launchResult is returned by the launch command.
type launchResult struct {
	Port           int    `json:"port"`
	URL            string `json:"url"`
	PID            int    `json:"pid,omitempty"`
	DataDir        string `json:"dataDir,omitempty"`
	Relaunched     bool   `json:"relaunched,omitempty"`
	AlreadyRunning bool   `json:"alreadyRunning,omitempty"`
}

func (r launchResult) TextValue() string {
	switch {
	case r.AlreadyRunning:
		return fmt.Sprintf("Chrome already listening on port %d", r.Port)
	case r.Relaunched:
		return fmt.Sprintf("Chrome relaunched on port %d", r.Port)
	}
	return fmt.Sprintf("Chrome started on port %d (pid %d)", r.Port, r.PID)
}

// defaultDataDir is the persistent profile used by launch, so site logins
// survive restarts.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "playtab", "chrome")
}

func cmdLaunch(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	headless := fs.Bool("headless", false, "Run Chrome without a window")
	chromePath := fs.String("chrome", "", "Path to the Chrome binary (auto-detected if empty)")
	dataDir := fs.String("data-dir", defaultDataDir(), "Chrome profile directory")
	relaunch := fs.Bool("relaunch", false, "Restart the user's Chrome with remote debugging instead")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	url := "https://" + cfg.Site + "/"
	if fs.NArg() > 0 {
		url = fs.Arg(0)
	}

	result := launchResult{Port: cfg.Port, URL: url}

	if cfg.portOpen(cfg.Host, cfg.Port) {
		result.AlreadyRunning = true
		return outputResult(cfg, result)
	}

	if *relaunch {
		relauncher := cfg.Relauncher
		if relauncher == nil {
			relauncher = launcher.RelaunchUserChrome
		}
		err := relauncher(launcher.RelaunchOptions{
			Port:       cfg.Port,
			ChromePath: *chromePath,
			URL:        url,
		})
		if err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
		result.Relaunched = true
		return outputResult(cfg, result)
	}

	if *dataDir != "" {
		if err := os.MkdirAll(*dataDir, 0o700); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	}

	launch := cfg.Launcher
	if launch == nil {
		launch = launcher.Launch
	}
	inst, err := launch(launcher.LaunchOptions{
		ChromePath: *chromePath,
		Port:       cfg.Port,
		Headless:   *headless,
		DataDir:    *dataDir,
		URL:        url,
	})
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	result.PID = inst.PID
	result.DataDir = inst.DataDir
	return outputResult(cfg, result)
}

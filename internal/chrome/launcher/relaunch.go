package launcher

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
	Start(name string, args ...string) error // launches a process without waiting for it to exit
}

// DefaultCommandRunner executes commands via os/exec.
type DefaultCommandRunner struct{}

// Run executes a command and returns its combined output.
func (d DefaultCommandRunner) Run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Start launches a process in the background without waiting for it to exit.
func (d DefaultCommandRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Start()
}

// platform describes how to find and stop the user's browser on one OS.
type platform struct {
	process   string   // exact process name for pgrep/pkill
	quit      []string // graceful quit command
	forceKill []string // used when quit does not finish in time
}

var platforms = map[string]platform{
	"darwin": {
		process:   "Google Chrome",
		quit:      []string{"osascript", "-e", `tell application "Google Chrome" to quit`},
		forceKill: []string{"pkill", "-x", "Google Chrome"},
	},
	"linux": {
		process:   "chrome",
		quit:      []string{"pkill", "-TERM", "-x", "chrome"},
		forceKill: []string{"pkill", "-KILL", "-x", "chrome"},
	},
}

const defaultQuitTimeout = 5 * time.Second

// RelaunchOptions configures the relaunch behaviour.
type RelaunchOptions struct {
	Port       int           // Remote debugging port (default 9222)
	ChromePath string        // Path to Chrome binary (auto-detected if empty)
	URL        string        // Page opened after the restart, e.g. the player site
	GOOS       string        // Override runtime.GOOS for testing
	Runner     CommandRunner // Override command runner for testing
	WaitFunc   func() error  // Override wait-for-port for testing
}

// RelaunchUserChrome quits the user's Chrome and starts it again with remote
// debugging enabled. The default profile is reused, so logins and open
// sessions survive the restart.
func RelaunchUserChrome(opts RelaunchOptions) error {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	p, ok := platforms[goos]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	runner := opts.Runner
	if runner == nil {
		runner = DefaultCommandRunner{}
	}

	port := opts.Port
	if port == 0 {
		port = 9222
	}

	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = FindChrome("")
		if chromePath == "" {
			return ErrChromeNotFound
		}
	}

	if err := quitChrome(runner, p, defaultQuitTimeout); err != nil {
		return err
	}

	// Start the binary directly so the flag survives session restore on macOS
	args := []string{fmt.Sprintf("--remote-debugging-port=%d", port)}
	if opts.URL != "" {
		args = append(args, opts.URL)
	}
	if err := runner.Start(chromePath, args...); err != nil {
		return fmt.Errorf("failed to launch Chrome: %w", err)
	}

	if opts.WaitFunc != nil {
		return opts.WaitFunc()
	}
	return WaitForPort("localhost", port, 30*time.Second)
}

// quitChrome asks a running Chrome to exit and force-kills it after maxWait.
// It returns immediately when Chrome is not running.
func quitChrome(runner CommandRunner, p platform, maxWait time.Duration) error {
	if _, err := runner.Run("pgrep", "-x", p.process); err != nil {
		return nil
	}

	if _, err := runner.Run(p.quit[0], p.quit[1:]...); err != nil {
		return fmt.Errorf("%s quit failed: %w", p.quit[0], err)
	}

	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if _, err := runner.Run("pgrep", "-x", p.process); err != nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	runner.Run(p.forceKill[0], p.forceKill[1:]...)
	return nil
}

// Package launcher finds, starts and restarts Chrome with remote debugging
// enabled so playtab can reach the player tab.
package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// ErrChromeNotFound is returned when no Chrome binary can be located.
var ErrChromeNotFound = errors.New("Chrome not found")

// LaunchOptions configures Chrome launching.
type LaunchOptions struct {
	ChromePath string   // Path to Chrome binary (auto-detected if empty)
	Port       int      // Remote debugging port
	Headless   bool     // Run in headless mode
	DataDir    string   // User data directory (temp dir created if empty)
	URL        string   // Page opened on start (about:blank if empty)
	ExtraArgs  []string // Appended after the built-in flags
}

// Instance represents a running Chrome instance.
type Instance struct {
	cmd      *exec.Cmd
	Port     int
	PID      int
	DataDir  string
	ownsData bool
}

// FindChrome locates Chrome on the system. If chromePath is non-empty it is
// returned when it exists and "" otherwise. Without a path, PATH is searched
// first and then the usual install locations.
func FindChrome(chromePath string) string {
	if chromePath != "" {
		if _, err := os.Stat(chromePath); err == nil {
			return chromePath
		}
		return ""
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range knownPaths(runtime.GOOS) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func knownPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}
	return nil
}

// IsPortOpen checks if a TCP port is accepting connections.
func IsPortOpen(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitForPort waits for a TCP port to become available.
func WaitForPort(host string, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s", net.JoinHostPort(host, strconv.Itoa(port)))
		case <-ticker.C:
			if IsPortOpen(host, port) {
				return nil
			}
		}
	}
}

// Args returns the command-line flags Launch passes to Chrome.
func (opts LaunchOptions) Args(dataDir string) []string {
	args := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-background-networking",
		"--disable-sync",
		"--disable-translate",
		"--no-first-run",
		"--disable-default-apps",
		fmt.Sprintf("--remote-debugging-port=%d", opts.Port),
		fmt.Sprintf("--user-data-dir=%s", dataDir),
	}
	if opts.Headless {
		args = append([]string{"--headless"}, args...)
	}
	args = append(args, opts.ExtraArgs...)

	url := opts.URL
	if url == "" {
		url = "about:blank"
	}
	return append(args, url)
}

// Launch starts a Chrome instance with the given options and waits for its
// debugging port.
func Launch(opts LaunchOptions) (*Instance, error) {
	chromePath := FindChrome(opts.ChromePath)
	if chromePath == "" {
		return nil, ErrChromeNotFound
	}

	ownsData := false
	dataDir := opts.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = os.MkdirTemp("", "playtab-chrome-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		ownsData = true
	}

	cmd := exec.Command(chromePath, opts.Args(dataDir)...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		if ownsData {
			os.RemoveAll(dataDir)
		}
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	inst := &Instance{
		cmd:      cmd,
		Port:     opts.Port,
		PID:      cmd.Process.Pid,
		DataDir:  dataDir,
		ownsData: ownsData,
	}

	if err := WaitForPort("localhost", opts.Port, 30*time.Second); err != nil {
		inst.Stop()
		return nil, fmt.Errorf("Chrome failed to start: %w", err)
	}

	return inst, nil
}

// ChromeInfo contains version information from a running Chrome instance.
type ChromeInfo struct {
	Browser  string `json:"Browser"`
	Protocol string `json:"Protocol-Version"`
	V8       string `json:"V8-Version"`
	WebKit   string `json:"WebKit-Version"`
}

// DetectRunning checks if a Chrome debug port is responding and returns version info.
func DetectRunning(host string, port int) (*ChromeInfo, error) {
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/json/version"
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("Chrome not reachable at %s:%d: %w", host, port, err)
	}
	defer resp.Body.Close()

	var info ChromeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parsing version info: %w", err)
	}
	return &info, nil
}

// Stop terminates the Chrome instance and removes a data dir it created.
func (inst *Instance) Stop() error {
	if inst.cmd != nil && inst.cmd.Process != nil {
		inst.cmd.Process.Kill()
		inst.cmd.Wait()

		// Renderer and GPU children outlive the browser process
		if inst.DataDir != "" {
			exec.Command("pkill", "-9", "-f", inst.DataDir).Run()
		}
		inst.cmd = nil
	}
	if inst.ownsData && inst.DataDir != "" {
		time.Sleep(100 * time.Millisecond)
		os.RemoveAll(inst.DataDir)
		inst.DataDir = ""
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tomyan/playtab/internal/chrome"
	"github.com/tomyan/playtab/internal/chrome/launcher"
	"github.com/tomyan/playtab/internal/dispatch"
	"github.com/tomyan/playtab/internal/logging"
	"github.com/tomyan/playtab/internal/player"
	"github.com/tomyan/playtab/internal/router"
	"github.com/tomyan/playtab/internal/tabs"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitConnFailed = 2
	ExitTimeout    = 3
	ExitNoTab      = 4
)

// Config holds the CLI configuration.
type Config struct {
	Port            int
	Host            string
	Timeout         time.Duration
	Output          string // json, ndjson, text
	Quiet           bool
	Site            string // host fragment matched against tab URLs
	SiteName        string // shown in status lines
	Listen          string // serve address
	LogLevel        string
	ConnectAttempts int
	Chains          player.Chains // per-action overrides from .playtabrc

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// PortChecker overrides port detection for testing. If nil, uses launcher.IsPortOpen.
	PortChecker func(host string, port int) bool
	// Launcher and Relauncher override browser start-up for testing.
	Launcher   func(opts launcher.LaunchOptions) (*launcher.Instance, error)
	Relauncher func(opts launcher.RelaunchOptions) error
}

// DefaultConfig returns the default configuration with built-in defaults.
// The rc file and environment variables are applied later in the config chain.
func DefaultConfig() *Config {
	return &Config{
		Port:            9222,
		Host:            "localhost",
		Timeout:         10 * time.Second,
		Output:          "json",
		Site:            "open.spotify.com",
		SiteName:        "Spotify",
		Listen:          "127.0.0.1:7765",
		LogLevel:        "warn",
		ConnectAttempts: 1,
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

// flagValues stores values parsed from CLI flags before they get overwritten.
type flagValues struct {
	port            int
	host            string
	timeout         time.Duration
	output          string
	quiet           bool
	site            string
	siteName        string
	listen          string
	logLevel        string
	connectAttempts int
}

func run(args []string, cfg *Config) int {
	// Parse into temporary variables so we can snapshot values before overwriting
	var fv flagValues
	fs := flag.NewFlagSet("playtab", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.IntVar(&fv.port, "port", cfg.Port, "Chrome debug port (env: PLAYTAB_PORT)")
	fs.StringVar(&fv.host, "host", cfg.Host, "Chrome debug host (env: PLAYTAB_HOST)")
	fs.DurationVar(&fv.timeout, "timeout", cfg.Timeout, "Per-request timeout (env: PLAYTAB_TIMEOUT)")
	fs.StringVar(&fv.output, "output", cfg.Output, "Output format: json, ndjson, text (env: PLAYTAB_OUTPUT)")
	fs.BoolVar(&fv.quiet, "quiet", cfg.Quiet, "Only log errors")
	fs.StringVar(&fv.site, "site", cfg.Site, "Site matched against tab URLs (env: PLAYTAB_SITE)")
	fs.StringVar(&fv.siteName, "site-name", cfg.SiteName, "Site name used in status lines (env: PLAYTAB_SITE_NAME)")
	fs.StringVar(&fv.listen, "listen", cfg.Listen, "Address for serve (env: PLAYTAB_LISTEN)")
	fs.StringVar(&fv.logLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error (env: PLAYTAB_LOG_LEVEL)")
	fs.IntVar(&fv.connectAttempts, "connect-attempts", cfg.ConnectAttempts, "Attempts to reach Chrome before giving up (env: PLAYTAB_CONNECT_ATTEMPTS)")

	fs.Usage = func() { printUsage(cfg, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	// Track which flags were explicitly set on the command line
	explicitFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	// Config precedence: built-in defaults < .playtabrc < env vars < CLI flags
	loadConfigFile(cfg)

	if err := applyEnvVars(cfg); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	reapplyExplicitFlags(cfg, &fv, explicitFlags)

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	remaining := fs.Args()
	if len(remaining) < 1 {
		printUsage(cfg, fs)
		return ExitError
	}

	cmd := remaining[0]

	info, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", cmd)
		return ExitError
	}
	return info.Run(cfg, remaining[1:])
}

// envConfig mirrors the settings that can come from PLAYTAB_* variables.
// Unset variables leave their field nil.
type envConfig struct {
	Host            *string        `envconfig:"HOST"`
	Port            *int           `envconfig:"PORT"`
	Timeout         *time.Duration `envconfig:"TIMEOUT"`
	Output          *string        `envconfig:"OUTPUT"`
	Site            *string        `envconfig:"SITE"`
	SiteName        *string        `envconfig:"SITE_NAME"`
	Listen          *string        `envconfig:"LISTEN"`
	LogLevel        *string        `envconfig:"LOG_LEVEL"`
	ConnectAttempts *int           `envconfig:"CONNECT_ATTEMPTS"`
}

// applyEnvVars applies PLAYTAB_* environment variables to cfg.
func applyEnvVars(cfg *Config) error {
	var env envConfig
	if err := envconfig.Process("playtab", &env); err != nil {
		return err
	}

	if env.Host != nil {
		cfg.Host = *env.Host
	}
	if env.Port != nil {
		cfg.Port = *env.Port
	}
	if env.Timeout != nil {
		cfg.Timeout = *env.Timeout
	}
	if env.Output != nil {
		cfg.Output = *env.Output
	}
	if env.Site != nil {
		cfg.Site = *env.Site
	}
	if env.SiteName != nil {
		cfg.SiteName = *env.SiteName
	}
	if env.Listen != nil {
		cfg.Listen = *env.Listen
	}
	if env.LogLevel != nil {
		cfg.LogLevel = *env.LogLevel
	}
	if env.ConnectAttempts != nil {
		cfg.ConnectAttempts = *env.ConnectAttempts
	}
	return nil
}

// reapplyExplicitFlags re-applies flag values that were explicitly set
// on the command line, since .playtabrc and env loading may have overwritten them.
func reapplyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	if explicit["port"] {
		cfg.Port = fv.port
	}
	if explicit["host"] {
		cfg.Host = fv.host
	}
	if explicit["timeout"] {
		cfg.Timeout = fv.timeout
	}
	if explicit["output"] {
		cfg.Output = fv.output
	}
	if explicit["quiet"] {
		cfg.Quiet = fv.quiet
	}
	if explicit["site"] {
		cfg.Site = fv.site
	}
	if explicit["site-name"] {
		cfg.SiteName = fv.siteName
	}
	if explicit["listen"] {
		cfg.Listen = fv.listen
	}
	if explicit["log-level"] {
		cfg.LogLevel = fv.logLevel
	}
	if explicit["connect-attempts"] {
		cfg.ConnectAttempts = fv.connectAttempts
	}
}

// logger builds the stderr logger for cfg. --quiet wins over --log-level.
func (cfg *Config) logger() *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	if cfg.Quiet {
		level = slog.LevelError
	}
	return logging.New(cfg.Stderr, level)
}

func (cfg *Config) portOpen(host string, port int) bool {
	if cfg.PortChecker != nil {
		return cfg.PortChecker(host, port)
	}
	return launcher.IsPortOpen(host, port)
}

func connect(ctx context.Context, cfg *Config) (*chrome.Client, error) {
	return chrome.ConnectWithRetry(ctx, cfg.Host, cfg.Port, cfg.ConnectAttempts, 500*time.Millisecond)
}

// newRouter wires the locator, dispatcher and scripts for cfg onto client.
func newRouter(cfg *Config, client *chrome.Client) (*router.Router, error) {
	locator := tabs.New(client, cfg.Site)
	d := dispatch.New(locator, player.NewInjector(client))
	return router.New(d, player.DefaultChains().Merge(cfg.Chains), router.WithShortcutTimeout(cfg.Timeout))
}

// withClient executes a function with a connected Chrome client.
func withClient(cfg *Config, fn func(ctx context.Context, client *chrome.Client) (interface{}, error)) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	ctx = logging.AddToContext(ctx, cfg.logger())

	client, err := connect(ctx, cfg)
	if err != nil {
		return exitForConnect(cfg, err)
	}
	defer client.Close()

	result, err := fn(ctx, client)
	if code := exitForError(cfg, ctx, err); code != ExitSuccess {
		return code
	}
	return outputResult(cfg, result)
}

// withRouter executes a function with a router over a connected client.
func withRouter(cfg *Config, fn func(ctx context.Context, r *router.Router) (interface{}, error)) int {
	return withClient(cfg, func(ctx context.Context, client *chrome.Client) (interface{}, error) {
		r, err := newRouter(cfg, client)
		if err != nil {
			return nil, err
		}
		return fn(ctx, r)
	})
}

func exitForConnect(cfg *Config, err error) int {
	fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
	return ExitConnFailed
}

// exitForError reports err and maps it to an exit code.
func exitForError(cfg *Config, ctx context.Context, err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		fmt.Fprintln(cfg.Stderr, "error: timeout")
		return ExitTimeout
	}
	if errors.Is(err, chrome.ErrConnectionClosed) {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitConnFailed
	}
	fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
	return ExitError
}

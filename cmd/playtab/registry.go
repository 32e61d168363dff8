package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/tomyan/playtab/internal/router"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name     string
	Desc     string
	Category string
	Run      func(cfg *Config, args []string) int
}

// commands is the registry of all available commands.
var commands = map[string]CommandInfo{
	// Playback
	"toggle": {Name: "toggle", Desc: "Play or pause", Category: "Control playback", Run: func(cfg *Config, args []string) int { return cmdAction(cfg, router.Toggle) }},
	"next":   {Name: "next", Desc: "Skip to the next track", Category: "Control playback", Run: func(cfg *Config, args []string) int { return cmdAction(cfg, router.Next) }},
	"prev":   {Name: "prev", Desc: "Go to the previous track", Category: "Control playback", Run: func(cfg *Config, args []string) int { return cmdAction(cfg, router.Prev) }},
	"status": {Name: "status", Desc: "Show playback status", Category: "Control playback", Run: func(cfg *Config, args []string) int { return cmdAction(cfg, router.Status) }},
	"shortcut": {Name: "shortcut", Desc: "Fire a keyboard shortcut id", Category: "Control playback", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: playtab shortcut <"+strings.Join(router.ShortcutIDs(), "|")+">")
		}
		return cmdShortcut(cfg, args[0])
	}},

	// Browser
	"tabs":    {Name: "tabs", Desc: "List the site's open tabs", Category: "Browser", Run: func(cfg *Config, args []string) int { return cmdTabs(cfg) }},
	"version": {Name: "version", Desc: "Show browser version", Category: "Browser", Run: func(cfg *Config, args []string) int { return cmdVersion(cfg) }},
	"launch":  {Name: "launch", Desc: "Start Chrome with remote debugging", Category: "Browser", Run: func(cfg *Config, args []string) int { return cmdLaunch(cfg, args) }},

	// Interactive
	"popup": {Name: "popup", Desc: "Open the terminal popup", Category: "Interactive", Run: func(cfg *Config, args []string) int { return cmdPopup(cfg) }},
	"serve": {Name: "serve", Desc: "Serve actions and shortcuts over HTTP", Category: "Interactive", Run: func(cfg *Config, args []string) int { return cmdServe(cfg) }},
}

// Commands that look up other commands are registered here to avoid an
// initialization cycle.
func init() {
	commands["shell"] = CommandInfo{Name: "shell", Desc: "Interactive command shell", Category: "Interactive", Run: func(cfg *Config, args []string) int { return cmdShell(cfg, args) }}
	commands["pipe"] = CommandInfo{Name: "pipe", Desc: "Run commands read from stdin", Category: "Interactive", Run: func(cfg *Config, args []string) int { return cmdPipe(cfg, args) }}
	commands["help"] = CommandInfo{Name: "help", Desc: "Show help for a command", Category: "Utility", Run: func(cfg *Config, args []string) int { return cmdHelp(cfg, args) }}
}

// cmdMissingArg prints a usage message and returns ExitError.
func cmdMissingArg(cfg *Config, usage string) int {
	fmt.Fprintln(cfg.Stderr, usage)
	return ExitError
}

// categoryOrder defines the display order for command categories.
var categoryOrder = []string{
	"Control playback",
	"Browser",
	"Interactive",
	"Utility",
}

type commandGroup struct {
	Category string
	Commands []CommandInfo
}

// commandsByCategory returns commands grouped by category, with sorted names within each category.
func commandsByCategory() []commandGroup {
	grouped := make(map[string][]CommandInfo)
	for _, cmd := range commands {
		grouped[cmd.Category] = append(grouped[cmd.Category], cmd)
	}

	var result []commandGroup
	for _, cat := range categoryOrder {
		cmds := grouped[cat]
		if len(cmds) == 0 {
			continue
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		result = append(result, commandGroup{Category: cat, Commands: cmds})
	}

	return result
}

// printUsage prints the usage message with commands grouped by category.
func printUsage(cfg *Config, fs *flag.FlagSet) {
	fmt.Fprintln(cfg.Stderr, "usage: playtab [flags] <command>")
	fmt.Fprintln(cfg.Stderr)

	for _, group := range commandsByCategory() {
		fmt.Fprintf(cfg.Stderr, "  %s:\n", group.Category)
		names := make([]string, len(group.Commands))
		for i, cmd := range group.Commands {
			names[i] = cmd.Name
		}
		fmt.Fprintf(cfg.Stderr, "    %s\n", strings.Join(names, ", "))
		fmt.Fprintln(cfg.Stderr)
	}

	fmt.Fprintln(cfg.Stderr, "flags:")
	fs.PrintDefaults()
}

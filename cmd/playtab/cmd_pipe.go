package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// errQuit is returned by execLine for .quit and .exit.
var errQuit = errors.New("quit")

// execLine runs one shell or pipe line against cfg. Dot directives change
// cfg for the lines that follow. It returns the command's exit code.
func execLine(cfg *Config, line string) (int, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ExitSuccess, nil
	}

	if strings.HasPrefix(line, ".") {
		directive, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		switch directive {
		case ".quit", ".exit":
			return ExitSuccess, errQuit
		case ".output":
			cfg.Output = value
			fmt.Fprintf(cfg.Stderr, "output set to %q\n", value)
		case ".site":
			cfg.Site = value
			fmt.Fprintf(cfg.Stderr, "site set to %q\n", value)
		default:
			fmt.Fprintf(cfg.Stderr, "unknown directive: %s\n", directive)
			return ExitError, nil
		}
		return ExitSuccess, nil
	}

	parts := splitArgs(line)
	if len(parts) == 0 {
		return ExitSuccess, nil
	}

	info, ok := commands[parts[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", parts[0])
		return ExitError, nil
	}
	return info.Run(cfg, parts[1:]), nil
}

// cmdPipe runs commands read from stdin, one per line, and stops at the
// first one that fails. A line that finds no tab does not stop the run.
func cmdPipe(cfg *Config, args []string) int {
	scanner := bufio.NewScanner(cfg.Stdin)

	for scanner.Scan() {
		code, err := execLine(cfg, scanner.Text())
		if err == errQuit {
			return ExitSuccess
		}
		if code != ExitSuccess && code != ExitNoTab {
			return code
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(cfg.Stderr, "error reading stdin: %v\n", err)
		return ExitError
	}

	return ExitSuccess
}

// splitArgs splits a command line into arguments, respecting quoted strings.
func splitArgs(line string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(line); i++ {
		c := line[i]
		if inQuote {
			if c == quoteChar {
				inQuote = false
			} else {
				current.WriteByte(c)
			}
		} else if c == '"' || c == '\'' {
			inQuote = true
			quoteChar = c
		} else if c == ' ' || c == '\t' {
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		} else {
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/tomyan/playtab/internal/router"
)

const shellPrompt = "playtab> "

// lineReader yields shell input one line at a time.
type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

// scannerReader reads plain lines, printing the prompt itself.
type scannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (s *scannerReader) ReadLine() (string, error) {
	fmt.Fprint(s.out, shellPrompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *scannerReader) Close() error { return nil }

// readlineReader adds line editing, history and completion on a terminal.
type readlineReader struct {
	rl *readline.Instance
}

func (r *readlineReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", nil
	}
	return line, err
}

func (r *readlineReader) Close() error { return r.rl.Close() }

func shellCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, name := range sortedCommandNames() {
		if name == "shortcut" {
			var ids []readline.PrefixCompleterInterface
			for _, id := range router.ShortcutIDs() {
				ids = append(ids, readline.PcItem(id))
			}
			items = append(items, readline.PcItem(name, ids...))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	for _, dot := range []string{".quit", ".exit", ".output", ".site"} {
		items = append(items, readline.PcItem(dot))
	}
	return readline.NewPrefixCompleter(items...)
}

func newLineReader(cfg *Config) (lineReader, error) {
	if f, ok := cfg.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:       shellPrompt,
			AutoComplete: shellCompleter(),
			Stdin:        f,
			Stdout:       cfg.Stdout,
			Stderr:       cfg.Stderr,
		})
		if err != nil {
			return nil, err
		}
		return &readlineReader{rl: rl}, nil
	}
	return &scannerReader{scanner: bufio.NewScanner(cfg.Stdin), out: cfg.Stdout}, nil
}

func cmdShell(cfg *Config, args []string) int {
	reader, err := newLineReader(cfg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	defer reader.Close()

	for {
		raw, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(cfg.Stderr, "error reading input: %v\n", err)
			return ExitError
		}

		if _, err := execLine(cfg, raw); err == errQuit {
			return ExitSuccess
		}
	}

	return ExitSuccess
}

// sortedCommandNames returns all command names sorted alphabetically.
func sortedCommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"toggle", []string{"toggle"}},
		{"shortcut next-track", []string{"shortcut", "next-track"}},
		{"  launch\t--headless  ", []string{"launch", "--headless"}},
		{`launch "https://open.spotify.com/album/1 2"`, []string{"launch", "https://open.spotify.com/album/1 2"}},
		{`help 'serve'`, []string{"help", "serve"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, splitArgs(tt.input))
		})
	}
}

func TestPipe(t *testing.T) {
	fb := newBrowser(t)
	cfg := testConfig(fb)
	cfg.Stdin = strings.NewReader("# skip forward twice\nnext\n\nnext\nstatus\n")

	require.Equal(t, ExitSuccess, run([]string{"--output", "ndjson", "pipe"}, cfg), stderr(cfg))

	lines := strings.Split(strings.TrimSpace(stdout(cfg)), "\n")
	assert.Len(t, lines, 3)

	var chains []string
	for _, e := range fb.Evaluations() {
		chains = append(chains, chainOf(e.Expression))
	}
	assert.Equal(t, []string{"next", "next", "status"}, chains)
}

func TestPipe_StopsOnError(t *testing.T) {
	fb := newBrowser(t)
	cfg := testConfig(fb)
	cfg.Stdin = strings.NewReader("toggle\nrewind\ntoggle\n")

	assert.Equal(t, ExitError, run([]string{"pipe"}, cfg))
	assert.Contains(t, stderr(cfg), "unknown command: rewind")
	assert.Equal(t, 1, fb.CallCount("Runtime.evaluate"))
}

func TestPipe_ContinuesWithoutTab(t *testing.T) {
	fb := newBrowser(t)
	cfg := testConfig(fb)
	cfg.Stdin = strings.NewReader(".site nowhere.invalid\ntoggle\n.site open.spotify.com\ntoggle\n")

	require.Equal(t, ExitSuccess, run([]string{"--output", "ndjson", "pipe"}, cfg), stderr(cfg))
	assert.Equal(t, 1, fb.CallCount("Runtime.evaluate"))
	assert.Contains(t, stdout(cfg), `"message":"No tab open"`)
}

func TestPipe_Quit(t *testing.T) {
	fb := newBrowser(t)
	cfg := testConfig(fb)
	cfg.Stdin = strings.NewReader("toggle\n.quit\ntoggle\n")

	require.Equal(t, ExitSuccess, run([]string{"pipe"}, cfg), stderr(cfg))
	assert.Equal(t, 1, fb.CallCount("Runtime.evaluate"))
}

func TestShell(t *testing.T) {
	fb := newBrowser(t)
	cfg := testConfig(fb)
	cfg.Stdin = bytes.NewBufferString(".output text\nversion\nrewind\n.exit\nversion\n")

	require.Equal(t, ExitSuccess, run([]string{"shell"}, cfg))

	out := stdout(cfg)
	assert.Contains(t, out, shellPrompt)
	assert.Equal(t, 1, strings.Count(out, "FakeChrome/1.0"))
	assert.Contains(t, stderr(cfg), `output set to "text"`)
	assert.Contains(t, stderr(cfg), "unknown command: rewind")
}

func TestShell_EOF(t *testing.T) {
	fb := newBrowser(t)
	cfg := testConfig(fb)
	cfg.Stdin = bytes.NewBufferString("toggle")

	require.Equal(t, ExitSuccess, run([]string{"shell"}, cfg))
	assert.Equal(t, 1, fb.CallCount("Runtime.evaluate"))
}

func TestShell_UnknownDirective(t *testing.T) {
	fb := newBrowser(t)
	cfg := testConfig(fb)
	cfg.Stdin = bytes.NewBufferString(".volume 11\n")

	require.Equal(t, ExitSuccess, run([]string{"shell"}, cfg))
	assert.Contains(t, stderr(cfg), "unknown directive: .volume")
}

func TestShellCompleter(t *testing.T) {
	c := shellCompleter()

	var names []string
	for _, child := range c.GetChildren() {
		names = append(names, strings.TrimSpace(string(child.GetName())))
	}
	assert.Contains(t, names, "toggle")
	assert.Contains(t, names, "shortcut")
	assert.Contains(t, names, ".quit")
}

package popup

import (
	"context"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tomyan/playtab/internal/dispatch"
	"github.com/tomyan/playtab/internal/router"
)

// Handler answers action requests.
type Handler interface {
	Handle(ctx context.Context, req router.Request) (*dispatch.Result, error)
}

type button struct {
	label  string
	action string
}

var buttons = []button{
	{label: "⏮  Prev", action: "prev"},
	{label: "⏯  Play/Pause", action: "toggle"},
	{label: "⏭  Next", action: "next"},
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1db954"))
	buttonStyle = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6c7086"))
	focusStyle  = buttonStyle.BorderForeground(lipgloss.Color("#1db954")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
)

// replyMsg carries a Handler reply back into the update loop.
type replyMsg struct {
	action string
	open   bool
	res    *dispatch.Result
	err    error
}

// Model is the popup's bubbletea model.
type Model struct {
	ctx      context.Context
	handler  Handler
	siteName string
	cursor   int
	status   string
}

// New returns a popup model. The status query runs on Init.
func New(ctx context.Context, h Handler, siteName string) Model {
	return Model{
		ctx:      ctx,
		handler:  h,
		siteName: siteName,
		cursor:   1,
		status:   "Status: checking...",
	}
}

// Status returns the current status line.
func (m Model) Status() string {
	return m.status
}

func (m Model) Init() tea.Cmd {
	return m.send("status", true)
}

func (m Model) send(action string, open bool) tea.Cmd {
	ctx, h := m.ctx, m.handler
	return func() tea.Msg {
		res, err := h.Handle(ctx, router.Request{Action: action})
		return replyMsg{action: action, open: open, res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case replyMsg:
		if msg.open {
			m.status = OpenStatus(msg.res, msg.err, m.siteName)
		} else {
			m.status = ActionStatus(msg.res, msg.err, m.siteName)
		}
		return m, nil
	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "right", "l":
		if m.cursor < len(buttons)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m, m.send(buttons[m.cursor].action, false)
	case " ":
		return m, m.send("toggle", false)
	case "n":
		return m, m.send("next", false)
	case "p":
		return m, m.send("prev", false)
	case "s":
		return m, m.send("status", true)
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("playtab · " + m.siteName))
	b.WriteString("\n\n")

	rendered := make([]string, len(buttons))
	for i, btn := range buttons {
		style := buttonStyle
		if i == m.cursor {
			style = focusStyle
		}
		rendered[i] = style.Render(btn.label)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n\n")

	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("←/→ select · enter press · space play/pause · n next · p prev · s status · q quit"))
	b.WriteString("\n")
	return b.String()
}

// Run shows the popup until the user quits or ctx ends.
func Run(ctx context.Context, h Handler, siteName string, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(New(ctx, h, siteName),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	_, err := p.Run()
	return err
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/modhost/host"
	"github.com/wippyai/modhost/lifecycle"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(12)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type keyMap struct {
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func newKeyMap(reloadKey string) keyMap {
	return keyMap{
		Reload: key.NewBinding(
			key.WithKeys(reloadKey, "f5"),
			key.WithHelp(reloadKey, "reload module"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reload, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Reload}, {k.Help, k.Quit}}
}

type frameMsg time.Time

// interactiveModel drives the loop from bubbletea's update goroutine: one
// frame per frameMsg, with a pending reload key press as the trigger.
type interactiveModel struct {
	ctx      context.Context
	loop     *host.Loop
	backend  string
	interval time.Duration
	keys     keyMap
	help     help.Model

	last     time.Time
	pending  bool
	frameErr error
	quitting bool
}

func newInteractiveModel(ctx context.Context, loop *host.Loop, backend string, fps int, reloadKey string) *interactiveModel {
	return &interactiveModel{
		ctx:      ctx,
		loop:     loop,
		backend:  backend,
		interval: time.Second / time.Duration(fps),
		keys:     newKeyMap(reloadKey),
		help:     help.New(),
	}
}

func (m *interactiveModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *interactiveModel) Init() tea.Cmd {
	m.last = time.Now()
	return m.tick()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, m.quit()
		case key.Matches(msg, m.keys.Reload):
			m.pending = true
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case frameMsg:
		if m.quitting {
			return m, nil
		}
		now := time.Time(msg)
		dt := now.Sub(m.last).Seconds()
		m.last = now
		if dt < 0 {
			dt = 0
		}

		m.frameErr = m.loop.Frame(m.ctx, dt, m.pending)
		m.pending = false
		if m.loop.Stopped() {
			return m, m.quit()
		}
		if m.ctx.Err() != nil {
			return m, m.quit()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *interactiveModel) quit() tea.Cmd {
	m.quitting = true
	if err := m.loop.Stop(context.WithoutCancel(m.ctx)); err != nil {
		m.frameErr = err
	}
	return tea.Quit
}

func (m *interactiveModel) View() string {
	st := m.loop.Status()
	var b strings.Builder

	b.WriteString(titleStyle.Render("modhost"))
	b.WriteString(" ")
	b.WriteString(st.LibraryPath)
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("module", st.Name)
	row("backend", m.backend)
	row("state", stateView(st.State))
	row("generation", fmt.Sprintf("%d", st.Generation))
	row("frames", fmt.Sprintf("%d", st.Frames))
	if st.FailStreak > 0 {
		row("failing", errorStyle.Render(fmt.Sprintf("%d frames", st.FailStreak)))
	}

	if err := m.shownError(st); err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m *interactiveModel) shownError(st host.Status) error {
	if m.frameErr != nil {
		return m.frameErr
	}
	if st.State != lifecycle.StateRunning {
		return st.LastError
	}
	return nil
}

func stateView(s lifecycle.State) string {
	if s == lifecycle.StateRunning {
		return runningStyle.Render(s.String())
	}
	return idleStyle.Render(s.String())
}

func runInteractive(ctx context.Context, rt *session) error {
	model := newInteractiveModel(ctx, rt.loop, rt.backend.Name(), rt.cfg.Host.FPS, rt.cfg.Host.ReloadKey)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		// interrupted by a signal: the deferred close shuts the module down
		return nil
	}
	return err
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/triggerfish/internal/stress"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	ctx      context.Context
	cancel   context.CancelFunc
	send     func(tea.Msg)
	spinner  spinner.Model
	progress progress.Model
	cfg      stress.Config
	current  stress.Progress
	stats    stress.Stats
	done     bool
}

type progressMsg stress.Progress

type doneMsg struct {
	err   error
	stats stress.Stats
}

func newInteractiveModel(ctx context.Context, cfg stress.Config) *interactiveModel {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return &interactiveModel{
		ctx:      ctx,
		cancel:   cancel,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		cfg:      cfg,
		current:  stress.Progress{Total: cfg.Total()},
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runStress)
}

func (m *interactiveModel) runStress() tea.Msg {
	obs := stress.ObserverFunc(func(p stress.Progress) {
		if m.send != nil {
			m.send(progressMsg(p))
		}
	})
	stats, err := stress.Run(m.ctx, m.cfg, obs)
	return doneMsg{stats: stats, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		}

	case progressMsg:
		m.current = stress.Progress(msg)

	case doneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		m.current.Done = m.current.Total
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Reference Stress"))
	b.WriteString("\n\n")
	b.WriteString(m.field("cells", m.cfg.Cells))
	b.WriteString(m.field("owners", m.cfg.Owners))
	b.WriteString(m.field("watchers", m.cfg.Watchers))
	b.WriteString(m.field("iterations", m.cfg.Iterations))
	if m.cfg.WeakLimit > 0 {
		b.WriteString(m.field("weak limit", m.cfg.WeakLimit))
	}
	b.WriteString("\n")

	if !m.done {
		b.WriteString(m.spinner.View())
		b.WriteString(fmt.Sprintf(" %d/%d operations\n", m.current.Done, m.current.Total))
	}
	b.WriteString(m.progress.ViewAs(m.current.Fraction()))
	b.WriteString("\n\n")

	if m.done {
		s := m.stats
		b.WriteString(m.field("retains", s.Retains))
		b.WriteString(m.field("releases", s.Releases))
		b.WriteString(m.field("upgrades", s.Upgrades))
		b.WriteString(m.field("failed upgrades", s.FailedUpgrades))
		b.WriteString(m.field("copies", fmt.Sprintf("%d (%d dead)", s.Copies, s.DeadCopies)))
		b.WriteString(m.field("destroyed", fmt.Sprintf("%d/%d", s.Destroyed, s.Cells)))
		b.WriteString(m.field("violations", s.Violations))
		b.WriteString(m.field("duration", s.Duration))
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render("every cell destroyed exactly once"))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("q quit"))
	return b.String()
}

func (m *interactiveModel) field(label string, value any) string {
	return labelStyle.Render(fmt.Sprintf("%-16s", label)) + valueStyle.Render(fmt.Sprint(value)) + "\n"
}

func runInteractive(ctx context.Context, cfg stress.Config) error {
	m := newInteractiveModel(ctx, cfg)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.send = p.Send
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(*interactiveModel); ok && fm.done {
		return fm.err
	}
	return nil
}

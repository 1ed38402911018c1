package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/hyprinterview/internal/bus"
	"github.com/leonardotrapani/hyprinterview/internal/daemon"
)

// SendFunc delivers one command line to the daemon and returns its reply.
type SendFunc func(line string) (string, error)

type statusMsg struct {
	status daemon.Status
	err    error
}

type replyMsg struct {
	line  string
	reply string
	err   error
}

type tickMsg time.Time

type watchModel struct {
	send     SendFunc
	interval time.Duration

	status daemon.Status
	err    error
	notice string
	width  int
}

// Watch runs the interactive interview view until the user quits.
func Watch(send SendFunc, interval time.Duration) error {
	_, err := tea.NewProgram(newWatchModel(send, interval), tea.WithAltScreen()).Run()
	return err
}

func newWatchModel(send SendFunc, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return watchModel{send: send, interval: interval}
}

func (m watchModel) Init() tea.Cmd {
	return m.poll()
}

func (m watchModel) poll() tea.Cmd {
	send := m.send
	return func() tea.Msg {
		reply, err := send("status")
		if err != nil {
			return statusMsg{err: err}
		}
		st, err := daemon.ParseStatus(reply)
		return statusMsg{status: st, err: err}
	}
}

func (m watchModel) command(line string) tea.Cmd {
	send := m.send
	return func() tea.Msg {
		reply, err := send(line)
		return replyMsg{line: line, reply: reply, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if line := m.keyCommand(msg.String()); line != "" {
			return m, m.command(line)
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		return m, m.tick()

	case tickMsg:
		return m, m.poll()

	case replyMsg:
		m.notice = replyNotice(msg)
		return m, m.poll()
	}

	return m, nil
}

// keyCommand maps a key to a daemon command for the current snapshot.
func (m watchModel) keyCommand(key string) string {
	s := m.status.Snapshot
	if !m.status.Loaded || s == nil {
		return ""
	}

	switch key {
	case " ", "enter":
		if s.Recording() || s.Starting {
			return "stop"
		}
		return "start"
	case "r":
		return "retry"
	case "n":
		return "next"
	case "left", "h":
		if s.Index > 0 {
			return fmt.Sprintf("goto %d", s.Index)
		}
	case "right", "l":
		if s.Index+1 < s.Total {
			return fmt.Sprintf("goto %d", s.Index+2)
		}
	}
	return ""
}

func replyNotice(msg replyMsg) string {
	if msg.err != nil {
		return StyleError.Render(msg.err.Error())
	}
	kind, payload := bus.ParseReply(msg.reply)
	if kind == "ERR" {
		return StyleError.Render(payload)
	}
	return StyleMuted.Render(strings.TrimSpace(msg.line + ": " + payload))
}

func (m watchModel) View() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(StyleError.Render("daemon unreachable: " + m.err.Error()))
	} else {
		b.WriteString(RenderStatus(m.status, m.width))
	}
	b.WriteString("\n\n")
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(StyleSubtle.Render("space record/stop • r retry • ←/→ question • n next/submit • q quit"))
	b.WriteString("\n")
	return b.String()
}

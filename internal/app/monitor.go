package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emrekiziltepe/binge-log/internal/keys"
	appsync "github.com/emrekiziltepe/binge-log/internal/sync"
	"github.com/emrekiziltepe/binge-log/internal/theme"
)

// queueLenMsg carries the number of pending offline operations.
type queueLenMsg struct {
	n int
}

// Monitor is a Bubble Tea model that shows the sync state and lets the
// user trigger passes.
type Monitor struct {
	sync   *appsync.Orchestrator
	queue  *appsync.Queue
	theme  theme.Theme
	keys   *keys.KeyMap
	help   help.Model
	status appsync.Status
	queued int
	width  int
}

// NewMonitor creates a monitor over the app's orchestrator.
func NewMonitor(a *App, th theme.Theme) Monitor {
	return Monitor{
		sync:   a.Sync,
		queue:  a.Queue,
		theme:  th,
		keys:   keys.DefaultKeyMap(),
		help:   help.New(),
		status: a.Sync.Status(),
	}
}

// Init starts listening for status changes and counts the queue.
func (m Monitor) Init() tea.Cmd {
	return tea.Batch(m.sync.WaitForStatus(), m.countQueue())
}

// Update handles status snapshots and key presses.
func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case appsync.StatusMsg:
		m.status = msg.Status
		return m, tea.Batch(m.sync.WaitForStatus(), m.countQueue())

	case queueLenMsg:
		m.queued = msg.n
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Sync):
			return m, m.sync.SyncCmd()
		case key.Matches(msg, m.keys.Online):
			return m, m.setOnline(true)
		case key.Matches(msg, m.keys.Offline):
			return m, m.setOnline(false)
		}
	}
	return m, nil
}

func (m Monitor) setOnline(online bool) tea.Cmd {
	return func() tea.Msg {
		m.sync.SetOnline(context.Background(), online)
		return nil
	}
}

func (m Monitor) countQueue() tea.Cmd {
	return func() tea.Msg {
		pending, err := m.queue.Pending(context.Background())
		if err != nil {
			return queueLenMsg{n: m.queue.Len()}
		}
		return queueLenMsg{n: len(pending)}
	}
}

// View renders the status panel.
func (m Monitor) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Header().Render("bingelog sync"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Panel().Render(StatusLines(m.theme, m.status, m.queued)))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// StatusLines formats a status snapshot for display.
func StatusLines(th theme.Theme, s appsync.Status, queued int) string {
	conn := th.Status(false).Render("offline")
	if s.IsOnline {
		conn = th.Status(true).Render("online")
	}
	state := "idle"
	if s.SyncInProgress {
		state = "syncing"
	}
	last := "never"
	if !s.LastSync.IsZero() {
		last = s.LastSync.Format(time.DateTime)
	}

	lines := []string{
		"connection: " + conn,
		"state:      " + state,
		"last sync:  " + last,
		fmt.Sprintf("queued ops: %d", queued),
	}
	if s.LastError != nil {
		lines = append(lines, th.Error().Render("error: "+s.LastError.Error()))
	}
	return strings.Join(lines, "\n")
}

package sync

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusMsg is a tea.Msg carrying an orchestrator snapshot.
type StatusMsg struct {
	Status
}

// WaitForStatus returns a tea.Cmd that waits for the next snapshot. Call it
// again after handling each StatusMsg to keep listening.
func (o *Orchestrator) WaitForStatus() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-o.statusCh:
			return StatusMsg{Status: s}
		case <-o.stopCh:
			return nil
		}
	}
}

// SyncCmd returns a tea.Cmd that runs a pass and reports the resulting
// snapshot.
func (o *Orchestrator) SyncCmd() tea.Cmd {
	return func() tea.Msg {
		o.SyncNow(context.Background())
		return StatusMsg{Status: o.Status()}
	}
}

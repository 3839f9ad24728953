// Package tui implements the interactive browser: a bubbletea program with
// a query line, the result table, a detail tree and an action menu. All
// model mutation happens in Update; background work arrives as messages.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chronicle-labs/chronicle/internal/model"
)

// streamMsg wraps a result stream event.
type streamMsg struct{ event model.StreamEvent }

// execMsg wraps an executor lifecycle event.
type execMsg struct{ event any }

// typesMsg delivers the populated type filter list.
type typesMsg struct{ entries []model.TypeEntry }

// confirmMsg asks the user to approve a pending action.
type confirmMsg struct{ req confirmRequest }

// noticeMsg is a user-facing notification for the status bar.
type noticeMsg struct {
	level levelKind
	text  string
}

// deletedMsg reports objects deleted through an action.
type deletedMsg struct{ ids []string }

// refreshMsg asks for the current query to be re-run, fed by a store
// watcher.
type refreshMsg struct{}

type levelKind int

const (
	levelInfo levelKind = iota
	levelWarn
	levelError
)

// waitStream forwards the next stream event as a message. Each delivery
// re-arms itself from Update.
func waitStream(ch <-chan model.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return streamMsg{event: e}
	}
}

// waitExec forwards the next executor event.
func waitExec(ch <-chan any) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return execMsg{event: e}
	}
}

// waitConfirm forwards the next confirmation request.
func waitConfirm(ch <-chan confirmRequest) tea.Cmd {
	return func() tea.Msg {
		req, ok := <-ch
		if !ok {
			return nil
		}
		return confirmMsg{req: req}
	}
}

// waitNotice forwards the next notification.
func waitNotice(ch <-chan noticeMsg) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return n
	}
}

// waitDeleted forwards the next deletion report.
func waitDeleted(ch <-chan []string) tea.Cmd {
	return func() tea.Msg {
		ids, ok := <-ch
		if !ok {
			return nil
		}
		return deletedMsg{ids: ids}
	}
}

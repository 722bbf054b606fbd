package ui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/conductor-dashboard/pkg/watcher"
)

// BatchMsg carries one debounced batch from the watcher.
type BatchMsg struct {
	Batch watcher.Batch
}

// DegradedMsg reports that the watcher lost its OS notifications and fell
// back to polling.
type DegradedMsg struct {
	Err error
}

// TickMsg is the periodic clock tick.
type TickMsg time.Time

// processNextMsg asks the model to parse the next queued track.
type processNextMsg struct{}

// WaitForBatchCmd blocks on the watcher's batch channel. The model re-arms
// it after every batch. It returns nil once the channel is closed.
func WaitForBatchCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		b, ok := <-w.Batches()
		if !ok {
			return nil
		}
		return BatchMsg{Batch: b}
	}
}

// WaitForErrorCmd blocks on the watcher's error channel.
func WaitForErrorCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-w.Errors()
		if !ok {
			return nil
		}
		var de *watcher.DegradedError
		if !errors.As(err, &de) {
			de = &watcher.DegradedError{Cause: err, Time: time.Now()}
		}
		return DegradedMsg{Err: de}
	}
}

// TickCmd schedules the next TickMsg.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func processNextCmd() tea.Msg { return processNextMsg{} }

package tui

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"quill/internal/dictation"
	"quill/internal/narration"
	"quill/internal/watch"
)

// Dictation is the TUI-facing subset of dictation.Session.
type Dictation interface {
	Toggle(ctx context.Context) (dictation.State, error)
	State() dictation.State
	Stop()
	Fragments() <-chan string
}

// Narration is the TUI-facing subset of narration.Session.
type Narration interface {
	Toggle(ctx context.Context, content string) (narration.State, error)
	State() narration.State
	Stop()
	Events() <-chan narration.Finished
}

// Watcher is the TUI-facing subset of watch.Watcher.
type Watcher interface {
	Watch(path string) error
	Saving(fn func() error) error
	Events() <-chan watch.Change
}

type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard uses the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Worker output reaches Update as messages. Each wait command blocks on one
// channel receive and is re-armed after its message is handled.

type fragmentMsg struct{ text string }

type narrationMsg struct{ narration.Finished }

type fileChangedMsg struct{ watch.Change }

func waitFragment(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return nil
		}
		return fragmentMsg{text: text}
	}
}

func waitNarration(ch <-chan narration.Finished) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return narrationMsg{f}
	}
}

func waitChange(ch <-chan watch.Change) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return fileChangedMsg{c}
	}
}

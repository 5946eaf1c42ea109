// Package keymap defines keybindings for the editor.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all editor commands that are bound to keys. Plain typing
// and cursor movement are handled directly by the model.
type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Cancel key.Binding

	New    key.Binding
	Open   key.Binding
	Save   key.Binding
	SaveAs key.Binding

	Undo      key.Binding
	Redo      key.Binding
	Copy      key.Binding
	Cut       key.Binding
	Paste     key.Binding
	Select    key.Binding
	SelectAll key.Binding

	Find     key.Binding
	FindNext key.Binding
	FindPrev key.Binding
	Replace  key.Binding
	GotoLine key.Binding

	InsertTime key.Binding
	Dictate    key.Binding
	ReadAloud  key.Binding

	ToggleTheme key.Binding
	Background  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear highlight/selection"),
		),
		New: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new"),
		),
		Open: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "open"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		SaveAs: key.NewBinding(
			key.WithKeys("f12"),
			key.WithHelp("f12", "save as"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "redo"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "copy selection/line"),
		),
		Cut: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "cut selection/line"),
		),
		Paste: key.NewBinding(
			key.WithKeys("ctrl+v"),
			key.WithHelp("ctrl+v", "paste"),
		),
		Select: key.NewBinding(
			key.WithKeys("shift+left", "shift+right", "shift+up", "shift+down", "shift+home", "shift+end"),
			key.WithHelp("shift+arrows", "select"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("ctrl+a", "select all"),
		),
		Find: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "find"),
		),
		FindNext: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("f3", "next match"),
		),
		// xterm reports shift+F3 as F15
		FindPrev: key.NewBinding(
			key.WithKeys("shift+f3", "f15"),
			key.WithHelp("shift+f3", "previous match"),
		),
		Replace: key.NewBinding(
			key.WithKeys("ctrl+h", "ctrl+r"),
			key.WithHelp("ctrl+h", "replace all"),
		),
		GotoLine: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "go to line"),
		),
		InsertTime: key.NewBinding(
			key.WithKeys("f5"),
			key.WithHelp("f5", "time/date"),
		),
		Dictate: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "dictation on/off"),
		),
		ReadAloud: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "read aloud on/off"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("f6"),
			key.WithHelp("f6", "dark/light"),
		),
		Background: key.NewBinding(
			key.WithKeys("f7"),
			key.WithHelp("f7", "background colour"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Save, k.Find, k.Dictate, k.ReadAloud, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.New, k.Open, k.Save, k.SaveAs, k.Quit},
		{k.Undo, k.Redo, k.Select, k.SelectAll, k.Copy, k.Cut, k.Paste, k.InsertTime},
		{k.Find, k.FindNext, k.FindPrev, k.Replace, k.GotoLine, k.Cancel},
		{k.Dictate, k.ReadAloud, k.ToggleTheme, k.Background, k.Help},
	}
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Capture    key.Binding
	Undo       key.Binding
	Rotate     key.Binding
	CopyAll    key.Binding
	CopyMaster key.Binding
	New        key.Binding
	Pause      key.Binding
	Resume     key.Binding
	Close      key.Binding
	Discard    key.Binding
	Confirm    key.Binding
	Up         key.Binding
	Down       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Capture:    key.NewBinding(key.WithKeys("c", "f9"), key.WithHelp("c", "capture")),
		Undo:       key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Rotate:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new part")),
		CopyAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "copy all")),
		CopyMaster: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "copy file")),
		New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new session")),
		Pause:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Resume:     key.NewBinding(key.WithKeys("enter", "s"), key.WithHelp("enter", "resume")),
		Close:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "save & close")),
		Discard:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard")),
		Confirm:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "save & quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Capture, k.Undo, k.New, k.Pause, k.Resume, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Capture, k.Undo, k.Rotate},
		{k.CopyAll, k.CopyMaster},
		{k.New, k.Pause, k.Resume, k.Close, k.Discard},
		{k.Up, k.Down, k.Help, k.Quit},
	}
}

// Package tui is the Bubble Tea front end for a session registry: one row per
// open session, hotkeys routed to the active one, and a log of engine events.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/himansukumarhkr/Click/internal/session"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	kindCaptureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	kindUndoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindRenameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	kindCopyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)

	confirmStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

const logLines = 8

// EventMsg carries an engine event into the program.
type EventMsg session.Event

// errMsg reports a failed UI action, such as a new session that could not
// be created.
type errMsg struct{ err error }

type addedMsg struct{ id string }

type closedMsg struct {
	id      string
	discard bool
}

// Bridge forwards engine events to a running program. Engines can be built
// with Bridge.Observe before the program exists; events sent before Attach
// are dropped and the table catches up on the next refresh.
type Bridge struct {
	p atomic.Pointer[tea.Program]
}

// Attach starts forwarding to p.
func (b *Bridge) Attach(p *tea.Program) { b.p.Store(p) }

// Observe is a session.Observer.
func (b *Bridge) Observe(ev session.Event) {
	if p := b.p.Load(); p != nil {
		p.Send(EventMsg(ev))
	}
}

type logEntry struct {
	at    time.Time
	label string
	text  string
}

// Model is the root Bubble Tea model.
type Model struct {
	reg        *session.Registry
	newSession func() (*session.Engine, error)
	keys       keyMap
	help       help.Model
	table      table.Model
	log        []logEntry
	warning    string
	confirm    string // id awaiting discard confirmation
	width      int
	height     int
	now        func() time.Time
}

// New returns a model over reg. newSession builds an engine for the "new
// session" key; the model adds it to reg.
func New(reg *session.Registry, newSession func() (*session.Engine, error)) Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(6),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Bold(true)
	t.SetStyles(s)

	m := Model{
		reg:        reg,
		newSession: newSession,
		keys:       defaultKeys(),
		help:       help.New(),
		table:      t,
		now:        time.Now,
	}
	m.refresh()
	return m
}

func columns(width int) []table.Column {
	name := width - 2 - 4 - 8 - 10 - 12 - 8 - 12
	if name < 16 {
		name = 16
	}
	return []table.Column{
		{Title: "#", Width: 2},
		{Title: "Artifact", Width: name},
		{Title: "Mode", Width: 6},
		{Title: "Captures", Width: 8},
		{Title: "Size", Width: 10},
		{Title: "Status", Width: 8},
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m.record(session.Event(msg))
		m.refresh()
		return m, nil

	case errMsg:
		m.warning = msg.err.Error()
		return m, nil

	case addedMsg:
		m.appendLog("new", filepath.Base(msg.id)+": session started")
		m.refresh()
		return m, nil

	case closedMsg:
		verb := "saved"
		if msg.discard {
			verb = "discarded"
		}
		m.appendLog("close", filepath.Base(msg.id)+": "+verb)
		m.refresh()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		h := msg.Height - logLines - 8
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != "" {
		id := m.confirm
		m.confirm = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.closeCmd(id, true)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Capture):
		return m, m.route(m.reg.Capture)
	case key.Matches(msg, m.keys.Undo):
		return m, m.route(m.reg.Undo)
	case key.Matches(msg, m.keys.Rotate):
		return m, m.route(m.reg.Rotate)
	case key.Matches(msg, m.keys.CopyAll):
		return m, m.route(m.reg.CopyAll)
	case key.Matches(msg, m.keys.CopyMaster):
		return m, m.route(m.reg.CopyMasterFile)
	case key.Matches(msg, m.keys.New):
		return m, m.newCmd()
	case key.Matches(msg, m.keys.Pause):
		if e := m.selected(); e != nil {
			m.setErr(m.reg.Pause(e.ID()))
			m.refresh()
		}
		return m, nil
	case key.Matches(msg, m.keys.Resume):
		if e := m.selected(); e != nil {
			m.setErr(m.reg.Resume(e.ID()))
			m.refresh()
		}
		return m, nil
	case key.Matches(msg, m.keys.Close):
		if e := m.selected(); e != nil {
			return m, m.closeCmd(e.ID(), false)
		}
		return m, nil
	case key.Matches(msg, m.keys.Discard):
		if e := m.selected(); e != nil {
			m.confirm = e.ID()
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// route runs fn off the UI goroutine; a capture may wait on a screenshot
// command.
func (m Model) route(fn func() bool) tea.Cmd {
	return func() tea.Msg {
		if !fn() {
			return errMsg{fmt.Errorf("no active session: press n to start one or enter to resume")}
		}
		return nil
	}
}

func (m Model) newCmd() tea.Cmd {
	if m.newSession == nil {
		return nil
	}
	return func() tea.Msg {
		e, err := m.newSession()
		if err != nil {
			return errMsg{fmt.Errorf("new session: %w", err)}
		}
		m.reg.Add(e)
		return addedMsg{id: e.ID()}
	}
}

func (m Model) closeCmd(id string, discard bool) tea.Cmd {
	return func() tea.Msg {
		if err := m.reg.Close(id, discard); err != nil {
			return errMsg{err}
		}
		return closedMsg{id: id, discard: discard}
	}
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.warning = err.Error()
	}
}

func (m Model) selected() *session.Engine {
	e, err := m.reg.At(m.table.Cursor())
	if err != nil {
		return nil
	}
	return e
}

// refresh rebuilds the table rows from the registry.
func (m *Model) refresh() {
	engines := m.reg.List()
	active := m.reg.Active()
	rows := make([]table.Row, 0, len(engines))
	for i, e := range engines {
		count := fmt.Sprint(e.Count())
		if pending := e.Requested() - e.Count(); pending > 0 {
			count += fmt.Sprintf(" +%d", pending)
		}
		status := e.Status().String()
		if e == active {
			status = "● " + status
		}
		rows = append(rows, table.Row{
			fmt.Sprint(i + 1),
			filepath.Base(e.ID()),
			e.Mode().String(),
			count,
			e.Size(),
			status,
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// record appends ev to the activity log. Notify events are left out; the
// update that follows says the same thing once the capture is saved.
func (m *Model) record(ev session.Event) {
	name := filepath.Base(ev.ID)
	var text string
	switch ev.Kind {
	case session.EventNotify:
		return
	case session.EventUpdateSession:
		text = fmt.Sprintf("%s: capture %d saved (%s)", name, ev.Count, ev.Size)
		if ev.Size != session.LockedSize {
			m.warning = ""
		}
	case session.EventUndo:
		text = fmt.Sprintf("%s: undo, %d left (%s)", name, ev.Count, ev.Size)
	case session.EventUpdateFilename:
		text = fmt.Sprintf("%s: continuing in %s", filepath.Base(ev.OldID), filepath.Base(ev.NewID))
	case session.EventWarning:
		m.warning = ev.Title + ": " + ev.Message
		text = fmt.Sprintf("%s: %s", name, m.warning)
	case session.EventCopyResult:
		switch {
		case ev.OK:
			text = fmt.Sprintf("%s: copied %d item(s) to the clipboard", name, ev.Count)
		default:
			text = fmt.Sprintf("%s: nothing copied", name)
		}
	}
	m.appendLog(ev.Kind.String(), text)
}

func (m *Model) appendLog(label, text string) {
	m.log = append(m.log, logEntry{at: m.now(), label: label, text: text})
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}

	title := titleStyle.Width(width).Render(fmt.Sprintf("  click  %d session(s)", m.reg.Len()))

	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	if m.reg.Len() == 0 {
		sb.WriteString("  No sessions. Press n to start one.\n")
	} else {
		sb.WriteString(m.table.View() + "\n")
	}

	sb.WriteString("\n" + sectionHeader.Render("  Activity") + "\n")
	if len(m.log) == 0 {
		sb.WriteString(statusBarStyle.Render("nothing yet") + "\n")
	}
	for _, l := range m.log {
		sb.WriteString("  " + timeStyle.Render(l.at.Format("15:04:05")) + "  " + labelStyle(l.label).Render(fmt.Sprintf("%-7s", strings.ToUpper(l.label))) + "  " + l.text + "\n")
	}
	sb.WriteString("\n")

	if m.confirm != "" {
		sb.WriteString(confirmStyle.Render(fmt.Sprintf("  Delete %s and every part? y to confirm", filepath.Base(m.confirm))) + "\n")
	}
	if m.warning != "" {
		sb.WriteString(warningStyle.Render(m.warning) + "\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func labelStyle(label string) lipgloss.Style {
	switch label {
	case "undo", "close":
		return kindUndoStyle
	case "rename", "new":
		return kindRenameStyle
	case "copy":
		return kindCopyStyle
	case "warning":
		return warningStyle
	}
	return kindCaptureStyle
}

// Run starts the program full-screen and blocks until the user quits. The
// caller owns reg and closes its sessions afterwards.
func Run(reg *session.Registry, bridge *Bridge, newSession func() (*session.Engine, error)) error {
	p := tea.NewProgram(New(reg, newSession), tea.WithAltScreen())
	if bridge != nil {
		bridge.Attach(p)
	}
	_, err := p.Run()
	return err
}

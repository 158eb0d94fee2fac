package tui

import (
	"errors"
	"image"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/himansukumarhkr/Click/internal/capture"
	"github.com/himansukumarhkr/Click/internal/config"
	"github.com/himansukumarhkr/Click/internal/session"
)

func newEngine(t *testing.T) *session.Engine {
	t.Helper()
	cfg := config.Config{SaveDir: t.TempDir(), Filename: "evidence", AppendNum: true}
	e, err := session.New(cfg, session.Deps{
		Grabber: capture.GrabberFunc(func() (image.Image, error) {
			return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
		}),
		Logger:   log.New(io.Discard, "", 0),
		TempRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { e.Cleanup(false) })
	return e
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(keyMsg(k))
	return next.(Model), cmd
}

// run executes cmd and feeds its message back, the way the program would.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if msg == nil {
		return m
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestQuitKey(t *testing.T) {
	m := New(session.NewRegistry(), nil)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", cmd())
	}
}

func TestCaptureRoutesToActive(t *testing.T) {
	reg := session.NewRegistry()
	e := newEngine(t)
	reg.Add(e)
	m := New(reg, nil)

	m, cmd := press(t, m, "c")
	m = run(t, m, cmd)
	e.Stop()
	if !e.Wait(5 * time.Second) {
		t.Fatal("engine did not drain")
	}
	if e.Count() != 1 {
		t.Errorf("expected 1 capture, got %d", e.Count())
	}
	if m.warning != "" {
		t.Errorf("unexpected warning %q", m.warning)
	}
}

func TestCaptureWithoutActiveSessionWarns(t *testing.T) {
	m := New(session.NewRegistry(), nil)
	m, cmd := press(t, m, "c")
	m = run(t, m, cmd)
	if !strings.Contains(m.warning, "no active session") {
		t.Errorf("expected a no-session warning, got %q", m.warning)
	}
}

func TestNewSessionKey(t *testing.T) {
	reg := session.NewRegistry()
	first := newEngine(t)
	reg.Add(first)
	second := newEngine(t)
	m := New(reg, func() (*session.Engine, error) { return second, nil })

	m, cmd := press(t, m, "n")
	m = run(t, m, cmd)

	if reg.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", reg.Len())
	}
	if reg.Active() != second {
		t.Error("new session should be active")
	}
	if first.Status() != session.Paused {
		t.Error("previous session should be paused")
	}
	if len(m.table.Rows()) != 2 {
		t.Errorf("expected 2 table rows, got %d", len(m.table.Rows()))
	}
}

func TestNewSessionError(t *testing.T) {
	m := New(session.NewRegistry(), func() (*session.Engine, error) { return nil, errors.New("disk full") })
	m, cmd := press(t, m, "n")
	m = run(t, m, cmd)
	if !strings.Contains(m.warning, "disk full") {
		t.Errorf("expected error in warning, got %q", m.warning)
	}
}

func TestPauseAndResumeSelected(t *testing.T) {
	reg := session.NewRegistry()
	e := newEngine(t)
	reg.Add(e)
	m := New(reg, nil)

	m, _ = press(t, m, "p")
	if reg.Active() != nil || e.Status() != session.Paused {
		t.Fatal("p should pause the selected session")
	}
	if !strings.Contains(m.table.Rows()[0][5], "paused") {
		t.Errorf("row not refreshed: %v", m.table.Rows()[0])
	}
	press(t, m, "enter")
	if reg.Active() != e {
		t.Error("enter should resume the selected session")
	}
}

func TestDiscardNeedsConfirmation(t *testing.T) {
	reg := session.NewRegistry()
	e := newEngine(t)
	reg.Add(e)
	m := New(reg, nil)

	m, _ = press(t, m, "d")
	if m.confirm == "" {
		t.Fatal("expected a pending confirmation")
	}
	m, cmd := press(t, m, "x")
	if cmd != nil || m.confirm != "" || reg.Len() != 1 {
		t.Fatal("any key but y should cancel the discard")
	}

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "y")
	m = run(t, m, cmd)
	if reg.Len() != 0 {
		t.Errorf("expected session to be removed, %d left", reg.Len())
	}
	if len(m.log) == 0 || !strings.Contains(m.log[len(m.log)-1].text, "discarded") {
		t.Errorf("expected a discard log line, got %+v", m.log)
	}
}

func TestEventsUpdateLogAndWarning(t *testing.T) {
	m := New(session.NewRegistry(), nil)
	next, _ := m.Update(EventMsg{Kind: session.EventWarning, ID: "/e/a.docx", Title: "File Locked", Message: "Close Word to save"})
	m = next.(Model)
	if m.warning != "File Locked: Close Word to save" {
		t.Errorf("warning: got %q", m.warning)
	}

	next, _ = m.Update(EventMsg{Kind: session.EventUpdateSession, ID: "/e/a.docx", Count: 2, Size: "10.00 KB"})
	m = next.(Model)
	if m.warning != "" {
		t.Error("a successful save should clear the lock warning")
	}

	next, _ = m.Update(EventMsg{Kind: session.EventNotify, ID: "/e/a.docx", Count: 3})
	m = next.(Model)
	if len(m.log) != 2 {
		t.Errorf("notify events should not be logged, got %d entries", len(m.log))
	}

	for i := 0; i < 20; i++ {
		next, _ = m.Update(EventMsg{Kind: session.EventUndo, ID: "/e/a.docx"})
		m = next.(Model)
	}
	if len(m.log) != logLines {
		t.Errorf("log should be capped at %d, got %d", logLines, len(m.log))
	}
	if !strings.Contains(m.View(), "Activity") {
		t.Error("view should render the activity section")
	}
}

func TestBridgeDropsEventsBeforeAttach(t *testing.T) {
	var b Bridge
	b.Observe(session.Event{Kind: session.EventNotify})
}

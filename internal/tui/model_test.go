package tui

import (
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/wesm/livesearch/internal/search"
	"github.com/wesm/livesearch/internal/search/searchtest"
)

// ansiStart is the escape sequence prefix found in styled terminal output.
const ansiStart = "\x1b["

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func newTestModel(t *testing.T) (Model, *searchtest.FakeService) {
	t.Helper()
	svc := &searchtest.FakeService{}
	m := New(svc, Options{
		Source: "http://127.0.0.1:8888",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(m.ctrl.Close)
	m = sendMsg(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, svc
}

func sendMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = sendMsg(t, m, keyRunes(string(r)))
	}
	return m
}

// settle delivers the renderMsg the waitForRender command would produce.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	return sendMsg(t, m, renderMsg{})
}

func movies() []search.Item {
	return []search.Item{
		{ID: "m.0bth54", Fields: []search.Field{{Name: "title", Value: "Batman"}, {Name: "year", Value: "1989"}}},
		{ID: "m.0bk1p", Fields: []search.Field{{Name: "title", Value: "Batman Returns"}, {Name: "year", Value: "1992"}}},
		{ID: "m.0bk2x", Fields: []search.Field{{Name: "title", Value: "Batman Forever"}, {Name: "year", Value: "1995"}}},
	}
}

func TestTypingShowsLoadingThenResults(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "bat")
	if got := svc.Queries(); len(got) != 3 || got[2] != "bat" {
		t.Fatalf("queries = %v, want [b ba bat]", got)
	}
	if m.view.kind != search.StateLoading {
		t.Fatalf("view kind = %v, want Loading", m.view.kind)
	}
	if !strings.Contains(stripANSI(m.View()), "Searching...") {
		t.Error("loading view missing 'Searching...'")
	}

	if !svc.Last().Resolve(movies()) {
		t.Fatal("Resolve() did not run the callback")
	}
	m = settle(t, m)

	if m.State().Kind != search.StateResults {
		t.Errorf("controller state = %v, want Results", m.State().Kind)
	}
	view := stripANSI(m.View())
	for _, want := range []string{"title", "year", "Batman Returns", "1992", "3 results"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestStaleResultsAreNotShown(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "ba")
	first := svc.Requests()[0]
	if !first.Cancelled() {
		t.Error("first request should be cancelled by the second keystroke")
	}
	if first.Resolve(movies()) {
		t.Error("cancelled request should not settle")
	}
	m = settle(t, m)
	if m.view.kind != search.StateLoading {
		t.Errorf("view kind = %v, want Loading", m.view.kind)
	}
}

func TestNoResults(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "zzz")
	svc.Last().Resolve(nil)
	m = settle(t, m)

	view := stripANSI(m.View())
	if !strings.Contains(view, "No results") {
		t.Errorf("view missing 'No results':\n%s", view)
	}
	if strings.Contains(view, "Search failed") {
		t.Error("no-hits view should not show an error")
	}
}

func TestFailedRequestShowsError(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "bat")
	svc.Last().Fail(search.NetworkError("bat", errors.New("connection refused")))
	m = settle(t, m)

	if m.State().Kind != search.StateNoHits {
		t.Errorf("state = %v, want NoHits", m.State().Kind)
	}
	view := stripANSI(m.View())
	for _, want := range []string{"Search failed", "connection refused", "No results"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	// The box keeps working after a failure.
	m = typeText(t, m, "m")
	svc.Last().Resolve(movies())
	m = settle(t, m)
	if m.view.kind != search.StateResults {
		t.Errorf("view kind = %v, want Results", m.view.kind)
	}
}

func TestEscClears(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "bat")
	pending := svc.Last()
	m = sendMsg(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.input.Value() != "" {
		t.Errorf("input = %q, want empty", m.input.Value())
	}
	if !pending.Cancelled() {
		t.Error("pending request should be cancelled")
	}
	if m.view.kind != search.StateIdle {
		t.Errorf("view kind = %v, want Idle", m.view.kind)
	}
	if len(svc.Requests()) != 3 {
		t.Errorf("esc should not issue a request, got %d requests", len(svc.Requests()))
	}
}

func TestBackspaceToEmptyClears(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "b")
	m = sendMsg(t, m, tea.KeyMsg{Type: tea.KeyBackspace})

	if m.view.kind != search.StateIdle {
		t.Errorf("view kind = %v, want Idle", m.view.kind)
	}
	if len(svc.Requests()) != 1 {
		t.Errorf("requests = %d, want 1", len(svc.Requests()))
	}
}

func TestNavigationKeysDoNotSearch(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "ba")
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyEnter},
		{Type: tea.KeyLeft},
		{Type: tea.KeyRight},
		{Type: tea.KeyUp},
		{Type: tea.KeyDown},
	} {
		m = sendMsg(t, m, msg)
	}

	if got := len(svc.Requests()); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if svc.Last().Cancelled() {
		t.Error("navigation keys should not cancel the pending request")
	}
}

func TestCursorMovement(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "bat")
	svc.Last().Resolve(movies())
	m = settle(t, m)

	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	m = sendMsg(t, m, down)
	m = sendMsg(t, m, down)
	m = sendMsg(t, m, down)
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", m.cursor)
	}
	m = sendMsg(t, m, up)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}

	// New text resets the cursor.
	m = typeText(t, m, "m")
	if m.cursor != 0 {
		t.Errorf("cursor = %d after typing, want 0", m.cursor)
	}
}

func TestCursorRowIsStyled(t *testing.T) {
	forceColorProfile(t)
	m, svc := newTestModel(t)

	m = typeText(t, m, "bat")
	svc.Last().Resolve(movies())
	m = settle(t, m)

	if !strings.Contains(m.View(), ansiStart) {
		t.Error("expected styled output")
	}
}

func TestCtrlCQuits(t *testing.T) {
	m, svc := newTestModel(t)
	m = typeText(t, m, "bat")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	if !m.quitting {
		t.Error("quitting should be set")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command should produce tea.QuitMsg")
	}
	if !svc.Last().Cancelled() {
		t.Error("quitting should cancel the pending request")
	}
	if m.View() != "" {
		t.Error("view should be empty after quit")
	}
	if msg := waitForRender(m.renderer)(); msg != nil {
		t.Errorf("waitForRender after quit = %T, want nil", msg)
	}
}

func TestWaitForRender(t *testing.T) {
	r := newViewRenderer()
	r.ShowResults(movies())

	done := make(chan tea.Msg, 1)
	go func() { done <- waitForRender(r)() }()

	select {
	case msg := <-done:
		if _, ok := msg.(renderMsg); !ok {
			t.Errorf("msg = %T, want renderMsg", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("waitForRender did not return")
	}

	snap := r.current()
	if snap.kind != search.StateResults || len(snap.items) != 3 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestViewRendererCoalescesNotifications(t *testing.T) {
	r := newViewRenderer()
	r.ShowLoading()
	r.ShowNoHits()
	r.ShowError(errors.New("boom"))

	if len(r.notify) != 1 {
		t.Errorf("pending notifications = %d, want 1", len(r.notify))
	}
	snap := r.current()
	if snap.seq != 3 || snap.kind != search.StateNoHits || snap.err == nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSpinnerStopsWhenNotLoading(t *testing.T) {
	m, svc := newTestModel(t)

	m = typeText(t, m, "b")
	if !m.spinnerActive {
		t.Fatal("spinner should start while loading")
	}
	m = sendMsg(t, m, spinnerTickMsg{})
	if m.spinnerFrame != 1 {
		t.Errorf("spinnerFrame = %d, want 1", m.spinnerFrame)
	}

	svc.Last().Resolve(movies())
	m = settle(t, m)
	m = sendMsg(t, m, spinnerTickMsg{})
	if m.spinnerActive {
		t.Error("spinner should stop after results arrive")
	}
}

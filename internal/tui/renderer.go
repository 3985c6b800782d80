package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/livesearch/internal/search"
)

// snapshot is what the controller last asked the screen to show.
type snapshot struct {
	seq   uint64
	kind  search.StateKind
	items []search.Item
	err   error
}

// viewRenderer implements search.Renderer and search.ErrorRenderer. The
// controller may call it from any goroutine, including while the model is
// inside Update, so it only records the latest snapshot and wakes the
// waitForRender command.
type viewRenderer struct {
	mu     sync.Mutex
	snap   snapshot
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

var (
	_ search.Renderer      = (*viewRenderer)(nil)
	_ search.ErrorRenderer = (*viewRenderer)(nil)
)

func newViewRenderer() *viewRenderer {
	return &viewRenderer{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (r *viewRenderer) ShowLoading() { r.set(search.StateLoading, nil, nil) }

func (r *viewRenderer) ShowNoHits() { r.set(search.StateNoHits, nil, nil) }

func (r *viewRenderer) ShowResults(items []search.Item) {
	r.set(search.StateResults, append([]search.Item(nil), items...), nil)
}

func (r *viewRenderer) Clear() { r.set(search.StateIdle, nil, nil) }

func (r *viewRenderer) ShowError(err error) { r.set(search.StateNoHits, nil, err) }

func (r *viewRenderer) set(kind search.StateKind, items []search.Item, err error) {
	r.mu.Lock()
	r.snap = snapshot{seq: r.snap.seq + 1, kind: kind, items: items, err: err}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *viewRenderer) current() snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// close releases a blocked waitForRender.
func (r *viewRenderer) close() {
	r.once.Do(func() { close(r.done) })
}

// renderMsg tells the model that the renderer holds a newer snapshot.
type renderMsg struct{}

// waitForRender blocks until the renderer changes. Exactly one of these is
// outstanding at a time; the model re-arms it after each renderMsg.
func waitForRender(r *viewRenderer) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-r.done:
			return nil
		default:
		}
		select {
		case <-r.notify:
			return renderMsg{}
		case <-r.done:
			return nil
		}
	}
}

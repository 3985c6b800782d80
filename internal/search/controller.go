package search

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Options configures a Controller.
type Options struct {
	// Debounce delays dispatch until typing pauses. Zero dispatches on
	// every qualifying keystroke.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Controller translates key events into lookups and keeps the renderer in
// step with the most recently dispatched query.
//
// All pending-set mutation, cancellation and renderer calls happen under mu,
// so a completion that lost the race against a newer keystroke finds its
// request gone and renders nothing.
type Controller struct {
	svc      QueryService
	renderer Renderer
	logger   *slog.Logger
	debounce time.Duration

	mu         sync.Mutex
	pending    map[uint64]*pendingEntry
	generation uint64 // ID of the most recently dispatched request
	state      UIState
	closed     bool
}

// pendingEntry is one outstanding lookup. req is nil while the entry is
// still waiting out the debounce delay.
type pendingEntry struct {
	id    uint64
	query string
	req   PendingRequest
	timer *time.Timer
}

// NewController creates a controller bound to svc and renderer.
func NewController(svc QueryService, renderer Renderer, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		svc:      svc,
		renderer: renderer,
		logger:   logger,
		debounce: opts.Debounce,
		pending:  make(map[uint64]*pendingEntry),
	}
}

// OnKeyEvent handles one keystroke.
func (c *Controller) OnKeyEvent(ev KeyEvent) {
	if ev.Code.Ignored() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recoverRender("key event")

	if c.closed {
		return
	}

	c.cancelAllLocked()

	if ev.Value == "" {
		c.state = UIState{Kind: StateIdle}
		c.render("clear", c.renderer.Clear)
		return
	}

	c.state = UIState{Kind: StateLoading, Query: ev.Value}
	c.render("show loading", c.renderer.ShowLoading)

	c.generation++
	entry := &pendingEntry{id: c.generation, query: ev.Value}
	c.pending[entry.id] = entry

	if c.debounce > 0 {
		id := entry.id
		entry.timer = time.AfterFunc(c.debounce, func() { c.fireDebounced(id) })
		return
	}
	c.dispatchLocked(entry)
}

// State returns a snapshot of the current UI state.
func (c *Controller) State() UIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	if st.Items != nil {
		st.Items = append([]Item(nil), st.Items...)
	}
	return st
}

// Pending returns the number of outstanding requests, including one still
// waiting out the debounce delay.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close cancels outstanding requests. Later key events are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelAllLocked()
	c.closed = true
}

func (c *Controller) cancelAllLocked() {
	for id, e := range c.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
		if e.req != nil {
			e.req.Cancel()
		}
		delete(c.pending, id)
		c.logger.Debug("cancelled search request", "query", e.query, "request_id", id)
	}
}

// dispatchLocked issues the lookup for e. A service that panics or hands
// back no request fails the entry instead of leaving it pending.
func (c *Controller) dispatchLocked(e *pendingEntry) {
	id := e.id
	req, err := c.startSearch(e.query, func(items []Item, err error) {
		c.settle(id, items, err)
	})
	if err != nil {
		c.failLocked(e, err)
		return
	}
	e.req = req
	c.logger.Debug("dispatched search request", "query", e.query, "request_id", id)
}

func (c *Controller) startSearch(query string, onSettled func([]Item, error)) (req PendingRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			if req != nil {
				cancelQuietly(req)
			}
			req, err = nil, NetworkError(query, fmt.Errorf("search panic: %v", r))
		}
	}()

	req = c.svc.Search(query)
	if req == nil {
		return nil, NetworkError(query, errors.New("query service returned no request"))
	}
	req.OnSettled(onSettled)
	return req, nil
}

func cancelQuietly(req PendingRequest) {
	defer func() { _ = recover() }()
	req.Cancel()
}

// failLocked drops e and shows the failure.
func (c *Controller) failLocked(e *pendingEntry, err error) {
	delete(c.pending, e.id)
	c.logger.Error("search request failed", "query", e.query, "error", err)
	c.state = UIState{Kind: StateNoHits, Query: e.query, Err: err}
	c.render("show error", func() {
		if er, ok := c.renderer.(ErrorRenderer); ok {
			er.ShowError(err)
		} else {
			c.renderer.ShowNoHits()
		}
	})
}

// fireDebounced dispatches a debounced entry if no later keystroke replaced it.
func (c *Controller) fireDebounced(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recoverRender("debounced dispatch")

	e, ok := c.pending[id]
	if !ok || e.req != nil {
		return
	}
	c.dispatchLocked(e)
}

// settle is the completion handler for request id.
func (c *Controller) settle(id uint64, items []Item, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recoverRender("search completion")

	e, ok := c.pending[id]
	if !ok {
		// Cancelled or superseded.
		return
	}
	delete(c.pending, id)

	switch {
	case errors.Is(err, ErrCancelled):
		// Aborted underneath us; drop back to idle rather than spin forever.
		c.logger.Debug("search request cancelled by service", "query", e.query)
		c.state = UIState{Kind: StateIdle}
		c.render("clear", c.renderer.Clear)

	case err != nil:
		c.failLocked(e, err)

	case len(items) == 0:
		c.state = UIState{Kind: StateNoHits, Query: e.query}
		c.render("show no hits", c.renderer.ShowNoHits)

	default:
		c.state = UIState{Kind: StateResults, Query: e.query, Items: items}
		c.render("show results", func() { c.renderer.ShowResults(items) })
	}
}

// render runs one renderer call. A panicking renderer is logged and the
// state transition stands.
func (c *Controller) render(where string, fn func()) {
	defer c.recoverRender(where)
	fn()
}

// recoverRender keeps a panicking collaborator from escaping the controller.
// It must be deferred after the unlock so it runs with mu still held.
func (c *Controller) recoverRender(where string) {
	if r := recover(); r != nil {
		c.logger.Error("search controller recovered from panic",
			"where", where,
			"error", fmt.Errorf("panic: %v", r),
		)
	}
}

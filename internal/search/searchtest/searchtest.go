// Package searchtest provides test doubles for the search collaborators.
package searchtest

import (
	"sync"

	"github.com/wesm/livesearch/internal/search"
)

// FakeService implements search.QueryService. Every Search call records a
// FakeRequest that the test settles explicitly.
type FakeService struct {
	mu       sync.Mutex
	requests []*FakeRequest

	// IgnoreCancel makes requests deliver results even after Cancel, to
	// simulate a transport that completes late.
	IgnoreCancel bool
}

// Compile-time check.
var _ search.QueryService = (*FakeService)(nil)

// Search records a new request for query.
func (s *FakeService) Search(query string) search.PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &FakeRequest{query: query, ignoreCancel: s.IgnoreCancel}
	s.requests = append(s.requests, r)
	return r
}

// Requests returns every request issued so far, oldest first.
func (s *FakeService) Requests() []*FakeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeRequest(nil), s.requests...)
}

// Last returns the most recent request, or nil.
func (s *FakeService) Last() *FakeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// Queries returns the query strings of every request issued so far.
func (s *FakeService) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.query
	}
	return out
}

// FakeRequest is a search.PendingRequest settled by the test.
type FakeRequest struct {
	mu           sync.Mutex
	query        string
	cancelled    bool
	settled      bool
	ignoreCancel bool
	cb           func([]search.Item, error)
}

func (r *FakeRequest) Query() string { return r.query }

func (r *FakeRequest) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

func (r *FakeRequest) OnSettled(cb func([]search.Item, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cb = cb
}

// Cancelled reports whether Cancel was called.
func (r *FakeRequest) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// Resolve settles the request with items. It reports whether the callback ran.
func (r *FakeRequest) Resolve(items []search.Item) bool {
	return r.settle(items, nil)
}

// Fail settles the request with err. It reports whether the callback ran.
func (r *FakeRequest) Fail(err error) bool {
	return r.settle(nil, err)
}

func (r *FakeRequest) settle(items []search.Item, err error) bool {
	r.mu.Lock()
	if r.settled || r.cb == nil || (r.cancelled && !r.ignoreCancel) {
		r.mu.Unlock()
		return false
	}
	r.settled = true
	cb := r.cb
	r.mu.Unlock()

	cb(items, err)
	return true
}

// Call is one recorded renderer invocation.
type Call struct {
	Method string
	Items  []search.Item
	Err    error
}

// Recorder implements search.Renderer and search.ErrorRenderer by recording
// calls in order.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// Compile-time checks.
var (
	_ search.Renderer      = (*Recorder)(nil)
	_ search.ErrorRenderer = (*Recorder)(nil)
)

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Recorder) ShowLoading() { r.record(Call{Method: "ShowLoading"}) }
func (r *Recorder) ShowNoHits() { r.record(Call{Method: "ShowNoHits"}) }
func (r *Recorder) ShowResults(items []search.Item) { r.record(Call{Method: "ShowResults", Items: items}) }
func (r *Recorder) Clear() { r.record(Call{Method: "Clear"}) }
func (r *Recorder) ShowError(err error) { r.record(Call{Method: "ShowError", Err: err}) }

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Methods returns the recorded method names in order.
func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Method
	}
	return out
}

// Count returns how many times method was called.
func (r *Recorder) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Last returns the most recent call, or a zero Call.
func (r *Recorder) Last() Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call{}
	}
	return r.calls[len(r.calls)-1]
}

// Reset drops all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// NoErrorRecorder wraps Recorder without ShowError, for exercising the
// ShowNoHits fallback.
type NoErrorRecorder struct {
	R *Recorder
}

func (n NoErrorRecorder) ShowLoading() { n.R.ShowLoading() }
func (n NoErrorRecorder) ShowNoHits() { n.R.ShowNoHits() }
func (n NoErrorRecorder) ShowResults(items []search.Item) { n.R.ShowResults(items) }
func (n NoErrorRecorder) Clear() { n.R.Clear() }

// Package search provides the incremental search controller that turns a
// stream of keystrokes into at most one authoritative outstanding query.
package search

import "fmt"

// KeyCode identifies the key that produced a KeyEvent. Values follow the
// browser keyCode numbering so events from any input source map onto the
// same set.
type KeyCode int

const (
	KeyOther      KeyCode = 0
	KeyBackspace  KeyCode = 8
	KeyTab        KeyCode = 9
	KeyEnter      KeyCode = 13
	KeyShift      KeyCode = 16
	KeyCtrl       KeyCode = 17
	KeyAlt        KeyCode = 18
	KeyEscape     KeyCode = 27
	KeySpace      KeyCode = 32
	KeyArrowLeft  KeyCode = 37
	KeyArrowUp    KeyCode = 38
	KeyArrowRight KeyCode = 39
	KeyArrowDown  KeyCode = 40
	KeyDelete     KeyCode = 46
	KeyMetaLeft   KeyCode = 91
	KeyMetaRight  KeyCode = 93
)

// ignoredKeys are modifier and navigation keys. They never change the query
// text in a way that warrants a new request.
var ignoredKeys = map[KeyCode]bool{
	KeyShift:      true,
	KeyCtrl:       true,
	KeyAlt:        true,
	KeyMetaLeft:   true,
	KeyMetaRight:  true,
	KeyEnter:      true,
	KeyArrowLeft:  true,
	KeyArrowUp:    true,
	KeyArrowRight: true,
	KeyArrowDown:  true,
}

// Ignored reports whether events with this key code are dropped by the
// controller.
func (k KeyCode) Ignored() bool {
	return ignoredKeys[k]
}

// KeyEvent is a single keystroke together with the input value after the
// keystroke was applied.
type KeyEvent struct {
	Code  KeyCode
	Value string
}

// Field is one display column of a result item.
type Field struct {
	Name  string
	Value string
}

// Item is an opaque result record. Fields are kept in schema order.
type Item struct {
	ID     string
	Fields []Field
}

// Get returns the value of the named field.
func (it Item) Get(name string) (string, bool) {
	for _, f := range it.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// StateKind enumerates the UI states the controller can be in.
type StateKind int

const (
	StateIdle StateKind = iota
	StateLoading
	StateResults
	StateNoHits
)

// String returns a human-readable name for the state.
func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateResults:
		return "Results"
	case StateNoHits:
		return "NoHits"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// UIState is the derived view state. Items is only set for StateResults and
// Err only for a StateNoHits reached through a failed request.
type UIState struct {
	Kind  StateKind
	Query string
	Items []Item
	Err   error
}

// QueryService issues lookups. Search must return immediately.
type QueryService interface {
	Search(query string) PendingRequest
}

// PendingRequest is a handle to one in-flight lookup.
//
// The settled callback is invoked at most once, never on the goroutine that
// called Search or OnSettled, and never once Cancel has returned.
type PendingRequest interface {
	Query() string
	Cancel()
	OnSettled(func(items []Item, err error))
}

// Renderer receives UI transitions. Calls are side-effect only.
type Renderer interface {
	ShowLoading()
	ShowNoHits()
	ShowResults(items []Item)
	Clear()
}

// ErrorRenderer is implemented by renderers that distinguish a failed lookup
// from an empty one. Renderers without it get ShowNoHits on failure.
type ErrorRenderer interface {
	ShowError(err error)
}

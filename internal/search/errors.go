package search

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transport failures and non-2xx responses.
	ErrNetwork = errors.New("network error")
	// ErrProtocol marks responses that are not a JSON array of objects.
	ErrProtocol = errors.New("protocol error")
	// ErrCancelled marks requests aborted before they settled.
	ErrCancelled = errors.New("request cancelled")
)

// RequestError describes a failed lookup. It matches its Kind and its cause
// with errors.Is.
type RequestError struct {
	Kind  error
	Query string
	Err   error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("search %q: %v", e.Query, e.Kind)
	}
	return fmt.Sprintf("search %q: %v: %v", e.Query, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NetworkError wraps err as an ErrNetwork failure for query.
func NetworkError(query string, err error) error {
	return &RequestError{Kind: ErrNetwork, Query: query, Err: err}
}

// ProtocolError wraps err as an ErrProtocol failure for query.
func ProtocolError(query string, err error) error {
	return &RequestError{Kind: ErrProtocol, Query: query, Err: err}
}

// CancelledError wraps err as an ErrCancelled failure for query.
func CancelledError(query string, err error) error {
	return &RequestError{Kind: ErrCancelled, Query: query, Err: err}
}

package internal

import "fmt"

// TransportError represents a network-level failure reaching the backend.
type TransportError struct {
	Op  string // "send", "load", "save", ...
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError represents a non-2xx response from the backend.
type ServerError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Temporary reports whether the failure is a 5xx, i.e. worth a
// user-initiated retry later.
func (e *ServerError) Temporary() bool {
	return e.Status >= 500
}

// ValidationError represents a request rejected before it was sent,
// e.g. a reminder missing its title, date or time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// StoreInconsistencyError represents a session or reminder the local state
// expected but the store does not know about.
type StoreInconsistencyError struct {
	Kind string // "session", "reminder"
	ID   string
}

func (e *StoreInconsistencyError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// SessionCreateError represents a rejected session creation. Local state is
// never mutated when this is returned.
type SessionCreateError struct {
	Name string
	Err  error
}

func (e *SessionCreateError) Error() string {
	return fmt.Sprintf("failed to create session %q: %v", e.Name, e.Err)
}

func (e *SessionCreateError) Unwrap() error {
	return e.Err
}

// CacheError represents errors reading or writing the local session cache.
type CacheError struct {
	Op  string // "open", "read", "write"
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

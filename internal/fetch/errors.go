package fetch

import "fmt"

// Kind classifies fetch failures.
type Kind int

const (
	// KindUnknown covers transport and local IO faults.
	KindUnknown Kind = iota
	// KindTimeout marks a fetch that exceeded the bounded request timeout.
	KindTimeout
	// KindHTTPStatus marks a non-2xx response from the server.
	KindHTTPStatus
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure.
type Error struct {
	Kind     Kind
	Filename string
	Status   int // set for KindHTTPStatus
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Filename, e.Status)
	case KindTimeout:
		return fmt.Sprintf("fetch %s: timeout: %v", e.Filename, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %v", e.Filename, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

package api

import "fmt"

// Error is the failure surface of the API client: a human-readable message,
// the HTTP status code and the raw structured payload for programmatic
// inspection.
type Error struct {
	Message string
	Status  int
	Payload map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// StatusOf extracts the HTTP status from an error when it is an *Error.
func StatusOf(err error) (int, bool) {
	if apiErr, ok := err.(*Error); ok {
		return apiErr.Status, true
	}
	return 0, false
}

package llm

import (
	"fmt"
	"strings"
)

// TransportError reports that the request never produced a usable HTTP
// response: the network call failed, timed out, or returned a non-2xx status.
type TransportError struct {
	StatusCode int    // 0 when no response was received
	Body       string // excerpt of the response body, if any
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		body := strings.TrimSpace(e.Body)
		if body == "" {
			return fmt.Sprintf("generateContent returned status %d", e.StatusCode)
		}
		return fmt.Sprintf("generateContent returned status %d: %s", e.StatusCode, body)
	}
	return fmt.Sprintf("generateContent request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnexpectedResponseError reports a 2xx response whose body does not have the
// generateContent shape.
type UnexpectedResponseError struct {
	Reason string
	Err    error
}

func (e *UnexpectedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected generateContent response: %s: %v", e.Reason, e.Err)
	}
	return "unexpected generateContent response: " + e.Reason
}

func (e *UnexpectedResponseError) Unwrap() error { return e.Err }

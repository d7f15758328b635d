package vinted

import (
	"errors"
	"fmt"
)

// ErrRequestBudgetExhausted is returned when a run has used all of its
// allowed catalog requests.
var ErrRequestBudgetExhausted = errors.New("request budget exhausted")

// SessionBootstrapError is returned when a session cannot be established.
// It is fatal: the bootstrapper never retries on its own.
type SessionBootstrapError struct {
	URL    string
	Status int
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *SessionBootstrapError) Error() string {
	msg := "session bootstrap failed"
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SessionBootstrapError) Unwrap() error {
	return e.Err
}

// AuthRejectedError records a 401/403 response. It is recoverable by minting
// a new session.
type AuthRejectedError struct {
	Page   int
	Status int
}

// Error implements the error interface.
func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("page %d: credentials rejected (status %d)", e.Page, e.Status)
}

// TransientError records a rate-limit, server error or transport failure.
// It is recoverable by backing off.
type TransientError struct {
	Page   int
	Status int
	Err    error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page %d: transport error: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("page %d: transient status %d", e.Page, e.Status)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a 200 response body cannot be decoded. It is
// never retried.
type ParseError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("page %d: parsing catalog response: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnexpectedStatusError is returned for statuses outside the recoverable
// set. Excerpt holds the start of the response body.
type UnexpectedStatusError struct {
	Page    int
	Status  int
	Excerpt string
}

// Error implements the error interface.
func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("page %d: unexpected status %d: %s", e.Page, e.Status, e.Excerpt)
}

// PageFetchExhausted is returned when a page has used all its attempts
// without success.
type PageFetchExhausted struct {
	Page     int
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *PageFetchExhausted) Error() string {
	return fmt.Sprintf("page %d: giving up after %d attempts: %v", e.Page, e.Attempts, e.Last)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageFetchExhausted) Unwrap() error {
	return e.Last
}

const maxExcerptBytes = 200

// excerpt returns a short single-line prefix of body for diagnostics.
func excerpt(body []byte) string {
	if len(body) > maxExcerptBytes {
		body = body[:maxExcerptBytes]
	}
	out := make([]rune, 0, len(body))
	for _, r := range string(body) {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}

package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures so the orchestrator can apply the
// right policy: retry, back off, re-auth, drop, or close the market.
type ErrorKind string

const (
	ErrKindTransient   ErrorKind = "TRANSIENT"
	ErrKindRateLimited ErrorKind = "RATE_LIMITED"
	ErrKindAuth        ErrorKind = "AUTH"
	ErrKindSchema      ErrorKind = "SCHEMA"
	ErrKindClosed      ErrorKind = "CLOSED"
)

// VenueError is a classified failure from a venue adapter call.
type VenueError struct {
	Kind  ErrorKind
	Venue Venue
	Op    string
	Err   error
}

func (e *VenueError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Venue, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Venue, e.Op, e.Kind, e.Err)
}

func (e *VenueError) Unwrap() error {
	return e.Err
}

// NewVenueError wraps err with a kind and call site.
func NewVenueError(kind ErrorKind, venue Venue, op string, err error) *VenueError {
	return &VenueError{Kind: kind, Venue: venue, Op: op, Err: err}
}

// KindOf extracts the error kind, defaulting to TRANSIENT for unclassified
// errors so that unknown failures are retried rather than dropped.
func KindOf(err error) ErrorKind {
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ErrKindTransient
}

// IsRateLimited reports whether err is a RATE_LIMITED venue error.
func IsRateLimited(err error) bool {
	return KindOf(err) == ErrKindRateLimited
}

// IsClosed reports whether err signals the venue no longer lists the market.
func IsClosed(err error) bool {
	return KindOf(err) == ErrKindClosed
}

// IsSchema reports whether err is a deterministic payload-shape failure.
func IsSchema(err error) bool {
	return KindOf(err) == ErrKindSchema
}

// Package coordinator orchestrates the seat-claim protocol: it appends
// claim events to the log, decides the race winner by scanning the log's
// total order within a bounded window, and persists confirmed reservations
// to the durable store. Business outcomes are sentinel error values that
// higher layers distinguish with errors.Is — never by message text.
package coordinator

import "errors"

// ErrNoPlaySelected is returned when a request does not name a play.
// Handlers should translate this into an HTTP 400 response.
var ErrNoPlaySelected = errors.New("no play selected")

// ErrSeatTaken is returned when the log fold shows a different active
// owner for the seat. It is an expected user-facing outcome, not a fault.
// Handlers should translate this into an HTTP 409 response.
var ErrSeatTaken = errors.New("seat already taken")

// ErrVerificationTimeout is returned when the verification scan did not
// observe the requester's own claim event within the window. The outcome
// is unknown: the claim may still be in the log, so callers should retry
// by re-checking, not by blindly claiming again.
var ErrVerificationTimeout = errors.New("failed to verify reservation, please try again")

// ErrStoreFailure is returned when the durable store rejected a write
// after the claim was already confirmed won. The log event stands; a retry
// of the read path can recover the reservation.
var ErrStoreFailure = errors.New("reservation store failure")

// ErrNotFound is returned when the requested reservation does not exist.
var ErrNotFound = errors.New("reservation not found")

// ErrForbidden is returned when the requesting user is not the owner of
// the reservation being cancelled. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

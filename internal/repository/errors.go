// Package repository defines error types that are reused across the
// persistence layer. These sentinel values allow higher layers such as
// handlers and the approval state machine to distinguish between
// different failure scenarios without depending on database/sql
// internals.
package repository

import "errors"

// ErrReservationNotFound is returned when no reservation exists for the
// requested id. Handlers should translate this into an HTTP 404
// response; the webhook handler uses it to report an unknown
// reservation id back to the chat platform.
var ErrReservationNotFound = errors.New("reservation not found")

// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationDecidedEvent is published when a reservation reaches a
// terminal state (Confirmed or Denied).  It carries enough information
// for downstream consumers to log or trigger analytics without
// querying the primary database.
type ReservationDecidedEvent struct {
    ReservationID uint64 `json:"reservation_id"`
    GuestName     string `json:"guest_name"`
    GuestEmail    string `json:"guest_email"`
    Date          string `json:"date"`
    Time          string `json:"time"`
    Diners        int    `json:"diners"`
    Status        string `json:"status"`
    DenialReason  string `json:"denial_reason,omitempty"`
    DecidedAt     string `json:"decided_at"`
}

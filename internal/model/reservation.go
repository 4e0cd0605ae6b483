package model

import "time"

// Reservation lifecycle states.  Transitions are monotonic: a reservation
// leaves Pending exactly once and never returns to it, and Confirmed and
// Denied are terminal.
const (
    StatusPending        = "Pending"              // awaiting an operator decision
    StatusAwaitingReason = "AwaitingDenialReason" // deny pressed, waiting for a free-text reason
    StatusConfirmed      = "Confirmed"            // accepted by the operator
    StatusDenied         = "Denied"               // denied with a reason
)

// Reservation records a guest's booking request and its approval
// lifecycle.  The Token field is an opaque, unguessable capability that
// lets the guest fetch their own reservation without broader
// authentication; it is assigned at creation and never changes.
// TelegramMessageID correlates the record with the decision prompt shown
// to the operator and stays nil until the prompt send succeeds.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – guest name.
//  Email             – guest email address.
//  Phone             – guest phone number.
//  Date              – requested calendar date (YYYY-MM-DD).
//  Time              – requested local time of day.
//  Diners            – party size, positive.
//  Seating           – seating preference.
//  Pickup            – pickup time.
//  Status            – lifecycle state (see constants above).
//  DenialReason      – set if and only if Status is Denied.
//  Token             – guest-facing access token.
//  TelegramMessageID – chat message id of the decision prompt (nullable).
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Reservation struct {
    ID                uint64    // reservations.id
    Name              string    // reservations.name
    Email             string    // reservations.email
    Phone             string    // reservations.phone
    Date              string    // reservations.date
    Time              string    // reservations.time
    Diners            int       // reservations.diners
    Seating           string    // reservations.seating
    Pickup            string    // reservations.pickup
    Status            string    // reservations.status
    DenialReason      *string   // reservations.denial_reason (nullable)
    Token             string    // reservations.token
    TelegramMessageID *int      // reservations.telegram_message_id (nullable)
    CreatedAt         time.Time // reservations.created_at
    UpdatedAt         time.Time // reservations.updated_at
}

// ReservationSummary is the reduced view returned by the list endpoint.
// It deliberately omits contact details, the access token and the chat
// correlation id.
type ReservationSummary struct {
    ID     uint64 `json:"id"`
    Name   string `json:"name"`
    Date   string `json:"date"`
    Time   string `json:"time"`
    Diners int    `json:"diners"`
    Status string `json:"status"`
}

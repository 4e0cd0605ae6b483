// Package approval implements the reservation approval workflow: the
// lifecycle state machine, the transient correlation table used by the
// two-phase denial protocol, and the typed events extracted from inbound
// chat callbacks.
package approval

// Action identifies the operator decision carried by an inline button.
type Action string

const (
    ActionAccept Action = "accept"
    ActionDeny   Action = "deny"
)

// Outcome is the status tag returned to the chat platform after an
// event has been processed.  Recognized-but-inapplicable events resolve
// to OutcomeIgnored so the platform never retries them.
type Outcome string

const (
    OutcomeConfirmed      Outcome = "confirmed"
    OutcomeAwaitingReason Outcome = "awaiting_reason"
    OutcomeDenied         Outcome = "denied"
    OutcomeIgnored        Outcome = "ignored"
)

// ButtonPressed is an operator pressing Accept or Deny on a decision
// prompt.  ChatID and MessageID locate the prompt message in the chat;
// CallbackID is used to acknowledge the button press.
type ButtonPressed struct {
    Action        Action
    ReservationID uint64
    CallbackID    string
    ChatID        int64
    MessageID     int
}

// TextReply is a free-text message sent in reply to another message.
// Only replies arriving while a denial correlation is registered for
// the chat are meaningful; anything else is ignored.
type TextReply struct {
    ChatID             int64
    Text               string
    RepliedToMessageID int
}

package approval

import "sync"

// CorrelationTable maps an operator chat that is awaiting a free-text
// denial reason to the reservation the reason belongs to.  It is
// process-local and deliberately not durable: a restart abandons any
// in-flight denial and the operator must press Deny again.
//
// At most one entry exists per chat id.  A second deny registered for
// the same chat before the first resolves overwrites it
// (last-writer-wins); Register reports the replaced reservation so the
// caller can log the supersession.
type CorrelationTable struct {
    mu     sync.Mutex
    byChat map[int64]uint64
}

// NewCorrelationTable returns an empty table.
func NewCorrelationTable() *CorrelationTable {
    return &CorrelationTable{byChat: make(map[int64]uint64)}
}

// Register records that chatID is awaiting a denial reason for
// reservationID, replacing any existing entry for the chat.  It returns
// the replaced reservation id and whether a replacement happened.
func (t *CorrelationTable) Register(chatID int64, reservationID uint64) (uint64, bool) {
    t.mu.Lock()
    defer t.mu.Unlock()
    prev, replaced := t.byChat[chatID]
    t.byChat[chatID] = reservationID
    return prev, replaced
}

// Resolve returns the reservation awaiting a reason in the given chat,
// if any.  The entry is left in place; callers clear it once the
// denial has been finalized.
func (t *CorrelationTable) Resolve(chatID int64) (uint64, bool) {
    t.mu.Lock()
    defer t.mu.Unlock()
    id, ok := t.byChat[chatID]
    return id, ok
}

// Clear removes the entry for the given chat, if present.
func (t *CorrelationTable) Clear(chatID int64) {
    t.mu.Lock()
    defer t.mu.Unlock()
    delete(t.byChat, chatID)
}

// ClearIf removes the entry for the given chat only while it still maps
// to reservationID, and reports whether it did.  A reply handler uses
// this instead of Clear so that a deny registered between its Resolve
// and its cleanup is left in place rather than silently discarded.
func (t *CorrelationTable) ClearIf(chatID int64, reservationID uint64) bool {
    t.mu.Lock()
    defer t.mu.Unlock()
    if id, ok := t.byChat[chatID]; ok && id == reservationID {
        delete(t.byChat, chatID)
        return true
    }
    return false
}

// Len returns the number of in-flight correlations.
func (t *CorrelationTable) Len() int {
    t.mu.Lock()
    defer t.mu.Unlock()
    return len(t.byChat)
}

package approval

import (
    "context"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/lacasita/reservation-service/internal/model"
    "github.com/lacasita/reservation-service/internal/queue"
)

// Store is the durable reservation state the machine drives.  It is
// implemented by repository.ReservationRepo; tests substitute an
// in-memory fake.  TransitionStatus must be a compare-and-set: it
// returns true only when the row was still in the `from` state, which
// is how concurrent callbacks on the same reservation are serialized.
type Store interface {
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    TransitionStatus(ctx context.Context, id uint64, from, to string, denialReason *string) (bool, error)
    SetTelegramMessageID(ctx context.Context, id uint64, messageID int) error
}

// Notifier is the outbound capability boundary: chat messages to the
// operator and email to the guest.  Every call is best-effort; the
// machine logs failures and never lets them block or roll back a state
// transition.
type Notifier interface {
    SendDecisionPrompt(ctx context.Context, res *model.Reservation) (int, error)
    EditDecisionPrompt(ctx context.Context, messageID int, text string) error
    SendReasonPrompt(ctx context.Context, chatID int64, replyToMessageID int) error
    SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Dispatcher runs detached background tasks with bounded concurrency.
// Submit reports whether the task was enqueued; a false return means
// the queue was full and the task was dropped.
type Dispatcher interface {
    Submit(name string, fn func(ctx context.Context)) bool
}

// PublishFunc delivers a decision event to the audit stream.  May be
// nil when no broker is configured.
type PublishFunc func(ctx context.Context, event queue.ReservationDecidedEvent) error

// DefaultDenialReason is stored when the operator submits an empty
// reason.
const DefaultDenialReason = "No reason provided"

// Machine advances reservations through the approval lifecycle in
// response to guest submissions and operator callbacks.  All durable
// mutations go through the Store's compare-and-set, making every
// handler idempotent under the chat platform's at-least-once delivery:
// a replayed callback loses the CAS and resolves to OutcomeIgnored
// without re-sending any notification.
type Machine struct {
    store        Store
    notifier     Notifier
    correlations *CorrelationTable
    pool         Dispatcher
    publish      PublishFunc
    bookingURL   string
}

// NewMachine constructs a Machine.  store, notifier, correlations and
// pool must be non-nil; publish may be nil to disable the audit stream.
func NewMachine(store Store, notifier Notifier, correlations *CorrelationTable, pool Dispatcher, publish PublishFunc, bookingURL string) *Machine {
    if store == nil || notifier == nil || correlations == nil || pool == nil {
        panic("nil dependency passed to NewMachine")
    }
    return &Machine{
        store:        store,
        notifier:     notifier,
        correlations: correlations,
        pool:         pool,
        publish:      publish,
        bookingURL:   bookingURL,
    }
}

// HandleSubmission dispatches the side effects of a freshly created
// reservation: the decision prompt to the operator chat and the
// acknowledgment email to the guest.  Both run detached so the intake
// request returns promptly; the prompt's message id is persisted once
// the send succeeds.  The reservation row is already committed when
// this is called.
func (m *Machine) HandleSubmission(res *model.Reservation) {
    snapshot := *res
    m.submit("decision-prompt", func(ctx context.Context) {
        messageID, err := m.notifier.SendDecisionPrompt(ctx, &snapshot)
        if err != nil {
            log.Printf("approval: decision prompt for reservation %d failed: %v", snapshot.ID, err)
            return
        }
        if err := m.store.SetTelegramMessageID(ctx, snapshot.ID, messageID); err != nil {
            log.Printf("approval: storing message id for reservation %d failed: %v", snapshot.ID, err)
        }
    })
    m.submit("ack-email", func(ctx context.Context) {
        body := fmt.Sprintf("Hello %s,<br><br>"+
            "We've received your reservation request for %s at %s.<br><br>"+
            "You will receive an email soon with your reservation confirmation.",
            snapshot.Name, snapshot.Date, snapshot.Time)
        if err := m.notifier.SendEmail(ctx, snapshot.Email, "Reservation Request Received", body); err != nil {
            log.Printf("approval: acknowledgment email for reservation %d failed: %v", snapshot.ID, err)
        }
    })
}

// HandleButton processes an Accept or Deny button press.  Unknown
// reservation ids surface the store's not-found error; a press on a
// reservation that already left Pending resolves to OutcomeIgnored.
func (m *Machine) HandleButton(ctx context.Context, ev ButtonPressed) (Outcome, error) {
    res, err := m.store.GetByID(ctx, ev.ReservationID)
    if err != nil {
        return "", err
    }
    switch ev.Action {
    case ActionAccept:
        return m.accept(ctx, res)
    case ActionDeny:
        return m.deny(ctx, res, ev.ChatID)
    default:
        return OutcomeIgnored, nil
    }
}

func (m *Machine) accept(ctx context.Context, res *model.Reservation) (Outcome, error) {
    ok, err := m.store.TransitionStatus(ctx, res.ID, model.StatusPending, model.StatusConfirmed, nil)
    if err != nil {
        return "", err
    }
    if !ok {
        // Already decided or mid-denial; at-least-once redelivery lands here.
        return OutcomeIgnored, nil
    }
    res.Status = model.StatusConfirmed
    snapshot := *res
    m.submit("accept-edit", func(ctx context.Context) {
        m.editPrompt(ctx, &snapshot, acceptedText(&snapshot))
    })
    m.submit("confirm-email", func(ctx context.Context) {
        body := fmt.Sprintf("Hello %s,<br><br>"+
            "Your reservation has been confirmed. We look forward to seeing you at %s on %s.<br><br>",
            snapshot.Name, snapshot.Time, snapshot.Date)
        if err := m.notifier.SendEmail(ctx, snapshot.Email, "Reservation Confirmed", body); err != nil {
            log.Printf("approval: confirmation email for reservation %d failed: %v", snapshot.ID, err)
        }
    })
    m.publishDecision(&snapshot, nil)
    return OutcomeConfirmed, nil
}

func (m *Machine) deny(ctx context.Context, res *model.Reservation, chatID int64) (Outcome, error) {
    ok, err := m.store.TransitionStatus(ctx, res.ID, model.StatusPending, model.StatusAwaitingReason, nil)
    if err != nil {
        return "", err
    }
    if !ok {
        return OutcomeIgnored, nil
    }
    res.Status = model.StatusAwaitingReason
    if prev, replaced := m.correlations.Register(chatID, res.ID); replaced {
        // Known race: a second deny in the same chat supersedes the
        // first; the abandoned reservation stays in AwaitingDenialReason
        // until the operator re-initiates it.
        log.Printf("approval: denial correlation for chat %d moved from reservation %d to %d", chatID, prev, res.ID)
    }
    snapshot := *res
    m.submit("deny-edit", func(ctx context.Context) {
        m.editPrompt(ctx, &snapshot, processingDenialText(&snapshot))
    })
    replyTo := 0
    if snapshot.TelegramMessageID != nil {
        replyTo = *snapshot.TelegramMessageID
    }
    m.submit("reason-prompt", func(ctx context.Context) {
        if err := m.notifier.SendReasonPrompt(ctx, chatID, replyTo); err != nil {
            log.Printf("approval: reason prompt for reservation %d failed: %v", snapshot.ID, err)
        }
    })
    return OutcomeAwaitingReason, nil
}

// HandleReply finalizes a denial with the operator's free-text reason.
// Replies in chats with no registered correlation are ignored, as are
// replies that lose the CAS (for example after a restart wiped the
// in-memory table while the row had already been finalized elsewhere).
func (m *Machine) HandleReply(ctx context.Context, ev TextReply) (Outcome, error) {
    reservationID, ok := m.correlations.Resolve(ev.ChatID)
    if !ok {
        return OutcomeIgnored, nil
    }
    reason := strings.TrimSpace(ev.Text)
    if reason == "" {
        reason = DefaultDenialReason
    }
    ok, err := m.store.TransitionStatus(ctx, reservationID, model.StatusAwaitingReason, model.StatusDenied, &reason)
    if err != nil {
        return "", err
    }
    // Compare-and-delete: a deny that re-registered the chat while this
    // reply was in flight keeps its correlation.
    m.correlations.ClearIf(ev.ChatID, reservationID)
    if !ok {
        return OutcomeIgnored, nil
    }
    res, err := m.store.GetByID(ctx, reservationID)
    if err != nil {
        // The transition committed; the reply is resolved even though
        // the notification data could not be loaded.
        log.Printf("approval: reloading denied reservation %d failed: %v", reservationID, err)
        return OutcomeDenied, nil
    }
    snapshot := *res
    m.submit("denied-edit", func(ctx context.Context) {
        m.editPrompt(ctx, &snapshot, deniedText(&snapshot, reason))
    })
    m.submit("denial-email", func(ctx context.Context) {
        link := fmt.Sprintf("%s?reservation_id=%d&token=%s", m.bookingURL, snapshot.ID, snapshot.Token)
        body := fmt.Sprintf("Hello %s,<br><br>"+
            "Sorry, we cannot take your reservation request for %s at %s.<br><br>"+
            "Reason: %s<br><br>"+
            "Click the button below to book a new time with your previous details:<br><br>"+
            `<a href="%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-align: center; text-decoration: none; display: inline-block; border-radius: 5px;">Book A New Time</a><br><br>`+
            "Please contact us if you have any questions.",
            snapshot.Name, snapshot.Date, snapshot.Time, reason, link)
        if err := m.notifier.SendEmail(ctx, snapshot.Email, "Reservation Denied", body); err != nil {
            log.Printf("approval: denial email for reservation %d failed: %v", snapshot.ID, err)
        }
    })
    m.publishDecision(&snapshot, &reason)
    return OutcomeDenied, nil
}

// editPrompt edits the stored decision prompt message, if one was ever
// recorded.  A reservation whose prompt send failed simply has no
// message to edit.
func (m *Machine) editPrompt(ctx context.Context, res *model.Reservation, text string) {
    if res.TelegramMessageID == nil {
        log.Printf("approval: no prompt message id recorded for reservation %d", res.ID)
        return
    }
    if err := m.notifier.EditDecisionPrompt(ctx, *res.TelegramMessageID, text); err != nil {
        log.Printf("approval: editing prompt for reservation %d failed: %v", res.ID, err)
    }
}

// publishDecision emits the terminal decision to the audit stream.
func (m *Machine) publishDecision(res *model.Reservation, denialReason *string) {
    if m.publish == nil {
        return
    }
    event := queue.ReservationDecidedEvent{
        ReservationID: res.ID,
        GuestName:     res.Name,
        GuestEmail:    res.Email,
        Date:          res.Date,
        Time:          res.Time,
        Diners:        res.Diners,
        Status:        res.Status,
        DecidedAt:     time.Now().UTC().Format(time.RFC3339),
    }
    if denialReason != nil {
        event.DenialReason = *denialReason
    }
    m.submit("decision-event", func(ctx context.Context) {
        if err := m.publish(ctx, event); err != nil {
            log.Printf("approval: publishing decision for reservation %d failed: %v", event.ReservationID, err)
        }
    })
}

func (m *Machine) submit(name string, fn func(ctx context.Context)) {
    if !m.pool.Submit(name, fn) {
        log.Printf("approval: background task %q dropped, queue full", name)
    }
}

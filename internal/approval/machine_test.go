package approval

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"

    "github.com/lacasita/reservation-service/internal/model"
    "github.com/lacasita/reservation-service/internal/queue"
)

var errNotFound = errors.New("reservation not found")

// memStore is an in-memory Store with real compare-and-set semantics.
// beforeTransition, when set, runs once before the next TransitionStatus
// acquires the lock; tests use it to interleave a concurrent event at a
// precise point.
type memStore struct {
    mu   sync.Mutex
    byID map[uint64]*model.Reservation

    hookMu           sync.Mutex
    beforeTransition func()
}

func newMemStore(rows ...*model.Reservation) *memStore {
    s := &memStore{byID: make(map[uint64]*model.Reservation)}
    for _, r := range rows {
        cp := *r
        s.byID[r.ID] = &cp
    }
    return s
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        return nil, errNotFound
    }
    cp := *r
    return &cp, nil
}

func (s *memStore) TransitionStatus(_ context.Context, id uint64, from, to string, denialReason *string) (bool, error) {
    s.hookMu.Lock()
    hook := s.beforeTransition
    s.beforeTransition = nil
    s.hookMu.Unlock()
    if hook != nil {
        hook()
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok || r.Status != from {
        return false, nil
    }
    r.Status = to
    if denialReason != nil {
        reason := *denialReason
        r.DenialReason = &reason
    }
    return true, nil
}

func (s *memStore) SetTelegramMessageID(_ context.Context, id uint64, messageID int) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        return errNotFound
    }
    r.TelegramMessageID = &messageID
    return nil
}

func (s *memStore) status(t *testing.T, id uint64) string {
    t.Helper()
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        t.Fatalf("reservation %d not in store", id)
    }
    return r.Status
}

type sentEmail struct {
    to      string
    subject string
    body    string
}

type reasonPrompt struct {
    chatID  int64
    replyTo int
}

// recordingNotifier captures every outbound call.
type recordingNotifier struct {
    mu            sync.Mutex
    promptErr     error
    nextMessageID int
    prompts       []model.Reservation
    edits         []string
    reasonPrompts []reasonPrompt
    emails        []sentEmail
}

func (n *recordingNotifier) SendDecisionPrompt(_ context.Context, res *model.Reservation) (int, error) {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.promptErr != nil {
        return 0, n.promptErr
    }
    n.prompts = append(n.prompts, *res)
    n.nextMessageID++
    return n.nextMessageID, nil
}

func (n *recordingNotifier) EditDecisionPrompt(_ context.Context, _ int, text string) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.edits = append(n.edits, text)
    return nil
}

func (n *recordingNotifier) SendReasonPrompt(_ context.Context, chatID int64, replyTo int) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.reasonPrompts = append(n.reasonPrompts, reasonPrompt{chatID: chatID, replyTo: replyTo})
    return nil
}

func (n *recordingNotifier) SendEmail(_ context.Context, to, subject, body string) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.emails = append(n.emails, sentEmail{to: to, subject: subject, body: body})
    return nil
}

// inlineDispatcher runs submitted tasks synchronously so tests observe
// side effects without sleeping.
type inlineDispatcher struct{}

func (inlineDispatcher) Submit(_ string, fn func(ctx context.Context)) bool {
    fn(context.Background())
    return true
}

type eventRecorder struct {
    mu     sync.Mutex
    events []queue.ReservationDecidedEvent
}

func (r *eventRecorder) publish(_ context.Context, ev queue.ReservationDecidedEvent) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, ev)
    return nil
}

func pendingReservation(id uint64) *model.Reservation {
    msgID := 500
    return &model.Reservation{
        ID:                id,
        Name:              "Dana",
        Email:             "dana@example.com",
        Phone:             "555-0101",
        Date:              "2026-09-12",
        Time:              "19:30",
        Diners:            4,
        Seating:           "inside",
        Pickup:            "no",
        Status:            model.StatusPending,
        Token:             "tok123",
        TelegramMessageID: &msgID,
    }
}

func newTestMachine(store Store, notifier Notifier, rec *eventRecorder) *Machine {
    var publish PublishFunc
    if rec != nil {
        publish = rec.publish
    }
    return NewMachine(store, notifier, NewCorrelationTable(), inlineDispatcher{}, publish, "https://example.com/rebook")
}

func TestHandleSubmissionSendsPromptAndAck(t *testing.T) {
    res := pendingReservation(1)
    res.TelegramMessageID = nil
    store := newMemStore(res)
    notifier := &recordingNotifier{}
    m := newTestMachine(store, notifier, nil)

    m.HandleSubmission(res)

    if len(notifier.prompts) != 1 {
        t.Fatalf("got %d decision prompts, want 1", len(notifier.prompts))
    }
    stored, _ := store.GetByID(context.Background(), 1)
    if stored.TelegramMessageID == nil || *stored.TelegramMessageID != 1 {
        t.Errorf("prompt message id not persisted: %v", stored.TelegramMessageID)
    }
    if len(notifier.emails) != 1 {
        t.Fatalf("got %d emails, want 1", len(notifier.emails))
    }
    if notifier.emails[0].subject != "Reservation Request Received" {
        t.Errorf("ack subject = %q", notifier.emails[0].subject)
    }
    if notifier.emails[0].to != "dana@example.com" {
        t.Errorf("ack recipient = %q", notifier.emails[0].to)
    }
}

func TestHandleSubmissionPromptFailureLeavesRecordUsable(t *testing.T) {
    res := pendingReservation(1)
    res.TelegramMessageID = nil
    store := newMemStore(res)
    notifier := &recordingNotifier{promptErr: errors.New("telegram down")}
    m := newTestMachine(store, notifier, nil)

    m.HandleSubmission(res)

    stored, _ := store.GetByID(context.Background(), 1)
    if stored.Status != model.StatusPending {
        t.Errorf("status = %q, want Pending", stored.Status)
    }
    if stored.TelegramMessageID != nil {
        t.Error("message id persisted despite prompt failure")
    }
}

func TestHandleButtonAccept(t *testing.T) {
    store := newMemStore(pendingReservation(1))
    notifier := &recordingNotifier{}
    rec := &eventRecorder{}
    m := newTestMachine(store, notifier, rec)

    outcome, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionAccept, ReservationID: 1, ChatID: 99})
    if err != nil {
        t.Fatalf("HandleButton: %v", err)
    }
    if outcome != OutcomeConfirmed {
        t.Fatalf("outcome = %q, want confirmed", outcome)
    }
    if got := store.status(t, 1); got != model.StatusConfirmed {
        t.Errorf("status = %q, want Confirmed", got)
    }
    if len(notifier.edits) != 1 || !strings.HasPrefix(notifier.edits[0], "✅ Accepted") {
        t.Errorf("prompt edit = %v", notifier.edits)
    }
    if len(notifier.emails) != 1 || notifier.emails[0].subject != "Reservation Confirmed" {
        t.Errorf("emails = %v", notifier.emails)
    }
    if len(rec.events) != 1 || rec.events[0].Status != model.StatusConfirmed {
        t.Errorf("decision events = %v", rec.events)
    }
}

// Redelivered button presses lose the compare-and-set and must not
// re-send notifications.
func TestHandleButtonAcceptReplayIgnored(t *testing.T) {
    store := newMemStore(pendingReservation(1))
    notifier := &recordingNotifier{}
    m := newTestMachine(store, notifier, nil)
    ev := ButtonPressed{Action: ActionAccept, ReservationID: 1, ChatID: 99}

    if _, err := m.HandleButton(context.Background(), ev); err != nil {
        t.Fatalf("first press: %v", err)
    }
    edits, emails := len(notifier.edits), len(notifier.emails)

    outcome, err := m.HandleButton(context.Background(), ev)
    if err != nil {
        t.Fatalf("second press: %v", err)
    }
    if outcome != OutcomeIgnored {
        t.Fatalf("replay outcome = %q, want ignored", outcome)
    }
    if len(notifier.edits) != edits || len(notifier.emails) != emails {
        t.Error("replay re-sent notifications")
    }
}

func TestHandleButtonDenyStartsReasonCollection(t *testing.T) {
    store := newMemStore(pendingReservation(1))
    notifier := &recordingNotifier{}
    m := newTestMachine(store, notifier, nil)

    outcome, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionDeny, ReservationID: 1, ChatID: 99})
    if err != nil {
        t.Fatalf("HandleButton: %v", err)
    }
    if outcome != OutcomeAwaitingReason {
        t.Fatalf("outcome = %q, want awaiting_reason", outcome)
    }
    if got := store.status(t, 1); got != model.StatusAwaitingReason {
        t.Errorf("status = %q, want AwaitingDenialReason", got)
    }
    if len(notifier.edits) != 1 || !strings.HasPrefix(notifier.edits[0], "🔄 Processing Denial") {
        t.Errorf("prompt edit = %v", notifier.edits)
    }
    if len(notifier.reasonPrompts) != 1 {
        t.Fatalf("got %d reason prompts, want 1", len(notifier.reasonPrompts))
    }
    if rp := notifier.reasonPrompts[0]; rp.chatID != 99 || rp.replyTo != 500 {
        t.Errorf("reason prompt = %+v", rp)
    }
    if len(notifier.emails) != 0 {
        t.Errorf("deny sent %d emails before the reason arrived", len(notifier.emails))
    }
    if id, ok := m.correlations.Resolve(99); !ok || id != 1 {
        t.Errorf("correlation = (%d, %v), want (1, true)", id, ok)
    }
}

// A deny that re-registers the chat while a reply is being finalized
// must keep its correlation: the reply's cleanup is a compare-and-delete
// and leaves the newer entry in place, so the second denial can still be
// completed with its own reply.
func TestReplyDoesNotDiscardConcurrentDeny(t *testing.T) {
    store := newMemStore(pendingReservation(1), pendingReservation(2))
    notifier := &recordingNotifier{}
    m := newTestMachine(store, notifier, nil)

    if _, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionDeny, ReservationID: 1, ChatID: 99}); err != nil {
        t.Fatalf("deny 1: %v", err)
    }

    // The next TransitionStatus is the reply's AwaitingDenialReason →
    // Denied step; fire the second deny inside that window.
    store.hookMu.Lock()
    store.beforeTransition = func() {
        if _, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionDeny, ReservationID: 2, ChatID: 99}); err != nil {
            t.Errorf("deny 2: %v", err)
        }
    }
    store.hookMu.Unlock()

    outcome, err := m.HandleReply(context.Background(), TextReply{ChatID: 99, Text: "No tables"})
    if err != nil {
        t.Fatalf("first reply: %v", err)
    }
    if outcome != OutcomeDenied {
        t.Fatalf("first reply outcome = %q, want denied", outcome)
    }
    if got := store.status(t, 1); got != model.StatusDenied {
        t.Errorf("reservation 1 status = %q, want Denied", got)
    }

    // The interleaved deny's correlation must survive the cleanup.
    if id, ok := m.correlations.Resolve(99); !ok || id != 2 {
        t.Fatalf("correlation after reply = (%d, %v), want (2, true)", id, ok)
    }
    outcome, err = m.HandleReply(context.Background(), TextReply{ChatID: 99, Text: "Private event"})
    if err != nil {
        t.Fatalf("second reply: %v", err)
    }
    if outcome != OutcomeDenied {
        t.Fatalf("second reply outcome = %q, want denied", outcome)
    }
    if got := store.status(t, 2); got != model.StatusDenied {
        t.Errorf("reservation 2 status = %q, want Denied", got)
    }
}

// Of two racing decisions on the same reservation exactly one wins the
// compare-and-set; the loser resolves to ignored and sends nothing.
func TestAcceptDenyMutuallyExclusive(t *testing.T) {
    cases := []struct {
        name          string
        first, second Action
        wantStatus    string
    }{
        {name: "accept then deny", first: ActionAccept, second: ActionDeny, wantStatus: model.StatusConfirmed},
        {name: "deny then accept", first: ActionDeny, second: ActionAccept, wantStatus: model.StatusAwaitingReason},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            store := newMemStore(pendingReservation(1))
            m := newTestMachine(store, &recordingNotifier{}, nil)
            if _, err := m.HandleButton(context.Background(), ButtonPressed{Action: tc.first, ReservationID: 1, ChatID: 99}); err != nil {
                t.Fatalf("first press: %v", err)
            }
            outcome, err := m.HandleButton(context.Background(), ButtonPressed{Action: tc.second, ReservationID: 1, ChatID: 99})
            if err != nil {
                t.Fatalf("second press: %v", err)
            }
            if outcome != OutcomeIgnored {
                t.Errorf("second press outcome = %q, want ignored", outcome)
            }
            if got := store.status(t, 1); got != tc.wantStatus {
                t.Errorf("status = %q, want %q", got, tc.wantStatus)
            }
        })
    }
}

// The same exclusion must hold under real interleaving: Accept and Deny
// fired from separate goroutines race on the store's compare-and-set and
// exactly one may win.
func TestAcceptDenyRace(t *testing.T) {
    for i := 0; i < 50; i++ {
        store := newMemStore(pendingReservation(1))
        m := newTestMachine(store, &recordingNotifier{}, nil)

        actions := []Action{ActionAccept, ActionDeny}
        outcomes := make([]Outcome, len(actions))
        var wg sync.WaitGroup
        for j, a := range actions {
            wg.Add(1)
            go func(j int, a Action) {
                defer wg.Done()
                out, err := m.HandleButton(context.Background(), ButtonPressed{Action: a, ReservationID: 1, ChatID: 99})
                if err != nil {
                    t.Errorf("HandleButton(%q): %v", a, err)
                }
                outcomes[j] = out
            }(j, a)
        }
        wg.Wait()

        winners := 0
        for _, o := range outcomes {
            if o != OutcomeIgnored {
                winners++
            }
        }
        if winners != 1 {
            t.Fatalf("outcomes = %v, want exactly one winner", outcomes)
        }
        status := store.status(t, 1)
        switch {
        case outcomes[0] == OutcomeConfirmed && status == model.StatusConfirmed:
        case outcomes[1] == OutcomeAwaitingReason && status == model.StatusAwaitingReason:
        default:
            t.Fatalf("outcomes = %v but stored status = %q", outcomes, status)
        }
    }
}

func TestHandleButtonUnknownReservation(t *testing.T) {
    m := newTestMachine(newMemStore(), &recordingNotifier{}, nil)
    _, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionAccept, ReservationID: 404, ChatID: 99})
    if !errors.Is(err, errNotFound) {
        t.Fatalf("err = %v, want store not-found", err)
    }
}

func TestHandleReplyFinalizesDenial(t *testing.T) {
    store := newMemStore(pendingReservation(1))
    notifier := &recordingNotifier{}
    rec := &eventRecorder{}
    m := newTestMachine(store, notifier, rec)

    if _, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionDeny, ReservationID: 1, ChatID: 99}); err != nil {
        t.Fatalf("deny: %v", err)
    }
    outcome, err := m.HandleReply(context.Background(), TextReply{ChatID: 99, Text: "Fully booked that evening"})
    if err != nil {
        t.Fatalf("HandleReply: %v", err)
    }
    if outcome != OutcomeDenied {
        t.Fatalf("outcome = %q, want denied", outcome)
    }
    if got := store.status(t, 1); got != model.StatusDenied {
        t.Errorf("status = %q, want Denied", got)
    }
    stored, _ := store.GetByID(context.Background(), 1)
    if stored.DenialReason == nil || *stored.DenialReason != "Fully booked that evening" {
        t.Errorf("denial reason = %v", stored.DenialReason)
    }
    if _, ok := m.correlations.Resolve(99); ok {
        t.Error("correlation not cleared after denial")
    }

    var denialEmail *sentEmail
    for i := range notifier.emails {
        if notifier.emails[i].subject == "Reservation Denied" {
            denialEmail = &notifier.emails[i]
        }
    }
    if denialEmail == nil {
        t.Fatalf("no denial email in %v", notifier.emails)
    }
    if !strings.Contains(denialEmail.body, "Fully booked that evening") {
        t.Error("denial email missing the reason")
    }
    if !strings.Contains(denialEmail.body, "https://example.com/rebook?reservation_id=1&token=tok123") {
        t.Errorf("denial email missing re-booking link: %s", denialEmail.body)
    }
    if len(rec.events) != 1 || rec.events[0].Status != model.StatusDenied || rec.events[0].DenialReason != "Fully booked that evening" {
        t.Errorf("decision events = %v", rec.events)
    }
}

func TestHandleReplyBlankReasonUsesDefault(t *testing.T) {
    for _, text := range []string{"", "   ", "\n\t"} {
        store := newMemStore(pendingReservation(1))
        notifier := &recordingNotifier{}
        m := newTestMachine(store, notifier, nil)
        if _, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionDeny, ReservationID: 1, ChatID: 99}); err != nil {
            t.Fatalf("deny: %v", err)
        }
        if _, err := m.HandleReply(context.Background(), TextReply{ChatID: 99, Text: text}); err != nil {
            t.Fatalf("reply %q: %v", text, err)
        }
        stored, _ := store.GetByID(context.Background(), 1)
        if stored.DenialReason == nil || *stored.DenialReason != DefaultDenialReason {
            t.Errorf("reply %q stored reason %v, want %q", text, stored.DenialReason, DefaultDenialReason)
        }
    }
}

func TestHandleReplyWithoutCorrelationIgnored(t *testing.T) {
    store := newMemStore(pendingReservation(1))
    notifier := &recordingNotifier{}
    m := newTestMachine(store, notifier, nil)

    outcome, err := m.HandleReply(context.Background(), TextReply{ChatID: 99, Text: "hello"})
    if err != nil {
        t.Fatalf("HandleReply: %v", err)
    }
    if outcome != OutcomeIgnored {
        t.Fatalf("outcome = %q, want ignored", outcome)
    }
    if got := store.status(t, 1); got != model.StatusPending {
        t.Errorf("status = %q, want Pending", got)
    }
}

// A second deny in the same chat retargets the pending reason; the
// reply then finalizes the newer reservation and the superseded one
// stays parked in AwaitingDenialReason.
func TestSecondDenySupersedesFirst(t *testing.T) {
    first := pendingReservation(1)
    second := pendingReservation(2)
    second.Token = "tok456"
    store := newMemStore(first, second)
    notifier := &recordingNotifier{}
    m := newTestMachine(store, notifier, nil)

    for _, id := range []uint64{1, 2} {
        if _, err := m.HandleButton(context.Background(), ButtonPressed{Action: ActionDeny, ReservationID: id, ChatID: 99}); err != nil {
            t.Fatalf("deny %d: %v", id, err)
        }
    }
    outcome, err := m.HandleReply(context.Background(), TextReply{ChatID: 99, Text: "No tables"})
    if err != nil {
        t.Fatalf("HandleReply: %v", err)
    }
    if outcome != OutcomeDenied {
        t.Fatalf("outcome = %q, want denied", outcome)
    }
    if got := store.status(t, 2); got != model.StatusDenied {
        t.Errorf("reservation 2 status = %q, want Denied", got)
    }
    if got := store.status(t, 1); got != model.StatusAwaitingReason {
        t.Errorf("reservation 1 status = %q, want AwaitingDenialReason", got)
    }
}

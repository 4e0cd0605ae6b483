package handler

import (
    "context"
    "errors"
    "net/http"

    tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
    "github.com/labstack/echo/v4"

    "github.com/lacasita/reservation-service/internal/approval"
    "github.com/lacasita/reservation-service/internal/metrics"
    "github.com/lacasita/reservation-service/internal/repository"
)

// CallbackAnswerer acknowledges a button press back to the chat
// platform.  Implemented by the notifier gateway.
type CallbackAnswerer interface {
    AnswerCallback(ctx context.Context, callbackID, text string) error
}

// TelegramHandler receives the chat platform's webhook deliveries and
// routes them to the approval state machine as typed events.  Inbound
// payloads are untrusted and delivered at-least-once: anything the
// handler does not recognize is acknowledged with 200/"ignored" so the
// platform never retries it, and only malformed JSON is rejected.
type TelegramHandler struct {
    Machine  *approval.Machine
    Answerer CallbackAnswerer
    Pool     approval.Dispatcher
    Metrics  *metrics.Metrics
}

// NewTelegramHandler constructs a TelegramHandler.  Machine, Answerer
// and Pool must be non-nil; Metrics may be nil.
func NewTelegramHandler(machine *approval.Machine, answerer CallbackAnswerer, pool approval.Dispatcher, m *metrics.Metrics) *TelegramHandler {
    if machine == nil || answerer == nil || pool == nil {
        panic("nil dependency passed to NewTelegramHandler")
    }
    return &TelegramHandler{Machine: machine, Answerer: answerer, Pool: pool, Metrics: m}
}

// Handle processes POST /telegram-callback.
func (h *TelegramHandler) Handle(c echo.Context) error {
    var update tgbotapi.Update
    if err := c.Bind(&update); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "Invalid payload"})
    }

    switch {
    case update.CallbackQuery != nil:
        return h.handleCallback(c, update.CallbackQuery)
    case update.Message != nil && update.Message.ReplyToMessage != nil && update.Message.Chat != nil:
        return h.handleReply(c, update.Message)
    default:
        return h.respond(c, approval.OutcomeIgnored)
    }
}

// handleCallback turns a button press into a ButtonPressed event.  The
// callback query is acknowledged immediately on the background pool so
// the operator's client stops spinning regardless of how the event
// resolves.
func (h *TelegramHandler) handleCallback(c echo.Context, cb *tgbotapi.CallbackQuery) error {
    callbackID := cb.ID
    h.Pool.Submit("answer-callback", func(ctx context.Context) {
        _ = h.Answerer.AnswerCallback(ctx, callbackID, "Processing your request...")
    })

    if cb.Message == nil || cb.Message.Chat == nil {
        return h.respond(c, approval.OutcomeIgnored)
    }
    action, reservationID, err := approval.DecodeCallback(cb.Data)
    if err != nil {
        c.Logger().Warnf("telegram-callback: %v", err)
        return h.respond(c, approval.OutcomeIgnored)
    }

    ev := approval.ButtonPressed{
        Action:        action,
        ReservationID: reservationID,
        CallbackID:    cb.ID,
        ChatID:        cb.Message.Chat.ID,
        MessageID:     cb.Message.MessageID,
    }
    outcome, err := h.Machine.HandleButton(c.Request().Context(), ev)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"status": "error", "message": "Reservation not found"})
        }
        c.Logger().Errorf("telegram-callback: button handling failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "Internal server error"})
    }
    return h.respond(c, outcome)
}

// handleReply turns a reply message into a TextReply event.  Replies
// with no registered denial correlation resolve to "ignored".
func (h *TelegramHandler) handleReply(c echo.Context, msg *tgbotapi.Message) error {
    ev := approval.TextReply{
        ChatID:             msg.Chat.ID,
        Text:               msg.Text,
        RepliedToMessageID: msg.ReplyToMessage.MessageID,
    }
    outcome, err := h.Machine.HandleReply(c.Request().Context(), ev)
    if err != nil {
        c.Logger().Errorf("telegram-callback: reply handling failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "Internal server error"})
    }
    return h.respond(c, outcome)
}

func (h *TelegramHandler) respond(c echo.Context, outcome approval.Outcome) error {
    if h.Metrics != nil {
        h.Metrics.CallbacksProcessed.WithLabelValues(string(outcome)).Inc()
        switch outcome {
        case approval.OutcomeConfirmed:
            h.Metrics.Decisions.WithLabelValues("Confirmed").Inc()
        case approval.OutcomeDenied:
            h.Metrics.Decisions.WithLabelValues("Denied").Inc()
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"status": string(outcome)})
}

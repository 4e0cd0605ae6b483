// Package notifier wraps the outbound transports used by the approval
// workflow: the Telegram Bot API for the operator chat and SMTP for
// guest email.  Every operation is bounded by a timeout and reports
// failures as errors; callers treat them as best-effort.
package notifier

import (
    "context"
    "net/http"
    "time"

    tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

    "github.com/lacasita/reservation-service/internal/approval"
    "github.com/lacasita/reservation-service/internal/metrics"
    "github.com/lacasita/reservation-service/internal/model"
)

// Telegram sends and edits decision prompts in the configured operator
// chat.  Timeouts are enforced by the underlying HTTP client, so a slow
// Bot API call can never stall a worker indefinitely.
type Telegram struct {
    bot     *tgbotapi.BotAPI
    chatID  int64
    metrics *metrics.Metrics
}

// NewTelegram authenticates against the Bot API and returns a Telegram
// notifier targeting the given operator chat.
func NewTelegram(token string, chatID int64, timeout time.Duration, m *metrics.Metrics) (*Telegram, error) {
    client := &http.Client{Timeout: timeout}
    bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
    if err != nil {
        return nil, err
    }
    return &Telegram{bot: bot, chatID: chatID, metrics: m}, nil
}

// SendDecisionPrompt posts the reservation details with inline
// Accept/Deny buttons and returns the id of the sent message for later
// edits.
func (t *Telegram) SendDecisionPrompt(ctx context.Context, res *model.Reservation) (int, error) {
    if err := ctx.Err(); err != nil {
        return 0, err
    }
    msg := tgbotapi.NewMessage(t.chatID, approval.PromptText(res))
    msg.ReplyMarkup = decisionKeyboard(res.ID)
    sent, err := t.bot.Send(msg)
    if err != nil {
        t.countError()
        return 0, err
    }
    return sent.MessageID, nil
}

// EditDecisionPrompt replaces the prompt text and swaps the keyboard
// for inert buttons, leaving an inline audit trail of the decision.
func (t *Telegram) EditDecisionPrompt(ctx context.Context, messageID int, text string) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    edit := tgbotapi.NewEditMessageTextAndMarkup(t.chatID, messageID, text, decidedKeyboard())
    if _, err := t.bot.Send(edit); err != nil {
        t.countError()
        return err
    }
    return nil
}

// SendReasonPrompt asks the operator for a free-text denial reason.
// The force-reply markup makes the next operator message arrive as a
// reply, which is what the webhook handler matches on.
func (t *Telegram) SendReasonPrompt(ctx context.Context, chatID int64, replyToMessageID int) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    msg := tgbotapi.NewMessage(chatID, "Please provide a reason for denial:")
    if replyToMessageID != 0 {
        msg.ReplyToMessageID = replyToMessageID
    }
    msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}
    if _, err := t.bot.Send(msg); err != nil {
        t.countError()
        return err
    }
    return nil
}

// AnswerCallback acknowledges a button press so the operator's client
// stops showing a progress spinner.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    cb := tgbotapi.NewCallback(callbackID, text)
    if _, err := t.bot.Request(cb); err != nil {
        t.countError()
        return err
    }
    return nil
}

func (t *Telegram) countError() {
    if t.metrics != nil {
        t.metrics.NotificationErrors.WithLabelValues("telegram").Inc()
    }
}

// decisionKeyboard carries the encoded accept/deny callback data for a
// pending reservation.
func decisionKeyboard(reservationID uint64) tgbotapi.InlineKeyboardMarkup {
    return tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            tgbotapi.NewInlineKeyboardButtonData("✅ Accept", approval.EncodeCallback(approval.ActionAccept, reservationID)),
            tgbotapi.NewInlineKeyboardButtonData("❌ Deny", approval.EncodeCallback(approval.ActionDeny, reservationID)),
        ),
    )
}

// decidedKeyboard replaces the live buttons after a decision.  The
// "decided" callback data fails decoding on purpose, so a press on a
// stale button is acknowledged and dropped.
func decidedKeyboard() tgbotapi.InlineKeyboardMarkup {
    return tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            tgbotapi.NewInlineKeyboardButtonData("Decision recorded", "decided"),
        ),
    )
}

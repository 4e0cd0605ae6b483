package notifier

import (
    "context"

    "github.com/lacasita/reservation-service/internal/model"
)

// Gateway bundles the chat and email transports behind the single
// notifier boundary the approval machine consumes.
type Gateway struct {
    tg   *Telegram
    mail *Mailer
}

// NewGateway composes a Gateway from the two transports.
func NewGateway(tg *Telegram, mail *Mailer) *Gateway {
    return &Gateway{tg: tg, mail: mail}
}

func (g *Gateway) SendDecisionPrompt(ctx context.Context, res *model.Reservation) (int, error) {
    return g.tg.SendDecisionPrompt(ctx, res)
}

func (g *Gateway) EditDecisionPrompt(ctx context.Context, messageID int, text string) error {
    return g.tg.EditDecisionPrompt(ctx, messageID, text)
}

func (g *Gateway) SendReasonPrompt(ctx context.Context, chatID int64, replyToMessageID int) error {
    return g.tg.SendReasonPrompt(ctx, chatID, replyToMessageID)
}

func (g *Gateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
    return g.tg.AnswerCallback(ctx, callbackID, text)
}

func (g *Gateway) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
    return g.mail.SendEmail(ctx, to, subject, htmlBody)
}

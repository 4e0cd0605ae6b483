package approval

import (
    "fmt"

    "github.com/lacasita/reservation-service/internal/model"
)

// PromptText renders the operator-facing decision prompt body for a
// reservation.  Edits to the prompt rebuild the same body with a status
// line prefixed, so the prompt message doubles as an inline audit trail
// of the decision.
func PromptText(res *model.Reservation) string {
    return fmt.Sprintf(`New Reservation Request:
Name: %s
Email: %s
Phone: %s
Date: %s
Time: %s
Diners: %d
Seating: %s
Pickup: %s`,
        res.Name, res.Email, res.Phone, res.Date, res.Time,
        res.Diners, res.Seating, res.Pickup)
}

// acceptedText is the prompt body after the operator accepts.
func acceptedText(res *model.Reservation) string {
    return "✅ Accepted\n" + PromptText(res)
}

// processingDenialText is the prompt body while a denial reason is
// being collected.
func processingDenialText(res *model.Reservation) string {
    return "🔄 Processing Denial\n" + PromptText(res)
}

// deniedText is the final prompt body after a denial is resolved.
func deniedText(res *model.Reservation, reason string) string {
    return "❌ Denied\n" + PromptText(res) + "\nReason: " + reason
}

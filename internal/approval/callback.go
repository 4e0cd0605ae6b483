package approval

import (
    "fmt"
    "strconv"
    "strings"
)

// EncodeCallback builds the callback data attached to a decision prompt
// button, e.g. "accept_42".  The format is the wire contract between
// the prompt keyboard and DecodeCallback.
func EncodeCallback(action Action, reservationID uint64) string {
    return string(action) + "_" + strconv.FormatUint(reservationID, 10)
}

// DecodeCallback parses inbound callback data into an action and a
// reservation id.  The payload is untrusted: anything that is not
// exactly "<accept|deny>_<positive integer>" is rejected with an error
// so the dispatcher can acknowledge and drop it instead of crashing.
func DecodeCallback(data string) (Action, uint64, error) {
    parts := strings.SplitN(data, "_", 2)
    if len(parts) != 2 {
        return "", 0, fmt.Errorf("malformed callback data %q", data)
    }
    var action Action
    switch parts[0] {
    case string(ActionAccept):
        action = ActionAccept
    case string(ActionDeny):
        action = ActionDeny
    default:
        return "", 0, fmt.Errorf("unknown callback action %q", parts[0])
    }
    id, err := strconv.ParseUint(parts[1], 10, 64)
    if err != nil || id == 0 {
        return "", 0, fmt.Errorf("invalid reservation id in callback data %q", data)
    }
    return action, id, nil
}

package handler

import (
    "context"       // context with timeout for DB calls
    "errors"        // errors.Is comparisons against repository sentinels
    "math"          // integrality check on the diners field
    "net/http"      // HTTP status codes
    "strconv"       // parsing path parameters
    "strings"       // joining the missing-field list
    "time"          // request timeouts and date validation

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/lacasita/reservation-service/internal/approval"
    "github.com/lacasita/reservation-service/internal/metrics"
    "github.com/lacasita/reservation-service/internal/model"
    "github.com/lacasita/reservation-service/internal/repository"
)

// ReservationStore is the slice of the persistence layer the HTTP
// handlers need.  It is implemented by repository.ReservationRepo;
// tests substitute an in-memory fake.
type ReservationStore interface {
    Create(ctx context.Context, res *model.Reservation) error
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    List(ctx context.Context) ([]model.ReservationSummary, error)
}

// ReservationHandler implements the guest-facing intake and lookup
// endpoints and the operator list endpoint.
type ReservationHandler struct {
    Store   ReservationStore
    Machine *approval.Machine
    Metrics *metrics.Metrics
}

// NewReservationHandler constructs a ReservationHandler.  Store and
// Machine must be non-nil; Metrics may be nil.
func NewReservationHandler(store ReservationStore, machine *approval.Machine, m *metrics.Metrics) *ReservationHandler {
    if store == nil || machine == nil {
        panic("nil dependency passed to NewReservationHandler")
    }
    return &ReservationHandler{Store: store, Machine: machine, Metrics: m}
}

// requiredFields lists the intake fields a submission must carry, in
// the order they are reported back when missing.
var requiredFields = []string{"name", "email", "phone", "time", "date", "diners", "seating", "pickup"}

// Create handles POST /api/reservations.  It validates the guest
// submission, creates the Pending record, and dispatches the operator
// decision prompt and the acknowledgment email as detached background
// work before returning 201.  Missing fields are listed by name in the
// 400 response so the guest-facing form can highlight them.
func (h *ReservationHandler) Create(c echo.Context) error {
    var body map[string]interface{}
    if err := c.Bind(&body); err != nil || body == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "Request must be JSON"})
    }

    missing := make([]string, 0)
    for _, f := range requiredFields {
        v, ok := body[f]
        if !ok || asString(v) == "" {
            missing = append(missing, f)
        }
    }
    if len(missing) > 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "status":  "error",
            "message": "Missing fields: " + strings.Join(missing, ", "),
        })
    }

    date := asString(body["date"])
    if _, err := time.Parse("2006-01-02", date); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "Invalid date format. Use YYYY-MM-DD"})
    }
    diners, err := asInt(body["diners"])
    if err != nil || diners < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "diners must be a positive integer"})
    }

    res := &model.Reservation{
        Name:    asString(body["name"]),
        Email:   asString(body["email"]),
        Phone:   asString(body["phone"]),
        Date:    date,
        Time:    asString(body["time"]),
        Diners:  diners,
        Seating: asString(body["seating"]),
        Pickup:  asString(body["pickup"]),
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Store.Create(ctx, res); err != nil {
        c.Logger().Errorf("reservation create failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "Internal server error"})
    }

    // Side effects run detached; the record is already durable.
    h.Machine.HandleSubmission(res)
    if h.Metrics != nil {
        h.Metrics.ReservationsCreated.Inc()
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "status":         "success",
        "message":        "Reservation created",
        "reservation_id": res.ID,
    })
}

// Get handles GET /api/reservations/:id.  Access requires the
// reservation's capability token as a query parameter: 401 when absent,
// 403 on mismatch, 404 for an unknown id.  The response excludes the
// token itself and the chat correlation id.
func (h *ReservationHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid reservation id"})
    }
    token := c.QueryParam("token")
    if token == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error", "message": "Token is required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    res, err := h.Store.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"status": "error", "message": "Reservation not found"})
        }
        c.Logger().Errorf("reservation lookup failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "Internal server error"})
    }
    if res.Token != token {
        return c.JSON(http.StatusForbidden, echo.Map{"status": "error", "message": "Invalid token"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "status": "success",
        "data": echo.Map{
            "name":          res.Name,
            "email":         res.Email,
            "phone":         res.Phone,
            "date":          res.Date,
            "time":          res.Time,
            "diners":        res.Diners,
            "seating":       res.Seating,
            "pickup":        res.Pickup,
            "status":        res.Status,
            "denial_reason": res.DenialReason,
        },
    })
}

// List handles GET /api/reservations.  The route is registered behind
// the staff JWT middleware; summaries come back ordered by date then
// time.
func (h *ReservationHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    summaries, err := h.Store.List(ctx)
    if err != nil {
        c.Logger().Errorf("reservation list failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "Internal server error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "status": "success",
        "count":  len(summaries),
        "data":   summaries,
    })
}

// asString extracts a trimmed string from a decoded JSON value.
// Numbers are accepted for fields like phone that clients sometimes
// send unquoted.
func asString(v interface{}) string {
    switch t := v.(type) {
    case string:
        return strings.TrimSpace(t)
    case float64:
        if t == float64(int64(t)) {
            return strconv.FormatInt(int64(t), 10)
        }
        return strconv.FormatFloat(t, 'f', -1, 64)
    default:
        return ""
    }
}

// asInt extracts an integer from a decoded JSON value, accepting both
// numeric and quoted forms.  Fractional numbers are rejected, not
// truncated.
func asInt(v interface{}) (int, error) {
    switch t := v.(type) {
    case float64:
        if t != math.Trunc(t) {
            return 0, strconv.ErrSyntax
        }
        return int(t), nil
    case string:
        return strconv.Atoi(strings.TrimSpace(t))
    default:
        return 0, strconv.ErrSyntax
    }
}

package repository

import (
    "context"
    "crypto/rand"
    "database/sql"
    "encoding/hex"
    "errors"

    "github.com/go-sql-driver/mysql"

    "github.com/lacasita/reservation-service/internal/model"
)

// ReservationRepo provides data access to the reservations table.  A
// reservation row is the durable source of truth for the approval
// workflow: notification side effects may fail without affecting it.
// Rows are never deleted; denied and confirmed reservations are kept as
// an audit record.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for health checks.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// Create inserts a new reservation in state Pending, assigning a fresh
// random access token.  It populates ID, Status, Token and the
// timestamps on the provided record.  The token is generated from
// crypto/rand and is unique under the table's UNIQUE constraint; the
// insert is retried once on the (practically unreachable) collision.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    const q = `INSERT INTO reservations
               (name, email, phone, date, time, diners, seating, pickup, status, token)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    for attempt := 0; attempt < 2; attempt++ {
        token, err := randomToken(16)
        if err != nil {
            return err
        }
        result, err := r.db.ExecContext(ctx, q,
            res.Name, res.Email, res.Phone, res.Date, res.Time,
            res.Diners, res.Seating, res.Pickup, model.StatusPending, token,
        )
        if err != nil {
            if isDuplicate(err) && attempt == 0 {
                continue
            }
            return err
        }
        id, err := result.LastInsertId()
        if err != nil {
            return err
        }
        res.ID = uint64(id)
        res.Status = model.StatusPending
        res.Token = token
        // Query back the row to populate DB-assigned timestamps.
        const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
        return r.db.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
    }
    return errors.New("token collision")
}

// GetByID returns a single reservation by id.  When no reservation with
// the specified id exists, ErrReservationNotFound is returned.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT id, name, email, phone, date, time, diners, seating, pickup,
                      status, denial_reason, token, telegram_message_id, created_at, updated_at
               FROM reservations WHERE id = ?`
    var res model.Reservation
    var denialReason sql.NullString
    var messageID sql.NullInt64
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &res.ID, &res.Name, &res.Email, &res.Phone, &res.Date, &res.Time,
        &res.Diners, &res.Seating, &res.Pickup,
        &res.Status, &denialReason, &res.Token, &messageID, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    if denialReason.Valid {
        dr := denialReason.String
        res.DenialReason = &dr
    }
    if messageID.Valid {
        mid := int(messageID.Int64)
        res.TelegramMessageID = &mid
    }
    return &res, nil
}

// TransitionStatus advances a reservation from one lifecycle state to
// another with a single-row compare-and-set.  It returns true when the
// row was in the expected `from` state and has been moved to `to`, and
// false when the row was missing or had already left `from`.  Callers
// rely on this as the linearization point for concurrent callbacks: of
// two racing transitions from the same state exactly one observes true.
// The denial reason is written together with the state so a Denied row
// always carries its reason.
func (r *ReservationRepo) TransitionStatus(ctx context.Context, id uint64, from, to string, denialReason *string) (bool, error) {
    const q = `UPDATE reservations
               SET status = ?, denial_reason = ?
               WHERE id = ? AND status = ?`
    var reason sql.NullString
    if denialReason != nil {
        reason = sql.NullString{String: *denialReason, Valid: true}
    }
    result, err := r.db.ExecContext(ctx, q, to, reason, id, from)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// SetTelegramMessageID records the chat message id of the decision
// prompt once the send has succeeded.  The prompt is sent after the row
// is committed, so a missing row here indicates a bug rather than a
// race; it is reported as ErrReservationNotFound.
func (r *ReservationRepo) SetTelegramMessageID(ctx context.Context, id uint64, messageID int) error {
    const q = `UPDATE reservations SET telegram_message_id = ? WHERE id = ?`
    result, err := r.db.ExecContext(ctx, q, messageID, id)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // RowsAffected is also 0 when the value is unchanged; distinguish
        // by checking existence.
        var exists int
        if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&exists); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrReservationNotFound
            }
            return err
        }
    }
    return nil
}

// List returns summaries of all reservations ordered by date then time.
// When no reservations exist, an empty slice is returned.
func (r *ReservationRepo) List(ctx context.Context) ([]model.ReservationSummary, error) {
    const q = `SELECT id, name, date, time, diners, status
               FROM reservations
               ORDER BY date, time`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    summaries := make([]model.ReservationSummary, 0)
    for rows.Next() {
        var s model.ReservationSummary
        if err := rows.Scan(&s.ID, &s.Name, &s.Date, &s.Time, &s.Diners, &s.Status); err != nil {
            return nil, err
        }
        summaries = append(summaries, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return summaries, nil
}

// randomToken generates a random hexadecimal string from n bytes of
// cryptographically secure data (2n characters).
func randomToken(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}

// isDuplicate reports whether the error is a MySQL duplicate-key
// violation (error 1062).
func isDuplicate(err error) bool {
    var mysqlErr *mysql.MySQLError
    return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// Package database opens the MySQL pool that backs the reservation
// store.  The reservations table is the durable source of truth for the
// approval workflow, so the pool is verified with a ping before the
// server starts accepting traffic.
package database

import (
    "context"
    "database/sql"
    "net"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/lacasita/reservation-service/internal/config"
)

// PingTimeout bounds connectivity probes against the database, both the
// startup check here and the /test health endpoint.
const PingTimeout = 5 * time.Second

// Open connects to the MySQL database named in cfg and verifies the
// connection before returning.  ParseTime maps the created_at and
// updated_at DATETIME columns onto time.Time, and the session location
// is pinned to UTC so reservation timestamps compare consistently
// across replicas.
func Open(cfg config.Config) (*sql.DB, error) {
    db, err := sql.Open("mysql", dsn(cfg))
    if err != nil {
        return nil, err
    }

    // Intake traffic is bursty but brief; a modest steady pool outlasts
    // the bursts without piling up idle connections.
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(25)
    db.SetConnMaxLifetime(30 * time.Minute)

    ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        return nil, err
    }
    return db, nil
}

// dsn renders the driver DSN from the DB_* configuration fields.  An
// empty DB_PASS yields a passwordless login rather than an empty
// password.
func dsn(cfg config.Config) string {
    mc := mysql.NewConfig()
    mc.User = cfg.DBUser
    mc.Passwd = cfg.DBPass
    mc.Net = "tcp"
    mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
    mc.DBName = cfg.DBName
    mc.ParseTime = true
    mc.Loc = time.UTC
    mc.Params = map[string]string{"charset": "utf8mb4"}
    return mc.FormatDSN()
}

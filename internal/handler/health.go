package handler

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/lacasita/reservation-service/internal/database"
)

// HealthHandler reports service liveness plus the state of its backing
// stores.
type HealthHandler struct {
    DB    *sql.DB
    Redis *redis.Client // nil when rate limiting is disabled
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
    return &HealthHandler{DB: db, Redis: rdb}
}

// Status handles GET /test.  The database must answer a ping for the
// service to report healthy; Redis is optional and only annotated.
func (h *HealthHandler) Status(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), database.PingTimeout)
    defer cancel()

    if err := h.DB.PingContext(ctx); err != nil {
        c.Logger().Errorf("health check: database ping failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{
            "status":   "error",
            "service":  "Reservation System",
            "database": "disconnected",
        })
    }

    cache := "disabled"
    if h.Redis != nil {
        if err := h.Redis.Ping(ctx).Err(); err != nil {
            cache = "disconnected"
        } else {
            cache = "connected"
        }
    }

    return c.JSON(http.StatusOK, echo.Map{
        "status":    "running",
        "service":   "Reservation System",
        "timestamp": time.Now().UTC().Format(time.RFC3339),
        "database":  "connected",
        "cache":     cache,
    })
}

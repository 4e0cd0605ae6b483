package router // package router wires URL paths to their handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/lacasita/reservation-service/internal/handler"
    "github.com/lacasita/reservation-service/internal/middleware"
)

// Deps carries everything the route table needs.  Keeping it a struct
// lets main construct the pieces in dependency order and hand them over
// in one call.
type Deps struct {
    Reservations *handler.ReservationHandler
    Telegram     *handler.TelegramHandler
    Auth         *handler.AuthHandler
    Health       *handler.HealthHandler
    JWTSecret    string
    RateLimiter  echo.MiddlewareFunc // applied to the public intake route
}

// RegisterRoutes attaches every endpoint to the Echo instance.
//
//  GET  /test                    liveness + backing store status
//  GET  /metrics                 Prometheus scrape endpoint
//  POST /telegram-callback       operator chat webhook
//  POST /api/reservations        guest intake (rate limited)
//  GET  /api/reservations        operator list (staff JWT)
//  GET  /api/reservations/:id    guest lookup (capability token)
//  POST /api/staff/login         staff token issuance
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.GET("/test", d.Health.Status)
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
    e.POST("/telegram-callback", d.Telegram.Handle)

    api := e.Group("/api")
    if d.RateLimiter != nil {
        api.POST("/reservations", d.Reservations.Create, d.RateLimiter)
    } else {
        api.POST("/reservations", d.Reservations.Create)
    }
    api.GET("/reservations", d.Reservations.List, middleware.StaffAuth(d.JWTSecret))
    api.GET("/reservations/:id", d.Reservations.Get)
    api.POST("/staff/login", d.Auth.Login)

    e.RouteNotFound("/*", notFound)
}

// notFound lists the public surface so misrouted clients can correct
// themselves without documentation.
func notFound(c echo.Context) error {
    return c.JSON(http.StatusNotFound, echo.Map{
        "status":  "error",
        "message": "Endpoint not found",
        "valid_endpoints": []string{
            "POST /api/reservations",
            "GET /api/reservations/:id",
            "GET /api/reservations",
            "POST /api/staff/login",
            "POST /telegram-callback",
            "GET /test",
        },
    })
}

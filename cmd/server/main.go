package main // entry point of the reservation service

import (
    "log"  // startup logging before Echo takes over
    "time" // timeouts for the notifier transports and worker pool

    "github.com/labstack/echo/v4"            // Echo web framework
    echomw "github.com/labstack/echo/v4/middleware" // Echo's built-in middleware set

    "github.com/lacasita/reservation-service/internal/approval"
    "github.com/lacasita/reservation-service/internal/config"
    "github.com/lacasita/reservation-service/internal/database"
    "github.com/lacasita/reservation-service/internal/handler"
    "github.com/lacasita/reservation-service/internal/metrics"
    appmw "github.com/lacasita/reservation-service/internal/middleware"
    "github.com/lacasita/reservation-service/internal/notifier"
    "github.com/lacasita/reservation-service/internal/queue"
    "github.com/lacasita/reservation-service/internal/repository"
    "github.com/lacasita/reservation-service/internal/router"
    queue_publisher "github.com/lacasita/reservation-service/internal/service"
)

func main() {
    // Load configuration from the environment (.env in development).
    cfg := config.Load()

    // Open the MySQL pool and verify connectivity before serving.
    db, err := database.Open(cfg)
    if err != nil {
        log.Fatalf("❌ Database connection failed: %v", err)
    }
    log.Println("✅ Connected to MySQL")

    // Redis backs the intake rate limiter only; the service runs
    // without it.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("⚠️ Redis unavailable; rate limiting disabled")
    }

    m := metrics.New()
    repo := repository.NewReservationRepo(db)

    tg, err := notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, 10*time.Second, m)
    if err != nil {
        log.Fatalf("❌ Telegram bot init failed: %v", err)
    }
    mailer := notifier.NewMailer(cfg.MailServer, cfg.MailPort, cfg.MailUseTLS, cfg.MailUsername, cfg.MailPassword, cfg.SenderEmail, 15*time.Second, m)
    gateway := notifier.NewGateway(tg, mailer)

    // The pool bounds concurrent notification work; overflow is dropped
    // and counted rather than stalling request handlers.
    pool := notifier.NewPool(4, 64, 15*time.Second, m)
    defer pool.Shutdown()

    machine := approval.NewMachine(
        repo,
        gateway,
        approval.NewCorrelationTable(),
        pool,
        queue_publisher.PublishReservationDecided,
        cfg.BookingURL,
    )

    // Decision events are consumed into the audit log in the
    // background; the consumer reconnects on broker failures.
    go func() {
        if err := queue.StartDecisionConsumer(); err != nil {
            log.Printf("⚠️ Decision consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())

    router.RegisterRoutes(e, router.Deps{
        Reservations: handler.NewReservationHandler(repo, machine, m),
        Telegram:     handler.NewTelegramHandler(machine, gateway, pool, m),
        Auth:         handler.NewAuthHandler(cfg.StaffPasswordHash, cfg.JWTSecret, cfg.AccessTTLMin),
        Health:       handler.NewHealthHandler(db, rdb),
        JWTSecret:    cfg.JWTSecret,
        RateLimiter:  appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
    })

    log.Printf("🚀 Starting server on port %s (env=%s)", cfg.Port, cfg.Env)
    if err := e.Start(":" + cfg.Port); err != nil {
        log.Fatalf("❌ Server stopped: %v", err)
    }
}

package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient builds the client backing the intake rate limiter.
// Redis is strictly optional for this service: when the ping fails the
// function returns nil and the limiter degrades to a pass-through, so a
// missing Redis never blocks reservations from being taken.
//
// Environment variables:
//
//	REDIS_ADDR       host:port (shorthand)
//	REDIS_HOST/PORT  components; override REDIS_ADDR when both are set
//	REDIS_PASSWORD   optional password
//	REDIS_DB         database number, default 0
//	REDIS_TLS        "true"/"1" to enable TLS
func NewRedisClient() *redis.Client {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    host := envStr("REDIS_HOST", "")
    port := envStr("REDIS_PORT", "")
    if host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }

    var tlsConf *tls.Config
    if envBool("REDIS_TLS", false) {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  envStr("REDIS_PASSWORD", ""),
        DB:        envInt("REDIS_DB", 0),
        TLSConfig: tlsConf,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}

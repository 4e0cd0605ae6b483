package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types

    "github.com/joho/godotenv" // godotenv loads a local .env file during development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for ports and
// durations.
type Config struct {
    Env               string // application environment (e.g. "dev", "prod")
    Port              string // HTTP port to listen on
    DBUser            string // database username
    DBPass            string // database password (optional)
    DBHost            string // database host address
    DBPort            string // database port number
    DBName            string // database name
    TelegramBotToken  string // bot token used for the operator chat
    TelegramChatID    int64  // chat id where decision prompts are posted
    JWTSecret         string // secret used to sign staff JWTs
    StaffPasswordHash string // bcrypt hash of the staff password
    AccessTTLMin      int    // staff access token time-to-live in minutes
    MailServer        string // SMTP relay hostname
    MailPort          int    // SMTP relay port
    MailUseTLS        bool   // whether to STARTTLS before authenticating
    MailUsername      string // SMTP username (optional; no auth when empty)
    MailPassword      string // SMTP password
    SenderEmail       string // From address on guest emails
    BookingURL        string // base URL of the re-booking page linked in denial emails
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file is loaded first when present.  Required variables
// are enforced by must() and missing values cause the program to exit with
// a fatal log message.
func Load() Config {
    _ = godotenv.Load() // optional; real deployments set the environment directly
    return Config{
        Env:               must("APP_ENV"),
        Port:              must("APP_PORT"),
        DBUser:            must("DB_USER"),
        DBPass:            os.Getenv("DB_PASS"), // empty allowed
        DBHost:            must("DB_HOST"),
        DBPort:            must("DB_PORT"),
        DBName:            must("DB_NAME"),
        TelegramBotToken:  must("TELEGRAM_BOT_TOKEN"),
        TelegramChatID:    mustInt64("TELEGRAM_CHAT_ID"),
        JWTSecret:         must("JWT_SECRET"),
        StaffPasswordHash: must("STAFF_PASSWORD_HASH"),
        AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 60),
        MailServer:        envStr("MAIL_SERVER", "smtp.sendgrid.net"),
        MailPort:          envInt("MAIL_PORT", 587),
        MailUseTLS:        envBool("MAIL_USE_TLS", true),
        MailUsername:      os.Getenv("MAIL_USERNAME"),
        MailPassword:      os.Getenv("MAIL_PASSWORD"),
        SenderEmail:       envStr("SENDER_EMAIL", "no-reply@reservations.com"),
        BookingURL:        envStr("BOOKING_URL", "https://snack.expo.dev/@beachbar/la-casita-booking"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt64 is like must() but converts the retrieved string into an int64.
// If conversion fails, the application logs a fatal error and exits.
func mustInt64(key string) int64 {
    s := must(key)
    n, err := strconv.ParseInt(s, 10, 64)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

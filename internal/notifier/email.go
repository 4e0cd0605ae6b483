package notifier

import (
    "context"
    "crypto/tls"
    "fmt"
    "net"
    "net/smtp"
    "strconv"
    "time"

    "github.com/lacasita/reservation-service/internal/metrics"
)

// Mailer delivers guest-facing HTML email over SMTP with STARTTLS.
// Every connection carries an absolute deadline, so a stalled relay
// fails the send instead of pinning a worker.
type Mailer struct {
    host     string
    port     int
    useTLS   bool
    username string
    password string
    sender   string
    timeout  time.Duration
    metrics  *metrics.Metrics
}

// NewMailer returns a Mailer for the given SMTP relay.
func NewMailer(host string, port int, useTLS bool, username, password, sender string, timeout time.Duration, m *metrics.Metrics) *Mailer {
    return &Mailer{
        host:     host,
        port:     port,
        useTLS:   useTLS,
        username: username,
        password: password,
        sender:   sender,
        timeout:  timeout,
        metrics:  m,
    }
}

// SendEmail sends a single HTML message.  The context bounds the dial;
// the connection deadline bounds the rest of the SMTP dialogue.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
    if err := m.send(ctx, to, subject, htmlBody); err != nil {
        if m.metrics != nil {
            m.metrics.NotificationErrors.WithLabelValues("email").Inc()
        }
        return err
    }
    if m.metrics != nil {
        m.metrics.EmailsSent.Inc()
    }
    return nil
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
    addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
    dialer := net.Dialer{Timeout: m.timeout}
    conn, err := dialer.DialContext(ctx, "tcp", addr)
    if err != nil {
        return fmt.Errorf("smtp dial: %w", err)
    }
    defer conn.Close()
    _ = conn.SetDeadline(time.Now().Add(m.timeout))

    client, err := smtp.NewClient(conn, m.host)
    if err != nil {
        return fmt.Errorf("smtp handshake: %w", err)
    }
    defer client.Close()

    if m.useTLS {
        if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
            return fmt.Errorf("smtp starttls: %w", err)
        }
    }
    if m.username != "" {
        auth := smtp.PlainAuth("", m.username, m.password, m.host)
        if err := client.Auth(auth); err != nil {
            return fmt.Errorf("smtp auth: %w", err)
        }
    }
    if err := client.Mail(m.sender); err != nil {
        return fmt.Errorf("smtp mail from: %w", err)
    }
    if err := client.Rcpt(to); err != nil {
        return fmt.Errorf("smtp rcpt to: %w", err)
    }
    w, err := client.Data()
    if err != nil {
        return fmt.Errorf("smtp data: %w", err)
    }
    msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n",
        m.sender, to, subject, htmlBody)
    if _, err := w.Write([]byte(msg)); err != nil {
        return fmt.Errorf("smtp write: %w", err)
    }
    if err := w.Close(); err != nil {
        return fmt.Errorf("smtp close data: %w", err)
    }
    return client.Quit()
}

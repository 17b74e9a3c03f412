package alert

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EmailChannel delivers alerts over SMTP. Delivery is best-effort and
// bounded by the context deadline plus a connection deadline on the socket.
type EmailChannel struct {
	logger   zerolog.Logger
	name     string
	addr     string
	from     string
	to       []string
	timeout  time.Duration
	sendMail func(ctx context.Context, subject, body string) error
}

// NewEmailChannel creates an SMTP channel. Returns nil when addr is empty
// (channel not configured).
func NewEmailChannel(logger zerolog.Logger, name, addr, from string, to []string, timeout time.Duration) *EmailChannel {
	if addr == "" || from == "" || len(to) == 0 {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultTiming.timeout
	}

	c := &EmailChannel{
		logger:  logger,
		name:    name,
		addr:    addr,
		from:    from,
		to:      to,
		timeout: timeout,
	}
	c.sendMail = c.smtpSend
	return c
}

// Name implements Channel.
func (c *EmailChannel) Name() string {
	return c.name
}

// Send implements Channel.
func (c *EmailChannel) Send(ctx context.Context, _ Severity, subject, body string) error {
	if c == nil {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.sendMail(sendCtx, subject, body); err != nil {
		return fmt.Errorf("smtp delivery: %w", err)
	}

	c.logger.Debug().
		Str("channel", c.name).
		Str("subject", subject).
		Int("recipients", len(c.to)).
		Msg("email alert sent")

	return nil
}

func (c *EmailChannel) smtpSend(ctx context.Context, subject, body string) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host := c.addr
	if h, _, splitErr := net.SplitHostPort(c.addr); splitErr == nil {
		host = h
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if err := client.Mail(c.from); err != nil {
		return err
	}
	for _, rcpt := range c.to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		c.from, strings.Join(c.to, ", "), subject, body)
	if _, err := writer.Write([]byte(message)); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return client.Quit()
}

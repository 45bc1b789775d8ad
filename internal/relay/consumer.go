package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"gallery/internal/models"
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, inq models.Inquiry) error
}

// Read errors other than shutdown are retried after a pause that doubles up
// to maxReadBackoff.
var (
	minReadBackoff = 500 * time.Millisecond
	maxReadBackoff = 30 * time.Second
)

// Consume reads inquiries until ctx is done or the reader is closed. Read
// errors, bad messages and failed deliveries are logged and skipped.
func Consume(ctx context.Context, reader MessageReader, d Deliverer, logger *slog.Logger) error {
	backoff := minReadBackoff
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			logger.Error("error reading inquiry", slog.Any("error", err), slog.Duration("retry_in", backoff))

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			backoff = min(backoff*2, maxReadBackoff)
			continue
		}
		backoff = minReadBackoff

		var inq models.Inquiry
		if err := json.Unmarshal(msg.Value, &inq); err != nil {
			logger.Warn("dropping malformed inquiry", slog.Int64("offset", msg.Offset), slog.Any("error", err))
			continue
		}
		if inq, err = Validate(inq); err != nil {
			logger.Warn("dropping invalid inquiry", slog.Int64("offset", msg.Offset), slog.Any("error", err))
			continue
		}
		if err := d.Deliver(ctx, inq); err != nil {
			logger.Error("error delivering inquiry", slog.Int64("offset", msg.Offset), slog.Any("error", err))
		}
	}
}

// LogDeliverer writes inquiries to the log, for setups without SMTP.
type LogDeliverer struct {
	Logger *slog.Logger
}

func (l LogDeliverer) Deliver(_ context.Context, inq models.Inquiry) error {
	l.Logger.Info("inquiry received",
		slog.String("name", inq.Name),
		slog.String("email", inq.Email),
		slog.String("phone", inq.Phone),
		slog.String("message", inq.Message),
	)
	return nil
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPDeliverer mails each inquiry to the studio address.
type SMTPDeliverer struct {
	cfg      models.SMTPConfig
	sendMail sendMailFunc
}

func NewSMTPDeliverer(cfg models.SMTPConfig) *SMTPDeliverer {
	return &SMTPDeliverer{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPDeliverer) Deliver(_ context.Context, inq models.Inquiry) error {
	const op = "relay.SMTPDeliverer.Deliver"

	var auth smtp.Auth
	if s.cfg.Username != "" {
		host := s.cfg.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
	}

	if err := s.sendMail(s.cfg.Addr, auth, s.cfg.From, []string{s.cfg.To}, composeMessage(s.cfg, inq)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func composeMessage(cfg models.SMTPConfig, inq models.Inquiry) []byte {
	phone := inq.Phone
	if phone == "" {
		phone = "Not provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", cfg.To)
	fmt.Fprintf(&b, "Reply-To: %s\r\n", headerSafe(inq.Email))
	fmt.Fprintf(&b, "Subject: New Inquiry from %s\r\n", headerSafe(inq.Name))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Name: %s\r\nEmail: %s\r\nPhone: %s\r\n\r\n%s\r\n", inq.Name, inq.Email, phone, inq.Message)
	return []byte(b.String())
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Package relay forwards visitor inquiries from the contact form to the
// studio's inbox through a Kafka topic.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/segmentio/kafka-go"

	"gallery/internal/models"
)

const maxMessageLen = 5000

// Validate checks the required fields and normalizes whitespace.
func Validate(inq models.Inquiry) (models.Inquiry, error) {
	const op = "relay.Validate"

	inq.Name = strings.TrimSpace(inq.Name)
	inq.Email = strings.TrimSpace(inq.Email)
	inq.Phone = strings.TrimSpace(inq.Phone)
	inq.Message = strings.TrimSpace(inq.Message)

	switch {
	case inq.Name == "":
		return inq, fmt.Errorf("%s: %w: name is required", op, models.ErrInvalidInquiry)
	case inq.Email == "":
		return inq, fmt.Errorf("%s: %w: email is required", op, models.ErrInvalidInquiry)
	case inq.Message == "":
		return inq, fmt.Errorf("%s: %w: message is required", op, models.ErrInvalidInquiry)
	case len(inq.Message) > maxMessageLen:
		return inq, fmt.Errorf("%s: %w: message is too long", op, models.ErrInvalidInquiry)
	}
	if _, err := mail.ParseAddress(inq.Email); err != nil {
		return inq, fmt.Errorf("%s: %w: bad email: %v", op, models.ErrInvalidInquiry, err)
	}
	return inq, nil
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	writer MessageWriter
	logger *slog.Logger
}

func NewProducer(writer MessageWriter, logger *slog.Logger) *Producer {
	return &Producer{writer: writer, logger: logger}
}

// Send validates inq and hands it to the topic. With an async writer this
// returns before the broker acknowledges.
func (p *Producer) Send(ctx context.Context, inq models.Inquiry) error {
	const op = "relay.Send"

	inq, err := Validate(inq)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(inq)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := kafka.Message{Key: []byte(strings.ToLower(inq.Email)), Value: payload}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.logger.Info("inquiry queued", slog.String("name", inq.Name))
	return nil
}

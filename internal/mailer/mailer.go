// Package mailer queues transactional mail for the external delivery worker.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

const (
	TemplatePasswordReset = "password_reset"

	routingKeyPrefix = "mail."
)

var ErrMissingRecipient = errors.New("mail recipient is required")

// Job is the message body consumed by the mail worker.
type Job struct {
	Template  string    `json:"template"`
	To        string    `json:"to"`
	FullName  string    `json:"fullName"`
	Code      string    `json:"code,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

type Mailer struct {
	publisher Publisher
	service   string
}

func New(publisher Publisher, service string) *Mailer {
	return &Mailer{publisher: publisher, service: service}
}

// SendPasswordReset queues the reset code mail. The code is the plain value;
// only its hash is stored.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, fullName, code string, expiresAt time.Time) error {
	if to == "" {
		return ErrMissingRecipient
	}
	return m.enqueue(ctx, Job{
		Template:  TemplatePasswordReset,
		To:        to,
		FullName:  fullName,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
	})
}

func (m *Mailer) enqueue(ctx context.Context, job Job) error {
	if m == nil || m.publisher == nil {
		log.Printf("mailer disabled, dropping template=%s to=%s", job.Template, job.To)
		return nil
	}

	headers := map[string]string{"x-service": m.service}
	if err := m.publisher.Publish(ctx, routingKeyPrefix+job.Template, job, headers); err != nil {
		return fmt.Errorf("queue %s mail: %w", job.Template, err)
	}
	return nil
}

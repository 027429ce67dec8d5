// Package telemetry emits audit records for account and session actions.
package telemetry

import (
	"context"
	"log"
	"time"
)

type Action string

const (
	ActionSignup         Action = "user.signup"
	ActionLogin          Action = "user.login"
	ActionLoginFailed    Action = "user.login_failed"
	ActionProfileUpdated Action = "user.profile_updated"
	ActionResetRequested Action = "user.password_reset_requested"
	ActionPasswordReset  Action = "user.password_reset"
	ActionAuditTest      Action = "debug.audit_test"
)

const auditSchemaVersion = 2

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Record describes one audited action. UserID is empty for anonymous callers.
type Record struct {
	Action    Action
	Level     string
	RequestID string
	UserID    string
	ClientIP  string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Action   Action `json:"action"`
	Level    string `json:"level"`
	ClientIP string `json:"client_ip,omitempty"`
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes rec. A nil emitter drops it.
func (e *AuditEmitter) Emit(ctx context.Context, rec Record) {
	if e == nil || e.publisher == nil {
		return
	}
	if rec.Level == "" {
		rec.Level = "INFO"
	}

	log.Printf("audit emit: action=%s level=%s request_id=%s user_id=%s", rec.Action, rec.Level, rec.RequestID, rec.UserID)
	envelope := AuditEnvelope{
		SchemaVersion: auditSchemaVersion,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		Payload: AuditPayload{
			Action:   rec.Action,
			Level:    rec.Level,
			ClientIP: rec.ClientIP,
		},
	}
	if rec.UserID != "" {
		userID := rec.UserID
		envelope.UserID = &userID
	}

	headers := map[string]string{"x-audit-action": string(rec.Action)}
	if rec.RequestID != "" {
		headers["x-request-id"] = rec.RequestID
	}
	if err := e.publisher.Publish(ctx, e.routingKey, envelope, headers); err != nil {
		log.Printf("audit publish failed action=%s: %v", rec.Action, err)
	}
}

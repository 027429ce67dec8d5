package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	routingKey string
	event      any
	headers    map[string]string
}

type recordingPublisher struct {
	calls []recordedPublish
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	p.calls = append(p.calls, recordedPublish{routingKey: routingKey, event: event, headers: headers})
	return p.err
}

func TestSendPasswordResetQueuesJob(t *testing.T) {
	pub := &recordingPublisher{}
	m := New(pub, "realtime-chat")
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

	err := m.SendPasswordReset(context.Background(), "ana@example.com", "Ana", "123456", expires)
	require.NoError(t, err)
	require.Len(t, pub.calls, 1)

	call := pub.calls[0]
	assert.Equal(t, "mail.password_reset", call.routingKey)
	assert.Equal(t, "realtime-chat", call.headers["x-service"])

	job, ok := call.event.(Job)
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", job.To)
	assert.Equal(t, "Ana", job.FullName)
	assert.Equal(t, "123456", job.Code)
	assert.Equal(t, time.UTC, job.ExpiresAt.Location())
	assert.True(t, job.ExpiresAt.Equal(expires))
}

func TestSendPasswordResetRequiresRecipient(t *testing.T) {
	pub := &recordingPublisher{}
	err := New(pub, "svc").SendPasswordReset(context.Background(), "", "Ana", "1", time.Now())

	assert.ErrorIs(t, err, ErrMissingRecipient)
	assert.Empty(t, pub.calls)
}

func TestSendPasswordResetWrapsPublishError(t *testing.T) {
	boom := errors.New("boom")
	err := New(&recordingPublisher{err: boom}, "svc").SendPasswordReset(context.Background(), "a@b.c", "A", "1", time.Now())

	assert.ErrorIs(t, err, boom)
}

func TestNilPublisherDrops(t *testing.T) {
	assert.NoError(t, New(nil, "svc").SendPasswordReset(context.Background(), "a@b.c", "A", "1", time.Now()))
}

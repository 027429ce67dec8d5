package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"realtime-chat/internal/models"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, dataURL string) (string, error) {
	args := m.Called(ctx, dataURL)
	return args.String(0), args.Error(1)
}

type RelayMock struct {
	mock.Mock
}

func (m *RelayMock) Relay(msg models.Message) bool {
	args := m.Called(msg)
	return args.Bool(0)
}

type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) SendPasswordReset(ctx context.Context, to, fullName, code string, expiresAt time.Time) error {
	args := m.Called(ctx, to, fullName, code, expiresAt)
	return args.Error(0)
}

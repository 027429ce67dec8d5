package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, fullName, email, passwordHash string) (models.User, error) {
	args := m.Called(ctx, fullName, email, passwordHash)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfilePic(ctx context.Context, id, url string) (models.User, error) {
	args := m.Called(ctx, id, url)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetByResetToken(ctx context.Context, email, tokenHash string, now time.Time) (models.User, error) {
	args := m.Called(ctx, email, tokenHash, now)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) ResetPassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, senderID, receiverID, text, image string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, text, image)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func userArg(args mock.Arguments, i int) models.User {
	var user models.User
	if val := args.Get(i); val != nil {
		user = val.(models.User)
	}
	return user
}

var (
	_ repositories.UserRepository    = (*UserRepositoryMock)(nil)
	_ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
)

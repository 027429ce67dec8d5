package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"realtime-chat/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID, text, image string) (models.Message, error)
	GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message between two users.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID, text, image string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, sender_id, receiver_id, text, image) VALUES ($1, $2, $3, $4, $5) RETURNING id, sender_id, receiver_id, text, image, created_at`,
		uuid.NewString(), senderID, receiverID, text, image).StructScan(&msg)
	return msg, err
}

// GetConversation returns messages exchanged between two users, oldest first.
func (r *MessageRepo) GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	query := `SELECT id, sender_id, receiver_id, text, image, created_at
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at ASC`
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, query, userA, userB)
	return msgs, err
}

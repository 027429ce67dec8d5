package models

import "time"

// Message is a direct message between two users. It is immutable once stored.
type Message struct {
	ID         string    `db:"id" json:"_id"`
	SenderID   string    `db:"sender_id" json:"senderId"`
	ReceiverID string    `db:"receiver_id" json:"receiveId"`
	Text       string    `db:"text" json:"text,omitempty"`
	Image      string    `db:"image" json:"image,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

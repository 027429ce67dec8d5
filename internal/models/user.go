package models

import "time"

// User is an account known to the chat service.
type User struct {
	ID             string     `db:"id" json:"_id"`
	FullName       string     `db:"full_name" json:"fullName"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	ProfilePic     string     `db:"profile_pic" json:"profilePic"`
	ResetTokenHash *string    `db:"reset_token_hash" json:"-"`
	ResetExpiresAt *time.Time `db:"reset_expires_at" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

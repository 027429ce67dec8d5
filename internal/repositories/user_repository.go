package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"realtime-chat/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already in use")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

const uniqueViolationPQCode = pq.ErrorCode("23505")

// UserRepository abstracts account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, fullName, email, passwordHash string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfilePic(ctx context.Context, id, url string) (models.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, email, tokenHash string, now time.Time) (models.User, error)
	ResetPassword(ctx context.Context, id, passwordHash string) error
}

const userColumns = `id, full_name, email, password_hash, profile_pic, reset_token_hash, reset_expires_at, created_at, updated_at`

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new account. Emails are unique.
func (r *UserRepo) CreateUser(ctx context.Context, fullName, email, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (id, full_name, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		uuid.NewString(), fullName, email, passwordHash).StructScan(&user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationPQCode {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// ListUsers returns every account ordered by name.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY full_name ASC`)
	return users, err
}

// UpdateProfilePic stores a new avatar url and returns the updated user.
func (r *UserRepo) UpdateProfilePic(ctx context.Context, id, url string) (models.User, error) {
	return r.getOne(ctx, `UPDATE users SET profile_pic=$2, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, id, url)
}

// SetResetToken stores a hashed reset code with its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET reset_token_hash=$2, reset_expires_at=$3, updated_at=NOW() WHERE id=$1`, id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

// GetByResetToken returns the account for email when it holds the unexpired
// reset code. Codes are only unique per account.
func (r *UserRepo) GetByResetToken(ctx context.Context, email, tokenHash string, now time.Time) (models.User, error) {
	user, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1 AND reset_token_hash=$2 AND reset_expires_at > $3`, email, tokenHash, now)
	if errors.Is(err, ErrUserNotFound) {
		return models.User{}, ErrInvalidResetToken
	}
	return user, err
}

// ResetPassword replaces the password hash and clears any reset code.
func (r *UserRepo) ResetPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, reset_token_hash=NULL, reset_expires_at=NULL, updated_at=NOW() WHERE id=$1`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

func (r *UserRepo) getOne(ctx context.Context, query string, args ...interface{}) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func requireAffected(res sql.Result, notFound error) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}

package cache

import (
	"context"
	"log"

	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

const usersKey = "users:all"

// UserRepository caches ListUsers in front of another UserRepository.
// Writes that change the list invalidate it. Cache failures fall through to
// the wrapped store.
type UserRepository struct {
	repositories.UserRepository
	cache *Cache
}

// WrapUsers returns repo unchanged when c is nil.
func WrapUsers(repo repositories.UserRepository, c *Cache) repositories.UserRepository {
	if c == nil {
		return repo
	}
	return &UserRepository{UserRepository: repo, cache: c}
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	hit, err := r.cache.Get(ctx, usersKey, &users)
	if err != nil {
		log.Printf("user cache read failed: %v", err)
	}
	if hit {
		return users, nil
	}

	users, err = r.UserRepository.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, usersKey, users); err != nil {
		log.Printf("user cache write failed: %v", err)
	}
	return users, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, fullName, email, passwordHash string) (models.User, error) {
	user, err := r.UserRepository.CreateUser(ctx, fullName, email, passwordHash)
	if err == nil {
		r.invalidate(ctx)
	}
	return user, err
}

func (r *UserRepository) UpdateProfilePic(ctx context.Context, id, url string) (models.User, error) {
	user, err := r.UserRepository.UpdateProfilePic(ctx, id, url)
	if err == nil {
		r.invalidate(ctx)
	}
	return user, err
}

func (r *UserRepository) invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx, usersKey); err != nil {
		log.Printf("user cache invalidate failed: %v", err)
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"

	"github.com/google/uuid"
)

// Create inserts a new user; the email is unique.
func (d *DB) Create(ctx context.Context, user *domain.User) (string, error) {
	if user.Email == "" || user.PasswordHash == "" {
		return "", errors.New("user email and password hash are required")
	}
	user.ID = uuid.NewString()
	now := nowUTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO users(id, name, email, password_hash, created_at, updated_at) VALUES($1, $2, $3, $4, $5, $6);",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", repository.ErrDuplicate
		}
		return "", err
	}
	return user.ID, nil
}

// GetByEmail finds a user by email.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return d.getUser(ctx, "SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email=$1;", email)
}

// GetByID finds a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return d.getUser(ctx, "SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id=$1;", id)
}

func (d *DB) getUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

package rescuedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// User is a stored account. Emails are kept lower-cased.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser stores u, returning ErrDuplicate when the email is taken.
func (s *Storage) CreateUser(ctx context.Context, u *User) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&count); err != nil {
		return fmt.Errorf("error checking email: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user %s: %w", email, ErrDuplicate)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	u.Email = email
	return nil
}

// UserByEmail looks up a user by email, case-insensitively.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*User, error) {
	var (
		u         User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

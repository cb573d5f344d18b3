package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/model"
)

// UserRepository reads the users directory from PostgreSQL
type UserRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Postgres) *UserRepository {
	return &UserRepository{db: db}
}

// FindFirstByName returns one user matching firstname and surname exactly, and
// role when role is non-empty. Which row wins among ties is unspecified.
func (r *UserRepository) FindFirstByName(ctx context.Context, firstname, surname, role string) (*model.User, error) {
	query := `
		SELECT id, firstname, surname, COALESCE(role, ''), COALESCE(email, ''), created_at
		FROM users
		WHERE firstname = $1 AND surname = $2
	`
	args := []interface{}{firstname, surname}
	if role != "" {
		query += ` AND role = $3`
		args = append(args, role)
	}
	query += ` LIMIT 1`

	var user model.User
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Firstname,
		&user.Surname,
		&user.Role,
		&user.Email,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by name: %w", err)
	}
	return &user, nil
}

// Create inserts a user. Only the seed tool writes users; the directory is
// otherwise owned by user management.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if strings.TrimSpace(user.Firstname) == "" || strings.TrimSpace(user.Surname) == "" {
		return fmt.Errorf("user needs firstname and surname: %w", ErrInvalidInput)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO users (id, firstname, surname, role, email, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Firstname,
		user.Surname,
		user.Role,
		user.Email,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

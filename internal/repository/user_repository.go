// Package repository implements the user store on PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pigeonhq/pigeon-bot/internal/domain"
	"github.com/pigeonhq/pigeon-bot/internal/state"
)

// UserRepository is the SQL-backed implementation of state.UserStore. Every
// operation touches a single user's row and commits independently, so a read
// issued after a returned write always observes the committed value.
type UserRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) *UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &UserRepository{
		db:  db,
		log: log,
	}
}

// Find retrieves a user by chat ID, returning state.ErrUserNotFound when no
// row exists.
func (r *UserRepository) Find(ctx context.Context, chatID int64) (*domain.User, error) {
	const query = `
		SELECT chat_id, username, state
		FROM users
		WHERE chat_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, chatID)

	var user domain.User
	if err := row.Scan(&user.ChatID, &user.Username, &user.State); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, state.ErrUserNotFound
		}

		r.log.Error("failed to fetch user", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &user, nil
}

// Create persists a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (chat_id, username, state)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, user.ChatID, user.Username, user.State); err != nil {
		r.log.Error("failed to create user", slog.Int64("chat_id", user.ChatID), slog.Any("error", err))
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// UpdateState rewrites the persisted state tag. Updating a missing user is
// reported as state.ErrUserNotFound rather than silently affecting zero rows.
func (r *UserRepository) UpdateState(ctx context.Context, chatID int64, tag state.State) error {
	const query = `
		UPDATE users
		SET state = $2
		WHERE chat_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, chatID, string(tag))
	if err != nil {
		r.log.Error("failed to update user state", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return fmt.Errorf("update user state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user state: %w", err)
	}

	if affected == 0 {
		return state.ErrUserNotFound
	}

	return nil
}

// CountByState returns how many users are persisted in each state. Used for
// the users_by_state gauge.
func (r *UserRepository) CountByState(ctx context.Context) (map[state.State]int, error) {
	const query = `
		SELECT state, COUNT(*)
		FROM users
		GROUP BY state
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count users by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[state.State]int)
	for rows.Next() {
		var tag string
		var count int
		if err := rows.Scan(&tag, &count); err != nil {
			return nil, fmt.Errorf("count users by state: %w", err)
		}

		parsed, err := state.ParseState(tag)
		if err != nil {
			r.log.Error("corrupt state tag in users table", slog.String("tag", tag), slog.Any("error", err))
			continue
		}

		counts[parsed] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count users by state: %w", err)
	}

	return counts, nil
}

// Delete removes the user record. Deleting an already-absent user is not an
// error; the post-condition (no row) holds either way.
func (r *UserRepository) Delete(ctx context.Context, chatID int64) error {
	const query = `
		DELETE FROM users
		WHERE chat_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, chatID); err != nil {
		r.log.Error("failed to delete user", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

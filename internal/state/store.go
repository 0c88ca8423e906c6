package state

import (
	"context"
	"errors"

	"github.com/pigeonhq/pigeon-bot/internal/domain"
)

// ErrUserNotFound indicates that no record exists for the requested user.
var ErrUserNotFound = errors.New("user not found")

// UserStore defines the persistence contract the state machine depends on.
// Implementations must keep every operation scoped to a single user's row and
// support a read immediately after a committed write, so that the post-write
// verification step observes the mutation's true outcome.
type UserStore interface {
	// Find returns the record for the given chat ID, or ErrUserNotFound.
	Find(ctx context.Context, chatID int64) (*domain.User, error)
	// Create inserts a new user record with its initial state tag.
	Create(ctx context.Context, user *domain.User) error
	// UpdateState rewrites the persisted state tag for the given user.
	UpdateState(ctx context.Context, chatID int64, tag State) error
	// Delete removes the user record.
	Delete(ctx context.Context, chatID int64) error
}

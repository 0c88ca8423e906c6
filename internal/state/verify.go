package state

import (
	"context"
	"errors"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/result"
)

// VerifyUserState re-queries the store after a committed state mutation and
// downgrades res to a failure when the persisted tag does not match expected.
// Gateway failures must not be allowed to mask persistence corruption, so this
// check runs against the store directly and ignores anything the gateway did.
// When res is already a failure it is returned unchanged.
func VerifyUserState(ctx context.Context, store UserStore, chatID int64, expected State, res result.Result) result.Result {
	if !res.OK {
		return res
	}

	user, err := store.Find(ctx, chatID)
	if err != nil {
		return result.FailureWith("could not verify user state", apperrors.NewDatabaseError(err))
	}

	if user.State != string(expected) {
		return result.FailureWith("user state was not updated",
			apperrors.NewVerificationError("user state was not updated"))
	}

	return res
}

// VerifyUserDeletion confirms that no record remains for the user after a
// committed delete, downgrading res to a failure when one still exists.
func VerifyUserDeletion(ctx context.Context, store UserStore, chatID int64, res result.Result) result.Result {
	if !res.OK {
		return res
	}

	_, err := store.Find(ctx, chatID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return res
	case err != nil:
		return result.FailureWith("could not verify user deletion", apperrors.NewDatabaseError(err))
	default:
		return result.FailureWith("user was not deleted",
			apperrors.NewVerificationError("user was not deleted"))
	}
}

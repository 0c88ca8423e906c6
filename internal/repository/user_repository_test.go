package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/pigeonhq/pigeon-bot/internal/domain"
	"github.com/pigeonhq/pigeon-bot/internal/state"
)

func testRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewUserRepository(db, log), mock
}

func TestUserRepository_Find(t *testing.T) {
	tests := []struct {
		name         string
		chatID       int64
		mockRows     *sqlmock.Rows
		mockError    error
		expectedUser *domain.User
		expectedErr  error
	}{
		{
			name:   "user found",
			chatID: 42,
			mockRows: sqlmock.NewRows([]string{"chat_id", "username", "state"}).
				AddRow(int64(42), "pigeon", "idle"),
			expectedUser: &domain.User{ChatID: 42, Username: "pigeon", State: "idle"},
		},
		{
			name:        "user not found",
			chatID:      7,
			mockRows:    sqlmock.NewRows([]string{"chat_id", "username", "state"}),
			expectedErr: state.ErrUserNotFound,
		},
		{
			name:        "query error",
			chatID:      13,
			mockError:   errors.New("connection refused"),
			expectedErr: errors.New("select user"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := testRepo(t)

			query := "SELECT chat_id, username, state FROM users WHERE chat_id = \\$1"
			if tt.mockError != nil {
				mock.ExpectQuery(query).WithArgs(tt.chatID).WillReturnError(tt.mockError)
			} else {
				mock.ExpectQuery(query).WithArgs(tt.chatID).WillReturnRows(tt.mockRows)
			}

			user, err := repo.Find(context.Background(), tt.chatID)

			switch {
			case errors.Is(tt.expectedErr, state.ErrUserNotFound):
				assert.ErrorIs(t, err, state.ErrUserNotFound)
			case tt.expectedErr != nil:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedUser, user)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := testRepo(t)

	user := &domain.User{ChatID: 42, Username: "pigeon", State: "awaiting_start_confirmation"}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ChatID, user.Username, user.State).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), user)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateKey(t *testing.T) {
	repo, mock := testRepo(t)

	user := &domain.User{ChatID: 42, State: "awaiting_start_confirmation"}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ChatID, user.Username, user.State).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))

	err := repo.Create(context.Background(), user)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateState(t *testing.T) {
	tests := []struct {
		name        string
		result      driver.Result
		mockError   error
		expectedErr error
	}{
		{
			name:   "state updated",
			result: sqlmock.NewResult(0, 1),
		},
		{
			name:        "no rows affected",
			result:      sqlmock.NewResult(0, 0),
			expectedErr: state.ErrUserNotFound,
		},
		{
			name:        "exec error",
			mockError:   errors.New("connection refused"),
			expectedErr: errors.New("update user state"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := testRepo(t)

			exec := mock.ExpectExec("UPDATE users SET state = \\$2 WHERE chat_id = \\$1").
				WithArgs(int64(42), "idle")
			if tt.mockError != nil {
				exec.WillReturnError(tt.mockError)
			} else {
				exec.WillReturnResult(tt.result)
			}

			err := repo.UpdateState(context.Background(), 42, state.StateIdle)

			switch {
			case errors.Is(tt.expectedErr, state.ErrUserNotFound):
				assert.ErrorIs(t, err, state.ErrUserNotFound)
			case tt.expectedErr != nil:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock := testRepo(t)

	// Deleting an absent row affects zero rows and still succeeds.
	mock.ExpectExec("DELETE FROM users WHERE chat_id = \\$1").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 42)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CountByState(t *testing.T) {
	repo, mock := testRepo(t)

	rows := sqlmock.NewRows([]string{"state", "count"}).
		AddRow("idle", 10).
		AddRow("awaiting_start_confirmation", 2).
		AddRow("corrupt_tag", 1)

	mock.ExpectQuery("SELECT state, COUNT\\(\\*\\) FROM users GROUP BY state").
		WillReturnRows(rows)

	counts, err := repo.CountByState(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, map[state.State]int{
		state.StateIdle:                      10,
		state.StateAwaitingStartConfirmation: 2,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

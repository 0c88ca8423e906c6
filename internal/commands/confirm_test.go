package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/pigeonhq/pigeon-bot/internal/domain"
	"github.com/pigeonhq/pigeon-bot/internal/state"
)

func newConfirmations(ms *mockStore, mg *mockGateway) *Confirmations {
	machine := state.NewMachine(ms, mg, testLogger(), nil, 0)
	return NewConfirmations(ms, machine, testLogger())
}

func TestConfirmations_HandleCallback_StartYes(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, State: string(state.StateAwaitingStartConfirmation)}, nil).Once()
	ms.On("UpdateState", mock.Anything, int64(42), state.StateIdle).Return(nil).Once()
	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, State: string(state.StateIdle)}, nil).Once()
	mg.On("Send", mock.Anything, int64(42), state.MsgRegistered, mock.Anything).Return(nil).Once()

	c := newConfirmations(ms, mg)
	res := c.HandleCallback(context.Background(), 42, CallbackStartYes)

	if !res.OK {
		t.Fatalf("expected success, got failure: %s", res.Message)
	}

	ms.AssertExpectations(t)
	mg.AssertExpectations(t)
}

func TestConfirmations_HandleCallback_WrongFlow(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	// The session awaits start confirmation; a revoke callback must be
	// rejected without deleting anything.
	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, State: string(state.StateAwaitingStartConfirmation)}, nil).Once()

	c := newConfirmations(ms, mg)
	res := c.HandleCallback(context.Background(), 42, CallbackRevokeYes)

	if res.OK {
		t.Fatalf("expected failure, got success: %s", res.Message)
	}

	ms.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertExpectations(t)
	mg.AssertExpectations(t)
}

func TestConfirmations_HandleCallback_UnknownName(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	c := newConfirmations(ms, mg)
	res := c.HandleCallback(context.Background(), 42, "launch_missiles")

	if res.OK {
		t.Fatalf("expected failure, got success")
	}
	if !strings.Contains(res.Message, "unknown callback") {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	ms.AssertExpectations(t)
}

func TestConfirmations_HandleCallback_NoSession(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	ms.On("Find", mock.Anything, int64(42)).
		Return((*domain.User)(nil), state.ErrUserNotFound).Once()

	c := newConfirmations(ms, mg)
	res := c.HandleCallback(context.Background(), 42, CallbackStartYes)

	if res.OK {
		t.Fatalf("expected failure, got success")
	}
	if res.Message != "no active session for this confirmation" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	ms.AssertExpectations(t)
}

func TestConfirmations_HandleText_InvalidInput(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, State: string(state.StateAwaitingRevokeConfirmation)}, nil).Once()
	mg.On("Send", mock.Anything, int64(42), state.MsgInvalidConfirm, mock.Anything).Return(nil).Once()

	c := newConfirmations(ms, mg)
	res := c.HandleText(context.Background(), 42, "perhaps")

	if !res.OK {
		t.Fatalf("expected success (re-prompt), got failure: %s", res.Message)
	}

	// The session state is untouched by invalid input.
	ms.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	ms.AssertExpectations(t)
	mg.AssertExpectations(t)
}

func TestConfirmations_HandleText_RevokeNo(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, State: string(state.StateAwaitingRevokeConfirmation)}, nil).Once()
	ms.On("UpdateState", mock.Anything, int64(42), state.StateIdle).Return(nil).Once()
	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, State: string(state.StateIdle)}, nil).Once()
	mg.On("Send", mock.Anything, int64(42), state.MsgNotRevoked, mock.Anything).Return(nil).Once()

	c := newConfirmations(ms, mg)
	res := c.HandleText(context.Background(), 42, "No")

	if !res.OK {
		t.Fatalf("expected success, got failure: %s", res.Message)
	}

	ms.AssertExpectations(t)
	mg.AssertExpectations(t)
}

func TestConfirmations_HasSession(t *testing.T) {
	testCases := []struct {
		name string
		user *domain.User
		err  error
		want bool
	}{
		{"awaiting start", &domain.User{ChatID: 42, State: string(state.StateAwaitingStartConfirmation)}, nil, true},
		{"awaiting revoke", &domain.User{ChatID: 42, State: string(state.StateAwaitingRevokeConfirmation)}, nil, true},
		{"idle", &domain.User{ChatID: 42, State: string(state.StateIdle)}, nil, false},
		{"no record", nil, state.ErrUserNotFound, false},
		{"corrupt tag", &domain.User{ChatID: 42, State: "garbage"}, nil, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStore{}
			mg := &mockGateway{}
			ms.On("Find", mock.Anything, int64(42)).Return(tc.user, tc.err).Once()

			c := newConfirmations(ms, mg)
			if got := c.HasSession(context.Background(), 42); got != tc.want {
				t.Fatalf("HasSession = %v, want %v", got, tc.want)
			}

			ms.AssertExpectations(t)
		})
	}
}

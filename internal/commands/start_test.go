package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/pigeonhq/pigeon-bot/internal/content"
	"github.com/pigeonhq/pigeon-bot/internal/domain"
	"github.com/pigeonhq/pigeon-bot/internal/gateway"
	"github.com/pigeonhq/pigeon-bot/internal/state"
)

const welcomeText = "Hello! Would you like to register?"

func newStartCommand(ms *mockStore, mg *mockGateway, src content.Source) *StartCommand {
	machine := state.NewMachine(ms, mg, testLogger(), nil, 0)
	return NewStartCommand(ms, machine, mg, src, testLogger())
}

func TestStartCommand_NewUser(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	// Lookup misses, then the machine creates and verifies the session.
	ms.On("Find", mock.Anything, int64(42)).
		Return((*domain.User)(nil), state.ErrUserNotFound).Once()
	ms.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.ChatID == 42 && u.State == string(state.StateAwaitingStartConfirmation)
	})).Return(nil).Once()
	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, State: string(state.StateAwaitingStartConfirmation)}, nil).Once()
	mg.On("Send", mock.Anything, int64(42), welcomeText, mock.MatchedBy(func(actions []gateway.Action) bool {
		return len(actions) == 2 &&
			actions[0].Data == CallbackStartYes &&
			actions[1].Data == CallbackStartNo
	})).Return(nil).Once()

	cmd := newStartCommand(ms, mg, staticContent{text: welcomeText})
	res := cmd.Execute(context.Background(), 42, "pigeon")

	if !res.OK {
		t.Fatalf("expected success, got failure: %s", res.Message)
	}
	if !strings.Contains(res.Message, "welcome message sent") {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	ms.AssertExpectations(t)
	mg.AssertExpectations(t)
}

func TestStartCommand_ReturningUser(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	ms.On("Find", mock.Anything, int64(42)).
		Return(&domain.User{ChatID: 42, Username: "pigeon", State: string(state.StateIdle)}, nil).Once()
	mg.On("Send", mock.Anything, int64(42), msgWelcomeBack, mock.Anything).Return(nil).Once()

	cmd := newStartCommand(ms, mg, staticContent{text: welcomeText})
	res := cmd.Execute(context.Background(), 42, "pigeon")

	if !res.OK {
		t.Fatalf("expected success, got failure: %s", res.Message)
	}
	if !strings.Contains(res.Message, "already registered") {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	// No record is touched for a returning user.
	ms.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertExpectations(t)
	mg.AssertExpectations(t)
}

func TestStartCommand_WelcomeContentMissing(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	ms.On("Find", mock.Anything, int64(42)).
		Return((*domain.User)(nil), state.ErrUserNotFound).Once()

	cmd := newStartCommand(ms, mg, staticContent{err: content.ErrMissing})
	res := cmd.Execute(context.Background(), 42, "pigeon")

	if res.OK {
		t.Fatalf("expected failure, got success")
	}
	if res.Message != "welcome message not found" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	// No session may be created when the content is unavailable.
	ms.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mg.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ms.AssertExpectations(t)
}

func TestStartCommand_LookupError(t *testing.T) {
	ms := &mockStore{}
	mg := &mockGateway{}

	ms.On("Find", mock.Anything, int64(42)).
		Return((*domain.User)(nil), errors.New("connection refused")).Once()

	cmd := newStartCommand(ms, mg, staticContent{text: welcomeText})
	res := cmd.Execute(context.Background(), 42, "pigeon")

	if res.OK {
		t.Fatalf("expected failure, got success")
	}
	if res.Message != "failed to look up user" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	ms.AssertExpectations(t)
}

package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/domain"
	"github.com/pigeonhq/pigeon-bot/internal/gateway"
	"github.com/pigeonhq/pigeon-bot/internal/result"
)

const (
	userLockKeyPattern = "user:lock:%d"
	lockTTL            = 5 * time.Second
)

// ErrStateLocked indicates that another event for the same user is in flight.
var ErrStateLocked = errors.New("state is locked, try again later")

// User-facing messages sent by transition handlers.
const (
	MsgRegistered     = "You were successfully registered!"
	MsgNotRegistered  = "You were not registered."
	MsgRevoked        = "Your registration has been revoked."
	MsgNotRevoked     = "Your registration has not been revoked."
	MsgInvalidConfirm = "Invalid input. Please type 'yes' or 'no' to confirm or deny."
)

// handlerFunc applies one transition's side effects and returns the
// destination state together with the operation result.
type handlerFunc func(ctx context.Context, user *domain.User) (State, result.Result)

// Machine evaluates state transitions and applies their side effects: store
// mutation first, then post-write verification, then the outbound message.
// A transition reports success only when all three stages succeeded; effects
// already performed are reported, never rolled back.
type Machine struct {
	store       UserStore
	gateway     gateway.Gateway
	log         *slog.Logger
	redisClient *redis.Client
	timeout     time.Duration

	handlers map[State]map[Event]handlerFunc
}

// NewMachine creates the FSM controller. The redis client serializes in-flight
// events per user and may be nil in single-instance deployments; timeout
// bounds each dispatched event and may be zero to disable the bound.
func NewMachine(store UserStore, gw gateway.Gateway, log *slog.Logger, redisClient *redis.Client, timeout time.Duration) *Machine {
	if log == nil {
		log = slog.Default()
	}

	m := &Machine{
		store:       store,
		gateway:     gw,
		log:         log,
		redisClient: redisClient,
		timeout:     timeout,
	}

	m.handlers = map[State]map[Event]handlerFunc{
		StateIdle: {
			EventStartRequested:  m.handleStartRequested,
			EventRevokeRequested: m.handleRevokeRequested,
		},
		StateAwaitingStartConfirmation: {
			EventConfirmYes:     m.handleStartConfirmed,
			EventConfirmNo:      m.handleStartDenied,
			EventConfirmInvalid: m.handleInvalidConfirmation,
		},
		StateAwaitingRevokeConfirmation: {
			EventConfirmYes:     m.handleRevokeConfirmed,
			EventConfirmNo:      m.handleRevokeDenied,
			EventConfirmInvalid: m.handleInvalidConfirmation,
		},
	}

	return m
}

// Dispatch routes an event to the handler for the user's current state. An
// event without a handler for that state takes the unsupported-event path:
// a warning is logged, TransitionFailure is returned, and neither the store
// nor the gateway is touched.
func (m *Machine) Dispatch(ctx context.Context, user *domain.User, event Event) (TransitionResult, result.Result) {
	current, err := ParseState(user.State)
	if err != nil {
		m.log.Error("refusing to dispatch on corrupt state tag",
			slog.Int64("chat_id", user.ChatID),
			slog.String("tag", user.State),
			slog.Any("error", err),
		)
		msg := fmt.Sprintf("unknown state tag %q for user %s", user.State, user.DisplayName())
		return TransitionFailure, result.FailureWith(msg, apperrors.NewDataIntegrityError(msg))
	}

	handler := m.handlers[current][event]
	if handler == nil {
		m.log.Warn("unsupported event for state",
			slog.Int64("chat_id", user.ChatID),
			slog.String("user", user.DisplayName()),
			slog.String("state", string(current)),
			slog.String("event", string(event)),
		)
		msg := fmt.Sprintf("event %s not supported in state %s", event, current)
		return TransitionFailure, result.FailureWith(msg, apperrors.NewTransitionError(msg))
	}

	if err := m.lock(ctx, user.ChatID); err != nil {
		return TransitionFailure, result.Failure("another operation is already in progress")
	}
	defer m.unlock(ctx, user.ChatID)

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	next, res := handler(ctx, user)
	if res.OK {
		transitionRecorder(string(current), string(next))
	}

	return TransitionSuccess, res
}

// DispatchExpecting dispatches event only when the user's current state
// matches expected, taking the unsupported-event path otherwise. Confirmation
// callbacks carry the flow they belong to, so a stale or replayed callback
// that arrives after the session moved on is rejected here without touching
// the store or the gateway.
func (m *Machine) DispatchExpecting(ctx context.Context, user *domain.User, expected State, event Event) (TransitionResult, result.Result) {
	current, err := ParseState(user.State)
	if err != nil {
		m.log.Error("refusing to dispatch on corrupt state tag",
			slog.Int64("chat_id", user.ChatID),
			slog.String("tag", user.State),
			slog.Any("error", err),
		)
		msg := fmt.Sprintf("unknown state tag %q for user %s", user.State, user.DisplayName())
		return TransitionFailure, result.FailureWith(msg, apperrors.NewDataIntegrityError(msg))
	}

	if current != expected {
		m.log.Warn("unsupported event for state",
			slog.Int64("chat_id", user.ChatID),
			slog.String("user", user.DisplayName()),
			slog.String("state", string(current)),
			slog.String("expected", string(expected)),
			slog.String("event", string(event)),
		)
		msg := fmt.Sprintf("event %s not supported in state %s", event, current)
		return TransitionFailure, result.FailureWith(msg, apperrors.NewTransitionError(msg))
	}

	return m.Dispatch(ctx, user, event)
}

// handleStartRequested persists a brand-new user record awaiting start
// confirmation. The welcome message itself is sent by the command layer,
// which also renders the confirmation actions.
func (m *Machine) handleStartRequested(ctx context.Context, user *domain.User) (State, result.Result) {
	record := &domain.User{
		ChatID:   user.ChatID,
		Username: user.Username,
		State:    string(StateAwaitingStartConfirmation),
	}

	if err := m.store.Create(ctx, record); err != nil {
		m.logStoreError("create user", user, err)
		return StateAwaitingStartConfirmation, result.FailureWith("failed to create user record", apperrors.NewDatabaseError(err))
	}
	user.State = record.State

	res := m.verifyState(ctx, user, StateAwaitingStartConfirmation,
		result.Success(fmt.Sprintf("user %s is awaiting start confirmation", user.DisplayName())))
	return StateAwaitingStartConfirmation, res
}

// handleRevokeRequested moves a registered user into the revoke-confirmation
// state. The confirmation prompt is sent by the command layer.
func (m *Machine) handleRevokeRequested(ctx context.Context, user *domain.User) (State, result.Result) {
	if err := m.store.UpdateState(ctx, user.ChatID, StateAwaitingRevokeConfirmation); err != nil {
		m.logStoreError("update state", user, err)
		return StateAwaitingRevokeConfirmation, result.FailureWith("failed to update user state", apperrors.NewDatabaseError(err))
	}
	user.State = string(StateAwaitingRevokeConfirmation)

	res := m.verifyState(ctx, user, StateAwaitingRevokeConfirmation,
		result.Success(fmt.Sprintf("user %s is awaiting revoke confirmation", user.DisplayName())))
	return StateAwaitingRevokeConfirmation, res
}

func (m *Machine) handleStartConfirmed(ctx context.Context, user *domain.User) (State, result.Result) {
	m.log.Info("user confirmed registration", slog.String("user", user.DisplayName()))

	if err := m.store.UpdateState(ctx, user.ChatID, StateIdle); err != nil {
		m.logStoreError("update state", user, err)
		return StateIdle, result.FailureWith("failed to update user state", apperrors.NewDatabaseError(err))
	}
	user.State = string(StateIdle)

	res := m.verifyState(ctx, user, StateIdle,
		result.Success(fmt.Sprintf("user %s registered", user.DisplayName())))
	if !res.OK {
		return StateIdle, res
	}

	return StateIdle, m.send(ctx, user, MsgRegistered, res)
}

func (m *Machine) handleStartDenied(ctx context.Context, user *domain.User) (State, result.Result) {
	m.log.Info("user denied registration", slog.String("user", user.DisplayName()))

	if err := m.store.Delete(ctx, user.ChatID); err != nil {
		m.logStoreError("delete user", user, err)
		return StateIdle, result.FailureWith("failed to delete user record", apperrors.NewDatabaseError(err))
	}
	user.State = string(StateIdle)

	res := m.verifyDeletion(ctx, user,
		result.Success(fmt.Sprintf("user %s was not registered", user.DisplayName())))
	if !res.OK {
		return StateIdle, res
	}

	return StateIdle, m.send(ctx, user, MsgNotRegistered, res)
}

func (m *Machine) handleRevokeConfirmed(ctx context.Context, user *domain.User) (State, result.Result) {
	m.log.Info("user confirmed revocation", slog.String("user", user.DisplayName()))

	if err := m.store.Delete(ctx, user.ChatID); err != nil {
		m.logStoreError("delete user", user, err)
		return StateIdle, result.FailureWith("failed to delete user record", apperrors.NewDatabaseError(err))
	}
	user.State = string(StateIdle)

	res := m.verifyDeletion(ctx, user,
		result.Success(fmt.Sprintf("registration of user %s revoked", user.DisplayName())))
	if !res.OK {
		return StateIdle, res
	}

	return StateIdle, m.send(ctx, user, MsgRevoked, res)
}

func (m *Machine) handleRevokeDenied(ctx context.Context, user *domain.User) (State, result.Result) {
	m.log.Info("user declined revocation", slog.String("user", user.DisplayName()))

	if err := m.store.UpdateState(ctx, user.ChatID, StateIdle); err != nil {
		m.logStoreError("update state", user, err)
		return StateIdle, result.FailureWith("failed to update user state", apperrors.NewDatabaseError(err))
	}
	user.State = string(StateIdle)

	res := m.verifyState(ctx, user, StateIdle,
		result.Success(fmt.Sprintf("registration of user %s kept", user.DisplayName())))
	if !res.OK {
		return StateIdle, res
	}

	return StateIdle, m.send(ctx, user, MsgNotRevoked, res)
}

// handleInvalidConfirmation keeps the user in their current state and asks for
// a yes/no answer. No persistence change.
func (m *Machine) handleInvalidConfirmation(ctx context.Context, user *domain.User) (State, result.Result) {
	m.log.Warn("invalid confirmation input", slog.String("user", user.DisplayName()))

	current := State(user.State)
	res := m.send(ctx, user, MsgInvalidConfirm,
		result.Success(fmt.Sprintf("asked user %s to answer yes or no", user.DisplayName())))
	return current, res
}

// send delivers text to the user and downgrades ok to a failure when the
// gateway reports an error. Persistence changes already committed stand.
func (m *Machine) send(ctx context.Context, user *domain.User, text string, ok result.Result) result.Result {
	if err := m.gateway.Send(ctx, user.ChatID, text); err != nil {
		m.log.Error("failed to send message",
			slog.String("user", user.DisplayName()),
			slog.Any("error", err),
		)
		return result.FailureWith(
			fmt.Sprintf("failed to send message to user %s", user.DisplayName()),
			apperrors.NewGatewayError(err),
		)
	}

	return ok
}

func (m *Machine) verifyState(ctx context.Context, user *domain.User, expected State, res result.Result) result.Result {
	verified := VerifyUserState(ctx, m.store, user.ChatID, expected, res)
	if !verified.OK {
		m.log.Error("state verification failed",
			slog.Int64("chat_id", user.ChatID),
			slog.String("expected", string(expected)),
			slog.String("detail", verified.Message),
		)
	}

	return verified
}

func (m *Machine) verifyDeletion(ctx context.Context, user *domain.User, res result.Result) result.Result {
	verified := VerifyUserDeletion(ctx, m.store, user.ChatID, res)
	if !verified.OK {
		m.log.Error("deletion verification failed",
			slog.Int64("chat_id", user.ChatID),
			slog.String("detail", verified.Message),
		)
	}

	return verified
}

func (m *Machine) logStoreError(op string, user *domain.User, err error) {
	m.log.Error("store operation failed",
		slog.String("operation", op),
		slog.Int64("chat_id", user.ChatID),
		slog.Any("error", err),
	)
}

func (m *Machine) lock(ctx context.Context, chatID int64) error {
	if m.redisClient == nil {
		return nil
	}

	key := fmt.Sprintf(userLockKeyPattern, chatID)
	acquired, err := m.redisClient.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire user lock", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return err
	}

	if !acquired {
		m.log.Warn("user lock already held", slog.Int64("chat_id", chatID))
		return ErrStateLocked
	}

	return nil
}

func (m *Machine) unlock(ctx context.Context, chatID int64) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, chatID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release user lock", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

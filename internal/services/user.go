package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/userauth/apiserver/internal/auth"
	"github.com/userauth/apiserver/internal/events"
	"github.com/userauth/apiserver/internal/logging"
	"github.com/userauth/apiserver/internal/store"
	"github.com/userauth/apiserver/types"
)

var (
	// ErrEmailTaken is returned when registering an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned when authenticating an unknown email.
	ErrUserNotFound = errors.New("user not found")

	// ErrBadPassword is returned when the password does not match the
	// stored hash.
	ErrBadPassword = errors.New("bad password")
)

// UserService encapsulates the registration, login and profile flows.
type UserService struct {
	store     store.UserStore
	publisher *events.Publisher
	logger    logging.Logger
}

func NewUserService(userStore store.UserStore, publisher *events.Publisher, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UserService{store: userStore, publisher: publisher, logger: logger}
}

// Register creates a new account with a hashed password. The existence
// check is a fast path; the store's unique email index is the
// authoritative guard, so a lost race also comes back as ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.store.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, err
	}

	s.publish(ctx, events.Event{Type: events.TypeUserRegistered, UserID: user.ID, Email: user.Email})
	return user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return types.User{}, ErrBadPassword
	}

	s.publish(ctx, events.Event{Type: events.TypeUserLogin, UserID: user.ID, Email: user.Email})
	return user, nil
}

// GetByID returns the stored record for a verified identity.
func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.store.GetByID(ctx, id)
}

// publish emits an auth event best effort; broker trouble never fails
// the request that triggered it.
func (s *UserService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "failed to publish auth event", "type", event.Type, "error", err)
	}
}

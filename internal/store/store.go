package store

import (
	"context"

	"github.com/userauth/apiserver/types"
)

// UserStore defines the backend-agnostic persistence operations for
// user records. Records are created once and never updated or deleted.
type UserStore interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

package auth

import (
	"context"

	"github.com/jrsteele09/go-cellar-auth/users"
)

// Account is a user as the development backend stores it
type Account struct {
	users.User
	Username     string
	PasswordHash string
	Verified     bool
	Blocked      bool
}

// UserRepo stores accounts. Lookups return UserNotFoundErr when nothing matches;
// Create returns UserExistsErr when the email or username is taken.
type UserRepo interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
}

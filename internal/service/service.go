// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/moneytrail/moneytrail/internal/model"
)

// Service errors.
var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("incorrect password or email")
	ErrNoToken             = errors.New("no session token")
	ErrInvalidToken        = errors.New("invalid session token")
	ErrUserGone            = errors.New("session user no longer exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrInvalidAmount       = errors.New("invalid transaction amount")
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetIdentity(ctx context.Context, userID string) (*model.Identity, error)
	UserExists(ctx context.Context, userID string) (bool, error)
}

// TransactionStore persists income and expense records.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	ListTransactions(ctx context.Context, userID string, kind model.TransactionKind) ([]*model.Transaction, error)
	DeleteTransaction(ctx context.Context, userID string, kind model.TransactionKind, id string) error
	SummarizeTransactions(ctx context.Context, userID string) ([]model.CategoryTotal, error)
}

// IdentityCache caches resolved identities. GetIdentity returns nil, nil on a miss.
type IdentityCache interface {
	GetIdentity(ctx context.Context, userID string) (*model.Identity, error)
	SetIdentity(ctx context.Context, identity *model.Identity, ttl time.Duration) error
	DeleteIdentity(ctx context.Context, userID string) error
}

// Hasher hashes and verifies passwords under a context deadline.
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, digest string) (bool, error)
}

// withTimeout bounds a store call. A non-positive timeout leaves ctx untouched.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

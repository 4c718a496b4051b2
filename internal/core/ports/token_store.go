package ports

import (
	"context"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

// TokenStore owns the lifecycle of issued tokens.
type TokenStore interface {
	// Rotate deletes every token held by userID and inserts tokens, atomically.
	// Rotating one user never touches another user's rows.
	Rotate(ctx context.Context, userID int64, tokens []domain.Token) error

	DeleteAllForUser(ctx context.Context, userID int64) error
	InsertMany(ctx context.Context, tokens []domain.Token) error

	// Register stores a single token, which may be unbound to any user.
	Register(ctx context.Context, token domain.Token) (*domain.Token, error)

	// FindByToken returns the live row for raw or domain.ErrTokenNotFound.
	FindByToken(ctx context.Context, raw string) (*domain.Token, error)

	// RevokeAllForUser soft-deletes the user's tokens.
	RevokeAllForUser(ctx context.Context, userID int64) error
}

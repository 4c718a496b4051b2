package ports

import (
	"context"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

// TokenIssuer signs and persists a fresh access/refresh pair for a user.
type TokenIssuer interface {
	IssueAuthTokens(ctx context.Context, user *domain.User) (domain.AccessAndRefreshToken, error)
	Revoke(ctx context.Context, userID int64) error
}

// TokenVerifier validates tokens presented by callers.
type TokenVerifier interface {
	// VerifyAndDecode takes a raw Authorization header value ("Bearer <jwt>")
	// and accepts access tokens only.
	VerifyAndDecode(ctx context.Context, authorization string) (domain.DecodedIdentity, error)
	// Verify checks a bare token of the given type.
	Verify(ctx context.Context, raw string, want domain.TokenType) (domain.DecodedIdentity, error)
}

// PasswordHasher produces salted one-way digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// LoginThrottle counts failed logins per key inside a sliding window.
type LoginThrottle interface {
	Allowed(ctx context.Context, key string) (bool, error)
	Failed(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

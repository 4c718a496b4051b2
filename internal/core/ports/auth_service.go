package ports

import (
	"context"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

// SignupInput is an already validated signup request. A zero TenantID selects
// the default tenant.
type SignupInput struct {
	TenantID  int64
	Role      string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
}

// LoginInput is an already validated login request.
type LoginInput struct {
	TenantID int64
	Email    string
	Password string
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.LoginOutput, error)
	Login(ctx context.Context, in LoginInput) (*domain.LoginOutput, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.LoginOutput, error)
	Logout(ctx context.Context, userID int64) error
}

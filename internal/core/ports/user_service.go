package ports

import (
	"context"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

// CreateUserInput carries an administrative user creation. Password is optional.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	Status    domain.UserStatus
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *string
	Status    *domain.UserStatus
}

type UserService interface {
	List(ctx context.Context, tenantID int64) ([]domain.UserDetails, error)
	Get(ctx context.Context, tenantID, id int64) (*domain.UserDetails, error)
	Create(ctx context.Context, tenantID int64, in CreateUserInput) (*domain.UserDetails, error)
	Update(ctx context.Context, tenantID, id int64, in UpdateUserInput) (*domain.UserDetails, error)
	Delete(ctx context.Context, tenantID, id int64) error
}

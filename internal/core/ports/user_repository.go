package ports

import (
	"context"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

// UserRepository persists identity records. Lookups are always tenant scoped and
// return domain.ErrUserNotFound when nothing matches; soft-deleted users are invisible.
type UserRepository interface {
	// FindByEmail matches the stored email exactly, without case folding.
	FindByEmail(ctx context.Context, tenantID int64, email string) (*domain.User, error)
	FindByID(ctx context.Context, tenantID, id int64) (*domain.User, error)
	List(ctx context.Context, tenantID int64) ([]*domain.User, error)
	// Create returns domain.ErrEmailInUse when the (tenant, email) pair is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	// SoftDelete marks the user and all of its tokens deleted in one transaction.
	SoftDelete(ctx context.Context, tenantID, id int64) error
}

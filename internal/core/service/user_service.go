package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

type userService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	log    zerolog.Logger
}

// NewUserService returns a UserService implementation. tokens is used to
// revoke a user's live pair when an update changes what its claims assert.
func NewUserService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, log zerolog.Logger) ports.UserService {
	return &userService{users: users, hasher: hasher, tokens: tokens, log: log}
}

func (s *userService) List(ctx context.Context, tenantID int64) ([]domain.UserDetails, error) {
	users, err := s.users.List(ctx, tenantID)
	if err != nil {
		return nil, domain.Internal("list users", err)
	}
	out := make([]domain.UserDetails, 0, len(users))
	for _, u := range users {
		out = append(out, u.Details())
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, tenantID, id int64) (*domain.UserDetails, error) {
	u, err := s.users.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, domain.Internal("get user", err)
	}
	d := u.Details()
	return &d, nil
}

// Create stores a new user. Without a password the account gets a random
// digest and cannot log in until one is set.
func (s *userService) Create(ctx context.Context, tenantID int64, in ports.CreateUserInput) (*domain.UserDetails, error) {
	if err := s.ensureEmailFree(ctx, tenantID, in.Email, 0); err != nil {
		return nil, err
	}

	var (
		hash string
		err  error
	)
	if in.Password != "" {
		hash, err = s.hasher.Hash(in.Password)
	} else {
		hash, err = randomPasswordHash(s.hasher)
	}
	if err != nil {
		return nil, domain.Internal("create user: hash password", err)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	status := in.Status
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Valid() {
		return nil, domain.Validation("unknown status " + string(status))
	}

	created, err := s.users.Create(ctx, &domain.User{
		TenantID:     tenantID,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         role,
		Status:       status,
	})
	if err != nil {
		return nil, domain.Internal("create user", err)
	}

	s.log.Info().Int64("user_id", created.ID).Int64("tenant_id", tenantID).Msg("user created")
	d := created.Details()
	return &d, nil
}

func (s *userService) Update(ctx context.Context, tenantID, id int64, in ports.UpdateUserInput) (*domain.UserDetails, error) {
	u, err := s.users.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, domain.Internal("update user: find", err)
	}

	// Tokens carry the email and role, and only active users may hold them.
	revoke := false
	if in.Email != nil && *in.Email != u.Email {
		if err := s.ensureEmailFree(ctx, tenantID, *in.Email, u.ID); err != nil {
			return nil, err
		}
		u.Email = *in.Email
		revoke = true
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.Role != nil && *in.Role != u.Role {
		u.Role = *in.Role
		revoke = true
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, domain.Validation("unknown status " + string(*in.Status))
		}
		if *in.Status != u.Status && *in.Status != domain.StatusActive {
			revoke = true
		}
		u.Status = *in.Status
	}

	saved, err := s.users.Save(ctx, u)
	if err != nil {
		return nil, domain.Internal("update user", err)
	}
	if revoke {
		if err := s.tokens.Revoke(ctx, saved.ID); err != nil {
			return nil, err
		}
		s.log.Info().Int64("user_id", saved.ID).Int64("tenant_id", tenantID).Msg("user tokens revoked after update")
	}
	d := saved.Details()
	return &d, nil
}

// Delete soft-deletes the user; its tokens go with it.
func (s *userService) Delete(ctx context.Context, tenantID, id int64) error {
	if err := s.users.SoftDelete(ctx, tenantID, id); err != nil {
		return domain.Internal("delete user", err)
	}
	s.log.Info().Int64("user_id", id).Int64("tenant_id", tenantID).Msg("user deleted")
	return nil
}

func (s *userService) ensureEmailFree(ctx context.Context, tenantID int64, email string, self int64) error {
	other, err := s.users.FindByEmail(ctx, tenantID, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	case err != nil:
		return domain.Internal("find user by email", err)
	case other.ID != self:
		return domain.ErrEmailInUse
	}
	return nil
}

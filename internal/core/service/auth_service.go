package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

// AuthConfig holds the login policy.
type AuthConfig struct {
	// DefaultTenantID scopes requests that name no tenant.
	DefaultTenantID int64
	// HideUserExistence answers unknown emails with ErrBadCredentials
	// instead of ErrUserNotFound.
	HideUserExistence bool
}

type authService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	issuer   ports.TokenIssuer
	verifier ports.TokenVerifier
	throttle ports.LoginThrottle
	cfg      AuthConfig
	log      zerolog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService returns an AuthService implementation. throttle may be nil.
func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	issuer ports.TokenIssuer,
	verifier ports.TokenVerifier,
	throttle ports.LoginThrottle,
	cfg AuthConfig,
	log zerolog.Logger,
) ports.AuthService {
	if cfg.DefaultTenantID == 0 {
		cfg.DefaultTenantID = 1
	}
	return &authService{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
		throttle: throttle,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Signup creates a user and issues its first token pair. If issuance fails the
// user row is kept and the caller recovers by logging in.
func (s *authService) Signup(ctx context.Context, in ports.SignupInput) (*domain.LoginOutput, error) {
	tenantID := s.tenant(in.TenantID)

	_, err := s.users.FindByEmail(ctx, tenantID, in.Email)
	switch {
	case err == nil:
		return nil, domain.ErrEmailInUse
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.Internal("signup: find user", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Internal("signup: hash password", err)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		TenantID:     tenantID,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, domain.Internal("signup: create user", err)
	}

	pair, err := s.issuer.IssueAuthTokens(ctx, created)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", created.ID).Int64("tenant_id", tenantID).
			Msg("signup: user persisted without tokens")
		return nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Int64("tenant_id", tenantID).Msg("user signed up")
	return &domain.LoginOutput{AccessAndRefreshToken: pair, UserInfo: created.Info()}, nil
}

// Login verifies credentials and replaces the user's tokens with a new pair.
func (s *authService) Login(ctx context.Context, in ports.LoginInput) (*domain.LoginOutput, error) {
	tenantID := s.tenant(in.TenantID)
	key := throttleKey(tenantID, in.Email)

	if s.throttle != nil {
		allowed, err := s.throttle.Allowed(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Int64("tenant_id", tenantID).Msg("login throttle unavailable, continuing")
		} else if !allowed {
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByEmail(ctx, tenantID, in.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Internal("login: find user", err)
		}
		s.failed(ctx, key)
		if s.cfg.HideUserExistence {
			s.hasher.Verify(in.Password, s.dummy())
			return nil, domain.ErrBadCredentials
		}
		return nil, domain.ErrUserNotFound
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.failed(ctx, key)
		return nil, domain.ErrBadCredentials
	}
	if user.Status != domain.StatusActive {
		return nil, domain.ErrUserInactive
	}
	s.reset(ctx, key)

	now := s.now().UTC()
	user.LastLoginAt = &now
	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, domain.Internal("login: save user", err)
	}

	pair, err := s.issuer.IssueAuthTokens(ctx, saved)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", saved.ID).Int64("tenant_id", tenantID).Msg("user logged in")
	return &domain.LoginOutput{AccessAndRefreshToken: pair, UserInfo: saved.Info()}, nil
}

// Refresh trades a live refresh token for a new pair. The presented token is
// rotated out along with the old access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.LoginOutput, error) {
	id, err := s.verifier.Verify(ctx, refreshToken, domain.TokenRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id.TenantID, id.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, domain.Internal("refresh: find user", err)
	}
	if user.Status != domain.StatusActive {
		return nil, domain.ErrUserInactive
	}

	pair, err := s.issuer.IssueAuthTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &domain.LoginOutput{AccessAndRefreshToken: pair, UserInfo: user.Info()}, nil
}

func (s *authService) Logout(ctx context.Context, userID int64) error {
	if err := s.issuer.Revoke(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", userID).Msg("user logged out")
	return nil
}

func (s *authService) tenant(id int64) int64 {
	if id == 0 {
		return s.cfg.DefaultTenantID
	}
	return id
}

func (s *authService) failed(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Failed(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("record failed login")
	}
}

func (s *authService) reset(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("reset login throttle")
	}
}

// dummy is compared against when the user is unknown so both paths cost one
// bcrypt comparison.
func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := randomPasswordHash(s.hasher)
		if err != nil {
			s.log.Warn().Err(err).Msg("dummy hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func throttleKey(tenantID int64, email string) string {
	return strconv.FormatInt(tenantID, 10) + ":" + strings.ToLower(email)
}

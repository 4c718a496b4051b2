package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

// TokenConfig configures signing. Secret is mandatory.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// authClaims is the JWT payload for both token kinds.
type authClaims struct {
	jwt.RegisteredClaims
	Email    string           `json:"email"`
	Type     domain.TokenType `json:"type"`
	UserID   int64            `json:"id"`
	TenantID int64            `json:"tenantId"`
	Role     string           `json:"role"`
}

// TokenService signs, persists, and verifies access/refresh pairs.
// It satisfies both ports.TokenIssuer and ports.TokenVerifier.
type TokenService struct {
	store      ports.TokenStore
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

var (
	_ ports.TokenIssuer   = (*TokenService)(nil)
	_ ports.TokenVerifier = (*TokenService)(nil)
)

// NewTokenService fails when the signing secret is absent or the expiry
// policy is inconsistent. Callers treat the error as fatal at startup.
func NewTokenService(store ports.TokenStore, cfg TokenConfig, log zerolog.Logger) (*TokenService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, domain.ErrSigningKeyMissing
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("token service: access ttl must be positive")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("token service: refresh ttl %s must exceed access ttl %s", cfg.RefreshTTL, cfg.AccessTTL)
	}
	return &TokenService{
		store:      store,
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
		log:        log,
	}, nil
}

// IssueAuthTokens signs a new pair and rotates it into the store. Nothing is
// returned unless the rotation committed.
func (s *TokenService) IssueAuthTokens(ctx context.Context, user *domain.User) (domain.AccessAndRefreshToken, error) {
	var pair domain.AccessAndRefreshToken
	now := s.now()

	var g errgroup.Group
	g.Go(func() (err error) {
		pair.AccessToken, err = s.sign(user, domain.TokenAccess, now, s.accessTTL)
		return err
	})
	g.Go(func() (err error) {
		pair.RefreshToken, err = s.sign(user, domain.TokenRefresh, now, s.refreshTTL)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.AccessAndRefreshToken{}, domain.Internal("sign tokens", err)
	}

	uid := user.ID
	tokens := []domain.Token{
		{Token: pair.AccessToken, Type: domain.TokenAccess, UserID: &uid, CreatedAt: now},
		{Token: pair.RefreshToken, Type: domain.TokenRefresh, UserID: &uid, CreatedAt: now},
	}
	if err := s.store.Rotate(ctx, uid, tokens); err != nil {
		s.log.Error().Err(err).Int64("user_id", uid).Str("op", "rotate").Msg("token rotation failed")
		return domain.AccessAndRefreshToken{}, domain.Internal("rotate tokens", err)
	}

	s.log.Debug().Int64("user_id", uid).Str("access", tokenHint(pair.AccessToken)).Msg("tokens rotated")
	return pair, nil
}

// Revoke soft-deletes every token the user holds.
func (s *TokenService) Revoke(ctx context.Context, userID int64) error {
	if err := s.store.RevokeAllForUser(ctx, userID); err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Str("op", "revoke").Msg("token revocation failed")
		return domain.Internal("revoke tokens", err)
	}
	return nil
}

// VerifyAndDecode extracts a bearer token from an Authorization header value
// and verifies it as an access token.
func (s *TokenService) VerifyAndDecode(ctx context.Context, authorization string) (domain.DecodedIdentity, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return domain.DecodedIdentity{}, domain.ErrInvalidToken
	}
	return s.Verify(ctx, raw, domain.TokenAccess)
}

// Verify checks signature, issuer, expiry and type, then requires the token
// to still be live in the store.
func (s *TokenService) Verify(ctx context.Context, raw string, want domain.TokenType) (domain.DecodedIdentity, error) {
	claims := &authClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.DecodedIdentity{}, domain.ErrInvalidToken
	}
	if claims.Type != want {
		return domain.DecodedIdentity{}, domain.ErrInvalidToken
	}

	if _, err := s.store.FindByToken(ctx, raw); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return domain.DecodedIdentity{}, domain.ErrInvalidToken
		}
		return domain.DecodedIdentity{}, domain.Internal("find token", err)
	}

	return decode(claims), nil
}

func (s *TokenService) sign(user *domain.User, typ domain.TokenType, now time.Time, ttl time.Duration) (string, error) {
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    user.Email,
		Type:     typ,
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// decode must only be called on verified claims.
func decode(c *authClaims) domain.DecodedIdentity {
	id := domain.DecodedIdentity{
		SubjectID: c.UserID,
		Email:     c.Email,
		TokenType: c.Type,
		TenantID:  c.TenantID,
		Role:      c.Role,
		TokenID:   c.ID,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" || strings.Count(raw, ".") != 2 {
		return "", false
	}
	return raw, true
}

// tokenHint is the only form of a token that may reach the logs.
func tokenHint(raw string) string {
	if len(raw) <= 8 {
		return "..."
	}
	return raw[:8] + "..."
}

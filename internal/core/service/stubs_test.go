package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

var nopLog = zerolog.Nop()

// --- users ---

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	deleted map[int64]bool
	nextID  int64
	tokens  *stubTokenStore
	saves   int
}

func newStubUserRepo(tokens *stubTokenStore) *stubUserRepo {
	return &stubUserRepo{
		users:   make(map[int64]*domain.User),
		deleted: make(map[int64]bool),
		tokens:  tokens,
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, tenantID int64, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if !r.deleted[id] && u.TenantID == tenantID && u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, tenantID, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || r.deleted[id] || u.TenantID != tenantID {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context, tenantID int64) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for id := int64(1); id <= r.nextID; id++ {
		u, ok := r.users[id]
		if ok && !r.deleted[id] && u.TenantID == tenantID {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if !r.deleted[id] && u.TenantID == user.TenantID && u.Email == user.Email {
			return nil, domain.ErrEmailInUse
		}
	}
	r.nextID++
	c := cloneUser(user)
	c.ID = r.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	r.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok || r.deleted[user.ID] {
		return nil, domain.ErrUserNotFound
	}
	c := cloneUser(user)
	c.UpdatedAt = time.Now().UTC()
	r.users[c.ID] = c
	r.saves++
	return cloneUser(c), nil
}

func (r *stubUserRepo) SoftDelete(ctx context.Context, tenantID, id int64) error {
	r.mu.Lock()
	u, ok := r.users[id]
	if !ok || r.deleted[id] || u.TenantID != tenantID {
		r.mu.Unlock()
		return domain.ErrUserNotFound
	}
	r.deleted[id] = true
	r.mu.Unlock()
	if r.tokens != nil {
		return r.tokens.RevokeAllForUser(ctx, id)
	}
	return nil
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// --- tokens ---

type tokenRow struct {
	domain.Token
	deleted bool
}

type stubTokenStore struct {
	mu        sync.Mutex
	rows      []tokenRow
	nextID    int64
	rotations int
	rotateErr error
}

func newStubTokenStore() *stubTokenStore { return &stubTokenStore{} }

func ownedBy(t domain.Token, userID int64) bool {
	return t.UserID != nil && *t.UserID == userID
}

func (s *stubTokenStore) Rotate(_ context.Context, userID int64, tokens []domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rotateErr != nil {
		return s.rotateErr
	}
	kept := s.rows[:0:0]
	for _, r := range s.rows {
		if !ownedBy(r.Token, userID) {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	s.insertLocked(tokens)
	s.rotations++
	return nil
}

func (s *stubTokenStore) DeleteAllForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0:0]
	for _, r := range s.rows {
		if !ownedBy(r.Token, userID) {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *stubTokenStore) InsertMany(_ context.Context, tokens []domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(tokens)
	return nil
}

func (s *stubTokenStore) insertLocked(tokens []domain.Token) {
	for _, t := range tokens {
		s.nextID++
		t.ID = s.nextID
		s.rows = append(s.rows, tokenRow{Token: t})
	}
}

func (s *stubTokenStore) Register(_ context.Context, token domain.Token) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked([]domain.Token{token})
	t := s.rows[len(s.rows)-1].Token
	return &t, nil
}

func (s *stubTokenStore) FindByToken(_ context.Context, raw string) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if !r.deleted && r.Token.Token == raw {
			t := r.Token
			return &t, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (s *stubTokenStore) RevokeAllForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if ownedBy(s.rows[i].Token, userID) {
			s.rows[i].deleted = true
		}
	}
	return nil
}

// live returns the non-deleted rows owned by userID.
func (s *stubTokenStore) live(userID int64) []domain.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Token
	for _, r := range s.rows {
		if !r.deleted && ownedBy(r.Token, userID) {
			out = append(out, r.Token)
		}
	}
	return out
}

// --- throttle ---

type stubThrottle struct {
	max      int
	failures map[string]int
	err      error
}

func newStubThrottle(max int) *stubThrottle {
	return &stubThrottle{max: max, failures: make(map[string]int)}
}

func (t *stubThrottle) Allowed(_ context.Context, key string) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	return t.failures[key] < t.max, nil
}

func (t *stubThrottle) Failed(_ context.Context, key string) error {
	if t.err != nil {
		return t.err
	}
	t.failures[key]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, key string) error {
	if t.err != nil {
		return t.err
	}
	delete(t.failures, key)
	return nil
}

// --- wiring ---

type fixture struct {
	users  *stubUserRepo
	tokens *stubTokenStore
	hasher *BcryptHasher
	ts     *TokenService
}

func newFixture() *fixture {
	tokens := newStubTokenStore()
	hasher, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	ts, err := NewTokenService(tokens, TokenConfig{
		Secret:     "test-secret",
		Issuer:     "auth-system",
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
	}, nopLog)
	if err != nil {
		panic(err)
	}
	return &fixture{users: newStubUserRepo(tokens), tokens: tokens, hasher: hasher, ts: ts}
}

func (f *fixture) auth(cfg AuthConfig, throttle *stubThrottle) *authService {
	var lt ports.LoginThrottle
	if throttle != nil {
		lt = throttle
	}
	return NewAuthService(f.users, f.hasher, f.ts, f.ts, lt, cfg, nopLog).(*authService)
}

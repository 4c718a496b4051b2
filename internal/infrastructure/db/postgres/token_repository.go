package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

// TokenRepository stores issued tokens in the tokens table.
type TokenRepository struct {
	db DB
}

var _ ports.TokenStore = (*TokenRepository)(nil)

func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Rotate replaces every token of userID with tokens in a single transaction.
// A transaction-scoped advisory lock on the user id orders concurrent
// rotations of the same user; different users never share a lock.
func (r *TokenRepository) Rotate(ctx context.Context, userID int64, tokens []domain.Token) error {
	err := WithTx(ctx, r.db, func(ctx context.Context, tx Querier) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
			return fmt.Errorf("lock user tokens: %w", err)
		}
		if err := deleteAllForUser(ctx, tx, userID); err != nil {
			return err
		}
		return insertMany(ctx, tx, tokens)
	})
	if err != nil {
		return fmt.Errorf("rotate tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	return deleteAllForUser(ctx, r.db, userID)
}

func (r *TokenRepository) InsertMany(ctx context.Context, tokens []domain.Token) error {
	return insertMany(ctx, r.db, tokens)
}

func (r *TokenRepository) Register(ctx context.Context, t domain.Token) (*domain.Token, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO tokens (token, type, user_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		t.Token, string(t.Type), t.UserID, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("register token: %w", err)
	}
	return &t, nil
}

func (r *TokenRepository) FindByToken(ctx context.Context, raw string) (*domain.Token, error) {
	var (
		t   domain.Token
		typ string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, token, type, user_id, created_at FROM tokens
		 WHERE token = $1 AND deleted_at IS NULL
		 LIMIT 1`,
		raw).Scan(&t.ID, &t.Token, &typ, &t.UserID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	t.Type = domain.TokenType(typ)
	return &t, nil
}

func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	return revokeAllForUser(ctx, r.db, userID)
}

func deleteAllForUser(ctx context.Context, q Querier, userID int64) error {
	if _, err := q.Exec(ctx, `DELETE FROM tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}

func revokeAllForUser(ctx context.Context, q Querier, userID int64) error {
	_, err := q.Exec(ctx,
		`UPDATE tokens SET deleted_at = now(), updated_at = now() WHERE user_id = $1 AND deleted_at IS NULL`,
		userID)
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// insertMany writes tokens with one multi-row INSERT.
func insertMany(ctx context.Context, q Querier, tokens []domain.Token) error {
	if len(tokens) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO tokens (token, type, user_id, created_at) VALUES `)
	args := make([]any, 0, len(tokens)*4)
	now := time.Now().UTC()
	for i, t := range tokens {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 4
		sb.WriteString("($" + strconv.Itoa(n+1) + ", $" + strconv.Itoa(n+2) + ", $" + strconv.Itoa(n+3) + ", $" + strconv.Itoa(n+4) + ")")
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		args = append(args, t.Token, string(t.Type), t.UserID, created)
	}

	if _, err := q.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert tokens: %w", err)
	}
	return nil
}

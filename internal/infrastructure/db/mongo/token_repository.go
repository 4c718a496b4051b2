package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

const collectionTokens = "tokens"

// TokenRepository stores issued tokens. Rotation needs a replica set because
// it runs in a multi-document transaction.
type TokenRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

var _ ports.TokenStore = (*TokenRepository)(nil)

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{db: db, col: db.Collection(collectionTokens)}
}

type tokenDoc struct {
	ID        int64  `bson:"_id"`
	Token     string `bson:"token"`
	Type      string `bson:"type"`
	UserID    *int64 `bson:"user_id"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
	Deleted   bool   `bson:"deleted"`
	DeletedAt int64  `bson:"deleted_at,omitempty"`
}

func (d *tokenDoc) toDomain() *domain.Token {
	return &domain.Token{
		ID:        d.ID,
		Token:     d.Token,
		Type:      domain.TokenType(d.Type),
		UserID:    d.UserID,
		CreatedAt: unixToTime(d.CreatedAt),
	}
}

// Rotate deletes the user's tokens and inserts the new ones in one session
// transaction. Ids are reserved beforehand to keep the transaction short.
func (r *TokenRepository) Rotate(ctx context.Context, userID int64, tokens []domain.Token) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := r.docs(ctx, tokens)
	if err != nil {
		return err
	}

	err = withTransaction(ctx, r.db.Client(), func(sc mongo.SessionContext) error {
		if _, err := r.col.DeleteMany(sc, bson.M{"user_id": userID}); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}
		if _, err := r.col.InsertMany(sc, docs); err != nil {
			return fmt.Errorf("insert tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rotate tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) InsertMany(ctx context.Context, tokens []domain.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := r.docs(ctx, tokens)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) Register(ctx context.Context, t domain.Token) (*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, err := r.docs(ctx, []domain.Token{t})
	if err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, docs[0]); err != nil {
		return nil, fmt.Errorf("register token: %w", err)
	}
	d := docs[0].(tokenDoc)
	return d.toDomain(), nil
}

func (r *TokenRepository) FindByToken(ctx context.Context, raw string) (*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d tokenDoc
	if err := r.col.FindOne(ctx, bson.M{"token": raw, "deleted": false}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return d.toDomain(), nil
}

func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return revokeAllForUser(ctx, r.col, userID, time.Now().UTC().Unix())
}

// EnsureIndexes creates lookup indexes on the tokens collection.
func (r *TokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *TokenRepository) docs(ctx context.Context, tokens []domain.Token) ([]interface{}, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	first, err := reserveIDs(ctx, r.db, collectionTokens, len(tokens))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(tokens))
	for i, t := range tokens {
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		docs = append(docs, tokenDoc{
			ID:        first + int64(i),
			Token:     t.Token,
			Type:      string(t.Type),
			UserID:    t.UserID,
			CreatedAt: created.Unix(),
			UpdatedAt: now.Unix(),
		})
	}
	return docs, nil
}

func revokeAllForUser(ctx context.Context, col *mongo.Collection, userID, now int64) error {
	_, err := col.UpdateMany(ctx,
		bson.M{"user_id": userID, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}})
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

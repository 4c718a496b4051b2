package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

const collectionUsers = "users"

type UserRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{db: db, col: db.Collection(collectionUsers)}
}

type userDoc struct {
	ID           int64  `bson:"_id"`
	TenantID     int64  `bson:"tenant_id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
	FirstName    string `bson:"first_name"`
	LastName     string `bson:"last_name"`
	Phone        string `bson:"phone"`
	Role         string `bson:"role"`
	Status       string `bson:"status"`
	LastLoginAt  int64  `bson:"last_login_at,omitempty"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
	Deleted      bool   `bson:"deleted"`
	DeletedAt    int64  `bson:"deleted_at,omitempty"`
}

func (d *userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:           d.ID,
		TenantID:     d.TenantID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Phone:        d.Phone,
		Role:         d.Role,
		Status:       domain.UserStatus(d.Status),
		CreatedAt:    unixToTime(d.CreatedAt),
		UpdatedAt:    unixToTime(d.UpdatedAt),
	}
	if d.LastLoginAt != 0 {
		t := unixToTime(d.LastLoginAt)
		u.LastLoginAt = &t
	}
	return u
}

// FindByEmail matches the stored email exactly.
func (r *UserRepository) FindByEmail(ctx context.Context, tenantID int64, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"tenant_id": tenantID, "email": email, "deleted": false})
}

func (r *UserRepository) FindByID(ctx context.Context, tenantID, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id, "tenant_id": tenantID, "deleted": false})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return d.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context, tenantID int64) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx,
		bson.M{"tenant_id": tenantID, "deleted": false},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

// Create relies on the unique (tenant_id, email) index over live users.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := reserveIDs(ctx, r.db, collectionUsers, 1)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Unix()
	d := userDoc{
		ID:           id,
		TenantID:     u.TenantID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		Role:         u.Role,
		Status:       string(u.Status),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.col.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return d.toDomain(), nil
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"phone":         u.Phone,
		"role":          u.Role,
		"status":        string(u.Status),
		"updated_at":    time.Now().UTC().Unix(),
	}
	if u.LastLoginAt != nil {
		set["last_login_at"] = u.LastLoginAt.Unix()
	}

	var d userDoc
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": u.ID, "tenant_id": u.TenantID, "deleted": false},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrUserNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("save user: %w", err)
	}
	return d.toDomain(), nil
}

// SoftDelete marks the user and its tokens deleted in one session transaction.
func (r *UserRepository) SoftDelete(ctx context.Context, tenantID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Unix()
	return withTransaction(ctx, r.db.Client(), func(sc mongo.SessionContext) error {
		res, err := r.col.UpdateOne(sc,
			bson.M{"_id": id, "tenant_id": tenantID, "deleted": false},
			bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}})
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrUserNotFound
		}
		return revokeAllForUser(sc, r.db.Collection(collectionTokens), id, now)
	})
}

// EnsureIndexes creates the tenant scoped unique email index over live users.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": false}),
		},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

func TestTokenRepository_FindByToken(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("live token", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "auth.tokens", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: int64(9)},
			{Key: "token", Value: "access-jwt"},
			{Key: "type", Value: "access"},
			{Key: "user_id", Value: int64(3)},
			{Key: "created_at", Value: time.Now().Unix()},
			{Key: "deleted", Value: false},
		}))

		tk, err := NewTokenRepository(mt.DB).FindByToken(context.Background(), "access-jwt")
		if err != nil {
			t.Fatalf("FindByToken returned error: %v", err)
		}
		if tk.ID != 9 || tk.Type != domain.TokenAccess {
			t.Fatalf("unexpected token: %+v", tk)
		}
		if tk.UserID == nil || *tk.UserID != 3 {
			t.Fatalf("unexpected owner: %v", tk.UserID)
		}
	})

	mt.Run("unbound token", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "auth.tokens", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: int64(10)},
			{Key: "token", Value: "svc-jwt"},
			{Key: "type", Value: "access"},
			{Key: "user_id", Value: nil},
			{Key: "deleted", Value: false},
		}))

		tk, err := NewTokenRepository(mt.DB).FindByToken(context.Background(), "svc-jwt")
		if err != nil {
			t.Fatalf("FindByToken returned error: %v", err)
		}
		if tk.UserID != nil {
			t.Fatalf("expected nil owner, got %d", *tk.UserID)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "auth.tokens", mtest.FirstBatch))

		_, err := NewTokenRepository(mt.DB).FindByToken(context.Background(), "gone")
		if !errors.Is(err, domain.ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}
	})
}

func TestTokenRepository_InsertMany(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reserves a block of ids", func(mt *mtest.T) {
		uid := int64(3)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: "tokens"},
				{Key: "seq", Value: int64(12)},
			}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
		)

		err := NewTokenRepository(mt.DB).InsertMany(context.Background(), []domain.Token{
			{Token: "a", Type: domain.TokenAccess, UserID: &uid},
			{Token: "r", Type: domain.TokenRefresh, UserID: &uid},
		})
		if err != nil {
			t.Fatalf("InsertMany returned error: %v", err)
		}
	})

	mt.Run("empty is a no-op", func(mt *mtest.T) {
		if err := NewTokenRepository(mt.DB).InsertMany(context.Background(), nil); err != nil {
			t.Fatalf("InsertMany(nil) returned error: %v", err)
		}
	})
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("soft deletes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 2},
		))

		if err := NewTokenRepository(mt.DB).RevokeAllForUser(context.Background(), 3); err != nil {
			t.Fatalf("RevokeAllForUser returned error: %v", err)
		}
	})
}

func TestUnixToTime(t *testing.T) {
	if !unixToTime(0).IsZero() {
		t.Fatalf("expected zero time for 0")
	}
	if got := unixToTime(1700000000); got.Unix() != 1700000000 || got.Location() != time.UTC {
		t.Fatalf("unexpected conversion: %v", got)
	}
}

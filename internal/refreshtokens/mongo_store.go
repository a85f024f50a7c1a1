package refreshtokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tokenworks/auth-service/internal/apperrors"
)

// MongoStore implements Store using a Mongo collection with a unique index
// on `token`.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (s *MongoStore) Create(ctx context.Context, userID string, ttl time.Duration) (*RefreshToken, error) {
	rt := &RefreshToken{
		ID:      uuid.NewString(),
		Token:   uuid.NewString(),
		UserID:  userID,
		Expired: false,
		Expires: time.Now().UTC().Add(ttl),
	}
	if _, err := s.col.InsertOne(ctx, rt); err != nil {
		return nil, apperrors.StorageFailure("failed saving refresh token: " + err.Error())
	}
	return rt, nil
}

func (s *MongoStore) Get(ctx context.Context, token string, allowExpired bool) (*RefreshToken, error) {
	query := bson.M{"token": token}
	if !allowExpired {
		query["expired"] = false
	}
	var rt RefreshToken
	if err := s.col.FindOne(ctx, query).Decode(&rt); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

func (s *MongoStore) Expire(ctx context.Context, token string) (*RefreshToken, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rt RefreshToken
	err := s.col.FindOneAndUpdate(ctx, bson.M{"token": token}, bson.M{"$set": bson.M{"expired": true}}, opts).Decode(&rt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

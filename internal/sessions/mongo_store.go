package sessions

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tokenworks/auth-service/internal/apperrors"
)

// MongoStore implements Store using a Mongo collection. Rows are removed
// explicitly on revocation or implicitly by the TTL index on `expires`.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (s *MongoStore) Add(ctx context.Context, sessionID, userID string, ttl time.Duration, details *SessionDetails) error {
	sess := &Session{
		ID:      sessionID,
		UserID:  userID,
		Details: details,
		Expires: time.Now().UTC().Add(ttl + expiryJitter()),
	}
	if _, err := s.col.InsertOne(ctx, sess); err != nil {
		return apperrors.StorageFailure("failed saving session: " + err.Error())
	}
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, sessionID, userID string) (*Session, error) {
	var sess Session
	if err := s.col.FindOne(ctx, bson.M{"id": sessionID, "userId": userID}).Decode(&sess); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

func (s *MongoStore) RemoveByID(ctx context.Context, sessionID, userID string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"id": sessionID, "userId": userID})
	return err
}

func (s *MongoStore) RemoveAllForUser(ctx context.Context, userID string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

func (s *MongoStore) RemoveAllForUsers(ctx context.Context, userIDs []string) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"userId": bson.M{"$in": userIDs}})
	return err
}

func (s *MongoStore) Find(ctx context.Context, q FindQuery) ([]Session, int64, error) {
	// TTL deletion lags the expiry instant, so expired-but-not-yet-swept
	// rows are filtered out here.
	filter := bson.M{"userId": q.UserID, "expires": bson.M{"$gte": time.Now().UTC()}}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "sessionDetails." + q.sortField(), Value: q.sortOrder()}})
	if q.PageSize > 0 {
		opts.SetLimit(int64(q.PageSize))
		if q.Page > 1 {
			opts.SetSkip(int64((q.Page - 1) * q.PageSize))
		}
	}

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []Session{}
	for cur.Next(ctx) {
		var sess Session
		if err := cur.Decode(&sess); err != nil {
			return nil, 0, err
		}
		out = append(out, sess)
	}
	return out, total, cur.Err()
}

func (s *MongoStore) UpdateActivity(ctx context.Context, userID, sessionID string, details *SessionDetails) error {
	set := bson.M{"sessionDetails.lastActivity": time.Now().UTC()}
	if details != nil {
		if details.UserAgent != "" {
			set["sessionDetails.userAgent"] = details.UserAgent
		}
		if details.Version != "" {
			set["sessionDetails.version"] = details.Version
		}
	}
	// Zero matches means the session was revoked mid-flight; not an error.
	_, err := s.col.UpdateOne(ctx, bson.M{"id": sessionID, "userId": userID}, bson.M{"$set": set})
	return err
}

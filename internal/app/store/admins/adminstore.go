// Package adminstore persists admin memberships. A user is an administrator
// exactly when a record with the user's ID exists here.
package adminstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/testimonyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrAlreadyAdmin is returned by Add when the membership exists.
var ErrAlreadyAdmin = errors.New("user is already an admin")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("admins")}
}

// IsAdmin reports whether userID holds a membership. Malformed IDs are not admins.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	err = s.c.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get loads a membership. Returns mongo.ErrNoDocuments if not found.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) (*models.AdminMembership, error) {
	var m models.AdminMembership
	if err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Add grants admin membership.
func (s *Store) Add(ctx context.Context, m models.AdminMembership) error {
	if m.Role == "" {
		m.Role = models.AdminRoleAdmin
	}
	if m.AddedAt.IsZero() {
		m.AddedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrAlreadyAdmin
		}
		return err
	}
	return nil
}

// Remove revokes admin membership. It reports whether a record was removed.
func (s *Store) Remove(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// IDs returns the set of admin user IDs as hex strings.
func (s *Store) IDs(ctx context.Context) (map[string]bool, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]bool)
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID.Hex()] = true
	}
	return out, cur.Err()
}

// Count returns the number of admins.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

package elearningstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no item has the given ID.
var ErrNotFound = errors.New("e-learning item not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("eLearning")}
}

// Create inserts an item and returns it with ID and timestamps set.
func (s *Store) Create(ctx context.Context, e models.ELearning) (models.ELearning, error) {
	e.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.ELearning{}, err
	}
	return e, nil
}

// Get loads an item.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.ELearning, error) {
	var e models.ELearning
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ELearning{}, ErrNotFound
	}
	return e, err
}

// List returns every item, newest first.
func (s *Store) List(ctx context.Context) ([]models.ELearning, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ELearning{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the fields an administrator may change. A nil Media leaves
// the current media in place.
type Update struct {
	Title       string
	Description string
	Media       *Media
}

// Media describes an uploaded file.
type Media struct {
	URL      string
	Path     string
	Type     string
	FileName string
}

// Update applies upd and returns the item as it was before and after.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (before, after models.ELearning, err error) {
	set := bson.M{
		"title":       upd.Title,
		"description": upd.Description,
		"updated_at":  time.Now().UTC(),
	}
	if upd.Media != nil {
		set["media_url"] = upd.Media.URL
		set["media_path"] = upd.Media.Path
		set["media_type"] = upd.Media.Type
		set["file_name"] = upd.Media.FileName
	}
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return before, after, ErrNotFound
	}
	if err != nil {
		return before, after, err
	}
	after, err = s.Get(ctx, id)
	return before, after, err
}

// Delete removes an item and returns what was removed.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.ELearning, error) {
	var e models.ELearning
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ELearning{}, ErrNotFound
	}
	return e, err
}

// ReferencedBlobKeys returns every media key referenced by an item.
func (s *Store) ReferencedBlobKeys(ctx context.Context) (map[string]struct{}, error) {
	cur, err := s.c.Find(ctx, bson.M{"media_path": bson.M{"$exists": true, "$ne": ""}},
		options.Find().SetProjection(bson.M{"media_path": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	keys := make(map[string]struct{})
	for cur.Next(ctx) {
		var e models.ELearning
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		keys[e.MediaPath] = struct{}{}
	}
	return keys, cur.Err()
}

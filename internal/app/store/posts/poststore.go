// Package poststore persists narrative and coordinate posts in the
// testimonies collection.
package poststore

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

// Collection is the name of the posts collection.
const Collection = "testimonies"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Insert writes a new post and returns its id.
func (s *Store) Insert(ctx context.Context, doc models.PostDoc) (primitive.ObjectID, error) {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		return primitive.NilObjectID, err
	}
	return doc.ID, nil
}

// Get loads a post. The bool is false when no post has id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.PostDoc, bool, error) {
	var d models.PostDoc
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PostDoc{}, false, nil
	}
	if err != nil {
		return models.PostDoc{}, false, err
	}
	return d, true, nil
}

// UpdatePendingText applies e when the post is pending and is not a
// coordinate post. It reports whether a post matched.
func (s *Store) UpdatePendingText(ctx context.Context, id primitive.ObjectID, e models.TextEdit, at time.Time) (bool, error) {
	set := bson.M{"updated_at": at}
	if e.Title != nil {
		set["title"] = *e.Title
	}
	if e.Description != nil {
		set["description"] = *e.Description
	}
	if e.Content != nil {
		set["content"] = *e.Content
	}
	filter := bson.M{
		"_id":    id,
		"status": models.StatusPending,
		"type":   bson.M{"$ne": models.PostCoordinates},
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Transition moves a pending post to status in one conditional write and
// returns the updated record. A nil reason clears rejection_reason.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, status models.PostStatus, reason *string, at time.Time) (models.PostDoc, bool, error) {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": at}}
	if reason != nil {
		update["$set"].(bson.M)["rejection_reason"] = *reason
	} else {
		update["$unset"] = bson.M{"rejection_reason": ""}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d models.PostDoc
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": models.StatusPending}, update, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PostDoc{}, false, nil
	}
	if err != nil {
		return models.PostDoc{}, false, err
	}
	return d, true, nil
}

// Delete removes a post in any state.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// DeletePending removes a post only while it is pending.
func (s *Store) DeletePending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": models.StatusPending})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// OwnerMatch selects posts by author. Phones should hold every stored
// spelling of the number (see phone.Normalizer.Variants).
type OwnerMatch struct {
	UserID string
	Phones []string
}

// ListFilter narrows List. Empty fields do not filter.
type ListFilter struct {
	Types    []models.PostType
	Statuses []models.PostStatus
	Owner    *OwnerMatch
	Limit    int64
}

func buildFilter(f ListFilter) bson.M {
	q := bson.M{}
	if len(f.Types) > 0 {
		q["type"] = bson.M{"$in": f.Types}
	}
	if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	if f.Owner != nil {
		or := bson.A{}
		if f.Owner.UserID != "" {
			or = append(or, bson.M{"user_id": f.Owner.UserID})
		}
		if len(f.Owner.Phones) > 0 {
			or = append(or,
				bson.M{"user_phone": bson.M{"$in": f.Owner.Phones}},
				bson.M{"phone_number": bson.M{"$in": f.Owner.Phones}},
				bson.M{"user_name": bson.M{"$in": f.Owner.Phones}},
			)
		}
		if len(or) == 0 {
			// An owner with no identifiers owns nothing.
			q["_id"] = primitive.NilObjectID
		} else {
			q["$or"] = or
		}
	}
	return q
}

// List returns matching posts, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.PostDoc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := s.c.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.PostDoc{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of posts matching f.
func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildFilter(f))
}

type groupCount struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (s *Store) groupBy(ctx context.Context, match bson.M, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []groupCount
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}

// CountByStatus counts posts of the given types per status.
// All types are counted when types is empty.
func (s *Store) CountByStatus(ctx context.Context, types ...models.PostType) (map[models.PostStatus]int64, error) {
	match := bson.M{}
	if len(types) > 0 {
		match["type"] = bson.M{"$in": types}
	}
	raw, err := s.groupBy(ctx, match, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[models.PostStatus]int64, len(raw))
	for k, v := range raw {
		out[models.PostStatus(k)] = v
	}
	return out, nil
}

// CountByType counts posts per type.
func (s *Store) CountByType(ctx context.Context) (map[models.PostType]int64, error) {
	raw, err := s.groupBy(ctx, bson.M{}, "type")
	if err != nil {
		return nil, err
	}
	out := make(map[models.PostType]int64, len(raw))
	for k, v := range raw {
		out[models.PostType(k)] = v
	}
	return out, nil
}

// DayCount is the number of posts created on one UTC day (YYYY-MM-DD).
type DayCount struct {
	Day   string `bson:"_id" json:"day"`
	Count int64  `bson:"count" json:"count"`
}

// DailyCounts returns posts created per UTC day since since, oldest first.
// Days with no posts are omitted.
func (s *Store) DailyCounts(ctx context.Context, since time.Time) ([]DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []DayCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReferencedBlobKeys returns every media and audio key referenced by a post.
func (s *Store) ReferencedBlobKeys(ctx context.Context) (map[string]struct{}, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"media_path": bson.M{"$exists": true, "$ne": ""}},
		bson.M{"audio_path": bson.M{"$exists": true, "$ne": ""}},
	}}
	opts := options.Find().SetProjection(bson.M{"media_path": 1, "audio_path": 1})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	keys := make(map[string]struct{})
	for cur.Next(ctx) {
		var d models.PostDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		for _, k := range d.BlobKeys() {
			keys[k] = struct{}{}
		}
	}
	return keys, cur.Err()
}

// internal/app/store/audit/store.go
package audit

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Actions. The vocabulary is closed; add new actions here.
const (
	ActionCreateUser        = "create_user"
	ActionResetPassword     = "reset_password"
	ActionPromoteAdmin      = "promote_admin"
	ActionDemoteAdmin       = "demote_admin"
	ActionDeleteUser        = "delete_user"
	ActionApprovePost       = "approve_post"
	ActionRejectPost        = "reject_post"
	ActionDeletePost        = "delete_post"
	ActionCreateELearning   = "create_elearning"
	ActionUpdateELearning   = "update_elearning"
	ActionDeleteELearning   = "delete_elearning"
	ActionDeleteLandMapping = "delete_landmapping"
)

// Actions lists every known action.
var Actions = []string{
	ActionCreateUser,
	ActionResetPassword,
	ActionPromoteAdmin,
	ActionDemoteAdmin,
	ActionDeleteUser,
	ActionApprovePost,
	ActionRejectPost,
	ActionDeletePost,
	ActionCreateELearning,
	ActionUpdateELearning,
	ActionDeleteELearning,
	ActionDeleteLandMapping,
}

// Target types.
const (
	TargetUser        = "user"
	TargetPost        = "post"
	TargetELearning   = "elearning"
	TargetLandMapping = "landmapping"
)

// Actor is the administrator who performed an action, taken from the
// verified session.
type Actor struct {
	UID   string `bson:"uid" json:"uid"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Entry is one administrative action. Entries are written once and never changed.
type Entry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	Admin      Actor              `bson:"admin" json:"admin"`
	Action     string             `bson:"action" json:"action"`
	TargetType string             `bson:"target_type" json:"targetType"`
	TargetID   string             `bson:"target_id" json:"targetId"`
	Details    map[string]string  `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit entries.
type QueryFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorUID   string
	Search     string // case-insensitive substring over action, target type and target id
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Store manages audit entries. It exposes no update or delete.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("auditLogs")}
}

// Log appends an entry, filling ID and Timestamp when unset.
func (s *Store) Log(ctx context.Context, e Entry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

func buildQuery(f QueryFilter) bson.M {
	q := bson.M{}
	if f.Action != "" {
		q["action"] = f.Action
	}
	if f.TargetType != "" {
		q["target_type"] = f.TargetType
	}
	if f.TargetID != "" {
		q["target_id"] = f.TargetID
	}
	if f.ActorUID != "" {
		q["admin.uid"] = f.ActorUID
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"action": re},
			bson.M{"target_type": re},
			bson.M{"target_id": re},
		}
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["timestamp"] = tq
	}
	return q
}

// Query retrieves entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(f.Offset)

	cur, err := s.c.Find(ctx, buildQuery(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	entries := []Entry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of entries matching the filter.
func (s *Store) Count(ctx context.Context, f QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(f))
}

// ForTarget returns the history of one entity, newest first.
func (s *Store) ForTarget(ctx context.Context, targetID string, limit int64) ([]Entry, error) {
	return s.Query(ctx, QueryFilter{TargetID: targetID, Limit: limit})
}

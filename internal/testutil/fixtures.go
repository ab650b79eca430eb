package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a user profile with a normalized phone.
func (f *Fixtures) CreateUser(ctx context.Context, firstName, phone string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FirstName:  firstName,
		FullNameCI: text.Fold(firstName),
		Phone:      phone,
		Email:      phone[1:] + "@phone.user",
		IsActive:   true,
		UserType:   "user",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateIdentity creates login credentials for user with password.
// bcrypt.MinCost keeps tests fast.
func (f *Fixtures) CreateIdentity(ctx context.Context, user models.User, password string) models.Identity {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	now := time.Now().UTC()
	id := models.Identity{
		ID:           user.ID,
		Phone:        user.Phone,
		Email:        user.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("identities").InsertOne(ctx, id); err != nil {
		f.t.Fatalf("failed to create test identity: %v", err)
	}
	return id
}

// CreateAdmin creates a user, its identity, and an admin membership.
func (f *Fixtures) CreateAdmin(ctx context.Context, firstName, phone, password string) models.User {
	f.t.Helper()

	user := f.CreateUser(ctx, firstName, phone)
	f.CreateIdentity(ctx, user, password)
	f.GrantAdmin(ctx, user)
	return user
}

// GrantAdmin adds an admin membership for user.
func (f *Fixtures) GrantAdmin(ctx context.Context, user models.User) {
	f.t.Helper()

	m := models.AdminMembership{
		UserID:    user.ID,
		Email:     user.Email,
		Phone:     user.Phone,
		FirstName: user.FirstName,
		Role:      models.AdminRoleAdmin,
		AddedAt:   time.Now().UTC(),
		AddedBy:   "system",
	}
	if _, err := f.db.Collection("admins").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create admin membership: %v", err)
	}
}

// CreatePost inserts a narrative post of kind in status, owned by owner.
func (f *Fixtures) CreatePost(ctx context.Context, owner models.Owner, kind models.PostType, status models.PostStatus, title string) models.PostDoc {
	f.t.Helper()

	now := time.Now().UTC()
	doc := models.PostDoc{
		ID:          primitive.NewObjectID(),
		Type:        kind,
		Status:      status,
		Title:       title,
		Description: title + " description",
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if kind != models.PostText {
		doc.MediaPath = "testimonies/" + owner.UserID + "/1_" + string(kind) + ".bin"
		doc.MediaURL = "/files/" + doc.MediaPath
	}
	if _, err := f.db.Collection("testimonies").InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test post: %v", err)
	}
	return doc
}

// SampleCorners are the boundary corners of a small parcel in Freetown.
var SampleCorners = []models.Point{
	{Latitude: 8.4881, Longitude: -13.2351},
	{Latitude: 8.4882, Longitude: -13.2351},
	{Latitude: 8.4882, Longitude: -13.2352},
	{Latitude: 8.4881, Longitude: -13.2352},
}

// CreateCoordinatePost inserts a coordinate post in status, owned by owner.
func (f *Fixtures) CreateCoordinatePost(ctx context.Context, owner models.Owner, status models.PostStatus) models.PostDoc {
	f.t.Helper()

	now := time.Now().UTC()
	doc := models.PostDoc{
		ID:     primitive.NewObjectID(),
		Type:   models.PostCoordinates,
		Status: status,
		Title:  "Family land",
		Owner:  owner,
		Coordinates: &models.CoordinateDoc{
			Latitude:  8.488147,
			Longitude: -13.235127,
			PlaceName: "Freetown",
			Accuracy:  50,
			Timestamp: now,
		},
		FourCorners: append([]models.Point(nil), SampleCorners...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("testimonies").InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test coordinate post: %v", err)
	}
	return doc
}

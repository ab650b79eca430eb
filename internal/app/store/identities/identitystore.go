// Package identitystore persists login credentials. Passwords are stored
// only as bcrypt hashes.
package identitystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/system/normalize"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	// ErrNotFound is returned when no identity matches.
	ErrNotFound = errors.New("identity not found")
	// ErrDuplicate is returned when the phone or email is already registered.
	ErrDuplicate = errors.New("an identity with this phone or email already exists")
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	// ErrBadCredentials is returned when a password does not match.
	ErrBadCredentials = errors.New("invalid credentials")
)

type Store struct {
	c    *mongo.Collection
	cost int
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("identities"), cost: bcrypt.DefaultCost}
}

// WithCost returns a copy of the store that hashes at cost. Tests use bcrypt.MinCost.
func (s *Store) WithCost(cost int) *Store {
	cp := *s
	cp.cost = cost
	return &cp
}

// Create stores a new identity with a hash of password. The caller supplies
// the ID so the identity shares it with the user profile.
func (s *Store) Create(ctx context.Context, id primitive.ObjectID, phone, email, password string) (models.Identity, error) {
	if len(password) < MinPasswordLength {
		return models.Identity{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.Identity{}, err
	}
	now := time.Now().UTC()
	ident := models.Identity{
		ID:           id,
		Phone:        phone,
		Email:        normalize.Email(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, ident); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Identity{}, ErrDuplicate
		}
		return models.Identity{}, err
	}
	return ident, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Identity, error) {
	var ident models.Identity
	err := s.c.FindOne(ctx, filter).Decode(&ident)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// GetByID loads an identity.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Identity, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByPhone loads an identity by normalized phone.
func (s *Store) GetByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	if phone == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"phone": phone})
}

// GetByEmail loads an identity by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"email": email})
}

// CheckPassword compares password with the stored hash.
func CheckPassword(ident *models.Identity, password string) error {
	if ident == nil || len(ident.PasswordHash) == 0 {
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(ident.PasswordHash, []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

// SetPassword replaces the password of identity id.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes identity id. It reports whether a record was removed.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// Restore re-inserts a previously loaded identity unchanged.
func (s *Store) Restore(ctx context.Context, ident models.Identity) error {
	_, err := s.c.InsertOne(ctx, ident)
	return err
}

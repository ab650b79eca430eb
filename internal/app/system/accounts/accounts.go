// Package accounts creates and removes contributor accounts. An account is
// three records sharing one ID: the identity (credentials), the user
// profile, and for administrators an admin membership.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	adminstore "github.com/dalemusser/testimonyhub/internal/app/store/admins"
	identitystore "github.com/dalemusser/testimonyhub/internal/app/store/identities"
	userstore "github.com/dalemusser/testimonyhub/internal/app/store/users"
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"github.com/dalemusser/testimonyhub/internal/app/system/txn"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrDuplicate is returned when the phone or email is already registered.
	ErrDuplicate = errors.New("a user with this phone or email already exists")
	// ErrNotFound is returned when no user has the given ID.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidPhone is returned when the phone has no digits.
	ErrInvalidPhone = errors.New("phone number is invalid")
	// ErrAlreadyAdmin is returned when promoting an administrator.
	ErrAlreadyAdmin = errors.New("user is already an admin")
	// ErrNotAdmin is returned when demoting a user without membership.
	ErrNotAdmin = errors.New("user is not an admin")
)

// NewAccount describes an account to create.
type NewAccount struct {
	FirstName string
	LastName  string
	Email     string // defaults to <digits>@phone.user
	Phone     string
	Password  string
	IsAdmin   bool
	Role      string // admin role when IsAdmin; defaults to admin
	CreatedBy string // acting admin ID, or "system"
}

// Service coordinates the account stores.
type Service struct {
	client *mongo.Client
	users  *userstore.Store
	idents *identitystore.Store
	admins *adminstore.Store
	phones phone.Normalizer
	log    *zap.Logger
}

// New builds a Service. client may be nil, in which case writes run with
// compensations instead of a transaction.
func New(client *mongo.Client, db *mongo.Database, phones phone.Normalizer, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		users:  userstore.New(db),
		idents: identitystore.New(db),
		admins: adminstore.New(db),
		phones: phones,
		log:    logger,
	}
}

// WithIdentityStore replaces the identity store, e.g. one with a lower bcrypt cost.
func (s *Service) WithIdentityStore(st *identitystore.Store) *Service {
	cp := *s
	cp.idents = st
	return &cp
}

// Create writes the identity, the profile and, for administrators, the
// membership. Either all records are written or none are.
func (s *Service) Create(ctx context.Context, a NewAccount) (models.User, error) {
	norm := s.phones.Normalize(a.Phone)
	if norm == "" {
		return models.User{}, ErrInvalidPhone
	}
	email := strings.TrimSpace(a.Email)
	if email == "" {
		email = phone.PlaceholderEmail(norm)
	}
	userType := userstore.TypeUser
	if a.IsAdmin {
		userType = userstore.TypeAdmin
	}

	id := primitive.NewObjectID()
	var created models.User
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context, tx *txn.Tx) error {
		if _, err := s.idents.Create(ctx, id, norm, email, a.Password); err != nil {
			return err
		}
		tx.OnRollback(func(ctx context.Context) error {
			_, err := s.idents.Delete(ctx, id)
			return err
		})

		u, err := s.users.Create(ctx, models.User{
			ID:        id,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     email,
			Phone:     norm,
			IsActive:  true,
			UserType:  userType,
			CreatedBy: a.CreatedBy,
		})
		if err != nil {
			return err
		}
		tx.OnRollback(func(ctx context.Context) error {
			_, err := s.users.Delete(ctx, id)
			return err
		})
		created = u

		if a.IsAdmin {
			if err := s.admins.Add(ctx, membership(u, a.Role, a.CreatedBy)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, identitystore.ErrDuplicate) || errors.Is(err, userstore.ErrDuplicate) {
			return models.User{}, ErrDuplicate
		}
		if errors.Is(err, identitystore.ErrWeakPassword) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

func membership(u models.User, role, addedBy string) models.AdminMembership {
	if role == "" {
		role = models.AdminRoleAdmin
	}
	return models.AdminMembership{
		UserID:    u.ID,
		Email:     u.Email,
		Phone:     u.Phone,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      role,
		AddedBy:   addedBy,
	}
}

// Get loads a user profile.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return *u, nil
}

// GetByPhone loads a user profile by phone in any spelling.
func (s *Service) GetByPhone(ctx context.Context, p string) (models.User, error) {
	norm := s.phones.Normalize(p)
	if norm == "" {
		return models.User{}, ErrInvalidPhone
	}
	u, err := s.users.GetByPhone(ctx, norm)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return *u, nil
}

// Delete removes the profile, the identity and any membership. Records
// already removed are restored if a later step fails outside a transaction.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	err = txn.Run(ctx, s.client, s.log, func(ctx context.Context, tx *txn.Tx) error {
		m, err := s.admins.Get(ctx, id)
		switch {
		case err == nil:
			if _, err := s.admins.Remove(ctx, id); err != nil {
				return err
			}
			tx.OnRollback(func(ctx context.Context) error { return s.admins.Add(ctx, *m) })
		case !errors.Is(err, mongo.ErrNoDocuments):
			return err
		}

		ident, err := s.idents.GetByID(ctx, id)
		switch {
		case err == nil:
			if _, err := s.idents.Delete(ctx, id); err != nil {
				return err
			}
			tx.OnRollback(func(ctx context.Context) error { return s.idents.Restore(ctx, *ident) })
		case !errors.Is(err, identitystore.ErrNotFound):
			return err
		}

		n, err := s.users.Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("delete account: %w", err)
	}
	return u, nil
}

// Promote grants admin membership to an existing user.
func (s *Service) Promote(ctx context.Context, id primitive.ObjectID, addedBy string) (models.User, error) {
	return s.PromoteWithRole(ctx, id, models.AdminRoleAdmin, addedBy)
}

// PromoteWithRole grants membership with the given role.
func (s *Service) PromoteWithRole(ctx context.Context, id primitive.ObjectID, role, addedBy string) (models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if err := s.admins.Add(ctx, membership(u, role, addedBy)); err != nil {
		if errors.Is(err, adminstore.ErrAlreadyAdmin) {
			return models.User{}, ErrAlreadyAdmin
		}
		return models.User{}, err
	}
	return u, nil
}

// Demote removes admin membership.
func (s *Service) Demote(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	removed, err := s.admins.Remove(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !removed {
		return models.User{}, ErrNotAdmin
	}
	return u, nil
}

// ResetPassword replaces the password of identity id.
func (s *Service) ResetPassword(ctx context.Context, id primitive.ObjectID, password string) (models.Identity, error) {
	ident, err := s.idents.GetByID(ctx, id)
	if err != nil {
		return models.Identity{}, err
	}
	if err := s.idents.SetPassword(ctx, id, password); err != nil {
		return models.Identity{}, err
	}
	return *ident, nil
}

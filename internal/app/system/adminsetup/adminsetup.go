// Package adminsetup bootstraps the first administrator account.
package adminsetup

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/testimonyhub/internal/app/system/accounts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

// AddedBy marks memberships created by the bootstrap.
const AddedBy = "system"

// Params identifies the first administrator.
type Params struct {
	Phone     string
	Email     string
	Password  string
	FirstName string
}

// Result reports what EnsureFirstAdmin did.
type Result struct {
	User     models.User
	Created  bool // a new account was created
	Promoted bool // an existing account was given membership
}

// EnsureFirstAdmin makes sure an account with p.Phone exists and holds a
// superadmin membership. An existing account keeps its password; an
// existing membership is left unchanged. Running it twice is a no-op.
func EnsureFirstAdmin(ctx context.Context, svc *accounts.Service, p Params, logger *zap.Logger) (Result, error) {
	if p.Phone == "" {
		return Result{}, errors.New("superadmin phone is required")
	}

	u, err := svc.GetByPhone(ctx, p.Phone)
	switch {
	case err == nil:
		if _, err := svc.PromoteWithRole(ctx, u.ID, models.AdminRoleSuperAdmin, AddedBy); err != nil {
			if errors.Is(err, accounts.ErrAlreadyAdmin) {
				logger.Info("superadmin already present", zap.String("user_id", u.ID.Hex()))
				return Result{User: u}, nil
			}
			return Result{}, fmt.Errorf("promote superadmin: %w", err)
		}
		logger.Info("promoted existing user to superadmin", zap.String("user_id", u.ID.Hex()))
		return Result{User: u, Promoted: true}, nil

	case errors.Is(err, accounts.ErrNotFound):
		if p.Password == "" {
			return Result{}, errors.New("superadmin password is required to create the account")
		}
		name := p.FirstName
		if name == "" {
			name = "Admin"
		}
		u, err := svc.Create(ctx, accounts.NewAccount{
			FirstName: name,
			Email:     p.Email,
			Phone:     p.Phone,
			Password:  p.Password,
			IsAdmin:   true,
			Role:      models.AdminRoleSuperAdmin,
			CreatedBy: AddedBy,
		})
		if err != nil {
			return Result{}, fmt.Errorf("create superadmin: %w", err)
		}
		logger.Info("created superadmin", zap.String("user_id", u.ID.Hex()), zap.String("phone", u.Phone))
		return Result{User: u, Created: true}, nil

	default:
		return Result{}, fmt.Errorf("look up superadmin: %w", err)
	}
}

// internal/domain/models/admin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin membership roles.
const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "superadmin"
)

// AdminMembership grants administrator capability to the user with the same ID.
// Promotion inserts the record and demotion removes it.
type AdminMembership struct {
	UserID    primitive.ObjectID `bson:"_id" json:"uid"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	FirstName string             `bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName  string             `bson:"last_name,omitempty" json:"lastName,omitempty"`
	Role      string             `bson:"role" json:"role"`
	AddedAt   time.Time          `bson:"added_at" json:"addedAt"`
	AddedBy   string             `bson:"added_by" json:"addedBy"` // admin user id, or "system"
}

// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the profile record of a contributor.
//
// NOTE:
//   - Admin privilege is not a field here. It is the presence of an
//     AdminMembership record with the same ID in the admins collection.
//   - Credentials live on the Identity with the same ID.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName  string             `bson:"first_name" json:"firstName"`
	LastName   string             `bson:"last_name,omitempty" json:"lastName,omitempty"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email      string             `bson:"email,omitempty" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone"` // normalized, +<country><number>
	IsActive   bool               `bson:"is_active" json:"isActive"`
	UserType   string             `bson:"user_type" json:"userType"` // user | admin at creation time
	CreatedBy  string             `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}

// DisplayName returns "First Last", or the phone when no name is recorded.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Phone
}

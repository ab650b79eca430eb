// internal/domain/models/elearning.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ELearning is a learning item published by administrators.
type ELearning struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	MediaURL    string             `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	MediaPath   string             `bson:"media_path,omitempty" json:"-"`
	MediaType   string             `bson:"media_type,omitempty" json:"mediaType,omitempty"` // content type of the upload
	FileName    string             `bson:"file_name,omitempty" json:"fileName,omitempty"`
	CreatedBy   string             `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

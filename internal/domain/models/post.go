// internal/domain/models/post.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostType discriminates the records stored in the testimonies collection.
type PostType string

const (
	PostText        PostType = "text"
	PostImage       PostType = "image"
	PostAudio       PostType = "audio"
	PostVideo       PostType = "video"
	PostCoordinates PostType = "coordinates"
)

// NarrativeTypes lists the testimony types in display order.
var NarrativeTypes = []PostType{PostText, PostImage, PostAudio, PostVideo}

// IsNarrative reports whether t is one of the testimony types.
func (t PostType) IsNarrative() bool {
	switch t {
	case PostText, PostImage, PostAudio, PostVideo:
		return true
	}
	return false
}

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	return t.IsNarrative() || t == PostCoordinates
}

// PostStatus is the moderation state of a post.
type PostStatus string

const (
	StatusPending  PostStatus = "pending"
	StatusApproved PostStatus = "approved"
	StatusRejected PostStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Point is a latitude/longitude pair.
type Point struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Location is the optional place attached to a narrative post.
type Location struct {
	Latitude        float64   `bson:"latitude" json:"latitude"`
	Longitude       float64   `bson:"longitude" json:"longitude"`
	Accuracy        float64   `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	PlaceName       string    `bson:"place_name" json:"placeName"`
	DetailedAddress string    `bson:"detailed_address,omitempty" json:"detailedAddress,omitempty"`
	Timestamp       time.Time `bson:"timestamp" json:"timestamp"`
}

// CoordinateDoc is the persisted primary point of a coordinate post.
type CoordinateDoc struct {
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	PlaceName string    `bson:"place_name" json:"placeName"`
	Accuracy  float64   `bson:"accuracy" json:"accuracy"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Owner identifies the author of a post.
//
// PhoneNumber and DisplayName are carried for records written by older
// clients, which stored the phone in phone_number or in a "User <phone>" name.
type Owner struct {
	UserID      string `bson:"user_id" json:"userId"`
	Phone       string `bson:"user_phone" json:"userPhone"`
	PhoneNumber string `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	DisplayName string `bson:"user_name,omitempty" json:"userName,omitempty"`
}

// PhoneFields returns every phone-bearing value recorded for the owner.
func (o Owner) PhoneFields() []string {
	out := make([]string, 0, 3)
	if o.Phone != "" {
		out = append(out, o.Phone)
	}
	if o.PhoneNumber != "" {
		out = append(out, o.PhoneNumber)
	}
	if p, ok := strings.CutPrefix(strings.TrimSpace(o.DisplayName), "User "); ok && p != "" {
		out = append(out, p)
	}
	return out
}

// PostDoc is the stored shape of a record in the testimonies collection.
// Narrative and coordinate posts share the collection and are told apart by Type.
type PostDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        PostType           `bson:"type" json:"type"`
	Status      PostStatus         `bson:"status" json:"status"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Content     string             `bson:"content,omitempty" json:"content,omitempty"`

	Owner `bson:",inline"`

	// Narrative media
	MediaURL  string `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	MediaPath string `bson:"media_path,omitempty" json:"-"`
	AudioURL  string `bson:"audio_url,omitempty" json:"audioUrl,omitempty"`
	AudioPath string `bson:"audio_path,omitempty" json:"-"`
	FileName  string `bson:"file_name,omitempty" json:"fileName,omitempty"`

	Location *Location `bson:"location,omitempty" json:"location,omitempty"`

	// Coordinate geometry
	Coordinates *CoordinateDoc `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	FourCorners []Point        `bson:"four_corners,omitempty" json:"fourCorners,omitempty"`

	RejectionReason *string `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// BlobKeys returns the storage keys referenced by the record.
func (d PostDoc) BlobKeys() []string {
	var keys []string
	if d.MediaPath != "" {
		keys = append(keys, d.MediaPath)
	}
	if d.AudioPath != "" {
		keys = append(keys, d.AudioPath)
	}
	return keys
}

// TextEdit carries the owner-editable fields of a narrative post.
// Nil fields are left unchanged.
type TextEdit struct {
	Title       *string
	Description *string
	Content     *string
}

// Empty reports whether the edit changes nothing.
func (e TextEdit) Empty() bool {
	return e.Title == nil && e.Description == nil && e.Content == nil
}

// PostHeader holds the fields shared by both post variants.
type PostHeader struct {
	ID              primitive.ObjectID
	Status          PostStatus
	Title           string
	Description     string
	Content         string
	Owner           Owner
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Post is a narrative or a coordinate post. The set of implementations is closed.
type Post interface {
	Header() PostHeader
	Type() PostType
	isPost()
}

// NarrativePost is a text, image, audio or video testimony.
type NarrativePost struct {
	PostHeader
	Kind      PostType
	MediaURL  string
	MediaPath string
	AudioURL  string
	AudioPath string
	FileName  string
	Location  *Location
}

func (p NarrativePost) Header() PostHeader { return p.PostHeader }
func (p NarrativePost) Type() PostType     { return p.Kind }
func (NarrativePost) isPost()              {}

// CoordinatePost is a land claim: a primary point and four boundary corners.
// The geometry is fixed at construction; there is no way to change it.
type CoordinatePost struct {
	PostHeader
	primary   Point
	placeName string
	accuracy  float64
	takenAt   time.Time
	corners   [4]Point
}

// NewCoordinatePost builds a coordinate post around immutable geometry.
func NewCoordinatePost(h PostHeader, primary Point, placeName string, accuracy float64, takenAt time.Time, corners [4]Point) CoordinatePost {
	return CoordinatePost{
		PostHeader: h,
		primary:    primary,
		placeName:  placeName,
		accuracy:   accuracy,
		takenAt:    takenAt,
		corners:    corners,
	}
}

func (p CoordinatePost) Header() PostHeader { return p.PostHeader }
func (CoordinatePost) Type() PostType       { return PostCoordinates }
func (CoordinatePost) isPost()              {}

// Primary returns the main coordinate.
func (p CoordinatePost) Primary() Point { return p.primary }

// PlaceName returns the label recorded for the primary coordinate.
func (p CoordinatePost) PlaceName() string { return p.placeName }

// Accuracy returns the recorded accuracy in metres.
func (p CoordinatePost) Accuracy() float64 { return p.accuracy }

// Corners returns a copy of the four boundary corners.
func (p CoordinatePost) Corners() [4]Point { return p.corners }

// PostFromDoc converts a stored record into its variant.
// Coordinate records missing geometry decode with zero points.
func PostFromDoc(d PostDoc) Post {
	h := PostHeader{
		ID:              d.ID,
		Status:          d.Status,
		Title:           d.Title,
		Description:     d.Description,
		Content:         d.Content,
		Owner:           d.Owner,
		RejectionReason: d.RejectionReason,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Type == PostCoordinates {
		var primary Point
		var placeName string
		var accuracy float64
		var takenAt time.Time
		if d.Coordinates != nil {
			primary = Point{Latitude: d.Coordinates.Latitude, Longitude: d.Coordinates.Longitude}
			placeName = d.Coordinates.PlaceName
			accuracy = d.Coordinates.Accuracy
			takenAt = d.Coordinates.Timestamp
		}
		var corners [4]Point
		copy(corners[:], d.FourCorners)
		return NewCoordinatePost(h, primary, placeName, accuracy, takenAt, corners)
	}
	return NarrativePost{
		PostHeader: h,
		Kind:       d.Type,
		MediaURL:   d.MediaURL,
		MediaPath:  d.MediaPath,
		AudioURL:   d.AudioURL,
		AudioPath:  d.AudioPath,
		FileName:   d.FileName,
		Location:   d.Location,
	}
}

// DocFromPost converts a post variant into its stored shape.
func DocFromPost(p Post) PostDoc {
	h := p.Header()
	d := PostDoc{
		ID:              h.ID,
		Type:            p.Type(),
		Status:          h.Status,
		Title:           h.Title,
		Description:     h.Description,
		Content:         h.Content,
		Owner:           h.Owner,
		RejectionReason: h.RejectionReason,
		CreatedAt:       h.CreatedAt,
		UpdatedAt:       h.UpdatedAt,
	}
	switch v := p.(type) {
	case NarrativePost:
		d.MediaURL = v.MediaURL
		d.MediaPath = v.MediaPath
		d.AudioURL = v.AudioURL
		d.AudioPath = v.AudioPath
		d.FileName = v.FileName
		d.Location = v.Location
	case CoordinatePost:
		d.Coordinates = &CoordinateDoc{
			Latitude:  v.primary.Latitude,
			Longitude: v.primary.Longitude,
			PlaceName: v.placeName,
			Accuracy:  v.accuracy,
			Timestamp: v.takenAt,
		}
		d.FourCorners = v.corners[:]
	}
	return d
}

// WithHeader returns p with its shared fields replaced by h. Geometry and
// media are carried over unchanged.
func WithHeader(p Post, h PostHeader) Post {
	switch v := p.(type) {
	case NarrativePost:
		v.PostHeader = h
		return v
	case CoordinatePost:
		v.PostHeader = h
		return v
	}
	return p
}

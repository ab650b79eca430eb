// Package submission validates and normalizes user input into new posts.
package submission

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/system/blob"
	"github.com/dalemusser/testimonyhub/internal/app/system/geocode"
	"github.com/dalemusser/testimonyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultAccuracy is recorded for manually entered coordinates.
const DefaultAccuracy = 50

// Upload is a file received with a submission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// LocationInput is the optional place attached to a testimony.
type LocationInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  float64  `json:"accuracy" validate:"gte=0"`
	PlaceName string   `json:"placeName" validate:"max=300"`
}

// NarrativeInput is a testimony submission.
type NarrativeInput struct {
	Type        string         `json:"type" validate:"required,oneof=text image audio video"`
	Title       string         `json:"title" validate:"max=300"`
	Description string         `json:"description" validate:"max=20000"`
	Content     string         `json:"content" validate:"max=20000"`
	Location    *LocationInput `json:"location" validate:"omitempty"`
	Media       *Upload        `json:"-" validate:"-"`
	Audio       *Upload        `json:"-" validate:"-"`
}

// PointInput is one latitude/longitude pair.
type PointInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// CoordinateInput is a land claim submission.
type CoordinateInput struct {
	Title       string       `json:"title" validate:"max=300"`
	Description string       `json:"description" validate:"max=20000"`
	Latitude    *float64     `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64     `json:"longitude" validate:"required,gte=-180,lte=180"`
	PlaceName   string       `json:"placeName" validate:"max=300"`
	Accuracy    *float64     `json:"accuracy" validate:"omitempty,gte=0"`
	FourCorners []PointInput `json:"fourCorners" validate:"len=4,dive"`
}

// Draft is a validated post ready for insertion. BlobKeys lists the uploads
// made while building it so the caller can remove them if the insert fails.
type Draft struct {
	Post     models.Post
	BlobKeys []string
}

// Geocoder resolves a coordinate to a place.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lon float64) (geocode.Place, bool)
}

// Builder turns inputs into drafts.
type Builder struct {
	blobs    blob.Store
	geo      Geocoder
	phones   phone.Normalizer
	validate *validator.Validate
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(b *Builder) { b.now = now } }

// WithPhoneNormalizer overrides the default phone rules.
func WithPhoneNormalizer(n phone.Normalizer) Option { return func(b *Builder) { b.phones = n } }

// NewBuilder creates a Builder. geo may be nil, in which case place names
// fall back to the formatted coordinate.
func NewBuilder(blobs blob.Store, geo Geocoder, logger *zap.Logger, opts ...Option) *Builder {
	b := &Builder{
		blobs:    blobs,
		geo:      geo,
		phones:   phone.Default,
		validate: NewValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Owner builds the author record for a signed-in user.
func (b *Builder) Owner(userID, userPhone string) models.Owner {
	norm := b.phones.Normalize(userPhone)
	o := models.Owner{UserID: userID, Phone: norm}
	if norm != "" {
		o.DisplayName = phone.DisplayName(norm)
	}
	return o
}

func (b *Builder) header(owner models.Owner, title, description, content string, at time.Time) models.PostHeader {
	return models.PostHeader{
		Status:      models.StatusPending,
		Title:       htmlsanitize.PlainText(title),
		Description: htmlsanitize.PlainText(description),
		Content:     htmlsanitize.PlainText(content),
		Owner:       owner,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func (b *Builder) placeName(ctx context.Context, explicit string, lat, lon float64) (name, detailed string) {
	if n := htmlsanitize.PlainText(explicit); n != "" {
		return n, ""
	}
	if b.geo != nil {
		if p, ok := b.geo.Resolve(ctx, lat, lon); ok && p.Name != "" {
			return p.Name, p.DisplayName
		}
	}
	return geocode.Fallback(lat, lon), ""
}

// Narrative validates in, uploads its media and returns a pending testimony.
func (b *Builder) Narrative(ctx context.Context, owner models.Owner, in NarrativeInput) (Draft, error) {
	if owner.UserID == "" {
		return Draft{}, invalid("userId", "is required")
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if err := Check(b.validate, in); err != nil {
		return Draft{}, err
	}
	kind := models.PostType(in.Type)

	if kind != models.PostText && in.Media == nil {
		return Draft{}, invalid("media", "is required for "+in.Type+" posts")
	}
	if kind == models.PostText && in.Media != nil {
		return Draft{}, invalid("media", "is not allowed for text posts")
	}
	if in.Audio != nil && kind != models.PostImage {
		return Draft{}, invalid("audio", "is only allowed with image posts")
	}
	if in.Media != nil && !contentTypeMatches(kind, in.Media.ContentType) {
		return Draft{}, invalid("media", "must be a "+in.Type+" file")
	}
	if in.Audio != nil && !contentTypeMatches(models.PostAudio, in.Audio.ContentType) {
		return Draft{}, invalid("audio", "must be an audio file")
	}

	at := b.now()
	content := in.Content
	if strings.TrimSpace(content) == "" {
		content = in.Description
	}
	post := models.NarrativePost{
		PostHeader: b.header(owner, in.Title, in.Description, content, at),
		Kind:       kind,
	}
	if kind == models.PostText && post.Content == "" {
		return Draft{}, invalid("content", "is required for text posts")
	}

	if in.Location != nil {
		lat, lon := *in.Location.Latitude, *in.Location.Longitude
		name, detailed := b.placeName(ctx, in.Location.PlaceName, lat, lon)
		post.Location = &models.Location{
			Latitude:        lat,
			Longitude:       lon,
			Accuracy:        in.Location.Accuracy,
			PlaceName:       name,
			DetailedAddress: detailed,
			Timestamp:       at,
		}
	}

	var draft Draft
	if in.Media != nil {
		key := blob.MediaKey(owner.UserID, at, in.Media.Filename, false)
		url, err := b.blobs.Put(ctx, key, in.Media.Body, in.Media.Size, in.Media.ContentType)
		if err != nil {
			return Draft{}, fmt.Errorf("upload media: %w", err)
		}
		draft.BlobKeys = append(draft.BlobKeys, key)
		post.MediaURL, post.MediaPath = url, key
		post.FileName = key[strings.LastIndexByte(key, '/')+1:]
	}
	if in.Audio != nil {
		key := blob.MediaKey(owner.UserID, at, in.Audio.Filename, true)
		url, err := b.blobs.Put(ctx, key, in.Audio.Body, in.Audio.Size, in.Audio.ContentType)
		if err != nil {
			b.Discard(ctx, draft)
			return Draft{}, fmt.Errorf("upload audio: %w", err)
		}
		draft.BlobKeys = append(draft.BlobKeys, key)
		post.AudioURL, post.AudioPath = url, key
	}

	draft.Post = post
	return draft, nil
}

// Coordinates validates in and returns a pending land claim. Every point is
// checked before anything is built.
func (b *Builder) Coordinates(ctx context.Context, owner models.Owner, in CoordinateInput) (Draft, error) {
	if owner.UserID == "" {
		return Draft{}, invalid("userId", "is required")
	}
	if err := Check(b.validate, in); err != nil {
		return Draft{}, err
	}

	lat, lon := *in.Latitude, *in.Longitude
	var corners [4]models.Point
	for i, c := range in.FourCorners {
		corners[i] = models.Point{Latitude: *c.Latitude, Longitude: *c.Longitude}
	}
	accuracy := float64(DefaultAccuracy)
	if in.Accuracy != nil {
		accuracy = *in.Accuracy
	}

	at := b.now()
	name, _ := b.placeName(ctx, in.PlaceName, lat, lon)
	h := b.header(owner, in.Title, in.Description, "", at)
	post := models.NewCoordinatePost(h, models.Point{Latitude: lat, Longitude: lon}, name, accuracy, at, corners)
	return Draft{Post: post}, nil
}

// Discard removes the blobs uploaded for d. Failures are logged.
func (b *Builder) Discard(ctx context.Context, d Draft) {
	for _, key := range d.BlobKeys {
		if err := b.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
			b.log.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(err))
		}
	}
}

func contentTypeMatches(kind models.PostType, ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" || ct == "application/octet-stream" {
		return true
	}
	return strings.HasPrefix(ct, string(kind)+"/")
}

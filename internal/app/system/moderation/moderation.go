// Package moderation implements the post lifecycle.
//
// A post is created pending. While pending its owner may edit the text of a
// narrative post or delete it. An administrator moves it once to approved or
// rejected and may delete it in any state. Coordinate geometry never changes.
//
// Every status change is a single conditional write against the store, so
// two administrators racing on the same post produce exactly one transition
// and exactly one audit entry. The loser gets ErrNotPending.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/policy/postpolicy"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"github.com/dalemusser/testimonyhub/internal/app/system/metrics"
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means no post has the given id.
	ErrNotFound = errors.New("post not found")
	// ErrNotPending means the post already received a terminal decision.
	ErrNotPending = errors.New("post is no longer pending")
	// ErrImmutableGeometry means an edit targeted a coordinate post.
	ErrImmutableGeometry = errors.New("coordinate posts cannot be edited")
	// ErrForbidden means the caller does not own the post.
	ErrForbidden = errors.New("not the owner of this post")
)

// Repository is the persistence the state machine needs. Conditional methods
// report whether a record matched; they never write when it did not.
type Repository interface {
	Insert(ctx context.Context, doc models.PostDoc) (primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.PostDoc, bool, error)
	// UpdatePendingText applies e only when the post is pending and not a coordinate post.
	UpdatePendingText(ctx context.Context, id primitive.ObjectID, e models.TextEdit, at time.Time) (bool, error)
	// Transition moves a pending post to status and returns the updated record.
	Transition(ctx context.Context, id primitive.ObjectID, status models.PostStatus, reason *string, at time.Time) (models.PostDoc, bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	// DeletePending removes the post only while it is pending.
	DeletePending(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// AuditSink receives one entry per administrative mutation. Record must not
// fail the caller; the sink reports its own write failures.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

// MediaRemover deletes stored blobs. Removal is best-effort.
type MediaRemover interface {
	Delete(ctx context.Context, key string) error
}

// Service runs moderation transitions.
type Service struct {
	repo   Repository
	audit  AuditSink
	media  MediaRemover
	phones phone.Normalizer
	log    *zap.Logger
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMediaRemover deletes a post's media after the post is deleted.
func WithMediaRemover(m MediaRemover) Option {
	return func(s *Service) { s.media = m }
}

// WithPhoneNormalizer sets the dialing rules used for ownership checks.
func WithPhoneNormalizer(n phone.Normalizer) Option {
	return func(s *Service) { s.phones = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(repo Repository, sink AuditSink, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		audit:  sink,
		phones: phone.Default,
		log:    logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create inserts p as a new pending post and returns it with its id.
func (s *Service) Create(ctx context.Context, p models.Post) (models.Post, error) {
	now := s.now().UTC()
	h := p.Header()
	h.ID = primitive.NilObjectID
	h.Status = models.StatusPending
	h.RejectionReason = nil
	h.CreatedAt = now
	h.UpdatedAt = now
	p = models.WithHeader(p, h)

	id, err := s.repo.Insert(ctx, models.DocFromPost(p))
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	h.ID = id
	return models.WithHeader(p, h), nil
}

// Get returns the post with id.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (models.Post, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.PostFromDoc(doc), nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (models.PostDoc, error) {
	doc, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.PostDoc{}, fmt.Errorf("load post: %w", err)
	}
	if !ok {
		return models.PostDoc{}, ErrNotFound
	}
	return doc, nil
}

// Edit changes the text of a pending narrative post owned by owner.
func (s *Service) Edit(ctx context.Context, owner postpolicy.Identity, id primitive.ObjectID, e models.TextEdit) (models.Post, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p := models.PostFromDoc(doc)
	if !postpolicy.IsOwner(p, owner, s.phones) {
		return nil, ErrForbidden
	}
	if p.Type() == models.PostCoordinates {
		return nil, ErrImmutableGeometry
	}
	if p.Header().Status != models.StatusPending {
		return nil, ErrNotPending
	}
	if e.Empty() {
		return p, nil
	}

	ok, err := s.repo.UpdatePendingText(ctx, id, e, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if !ok {
		// Decided or deleted between the read and the write.
		return nil, s.conflict(ctx, id)
	}
	return s.Get(ctx, id)
}

// Approve moves a pending post to approved.
func (s *Service) Approve(ctx context.Context, actor audit.Actor, id primitive.ObjectID) (models.Post, error) {
	doc, err := s.transition(ctx, id, models.StatusApproved, nil)
	if err != nil {
		return nil, err
	}
	metrics.ModerationTransitions.WithLabelValues(audit.ActionApprovePost).Inc()
	s.record(ctx, actor, audit.ActionApprovePost, audit.TargetPost, doc, nil)
	return models.PostFromDoc(doc), nil
}

// Reject moves a pending post to rejected and records reason, which may be empty.
func (s *Service) Reject(ctx context.Context, actor audit.Actor, id primitive.ObjectID, reason string) (models.Post, error) {
	doc, err := s.transition(ctx, id, models.StatusRejected, &reason)
	if err != nil {
		return nil, err
	}
	metrics.ModerationTransitions.WithLabelValues(audit.ActionRejectPost).Inc()
	shown := reason
	if shown == "" {
		shown = "(no reason)"
	}
	s.record(ctx, actor, audit.ActionRejectPost, audit.TargetPost, doc, map[string]string{"reason": shown})
	return models.PostFromDoc(doc), nil
}

func (s *Service) transition(ctx context.Context, id primitive.ObjectID, to models.PostStatus, reason *string) (models.PostDoc, error) {
	doc, ok, err := s.repo.Transition(ctx, id, to, reason, s.now().UTC())
	if err != nil {
		return models.PostDoc{}, fmt.Errorf("update post status: %w", err)
	}
	if !ok {
		return models.PostDoc{}, s.conflict(ctx, id)
	}
	return doc, nil
}

// conflict explains why a conditional write matched nothing.
func (s *Service) conflict(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return ErrNotPending
}

// DeleteAsOwner removes a pending post owned by owner. No audit entry is written.
func (s *Service) DeleteAsOwner(ctx context.Context, owner postpolicy.Identity, id primitive.ObjectID) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !postpolicy.IsOwner(models.PostFromDoc(doc), owner, s.phones) {
		return ErrForbidden
	}
	if doc.Status != models.StatusPending {
		return ErrNotPending
	}
	ok, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !ok {
		return s.conflict(ctx, id)
	}
	s.removeMedia(ctx, doc)
	return nil
}

// DeleteAsAdmin removes a post in any state.
func (s *Service) DeleteAsAdmin(ctx context.Context, actor audit.Actor, id primitive.ObjectID) (models.Post, error) {
	doc, err := s.remove(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.ModerationTransitions.WithLabelValues(audit.ActionDeletePost).Inc()
	s.record(ctx, actor, audit.ActionDeletePost, audit.TargetPost, doc, map[string]string{"status": string(doc.Status)})
	return models.PostFromDoc(doc), nil
}

// DeleteLandMapping removes a coordinate post in any state. Narrative posts
// are reported as not found.
func (s *Service) DeleteLandMapping(ctx context.Context, actor audit.Actor, id primitive.ObjectID) (models.Post, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Type != models.PostCoordinates {
		return nil, ErrNotFound
	}
	doc, err = s.remove(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.ModerationTransitions.WithLabelValues(audit.ActionDeleteLandMapping).Inc()
	details := map[string]string{"status": string(doc.Status)}
	if doc.Coordinates != nil {
		details["placeName"] = doc.Coordinates.PlaceName
	}
	s.record(ctx, actor, audit.ActionDeleteLandMapping, audit.TargetLandMapping, doc, details)
	return models.PostFromDoc(doc), nil
}

func (s *Service) remove(ctx context.Context, id primitive.ObjectID) (models.PostDoc, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return models.PostDoc{}, err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return models.PostDoc{}, fmt.Errorf("delete post: %w", err)
	}
	if !ok {
		return models.PostDoc{}, ErrNotFound
	}
	s.removeMedia(ctx, doc)
	return doc, nil
}

func (s *Service) removeMedia(ctx context.Context, doc models.PostDoc) {
	if s.media == nil {
		return
	}
	for _, key := range doc.BlobKeys() {
		if err := s.media.Delete(ctx, key); err != nil {
			s.log.Warn("post media cleanup failed",
				zap.Error(err),
				zap.String("post_id", doc.ID.Hex()),
				zap.String("key", key))
		}
	}
}

func (s *Service) record(ctx context.Context, actor audit.Actor, action, targetType string, doc models.PostDoc, extra map[string]string) {
	if s.audit == nil {
		return
	}
	details := map[string]string{
		"title":     doc.Title,
		"type":      string(doc.Type),
		"ownerId":   doc.UserID,
		"userPhone": doc.Phone,
	}
	for k, v := range extra {
		details[k] = v
	}
	s.audit.Record(ctx, audit.Entry{
		Admin:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   doc.ID.Hex(),
		Details:    details,
	})
}

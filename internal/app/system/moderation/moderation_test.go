package moderation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/policy/postpolicy"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memRepo is an in-memory Repository with the same conditional semantics as
// the Mongo store.
type memRepo struct {
	mu      sync.Mutex
	docs    map[primitive.ObjectID]models.PostDoc
	failGet bool
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[primitive.ObjectID]models.PostDoc)}
}

func (m *memRepo) Insert(_ context.Context, doc models.PostDoc) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = primitive.NewObjectID()
	m.docs[doc.ID] = doc
	return doc.ID, nil
}

func (m *memRepo) Get(_ context.Context, id primitive.ObjectID) (models.PostDoc, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return models.PostDoc{}, false, errors.New("store down")
	}
	d, ok := m.docs[id]
	return d, ok, nil
}

func (m *memRepo) UpdatePendingText(_ context.Context, id primitive.ObjectID, e models.TextEdit, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != models.StatusPending || d.Type == models.PostCoordinates {
		return false, nil
	}
	if e.Title != nil {
		d.Title = *e.Title
	}
	if e.Description != nil {
		d.Description = *e.Description
	}
	if e.Content != nil {
		d.Content = *e.Content
	}
	d.UpdatedAt = at
	m.docs[id] = d
	return true, nil
}

func (m *memRepo) Transition(_ context.Context, id primitive.ObjectID, status models.PostStatus, reason *string, at time.Time) (models.PostDoc, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != models.StatusPending {
		return models.PostDoc{}, false, nil
	}
	d.Status = status
	d.RejectionReason = reason
	d.UpdatedAt = at
	m.docs[id] = d
	return d, true, nil
}

func (m *memRepo) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	delete(m.docs, id)
	return ok, nil
}

func (m *memRepo) DeletePending(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != models.StatusPending {
		return false, nil
	}
	delete(m.docs, id)
	return true, nil
}

type memSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *memSink) Record(_ context.Context, e audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *memSink) count(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type memMedia struct{ deleted []string }

func (m *memMedia) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

// clock advances one second per call.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var (
	owner = postpolicy.Identity{ID: primitive.NewObjectID().Hex(), Phone: "+232201234567"}
	admin = audit.Actor{UID: "admin-1", Email: "admin@example.com"}
)

type fixture struct {
	svc   *moderation.Service
	repo  *memRepo
	sink  *memSink
	media *memMedia
}

func newFixture() fixture {
	repo := newMemRepo()
	sink := &memSink{}
	media := &memMedia{}
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := moderation.NewService(repo, sink, zap.NewNop(),
		moderation.WithMediaRemover(media),
		moderation.WithClock(c.now))
	return fixture{svc: svc, repo: repo, sink: sink, media: media}
}

func textPost() models.Post {
	return models.NarrativePost{
		PostHeader: models.PostHeader{
			Title: "My story",
			Owner: models.Owner{UserID: owner.ID, Phone: owner.Phone},
		},
		Kind: models.PostText,
	}
}

func coordinatePost() models.CoordinatePost {
	corners := [4]models.Point{
		{Latitude: 8.4881, Longitude: -13.2351},
		{Latitude: 8.4882, Longitude: -13.2351},
		{Latitude: 8.4882, Longitude: -13.2352},
		{Latitude: 8.4881, Longitude: -13.2352},
	}
	return models.NewCoordinatePost(
		models.PostHeader{Title: "Farm", Owner: models.Owner{UserID: owner.ID, Phone: owner.Phone}},
		models.Point{Latitude: 8.488147, Longitude: -13.235127},
		"Freetown", 50, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), corners)
}

func create(t *testing.T, f fixture, p models.Post) primitive.ObjectID {
	t.Helper()
	got, err := f.svc.Create(context.Background(), p)
	require.NoError(t, err)
	return got.Header().ID
}

func strp(s string) *string { return &s }

func TestCreate_ForcesPending(t *testing.T) {
	f := newFixture()
	p := textPost()
	h := p.Header()
	h.Status = models.StatusApproved
	p = models.WithHeader(p, h)

	got, err := f.svc.Create(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, got.Header().ID.IsZero())
	assert.Equal(t, models.StatusPending, got.Header().Status)
	assert.False(t, got.Header().CreatedAt.IsZero())
}

func TestApprove_WritesOneAuditEntry(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())

	got, err := f.svc.Approve(context.Background(), admin, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Header().Status)
	assert.Equal(t, 1, f.sink.count(audit.ActionApprovePost))

	e := f.sink.entries[0]
	assert.Equal(t, admin, e.Admin)
	assert.Equal(t, audit.TargetPost, e.TargetType)
	assert.Equal(t, id.Hex(), e.TargetID)
	assert.Equal(t, "My story", e.Details["title"])
}

func TestApprove_RepeatIsRejectedWithoutAudit(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())
	first, err := f.svc.Approve(context.Background(), admin, id)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), admin, id)
	assert.ErrorIs(t, err, moderation.ErrNotPending)
	_, err = f.svc.Reject(context.Background(), admin, id, "late")
	assert.ErrorIs(t, err, moderation.ErrNotPending)

	assert.Equal(t, 1, f.sink.count(audit.ActionApprovePost))
	assert.Equal(t, 0, f.sink.count(audit.ActionRejectPost))
	after, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first.Header().UpdatedAt, after.Header().UpdatedAt)
}

func TestApprove_ConcurrentAdminsProduceOneTransition(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(context.Background(), admin, id)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, moderation.ErrNotPending)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.sink.count(audit.ActionApprovePost))
}

func TestApprove_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Approve(context.Background(), admin, primitive.NewObjectID())
	assert.ErrorIs(t, err, moderation.ErrNotFound)
	assert.Empty(t, f.sink.entries)
}

func TestReject_RecordsReason(t *testing.T) {
	tests := []struct {
		name        string
		reason      string
		wantDetails string
	}{
		{"with reason", "duplicate", "duplicate"},
		{"empty reason", "", "(no reason)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			id := create(t, f, textPost())

			got, err := f.svc.Reject(context.Background(), admin, id, tt.reason)
			require.NoError(t, err)
			assert.Equal(t, models.StatusRejected, got.Header().Status)
			require.NotNil(t, got.Header().RejectionReason)
			assert.Equal(t, tt.reason, *got.Header().RejectionReason)
			require.Len(t, f.sink.entries, 1)
			assert.Equal(t, tt.wantDetails, f.sink.entries[0].Details["reason"])
		})
	}
}

func TestEdit_PendingTextPost(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())
	before, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)

	got, err := f.svc.Edit(context.Background(), owner, id, models.TextEdit{Title: strp("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Header().Title)
	assert.True(t, got.Header().UpdatedAt.After(before.Header().UpdatedAt))
}

func TestEdit_MatchesOwnerByPhone(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())

	byPhone := postpolicy.Identity{ID: "someone-else", Phone: "020 123 4567"}
	_, err := f.svc.Edit(context.Background(), byPhone, id, models.TextEdit{Title: strp("x")})
	assert.NoError(t, err)
}

func TestEdit_AfterRejectFails(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())
	rejected, err := f.svc.Reject(context.Background(), admin, id, "no")
	require.NoError(t, err)

	_, err = f.svc.Edit(context.Background(), owner, id, models.TextEdit{Title: strp("sneaky")})
	assert.ErrorIs(t, err, moderation.ErrNotPending)

	after, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, rejected.Header(), after.Header())
}

func TestEdit_CoordinatePostAlwaysFails(t *testing.T) {
	for _, decide := range []string{"pending", "approved", "rejected"} {
		t.Run(decide, func(t *testing.T) {
			f := newFixture()
			id := create(t, f, coordinatePost())
			switch decide {
			case "approved":
				_, err := f.svc.Approve(context.Background(), admin, id)
				require.NoError(t, err)
			case "rejected":
				_, err := f.svc.Reject(context.Background(), admin, id, "")
				require.NoError(t, err)
			}
			_, err := f.svc.Edit(context.Background(), owner, id, models.TextEdit{Title: strp("x")})
			assert.ErrorIs(t, err, moderation.ErrImmutableGeometry)
		})
	}
}

func TestCoordinateGeometrySurvivesLifecycle(t *testing.T) {
	f := newFixture()
	in := coordinatePost()
	id := create(t, f, in)

	_, err := f.svc.Approve(context.Background(), admin, id)
	require.NoError(t, err)
	got, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)

	cp, ok := got.(models.CoordinatePost)
	require.True(t, ok, "expected CoordinatePost, got %T", got)
	assert.InDelta(t, 8.488147, cp.Primary().Latitude, 1e-6)
	assert.InDelta(t, -13.235127, cp.Primary().Longitude, 1e-6)
	assert.Equal(t, in.Corners(), cp.Corners())

	deleted, err := f.svc.DeleteLandMapping(context.Background(), admin, id)
	require.NoError(t, err)
	assert.Equal(t, in.Corners(), deleted.(models.CoordinatePost).Corners())
}

func TestEdit_NonOwnerForbidden(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())
	stranger := postpolicy.Identity{ID: primitive.NewObjectID().Hex(), Phone: "+232309999999"}

	_, err := f.svc.Edit(context.Background(), stranger, id, models.TextEdit{Title: strp("x")})
	assert.ErrorIs(t, err, moderation.ErrForbidden)
}

func TestDeleteAsOwner(t *testing.T) {
	f := newFixture()
	p := models.NarrativePost{
		PostHeader: models.PostHeader{Owner: models.Owner{UserID: owner.ID}},
		Kind:       models.PostImage,
		MediaPath:  "testimonies/u/1_a.jpg",
		AudioPath:  "testimonies/u/1_audio_a.mp3",
	}
	id := create(t, f, p)

	require.NoError(t, f.svc.DeleteAsOwner(context.Background(), owner, id))
	_, err := f.svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, moderation.ErrNotFound)
	assert.ElementsMatch(t, []string{"testimonies/u/1_a.jpg", "testimonies/u/1_audio_a.mp3"}, f.media.deleted)
	assert.Empty(t, f.sink.entries)
}

func TestDeleteAsOwner_AfterApproveFails(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())
	_, err := f.svc.Approve(context.Background(), admin, id)
	require.NoError(t, err)

	err = f.svc.DeleteAsOwner(context.Background(), owner, id)
	assert.ErrorIs(t, err, moderation.ErrNotPending)
	_, err = f.svc.Get(context.Background(), id)
	assert.NoError(t, err)
}

func TestDeleteAsAdmin_AfterApprove(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())
	_, err := f.svc.Approve(context.Background(), admin, id)
	require.NoError(t, err)

	_, err = f.svc.DeleteAsAdmin(context.Background(), admin, id)
	require.NoError(t, err)

	assert.Equal(t, 1, f.sink.count(audit.ActionApprovePost))
	assert.Equal(t, 1, f.sink.count(audit.ActionDeletePost))
	for _, e := range f.sink.entries {
		assert.Equal(t, id.Hex(), e.TargetID)
	}

	_, err = f.svc.DeleteAsAdmin(context.Background(), admin, id)
	assert.ErrorIs(t, err, moderation.ErrNotFound)
	assert.Equal(t, 1, f.sink.count(audit.ActionDeletePost))
}

func TestDeleteLandMapping_RejectsNarrative(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())

	_, err := f.svc.DeleteLandMapping(context.Background(), admin, id)
	assert.ErrorIs(t, err, moderation.ErrNotFound)
	_, err = f.svc.Get(context.Background(), id)
	assert.NoError(t, err)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	f := newFixture()
	id := create(t, f, textPost())
	f.repo.failGet = true

	_, err := f.svc.Edit(context.Background(), owner, id, models.TextEdit{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, moderation.ErrNotFound)
}

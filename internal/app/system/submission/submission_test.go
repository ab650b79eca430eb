package submission_test

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/system/blob"
	"github.com/dalemusser/testimonyhub/internal/app/system/geocode"
	"github.com/dalemusser/testimonyhub/internal/app/system/submission"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memBlobs struct {
	mu      sync.Mutex
	objects map[string]string
	failOn  string
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string]string{}} }

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if m.failOn != "" && strings.Contains(key, m.failOn) {
		return "", errors.New("disk full")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(b)
	return "/files/" + key, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) List(context.Context, string, func(blob.Object) error) error { return nil }

type stubGeo struct {
	place geocode.Place
	ok    bool
	calls int
}

func (s *stubGeo) Resolve(context.Context, float64, float64) (geocode.Place, bool) {
	s.calls++
	return s.place, s.ok
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newBuilder(blobs blob.Store, geo submission.Geocoder) *submission.Builder {
	return submission.NewBuilder(blobs, geo, zap.NewNop(), submission.WithClock(func() time.Time { return fixedNow }))
}

func f(v float64) *float64 { return &v }

func upload(name, ct, body string) *submission.Upload {
	return &submission.Upload{Filename: name, ContentType: ct, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func corners() []submission.PointInput {
	return []submission.PointInput{
		{Latitude: f(8.4885), Longitude: f(-13.2355)},
		{Latitude: f(8.4885), Longitude: f(-13.2347)},
		{Latitude: f(8.4878), Longitude: f(-13.2347)},
		{Latitude: f(8.4878), Longitude: f(-13.2355)},
	}
}

func TestOwner(t *testing.T) {
	b := newBuilder(newMemBlobs(), nil)
	o := b.Owner("u1", "020 123 4567")
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "+232201234567", o.Phone)
	assert.Equal(t, "User +232201234567", o.DisplayName)

	anon := b.Owner("u2", "")
	assert.Empty(t, anon.Phone)
	assert.Empty(t, anon.DisplayName)
}

func TestNarrativeText(t *testing.T) {
	b := newBuilder(newMemBlobs(), nil)
	owner := b.Owner("u1", "0201234567")

	d, err := b.Narrative(context.Background(), owner, submission.NarrativeInput{
		Type:        "Text",
		Title:       "<b>My land</b>",
		Description: "We farmed here <script>alert(1)</script>for years",
	})
	require.NoError(t, err)
	assert.Empty(t, d.BlobKeys)

	p, ok := d.Post.(models.NarrativePost)
	require.True(t, ok)
	assert.Equal(t, models.PostText, p.Type())
	assert.Equal(t, models.StatusPending, p.Status)
	assert.Equal(t, "My land", p.Title)
	assert.NotContains(t, p.Description, "<script>")
	assert.Equal(t, p.Description, p.Content, "content defaults to the description")
	assert.Equal(t, fixedNow, p.CreatedAt)
	assert.Equal(t, fixedNow, p.UpdatedAt)
}

func TestNarrativeValidation(t *testing.T) {
	owner := models.Owner{UserID: "u1"}
	tests := []struct {
		name  string
		in    submission.NarrativeInput
		field string
	}{
		{"unknown type", submission.NarrativeInput{Type: "coordinates"}, "type"},
		{"missing type", submission.NarrativeInput{}, "type"},
		{"media required for video", submission.NarrativeInput{Type: "video"}, "media"},
		{"media not allowed for text", submission.NarrativeInput{Type: "text", Content: "x", Media: upload("a.jpg", "image/jpeg", "x")}, "media"},
		{"audio only with image", submission.NarrativeInput{Type: "video", Media: upload("v.mp4", "video/mp4", "x"), Audio: upload("a.m4a", "audio/mp4", "x")}, "audio"},
		{"wrong media type", submission.NarrativeInput{Type: "image", Media: upload("v.mp4", "video/mp4", "x")}, "media"},
		{"empty text", submission.NarrativeInput{Type: "text"}, "content"},
		{"location latitude out of range", submission.NarrativeInput{Type: "text", Content: "x", Location: &submission.LocationInput{Latitude: f(91), Longitude: f(0)}}, "location.latitude"},
		{"location longitude missing", submission.NarrativeInput{Type: "text", Content: "x", Location: &submission.LocationInput{Latitude: f(1)}}, "location.longitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := newMemBlobs()
			_, err := newBuilder(blobs, nil).Narrative(context.Background(), owner, tt.in)
			require.Error(t, err)
			require.True(t, submission.IsValidation(err), "got %v", err)
			var ve *submission.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, blobs.objects, "nothing uploaded on validation failure")
		})
	}
}

func TestNarrativeRequiresOwner(t *testing.T) {
	_, err := newBuilder(newMemBlobs(), nil).Narrative(context.Background(), models.Owner{}, submission.NarrativeInput{Type: "text", Content: "x"})
	assert.True(t, submission.IsValidation(err))
}

func TestNarrativeImageWithAudio(t *testing.T) {
	blobs := newMemBlobs()
	b := newBuilder(blobs, nil)

	d, err := b.Narrative(context.Background(), models.Owner{UserID: "u1"}, submission.NarrativeInput{
		Type:  "image",
		Media: upload("field photo.jpg", "image/jpeg", "JPEG"),
		Audio: upload("story.m4a", "audio/mp4", "AUDIO"),
	})
	require.NoError(t, err)

	ms := fixedNow.UnixMilli()
	mediaKey := "testimonies/u1/" + itoa(ms) + "_field_photo.jpg"
	audioKey := "testimonies/u1/" + itoa(ms) + "_audio_story.m4a"
	assert.Equal(t, []string{mediaKey, audioKey}, d.BlobKeys)

	p := d.Post.(models.NarrativePost)
	assert.Equal(t, "/files/"+mediaKey, p.MediaURL)
	assert.Equal(t, mediaKey, p.MediaPath)
	assert.Equal(t, "/files/"+audioKey, p.AudioURL)
	assert.Equal(t, itoa(ms)+"_field_photo.jpg", p.FileName)
	assert.Equal(t, "JPEG", blobs.objects[mediaKey])
}

func TestNarrativeAudioFailureRemovesMedia(t *testing.T) {
	blobs := newMemBlobs()
	blobs.failOn = "_audio_"
	b := newBuilder(blobs, nil)

	_, err := b.Narrative(context.Background(), models.Owner{UserID: "u1"}, submission.NarrativeInput{
		Type:  "image",
		Media: upload("p.jpg", "image/jpeg", "JPEG"),
		Audio: upload("a.m4a", "audio/mp4", "AUDIO"),
	})
	require.Error(t, err)
	assert.False(t, submission.IsValidation(err))
	assert.Empty(t, blobs.objects)
}

func TestNarrativeLocationPlaceName(t *testing.T) {
	tests := []struct {
		name         string
		explicit     string
		geo          *stubGeo
		wantName     string
		wantDetailed string
	}{
		{"explicit name wins", "Our farm", &stubGeo{ok: true, place: geocode.Place{Name: "Main Rd, Bo"}}, "Our farm", ""},
		{"geocoded", "", &stubGeo{ok: true, place: geocode.Place{Name: "Main Rd, Bo", DisplayName: "Main Rd, Bo, Southern Province"}}, "Main Rd, Bo", "Main Rd, Bo, Southern Province"},
		{"geocoder failure falls back", "", &stubGeo{}, "7.9640, -11.7383", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := newBuilder(newMemBlobs(), tt.geo).Narrative(context.Background(), models.Owner{UserID: "u1"}, submission.NarrativeInput{
				Type:     "text",
				Content:  "story",
				Location: &submission.LocationInput{Latitude: f(7.96401), Longitude: f(-11.73831), Accuracy: 12, PlaceName: tt.explicit},
			})
			require.NoError(t, err)
			loc := d.Post.(models.NarrativePost).Location
			require.NotNil(t, loc)
			assert.Equal(t, tt.wantName, loc.PlaceName)
			assert.Equal(t, tt.wantDetailed, loc.DetailedAddress)
			assert.Equal(t, 12.0, loc.Accuracy)
		})
	}
}

func TestCoordinates(t *testing.T) {
	geo := &stubGeo{ok: true, place: geocode.Place{Name: "Siaka Stevens St, Freetown"}}
	b := newBuilder(newMemBlobs(), geo)

	d, err := b.Coordinates(context.Background(), models.Owner{UserID: "u1", Phone: "+232201234567"}, submission.CoordinateInput{
		Title:       "Family plot",
		Latitude:    f(8.488147),
		Longitude:   f(-13.235127),
		FourCorners: corners(),
	})
	require.NoError(t, err)
	assert.Empty(t, d.BlobKeys)

	p, ok := d.Post.(models.CoordinatePost)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, p.Status)
	assert.Equal(t, models.Point{Latitude: 8.488147, Longitude: -13.235127}, p.Primary())
	assert.Equal(t, "Siaka Stevens St, Freetown", p.PlaceName())
	assert.Equal(t, float64(submission.DefaultAccuracy), p.Accuracy())
	assert.Equal(t, models.Point{Latitude: 8.4878, Longitude: -13.2347}, p.Corners()[2])
}

func TestCoordinatesFallbackPlaceNameNeverEmpty(t *testing.T) {
	d, err := newBuilder(newMemBlobs(), &stubGeo{}).Coordinates(context.Background(), models.Owner{UserID: "u1"}, submission.CoordinateInput{
		Latitude:    f(0),
		Longitude:   f(0),
		Accuracy:    f(5),
		FourCorners: corners(),
	})
	require.NoError(t, err)
	p := d.Post.(models.CoordinatePost)
	assert.Equal(t, "0.0000, 0.0000", p.PlaceName())
	assert.Equal(t, 5.0, p.Accuracy())
}

func TestCoordinatesValidation(t *testing.T) {
	withCorner := func(i int, pt submission.PointInput) []submission.PointInput {
		cs := corners()
		cs[i] = pt
		return cs
	}
	tests := []struct {
		name  string
		in    submission.CoordinateInput
		field string
	}{
		{"missing latitude", submission.CoordinateInput{Longitude: f(1), FourCorners: corners()}, "latitude"},
		{"latitude too high", submission.CoordinateInput{Latitude: f(90.0001), Longitude: f(1), FourCorners: corners()}, "latitude"},
		{"longitude too low", submission.CoordinateInput{Latitude: f(1), Longitude: f(-180.5), FourCorners: corners()}, "longitude"},
		{"three corners", submission.CoordinateInput{Latitude: f(1), Longitude: f(1), FourCorners: corners()[:3]}, "fourCorners"},
		{"no corners", submission.CoordinateInput{Latitude: f(1), Longitude: f(1)}, "fourCorners"},
		{"corner latitude out of range", submission.CoordinateInput{Latitude: f(1), Longitude: f(1), FourCorners: withCorner(2, submission.PointInput{Latitude: f(-91), Longitude: f(0)})}, "fourCorners[2].latitude"},
		{"corner longitude missing", submission.CoordinateInput{Latitude: f(1), Longitude: f(1), FourCorners: withCorner(3, submission.PointInput{Latitude: f(0)})}, "fourCorners[3].longitude"},
		{"negative accuracy", submission.CoordinateInput{Latitude: f(1), Longitude: f(1), Accuracy: f(-1), FourCorners: corners()}, "accuracy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &stubGeo{ok: true}
			_, err := newBuilder(newMemBlobs(), geo).Coordinates(context.Background(), models.Owner{UserID: "u1"}, tt.in)
			var ve *submission.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Zero(t, geo.calls, "no geocoding for invalid input")
		})
	}
}

func TestCoordinatesBoundaryValuesAccepted(t *testing.T) {
	cs := []submission.PointInput{
		{Latitude: f(90), Longitude: f(180)},
		{Latitude: f(-90), Longitude: f(-180)},
		{Latitude: f(0), Longitude: f(0)},
		{Latitude: f(45), Longitude: f(-45)},
	}
	_, err := newBuilder(newMemBlobs(), nil).Coordinates(context.Background(), models.Owner{UserID: "u1"}, submission.CoordinateInput{
		Latitude: f(-90), Longitude: f(180), FourCorners: cs,
	})
	assert.NoError(t, err)
}

func TestDiscard(t *testing.T) {
	blobs := newMemBlobs()
	blobs.objects["testimonies/u1/1_a.jpg"] = "x"
	blobs.objects["testimonies/u1/2_b.jpg"] = "y"
	newBuilder(blobs, nil).Discard(context.Background(), submission.Draft{BlobKeys: []string{"testimonies/u1/1_a.jpg"}})
	assert.Len(t, blobs.objects, 1)
	assert.Contains(t, blobs.objects, "testimonies/u1/2_b.jpg")
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

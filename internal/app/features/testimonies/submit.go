package testimonies

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/submission"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// multipartMemory is how much of a submission is held in memory before
// the rest spills to temporary files.
const multipartMemory = 8 << 20

// HandleNarrative handles POST /api/posts/narrative (multipart/form-data).
//
// Form fields: type, title, description, content, and optionally latitude,
// longitude, accuracy, placeName. Files: media (or file), and audio for
// image posts. The author is the signed-in user.
func (h *Handler) HandleNarrative(w http.ResponseWriter, r *http.Request) {
	uid, userPhone, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpjson.Error(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		httpjson.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := submission.NarrativeInput{
		Type:        r.FormValue("type"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Content:     r.FormValue("content"),
	}
	loc, err := locationFromForm(r)
	if err != nil {
		postresp.WriteError(w, h.Log, "parse location", err)
		return
	}
	in.Location = loc

	media, closeMedia, err := formFile(r, "media", "file")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "unreadable media upload")
		return
	}
	defer closeMedia()
	in.Media = media

	audio, closeAudio, err := formFile(r, "audio")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "unreadable audio upload")
		return
	}
	defer closeAudio()
	in.Audio = audio

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "narrative upload")
	defer cancel()

	draft, err := h.Builder.Narrative(ctx, h.Builder.Owner(uid.Hex(), userPhone), in)
	if err != nil {
		postresp.WriteError(w, h.Log, "build testimony", err)
		return
	}
	h.create(ctx, w, draft)
}

// HandleCoordinates handles POST /api/posts/coordinates (JSON).
func (h *Handler) HandleCoordinates(w http.ResponseWriter, r *http.Request) {
	uid, userPhone, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	var in submission.CoordinateInput
	if err := httpjson.Decode(w, r, &in, 0); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	draft, err := h.Builder.Coordinates(ctx, h.Builder.Owner(uid.Hex(), userPhone), in)
	if err != nil {
		postresp.WriteError(w, h.Log, "build land claim", err)
		return
	}
	h.create(ctx, w, draft)
}

// create stores the draft as a pending post. Uploads made for a draft that
// fails to insert are removed.
func (h *Handler) create(ctx context.Context, w http.ResponseWriter, draft submission.Draft) {
	p, err := h.Moderation.Create(ctx, draft.Post)
	if err != nil {
		h.Builder.Discard(ctx, draft)
		h.Log.Error("insert post failed", zap.Error(err), zap.String("type", string(draft.Post.Type())))
		httpjson.Unavailable(w)
		return
	}
	h.Log.Info("post submitted",
		zap.String("post_id", p.Header().ID.Hex()),
		zap.String("type", string(p.Type())),
		zap.String("user_id", p.Header().Owner.UserID))
	httpjson.Write(w, http.StatusCreated, postresp.View(p))
}

// locationFromForm returns nil when neither coordinate was sent. A single
// coordinate is passed through so validation reports the missing one.
func locationFromForm(r *http.Request) (*submission.LocationInput, error) {
	latStr := strings.TrimSpace(r.FormValue("latitude"))
	lonStr := strings.TrimSpace(r.FormValue("longitude"))
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	loc := &submission.LocationInput{PlaceName: strings.TrimSpace(r.FormValue("placeName"))}
	var err error
	if loc.Latitude, err = optFloat("location.latitude", latStr); err != nil {
		return nil, err
	}
	if loc.Longitude, err = optFloat("location.longitude", lonStr); err != nil {
		return nil, err
	}
	acc, err := optFloat("location.accuracy", r.FormValue("accuracy"))
	if err != nil {
		return nil, err
	}
	if acc != nil {
		loc.Accuracy = *acc
	}
	return loc, nil
}

func optFloat(field, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &submission.ValidationError{Field: field, Message: "must be a number"}
	}
	return &v, nil
}

// formFile opens the first present file among names. The returned close
// function is always safe to call.
func formFile(r *http.Request, names ...string) (*submission.Upload, func(), error) {
	for _, name := range names {
		f, hdr, err := r.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, func() {}, err
		}
		return uploadFrom(f, hdr), func() { _ = f.Close() }, nil
	}
	return nil, func() {}, nil
}

func uploadFrom(f multipart.File, hdr *multipart.FileHeader) *submission.Upload {
	return &submission.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        f,
	}
}

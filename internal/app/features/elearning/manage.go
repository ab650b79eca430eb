package elearning

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"time"

	elearningstore "github.com/dalemusser/testimonyhub/internal/app/store/elearning"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/blob"
	"github.com/dalemusser/testimonyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

const multipartMemory = 8 << 20

// itemForm is an e-learning create or update request. The media file is
// only present on multipart requests.
type itemForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	media       *elearningstore.Media
}

// readForm accepts a JSON body or a multipart form with an optional media
// file. Uploaded media is stored before returning; the caller removes it if
// the write that follows fails.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (itemForm, bool) {
	var f itemForm
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		if err := httpjson.Decode(w, r, &f, 0); err != nil {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return f, false
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				httpjson.Error(w, http.StatusRequestEntityTooLarge, "upload too large")
				return f, false
			}
			httpjson.Error(w, http.StatusBadRequest, "invalid multipart form")
			return f, false
		}
		f.Title = r.FormValue("title")
		f.Description = r.FormValue("description")
	}

	f.Title = htmlsanitize.PlainText(f.Title)
	f.Description = htmlsanitize.Sanitize(f.Description)
	if f.Title == "" {
		httpjson.Error(w, http.StatusBadRequest, "title: is required")
		return f, false
	}

	if r.MultipartForm == nil {
		return f, true
	}
	file, hdr, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return f, true
	}
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "unreadable media upload")
		return f, false
	}
	defer file.Close()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "elearning media upload")
	defer cancel()

	key := blob.ELearningKey(time.Now().UTC(), hdr.Filename)
	contentType := hdr.Header.Get("Content-Type")
	url, err := h.Blobs.Put(ctx, key, file, hdr.Size, contentType)
	if err != nil {
		h.Log.Error("upload e-learning media failed", zap.Error(err), zap.String("key", key))
		httpjson.Unavailable(w)
		return f, false
	}
	f.media = &elearningstore.Media{
		URL:      url,
		Path:     key,
		Type:     contentType,
		FileName: blob.SanitizeFilename(hdr.Filename),
	}
	return f, true
}

// removeMedia deletes a stored file. Failures are logged; the reconciler
// collects anything left behind.
func (h *Handler) removeMedia(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := h.Blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		h.Log.Warn("e-learning media cleanup failed", zap.Error(err), zap.String("key", key))
	}
}

// HandleCreate handles POST /api/admin/elearning.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	f, ok := h.readForm(w, r)
	if !ok {
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item := models.ELearning{
		Title:       f.Title,
		Description: f.Description,
		CreatedBy:   actor.UID,
	}
	if f.media != nil {
		item.MediaURL = f.media.URL
		item.MediaPath = f.media.Path
		item.MediaType = f.media.Type
		item.FileName = f.media.FileName
	}
	created, err := h.Items.Create(ctx, item)
	if err != nil {
		if f.media != nil {
			h.removeMedia(ctx, f.media.Path)
		}
		h.Log.Error("create e-learning failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}

	h.AuditLog.ELearningCreated(ctx, actor, created.ID.Hex(), created.Title, f.media != nil)
	httpjson.Write(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /api/admin/elearning/{id}. A new media file
// replaces the old one, which is then removed.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	f, ok := h.readForm(w, r)
	if !ok {
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, after, err := h.Items.Update(ctx, id, elearningstore.Update{
		Title:       f.Title,
		Description: f.Description,
		Media:       f.media,
	})
	if err != nil {
		if f.media != nil {
			h.removeMedia(ctx, f.media.Path)
		}
		if errors.Is(err, elearningstore.ErrNotFound) {
			httpjson.NotFound(w)
			return
		}
		h.Log.Error("update e-learning failed", zap.Error(err), zap.String("id", id.Hex()))
		httpjson.Unavailable(w)
		return
	}
	if f.media != nil && before.MediaPath != f.media.Path {
		h.removeMedia(ctx, before.MediaPath)
	}

	h.AuditLog.ELearningUpdated(ctx, actor, id.Hex(), after.Title, f.media != nil)
	httpjson.OK(w, after)
}

// HandleDelete handles DELETE /api/admin/elearning/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	removed, err := h.Items.Delete(ctx, id)
	if errors.Is(err, elearningstore.ErrNotFound) {
		httpjson.NotFound(w)
		return
	}
	if err != nil {
		h.Log.Error("delete e-learning failed", zap.Error(err), zap.String("id", id.Hex()))
		httpjson.Unavailable(w)
		return
	}
	h.removeMedia(ctx, removed.MediaPath)

	h.AuditLog.ELearningDeleted(ctx, actor, id.Hex(), removed.Title)
	httpjson.OK(w, map[string]string{"deleted": id.Hex()})
}

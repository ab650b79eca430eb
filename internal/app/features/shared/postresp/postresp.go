// Package postresp holds the response helpers shared by the post surfaces:
// id parsing, error mapping, searchable fields and the paged list body.
package postresp

import (
	"errors"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/app/system/paging"
	"github.com/dalemusser/testimonyhub/internal/app/system/search"
	"github.com/dalemusser/testimonyhub/internal/app/system/submission"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// List is the body of every paged post listing.
type List struct {
	Items []models.PostDoc `json:"items"`
	Page  paging.Page      `json:"page"`
}

// View returns the wire shape of p.
func View(p models.Post) models.PostDoc {
	return models.DocFromPost(p)
}

// ID reads the {id} URL parameter. A malformed id answers 404 like an
// absent record.
func ID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.NotFound(w)
		return primitive.NilObjectID, false
	}
	return id, true
}

// WriteError maps moderation and submission errors to their HTTP status.
// Unknown errors are logged and answered with 503.
func WriteError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var verr *submission.ValidationError
	switch {
	case errors.As(err, &verr):
		httpjson.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, moderation.ErrNotFound), errors.Is(err, moderation.ErrForbidden):
		httpjson.NotFound(w)
	case errors.Is(err, moderation.ErrNotPending), errors.Is(err, moderation.ErrImmutableGeometry):
		httpjson.Error(w, http.StatusConflict, err.Error())
	default:
		log.Error(op+" failed", zap.Error(err))
		httpjson.Unavailable(w)
	}
}

// Fields lists the text of d that a listing search looks at.
func Fields(d models.PostDoc) []string {
	f := []string{d.Title, d.Description, d.Content, d.DisplayName, d.Phone, d.PhoneNumber, d.ID.Hex(), string(d.Type)}
	if d.Location != nil {
		f = append(f, d.Location.PlaceName, d.Location.DetailedAddress)
	}
	if d.Coordinates != nil {
		f = append(f, d.Coordinates.PlaceName)
	}
	return f
}

// Page filters docs by the q parameter and slices one page of them.
func Page(r *http.Request, docs []models.PostDoc, defLimit int) List {
	q := r.URL.Query().Get("q")
	matched := search.Filter(docs, q, Fields)
	items, page := paging.Slice(matched, paging.ParseStart(r), paging.ParseLimit(r, defLimit))
	return List{Items: items, Page: page}
}

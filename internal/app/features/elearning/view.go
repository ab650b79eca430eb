package elearning

import (
	"context"
	"errors"
	"net/http"

	elearningstore "github.com/dalemusser/testimonyhub/internal/app/store/elearning"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listResponse struct {
	Items []models.ELearning `json:"items"`
}

// ServeList handles GET /api/elearning, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, err := h.Items.List(ctx)
	if err != nil {
		h.Log.Error("list e-learning failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}
	httpjson.OK(w, listResponse{Items: items})
}

// ServeGet handles GET /api/elearning/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.Items.Get(ctx, id)
	if errors.Is(err, elearningstore.ErrNotFound) {
		httpjson.NotFound(w)
		return
	}
	if err != nil {
		h.Log.Error("load e-learning failed", zap.Error(err), zap.String("id", id.Hex()))
		httpjson.Unavailable(w)
		return
	}
	httpjson.OK(w, item)
}

func itemID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.NotFound(w)
		return primitive.NilObjectID, false
	}
	return id, true
}

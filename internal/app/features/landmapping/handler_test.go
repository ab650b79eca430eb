package landmapping_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/testimonyhub/internal/app/features/landmapping"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/auditlog"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/dalemusser/testimonyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestLandMapping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	posts := poststore.New(db)
	sink := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: auditlog.ModeDB})
	h := landmapping.NewHandler(posts, moderation.NewService(posts, sink, logger), logger)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := testutil.ContributorUser()
	o := models.Owner{UserID: u.ID, Phone: u.Phone}
	pending := fixtures.CreateCoordinatePost(ctx, o, models.StatusPending)
	approved := fixtures.CreateCoordinatePost(ctx, o, models.StatusApproved)
	story := fixtures.CreatePost(ctx, o, models.PostText, models.StatusPending, "A story")
	admin := testutil.AdminUser()

	t.Run("lists every status by default", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/landmapping", admin))
		rec.AssertStatus(t, http.StatusOK)
		var body struct {
			Items []models.PostDoc `json:"items"`
		}
		rec.DecodeJSON(t, &body)
		if len(body.Items) != 2 {
			t.Fatalf("items: got %d, want 2", len(body.Items))
		}
		for _, it := range body.Items {
			if it.Type != models.PostCoordinates {
				t.Errorf("unexpected type %q", it.Type)
			}
		}
	})

	t.Run("status narrows", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/landmapping?status=approved", admin))
		var body struct {
			Items []models.PostDoc `json:"items"`
		}
		rec.DecodeJSON(t, &body)
		if len(body.Items) != 1 || body.Items[0].ID != approved.ID {
			t.Errorf("got %+v", body.Items)
		}
	})

	del := func(id string) *testutil.ResponseRecorder {
		req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/api/admin/landmapping/"+id, admin), "id", id)
		rec := testutil.NewRecorder()
		h.HandleDelete(rec, req)
		return rec
	}

	t.Run("testimony is not a land claim", func(t *testing.T) {
		del(story.ID.Hex()).AssertStatus(t, http.StatusNotFound)
	})

	t.Run("delete writes one entry", func(t *testing.T) {
		del(pending.ID.Hex()).AssertStatus(t, http.StatusOK)
		n, err := db.Collection("auditLogs").CountDocuments(ctx, bson.M{"action": audit.ActionDeleteLandMapping, "target_id": pending.ID.Hex()})
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 1 {
			t.Errorf("entries: got %d, want 1", n)
		}
	})
}

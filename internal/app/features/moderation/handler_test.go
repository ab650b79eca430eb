package moderation_test

import (
	"net/http"
	"sync"
	"testing"

	modfeature "github.com/dalemusser/testimonyhub/internal/app/features/moderation"
	adminstore "github.com/dalemusser/testimonyhub/internal/app/store/admins"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/auditlog"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/dalemusser/testimonyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h        *modfeature.Handler
	db       *mongo.Database
	fixtures *testutil.Fixtures
	admin    testutil.TestUser
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	posts := poststore.New(db)
	sink := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: auditlog.ModeDB})
	mod := moderation.NewService(posts, sink, logger)
	return env{
		h:        modfeature.NewHandler(posts, mod, logger),
		db:       db,
		fixtures: testutil.NewFixtures(t, db),
		admin:    testutil.AdminUser(),
	}
}

func (e env) do(t *testing.T, fn http.HandlerFunc, method, id string, body any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(method, "/api/admin/posts/"+id, body)
	req = testutil.WithChiURLParam(testutil.WithUser(req, e.admin), "id", id)
	rec := testutil.NewRecorder()
	fn(rec, req)
	return rec
}

func (e env) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.db.Collection("auditLogs").CountDocuments(ctx, bson.M{"action": action})
	if err != nil {
		t.Fatalf("count audit entries: %v", err)
	}
	return n
}

func author() models.Owner {
	u := testutil.ContributorUser()
	return models.Owner{UserID: u.ID, Phone: u.Phone}
}

func TestServeList_StatusFilter(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := author()
	e.fixtures.CreatePost(ctx, o, models.PostText, models.StatusPending, "P1")
	e.fixtures.CreatePost(ctx, o, models.PostAudio, models.StatusPending, "P2")
	e.fixtures.CreatePost(ctx, o, models.PostText, models.StatusApproved, "A1")
	e.fixtures.CreateCoordinatePost(ctx, o, models.StatusPending)

	tests := []struct {
		query string
		want  int
		code  int
	}{
		{"", 2, http.StatusOK},
		{"?status=approved", 1, http.StatusOK},
		{"?status=all", 3, http.StatusOK},
		{"?status=all&q=p2", 1, http.StatusOK},
		{"?status=deleted", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/posts"+tt.query, e.admin))
			rec.AssertStatus(t, tt.code)
			if tt.code != http.StatusOK {
				return
			}
			var body struct {
				Items []models.PostDoc `json:"items"`
			}
			rec.DecodeJSON(t, &body)
			if len(body.Items) != tt.want {
				t.Errorf("items: got %d, want %d", len(body.Items), tt.want)
			}
		})
	}
}

func TestHandleApprove_OnceOnly(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	doc := e.fixtures.CreatePost(ctx, author(), models.PostText, models.StatusPending, "Review me")

	rec := e.do(t, e.h.HandleApprove, "POST", doc.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusOK)
	var got models.PostDoc
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusApproved {
		t.Errorf("status: got %q", got.Status)
	}

	e.do(t, e.h.HandleApprove, "POST", doc.ID.Hex(), nil).AssertStatus(t, http.StatusConflict)
	e.do(t, e.h.HandleReject, "POST", doc.ID.Hex(), nil).AssertStatus(t, http.StatusConflict)

	if n := e.auditCount(t, audit.ActionApprovePost); n != 1 {
		t.Errorf("approve entries: got %d, want 1", n)
	}
	if n := e.auditCount(t, audit.ActionRejectPost); n != 0 {
		t.Errorf("reject entries: got %d, want 0", n)
	}
}

func TestHandleApprove_ConcurrentAdminsOneTransition(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	doc := e.fixtures.CreatePost(ctx, author(), models.PostText, models.StatusPending, "Race")

	const racers = 8
	codes := make([]int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fn := e.h.HandleApprove
			if i%2 == 1 {
				fn = e.h.HandleReject
			}
			codes[i] = e.do(t, fn, "POST", doc.ID.Hex(), nil).Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", c)
		}
	}
	if ok != 1 {
		t.Errorf("successful transitions: got %d, want 1", ok)
	}
	if n := e.auditCount(t, audit.ActionApprovePost) + e.auditCount(t, audit.ActionRejectPost); n != 1 {
		t.Errorf("audit entries: got %d, want 1", n)
	}
}

func TestHandleReject_WithReason(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	doc := e.fixtures.CreatePost(ctx, author(), models.PostText, models.StatusPending, "Off topic")

	rec := e.do(t, e.h.HandleReject, "POST", doc.ID.Hex(), map[string]string{"reason": "Duplicate"})
	rec.AssertStatus(t, http.StatusOK)
	var got models.PostDoc
	rec.DecodeJSON(t, &got)
	if got.Status != models.StatusRejected || got.RejectionReason == nil || *got.RejectionReason != "Duplicate" {
		t.Errorf("got status=%q reason=%v", got.Status, got.RejectionReason)
	}

	var entry audit.Entry
	if err := e.db.Collection("auditLogs").FindOne(ctx, bson.M{"action": audit.ActionRejectPost}).Decode(&entry); err != nil {
		t.Fatalf("find audit entry: %v", err)
	}
	if entry.Details["reason"] != "Duplicate" {
		t.Errorf("audit reason: got %q", entry.Details["reason"])
	}
	if entry.Admin.UID != e.admin.ID {
		t.Errorf("audit actor: got %q, want session admin %q", entry.Admin.UID, e.admin.ID)
	}
}

func TestHandleDelete_AnyStatus(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	approved := e.fixtures.CreatePost(ctx, author(), models.PostText, models.StatusApproved, "Live")

	e.do(t, e.h.HandleDelete, "DELETE", approved.ID.Hex(), nil).AssertStatus(t, http.StatusOK)
	e.do(t, e.h.HandleDelete, "DELETE", approved.ID.Hex(), nil).AssertStatus(t, http.StatusNotFound)

	if n := e.auditCount(t, audit.ActionDeletePost); n != 1 {
		t.Errorf("delete entries: got %d, want 1", n)
	}
}

func TestServeGet_AnyStatus(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rejected := e.fixtures.CreatePost(ctx, author(), models.PostText, models.StatusRejected, "Hidden")
	e.do(t, e.h.ServeGet, "GET", rejected.ID.Hex(), nil).AssertStatus(t, http.StatusOK)
}

func TestRoutes_RequireAdminMembership(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	router := modfeature.Routes(e.h, testutil.NewSessionManager(t), adminstore.New(e.db))

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest("GET", "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	// A session alone is not enough; membership is checked server side.
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/", testutil.ContributorUser()))
	rec.AssertStatus(t, http.StatusForbidden)

	admin := e.fixtures.CreateAdmin(ctx, "Admin", "+232761111111", "adminpw")
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/", testutil.TestUser{ID: admin.ID.Hex(), Phone: admin.Phone}))
	rec.AssertStatus(t, http.StatusOK)
}

package elearning_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/features/elearning"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	elearningstore "github.com/dalemusser/testimonyhub/internal/app/store/elearning"
	"github.com/dalemusser/testimonyhub/internal/app/system/auditlog"
	"github.com/dalemusser/testimonyhub/internal/app/system/blob"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/dalemusser/testimonyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h     *elearning.Handler
	db    *mongo.Database
	items *elearningstore.Store
	blobs *blob.Local
	admin testutil.TestUser
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	blobs, err := blob.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	items := elearningstore.New(db)
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: auditlog.ModeDB})
	return env{
		h:     elearning.NewHandler(items, blobs, al, 1<<20, logger),
		db:    db,
		items: items,
		blobs: blobs,
		admin: testutil.AdminUser(),
	}
}

func (e env) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.db.Collection("auditLogs").CountDocuments(ctx, bson.M{"action": action})
	if err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

func (e env) blobExists(t *testing.T, key string) bool {
	t.Helper()
	full, err := e.blobs.FullPath(key)
	if err != nil {
		t.Fatalf("FullPath: %v", err)
	}
	_, err = os.Stat(full)
	return err == nil
}

func (e env) seed(t *testing.T, title string) models.ELearning {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	item, err := e.items.Create(ctx, models.ELearning{Title: title, Description: "About " + title, CreatedBy: e.admin.ID})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return item
}

// seedWithMedia stores a file and an item pointing at it.
func (e env) seedWithMedia(t *testing.T, title string) models.ELearning {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	key := blob.ELearningKey(time.Now().Add(-time.Hour), "old.mp4")
	url, err := e.blobs.Put(ctx, key, bytes.NewReader([]byte("old")), 3, "video/mp4")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	item, err := e.items.Create(ctx, models.ELearning{
		Title: title, MediaURL: url, MediaPath: key, MediaType: "video/mp4", FileName: "old.mp4", CreatedBy: e.admin.ID,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return item
}

func multipartBody(t *testing.T, fields map[string]string, file *[2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="media"; filename="`+file[0]+`"`)
		hdr.Set("Content-Type", file[1])
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte("lesson-bytes")); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func (e env) multipartRequest(t *testing.T, method, target string, fields map[string]string, file *[2]string) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, fields, file)
	req, err := http.NewRequestWithContext(context.Background(), method, target, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", ct)
	return testutil.WithUser(req, e.admin)
}

func TestServeList(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "Soil basics")
	e.seed(t, "Boundary walking")

	rec := testutil.NewRecorder()
	e.h.ServeList(rec, testutil.NewRequest("GET", "/api/elearning"))

	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Items []models.ELearning `json:"items"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(body.Items))
	}
}

func TestServeGet(t *testing.T) {
	e := newEnv(t)
	item := e.seed(t, "Soil basics")

	rec := testutil.NewRecorder()
	req := testutil.WithChiURLParam(testutil.NewRequest("GET", "/api/elearning/"+item.ID.Hex()), "id", item.ID.Hex())
	e.h.ServeGet(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Soil basics")

	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(testutil.NewRequest("GET", "/api/elearning/xyz"), "id", "xyz")
	e.h.ServeGet(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleCreate_JSON(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/admin/elearning", map[string]string{
		"title":       "<b>Mapping</b> 101",
		"description": `<p>Walk the line</p><script>alert(1)</script>`,
	}), e.admin)
	e.h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	var got models.ELearning
	rec.DecodeJSON(t, &got)
	if got.Title != "Mapping 101" {
		t.Errorf("title not stripped: %q", got.Title)
	}
	if bytes.Contains([]byte(got.Description), []byte("script")) {
		t.Errorf("description not sanitized: %q", got.Description)
	}
	if got.CreatedBy != e.admin.ID {
		t.Errorf("CreatedBy = %q, want %q", got.CreatedBy, e.admin.ID)
	}
	if e.auditCount(t, audit.ActionCreateELearning) != 1 {
		t.Error("expected one create audit entry")
	}
}

func TestHandleCreate_MultipartWithMedia(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	req := e.multipartRequest(t, "POST", "/api/admin/elearning",
		map[string]string{"title": "Video lesson", "description": "Watch it"},
		&[2]string{"lesson one.mp4", "video/mp4"})
	e.h.HandleCreate(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	var got models.ELearning
	rec.DecodeJSON(t, &got)
	if got.MediaURL == "" || got.MediaType != "video/mp4" || got.FileName != "lesson_one.mp4" {
		t.Fatalf("media not recorded: %+v", got)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	stored, err := e.items.Get(ctx, got.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if filepath.Dir(stored.MediaPath) != "eLearning" {
		t.Errorf("media key %q not under eLearning/", stored.MediaPath)
	}
	if !e.blobExists(t, stored.MediaPath) {
		t.Error("uploaded file missing from storage")
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/admin/elearning", map[string]string{"title": "  "}), e.admin)
	e.h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.NewJSONRequest("POST", "/api/admin/elearning", map[string]string{"title": "x"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestHandleUpdate_ReplacesMedia(t *testing.T) {
	e := newEnv(t)
	item := e.seedWithMedia(t, "Old lesson")

	req := e.multipartRequest(t, "PUT", "/api/admin/elearning/"+item.ID.Hex(),
		map[string]string{"title": "New lesson", "description": "Fresh"},
		&[2]string{"new.mp4", "video/mp4"})
	req = testutil.WithChiURLParam(req, "id", item.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got models.ELearning
	rec.DecodeJSON(t, &got)
	if got.Title != "New lesson" || got.FileName != "new.mp4" {
		t.Fatalf("update not applied: %+v", got)
	}
	if e.blobExists(t, item.MediaPath) {
		t.Error("old media should be removed after replacement")
	}
	if e.auditCount(t, audit.ActionUpdateELearning) != 1 {
		t.Error("expected one update audit entry")
	}
}

func TestHandleUpdate_KeepsMediaWithoutUpload(t *testing.T) {
	e := newEnv(t)
	item := e.seedWithMedia(t, "Old lesson")

	req := testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/admin/elearning/"+item.ID.Hex(),
		map[string]string{"title": "Renamed"}), e.admin)
	req = testutil.WithChiURLParam(req, "id", item.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if !e.blobExists(t, item.MediaPath) {
		t.Error("media removed by a text-only update")
	}
}

func TestHandleUpdate_NotFound(t *testing.T) {
	e := newEnv(t)
	id := "64b000000000000000000001"

	req := testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/admin/elearning/"+id, map[string]string{"title": "x"}), e.admin)
	req = testutil.WithChiURLParam(req, "id", id)
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleDelete_RemovesMedia(t *testing.T) {
	e := newEnv(t)
	item := e.seedWithMedia(t, "Doomed")

	req := testutil.WithUser(testutil.NewRequest("DELETE", "/api/admin/elearning/"+item.ID.Hex()), e.admin)
	req = testutil.WithChiURLParam(req, "id", item.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.HandleDelete(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if e.blobExists(t, item.MediaPath) {
		t.Error("media should be removed with the item")
	}
	if e.auditCount(t, audit.ActionDeleteELearning) != 1 {
		t.Error("expected one delete audit entry")
	}

	rec = testutil.NewRecorder()
	e.h.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	e := newEnv(t)
	sm := testutil.NewSessionManager(t)
	router := elearning.AdminRoutes(e.h, sm, adminsNone{})

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/", map[string]string{"title": "x"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

type adminsNone struct{}

func (adminsNone) IsAdmin(context.Context, string) (bool, error) { return false, nil }

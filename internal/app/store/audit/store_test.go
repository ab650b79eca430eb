package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"github.com/dalemusser/testimonyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	postID := primitive.NewObjectID().Hex()
	err := store.Log(ctx, audit.Entry{
		Admin:      audit.Actor{UID: "admin-1", Email: "admin@example.com"},
		Action:     audit.ActionApprovePost,
		TargetType: audit.TargetPost,
		TargetID:   postID,
		Details:    map[string]string{"title": "Market day"},
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	entries, err := store.ForTarget(ctx, postID, 10)
	if err != nil {
		t.Fatalf("ForTarget failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if e.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
	if e.Admin.UID != "admin-1" {
		t.Errorf("Admin.UID: got %q, want %q", e.Admin.UID, "admin-1")
	}
	if e.Details["title"] != "Market day" {
		t.Errorf("Details[title]: got %q, want %q", e.Details["title"], "Market day")
	}
}

func TestStore_Query_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	for i, action := range []string{audit.ActionCreateUser, audit.ActionApprovePost, audit.ActionDeletePost} {
		err := store.Log(ctx, audit.Entry{
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Admin:      audit.Actor{UID: "admin-1"},
			Action:     action,
			TargetType: audit.TargetPost,
			TargetID:   primitive.NewObjectID().Hex(),
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	entries, err := store.Query(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Action != audit.ActionDeletePost {
		t.Errorf("expected newest entry first, got %q", entries[0].Action)
	}
	if entries[2].Action != audit.ActionCreateUser {
		t.Errorf("expected oldest entry last, got %q", entries[2].Action)
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userTarget := primitive.NewObjectID().Hex()
	entries := []audit.Entry{
		{Admin: audit.Actor{UID: "a1"}, Action: audit.ActionCreateUser, TargetType: audit.TargetUser, TargetID: userTarget},
		{Admin: audit.Actor{UID: "a1"}, Action: audit.ActionRejectPost, TargetType: audit.TargetPost, TargetID: "p-1"},
		{Admin: audit.Actor{UID: "a2"}, Action: audit.ActionRejectPost, TargetType: audit.TargetPost, TargetID: "p-2"},
	}
	for _, e := range entries {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int64
	}{
		{"by action", audit.QueryFilter{Action: audit.ActionRejectPost}, 2},
		{"by actor", audit.QueryFilter{ActorUID: "a1"}, 2},
		{"search action", audit.QueryFilter{Search: "REJECT"}, 2},
		{"search target type", audit.QueryFilter{Search: "user"}, 1},
		{"search target id", audit.QueryFilter{Search: userTarget[:10]}, 1},
		{"search regex chars are literal", audit.QueryFilter{Search: "p-.*"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := store.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("expected %d entries, got %d", tt.want, n)
			}
		})
	}
}

func TestStore_Query_Paging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 25; i++ {
		if err := store.Log(ctx, audit.Entry{Action: audit.ActionDeletePost, TargetType: audit.TargetPost, TargetID: "p"}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	page, err := store.Query(ctx, audit.QueryFilter{Limit: 20, Offset: 20})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page) != 5 {
		t.Errorf("expected 5 entries on second page, got %d", len(page))
	}
}

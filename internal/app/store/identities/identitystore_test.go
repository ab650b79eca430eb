package identitystore_test

import (
	"errors"
	"testing"

	identitystore "github.com/dalemusser/testimonyhub/internal/app/store/identities"
	"github.com/dalemusser/testimonyhub/internal/app/system/indexes"
	"github.com/dalemusser/testimonyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newStore(t *testing.T) *identitystore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return identitystore.New(db).WithCost(bcrypt.MinCost)
}

func TestStore_CreateAndLookup(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	ident, err := store.Create(ctx, id, "+232201234567", "User@Example.com", "secret1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if string(ident.PasswordHash) == "secret1" {
		t.Fatal("password stored in clear")
	}

	byPhone, err := store.GetByPhone(ctx, "+232201234567")
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if byPhone.ID != id {
		t.Error("GetByPhone returned a different identity")
	}
	byEmail, err := store.GetByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if err := identitystore.CheckPassword(byEmail, "secret1"); err != nil {
		t.Errorf("CheckPassword(correct): %v", err)
	}
	if err := identitystore.CheckPassword(byEmail, "wrong!"); !errors.Is(err, identitystore.ErrBadCredentials) {
		t.Errorf("CheckPassword(wrong): got %v", err)
	}

	if _, err := store.GetByPhone(ctx, "+232309999999"); !errors.Is(err, identitystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByPhone(ctx, ""); !errors.Is(err, identitystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty phone, got %v", err)
	}
}

func TestStore_Create_Rules(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, primitive.NewObjectID(), "+232201234567", "", "12345"); !errors.Is(err, identitystore.ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := store.Create(ctx, primitive.NewObjectID(), "+232201234567", "", "123456"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, primitive.NewObjectID(), "+232201234567", "", "123456"); !errors.Is(err, identitystore.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	// Identities without email do not collide on the sparse email index.
	if _, err := store.Create(ctx, primitive.NewObjectID(), "+232761234567", "", "123456"); err != nil {
		t.Errorf("second phone-only identity: %v", err)
	}
}

func TestStore_SetPasswordAndDelete(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	if _, err := store.Create(ctx, id, "+232201234567", "", "secret1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetPassword(ctx, id, "short"); !errors.Is(err, identitystore.ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if err := store.SetPassword(ctx, id, "newsecret"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	ident, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if err := identitystore.CheckPassword(ident, "newsecret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if err := store.SetPassword(ctx, primitive.NewObjectID(), "newsecret"); !errors.Is(err, identitystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if ok, err := store.Delete(ctx, id); err != nil || !ok {
		t.Errorf("Delete: ok=%v err=%v", ok, err)
	}
}

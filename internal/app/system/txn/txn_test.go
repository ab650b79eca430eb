package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/testimonyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "generic error",
			err:  errors.New("some random error"),
			want: false,
		},
		{
			name: "command error code 20",
			err:  mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"},
			want: true,
		},
		{
			name: "command error code 51",
			err:  mongo.CommandError{Code: 51, Message: "Illegal operation"},
			want: true,
		},
		{
			name: "command error code 263",
			err:  mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"},
			want: true,
		},
		{
			name: "other command error code",
			err:  mongo.CommandError{Code: 100, Message: "Some other error"},
			want: false,
		},
		{
			name: "error with transaction and replica set keywords",
			err:  errors.New("transaction failed because this is not a replica set member"),
			want: true,
		},
		{
			name: "error with session and not supported keywords",
			err:  errors.New("session operations are not supported on this server"),
			want: true,
		},
		{
			name: "error with only one keyword",
			err:  errors.New("transaction failed"),
			want: false,
		},
		{
			name: "error with transaction and session",
			err:  errors.New("cannot start transaction in current session state"),
			want: true,
		},
		{
			name: "error with illegal operation keywords",
			err:  errors.New("illegal operation during transaction"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotSupported(tt.err)
			if got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNotSupported_CaseInsensitive(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "uppercase TRANSACTION and REPLICA SET",
			err:  errors.New("TRANSACTION FAILED on REPLICA SET"),
			want: true,
		},
		{
			name: "mixed case Transaction and Session",
			err:  errors.New("Transaction Session error"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotSupported(tt.err)
			if got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_FailureLeavesNoRecord(t *testing.T) {
	client := testutil.MongoClient(t)
	db := testutil.SetupTestDBWithClient(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Create the collection first; some servers refuse to create it in a transaction.
	if _, err := db.Collection("users").InsertOne(ctx, bson.M{"seed": true}); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	boom := errors.New("second write failed")
	var compensated []string
	err := Run(ctx, client, zap.NewNop(), func(ctx context.Context, tx *Tx) error {
		res, err := db.Collection("users").InsertOne(ctx, bson.M{"phone": "+232201234567"})
		if err != nil {
			return err
		}
		tx.OnRollback(func(ctx context.Context) error {
			compensated = append(compensated, "users")
			_, err := db.Collection("users").DeleteOne(ctx, bson.M{"_id": res.InsertedID})
			return err
		})
		tx.OnRollback(func(ctx context.Context) error {
			compensated = append(compensated, "second")
			return nil
		})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	n, err := db.Collection("users").CountDocuments(ctx, bson.M{"phone": "+232201234567"})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no partial record, found %d", n)
	}
	if len(compensated) > 0 && (compensated[0] != "second" || compensated[1] != "users") {
		t.Errorf("compensations must run in reverse order, got %v", compensated)
	}
}

func TestRun_NilClientCompensates(t *testing.T) {
	var order []int
	err := Run(context.Background(), nil, nil, func(ctx context.Context, tx *Tx) error {
		if tx.Atomic() {
			t.Error("nil client cannot be atomic")
		}
		tx.OnRollback(func(context.Context) error { order = append(order, 1); return nil })
		tx.OnRollback(func(context.Context) error { order = append(order, 2); return errors.New("ignored") })
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("expected reverse order [2 1], got %v", order)
	}
}

func TestRun_SuccessSkipsCompensation(t *testing.T) {
	called := false
	err := Run(context.Background(), nil, zap.NewNop(), func(ctx context.Context, tx *Tx) error {
		tx.OnRollback(func(context.Context) error { called = true; return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if called {
		t.Error("compensation ran on success")
	}
}

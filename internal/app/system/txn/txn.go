// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one, and otherwise runs them directly with registered
// compensations so a failure leaves no partial records behind.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Tx is handed to the function run by Run.
type Tx struct {
	atomic    bool
	rollbacks []func(context.Context) error
}

// Atomic reports whether the writes run inside a server transaction.
func (t *Tx) Atomic() bool { return t.atomic }

// OnRollback registers fn to undo a write that already happened. It is only
// invoked when the function fails outside a transaction; inside one the
// server discards the writes. Compensations run in reverse order.
func (t *Tx) OnRollback(fn func(ctx context.Context) error) {
	if t.atomic {
		return
	}
	t.rollbacks = append(t.rollbacks, fn)
}

// Run executes fn. With a client that supports transactions fn runs inside
// one; standalone servers fall back to plain writes plus compensations.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context, tx *Tx) error) error {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		return runCompensated(ctx, log, fn)
	}

	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runCompensated(ctx, log, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, &Tx{atomic: true})
	})
	if err != nil && IsNotSupported(err) {
		log.Debug("transactions not supported; running with compensations", zap.Error(err))
		return runCompensated(ctx, log, fn)
	}
	return err
}

func runCompensated(ctx context.Context, log *zap.Logger, fn func(ctx context.Context, tx *Tx) error) error {
	tx := &Tx{}
	err := fn(ctx, tx)
	if err == nil {
		return nil
	}
	// Compensate even if the caller's context is done.
	cctx := context.WithoutCancel(ctx)
	for i := len(tx.rollbacks) - 1; i >= 0; i-- {
		if rerr := tx.rollbacks[i](cctx); rerr != nil {
			log.Error("compensating write failed", zap.Error(rerr), zap.NamedError("cause", err))
		}
	}
	return err
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone server, or an operation illegal inside one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}
	s := strings.ToLower(err.Error())
	has := func(a, b string) bool { return strings.Contains(s, a) && strings.Contains(s, b) }
	return has("transaction", "replica set") ||
		has("session", "not supported") ||
		has("transaction", "session") ||
		has("illegal operation", "transaction")
}

// internal/app/system/workers/blobreconcile.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/system/blob"
	"github.com/dalemusser/testimonyhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// DefaultGrace is how old an unreferenced blob must be before it is removed.
// Uploads younger than this may belong to a submission still in flight.
const DefaultGrace = 24 * time.Hour

// ReferenceSource reports the blob keys still referenced by stored records.
type ReferenceSource interface {
	ReferencedBlobKeys(ctx context.Context) (map[string]struct{}, error)
}

// ReconcileResult summarises one reconciliation pass.
type ReconcileResult struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	TooRecent  int      `json:"tooRecent"`
	Orphaned   []string `json:"orphaned"`
	Deleted    int      `json:"deleted"`
	Failed     int      `json:"failed"`
}

// BlobReconciler is a background worker that deletes uploaded media no
// record points to.
type BlobReconciler struct {
	blobs    blob.Store
	sources  []ReferenceSource
	prefixes []string
	log      *zap.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewBlobReconciler creates a reconciler over the post and e-learning prefixes.
//
// Parameters:
//   - blobs: the media store to scan
//   - sources: stores whose records reference blobs
//   - logger: zap logger for logging
//   - interval: how often to run when started (e.g., 6 hours)
//   - grace: minimum age of a blob before it may be deleted
func NewBlobReconciler(blobs blob.Store, sources []ReferenceSource, logger *zap.Logger, interval, grace time.Duration) *BlobReconciler {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &BlobReconciler{
		blobs:    blobs,
		sources:  sources,
		prefixes: []string{blob.PostPrefix, blob.ELearningPrefix},
		log:      logger,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// SetClock overrides the time source.
func (w *BlobReconciler) SetClock(now func() time.Time) { w.now = now }

// Start begins the background loop.
func (w *BlobReconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("blob reconciler started",
		zap.Duration("interval", w.interval),
		zap.Duration("grace", w.grace))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *BlobReconciler) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("blob reconciler stopped")
}

func (w *BlobReconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			if _, err := w.RunOnce(ctx, false); err != nil {
				w.log.Error("blob reconciliation failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunOnce performs one pass. With dryRun set, orphans are reported but not
// deleted. A failure to read references aborts the pass before anything is
// deleted.
func (w *BlobReconciler) RunOnce(ctx context.Context, dryRun bool) (ReconcileResult, error) {
	refs := map[string]struct{}{}
	for _, src := range w.sources {
		keys, err := src.ReferencedBlobKeys(ctx)
		if err != nil {
			return ReconcileResult{}, err
		}
		for k := range keys {
			refs[k] = struct{}{}
		}
	}

	cutoff := w.now().Add(-w.grace)
	var res ReconcileResult
	for _, prefix := range w.prefixes {
		err := w.blobs.List(ctx, prefix, func(o blob.Object) error {
			res.Scanned++
			if _, ok := refs[o.Key]; ok {
				res.Referenced++
				return nil
			}
			if o.LastModified.After(cutoff) {
				res.TooRecent++
				return nil
			}
			res.Orphaned = append(res.Orphaned, o.Key)
			return nil
		})
		if err != nil {
			return res, err
		}
	}

	if !dryRun {
		for _, key := range res.Orphaned {
			if err := w.blobs.Delete(ctx, key); err != nil {
				res.Failed++
				w.log.Warn("failed to delete orphaned blob", zap.String("key", key), zap.Error(err))
				continue
			}
			res.Deleted++
			metrics.BlobsReconciled.Inc()
		}
	}

	if len(res.Orphaned) > 0 {
		w.log.Info("blob reconciliation finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("orphaned", len(res.Orphaned)),
			zap.Int("deleted", res.Deleted),
			zap.Bool("dry_run", dryRun))
	}
	return res, nil
}

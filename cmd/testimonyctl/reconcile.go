package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/bootstrap"
	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var (
		conn   connFlags
		dryRun bool
	)
	cfg := appConfig()

	cmd := &cobra.Command{
		Use:   "reconcile-blobs",
		Short: "Delete uploaded media that no post or e-learning item references",
		Long: `Lists stored media under testimonies/ and eLearning/, compares it with the
keys referenced from the database, and deletes unreferenced files older than
the grace period. Use --dry-run to only report them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			client, db, err := conn.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			blobs, err := bootstrap.NewBlobStore(ctx, cfg)
			if err != nil {
				return err
			}
			res, err := bootstrap.NewReconciler(db, blobs, cfg, logger).RunOnce(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, k := range res.Orphaned {
				fmt.Fprintln(out, k)
			}
			fmt.Fprintf(out, "scanned=%d referenced=%d too_recent=%d orphaned=%d deleted=%d failed=%d\n",
				res.Scanned, res.Referenced, res.TooRecent, len(res.Orphaned), res.Deleted, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d deletions failed", res.Failed)
			}
			return nil
		},
	}
	conn.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	cmd.Flags().DurationVar(&cfg.BlobReconcileGrace, "grace", cfg.BlobReconcileGrace, "minimum age of an orphan before it is deleted")
	return cmd
}

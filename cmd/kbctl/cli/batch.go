package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbplatform/kb-orchestrator/config"
	"github.com/kbplatform/kb-orchestrator/models"
	"github.com/kbplatform/kb-orchestrator/services/session"
)

var batchWait bool

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Inspect and control indexing batches",
}

var batchPollCmd = &cobra.Command{
	Use:   "poll <index-id> <batch-id>",
	Short: "Show the current state of an indexing batch",
	Long: `Poll fetches one snapshot of an indexing batch. With --wait it keeps
polling at a fixed interval until the batch reaches a terminal state or
the poll timeout elapses.`,
	Args: cobra.ExactArgs(2),
	RunE: runBatchPoll,
}

var batchCancelCmd = &cobra.Command{
	Use:   "cancel <index-id> <batch-id>",
	Short: "Request cancellation of an in-flight indexing batch",
	Args:  cobra.ExactArgs(2),
	RunE:  runBatchCancel,
}

var batchListCmd = &cobra.Command{
	Use:   "list <index-id>",
	Short: "List the indexing batches of an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatchList,
}

func init() {
	batchPollCmd.Flags().BoolVar(&batchWait, "wait", false, "poll until the batch finishes")
	batchCmd.AddCommand(batchPollCmd, batchCancelCmd, batchListCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatchPoll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, cfg, err := newSession(ctx)
	if err != nil {
		return err
	}

	indexID, batchID := args[0], args[1]

	if !batchWait {
		b, err := sess.PollBatch(ctx, indexID, batchID)
		if err != nil {
			return err
		}
		printBatch(b)
		return nil
	}

	b, err := waitForBatch(ctx, sess, cfg, indexID, batchID)
	if err != nil {
		return err
	}
	printBatch(b)
	return nil
}

func runBatchCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	b, err := sess.CancelBatch(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	printBatch(b)
	return nil
}

func runBatchList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := newSession(ctx)
	if err != nil {
		return err
	}

	batches, err := sess.ListBatches(ctx, args[0])
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println("no batches")
		return nil
	}
	for _, b := range batches {
		fmt.Printf("%s  status=%-12s  files=%d/%d  created=%s\n",
			b.ID, b.Status, b.FileCounts.Completed, b.FileCounts.Total,
			b.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// waitForBatch polls at the configured interval until the batch is terminal
// or the timeout elapses. The remote system owns the pace; this loop only
// observes.
func waitForBatch(ctx context.Context, sess *session.Session, cfg *config.Config, indexID, batchID string) (models.Batch, error) {
	deadline := time.Now().Add(cfg.Search.PollTimeout)
	ticker := time.NewTicker(cfg.Search.PollInterval)
	defer ticker.Stop()

	for {
		b, err := sess.PollBatch(ctx, indexID, batchID)
		if err != nil {
			return models.Batch{}, err
		}
		if b.IsComplete() {
			return b, nil
		}
		fmt.Printf("batch %s: %s  %d/%d files done\n", b.ID, b.Status, b.FileCounts.Completed, b.FileCounts.Total)

		if time.Now().After(deadline) {
			return models.Batch{}, fmt.Errorf("batch %s still %s after %s", batchID, b.Status, cfg.Search.PollTimeout)
		}
		select {
		case <-ctx.Done():
			return models.Batch{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printBatch(b models.Batch) {
	fmt.Printf("batch:  %s (index %s)\n", b.ID, b.IndexID)
	fmt.Printf("status: %s\n", b.Status)
	fmt.Printf("files:  %d total / %d completed / %d in progress / %d failed / %d cancelled\n",
		b.FileCounts.Total, b.FileCounts.Completed, b.FileCounts.InProgress,
		b.FileCounts.Failed, b.FileCounts.Cancelled)
	if b.Status == models.BatchStatusCompleted && b.FileCounts.Failed > 0 {
		fmt.Printf("note: %d file(s) failed to index; the rest are searchable\n", b.FileCounts.Failed)
	}
}

// Package batch tracks asynchronous indexing jobs. The tracker never waits on
// the remote system itself; callers poll at their own cadence and the tracker
// memoizes terminal snapshots so repeated polls stay cheap and stable.
package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kbplatform/kb-orchestrator/models"
	"github.com/kbplatform/kb-orchestrator/services"
	"github.com/kbplatform/kb-orchestrator/services/store"
)

// Tracker manages indexing batch lifecycle against the remote store.
type Tracker struct {
	store  store.Client
	logger *zap.Logger

	// terminal caches the final snapshot of completed batches, keyed by
	// indexID+"/"+batchID. Once a batch is terminal its status and counts
	// never change, so the cache never goes stale.
	mu       sync.Mutex
	terminal map[string]models.Batch
}

// NewTracker creates a new batch tracker
func NewTracker(client store.Client, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:    client,
		logger:   logger,
		terminal: make(map[string]models.Batch),
	}
}

// Enqueue submits an indexing job for the given files and returns its initial
// snapshot. The job runs remotely; Enqueue does not wait for completion.
func (t *Tracker) Enqueue(ctx context.Context, indexID string, fileIDs []string) (models.Batch, error) {
	if len(fileIDs) == 0 {
		return models.Batch{}, services.ErrEmptyFileSet
	}

	remote, err := t.store.CreateFileBatch(ctx, indexID, fileIDs)
	if err != nil {
		return models.Batch{}, services.FromStore("failed to create file batch", err)
	}

	b := fromRemote(indexID, remote)
	t.logger.Info("batch enqueued",
		zap.String("index_id", indexID),
		zap.String("batch_id", b.ID),
		zap.Int("file_count", len(fileIDs)))

	t.remember(b)
	return b, nil
}

// Poll returns the current snapshot of a batch. Terminal batches are served
// from the local cache without a network call, so polling past completion is
// idempotent and keeps returning the same final counts.
func (t *Tracker) Poll(ctx context.Context, indexID, batchID string) (models.Batch, error) {
	key := indexID + "/" + batchID

	t.mu.Lock()
	if b, ok := t.terminal[key]; ok {
		t.mu.Unlock()
		return b, nil
	}
	t.mu.Unlock()

	remote, err := t.store.GetFileBatch(ctx, indexID, batchID)
	if err != nil {
		return models.Batch{}, services.FromStore("failed to get file batch", err)
	}

	b := fromRemote(indexID, remote)
	t.remember(b)

	if b.IsComplete() {
		t.logger.Info("batch reached terminal state",
			zap.String("index_id", indexID),
			zap.String("batch_id", batchID),
			zap.String("status", string(b.Status)),
			zap.Int("completed", b.FileCounts.Completed),
			zap.Int("failed", b.FileCounts.Failed))
	}
	return b, nil
}

// List returns the batches of an index in remote-provided order. Terminal
// snapshots encountered along the way are cached for later polls.
func (t *Tracker) List(ctx context.Context, indexID string, limit int) ([]models.Batch, error) {
	remotes, err := t.store.ListFileBatches(ctx, indexID, limit)
	if err != nil {
		return nil, services.FromStore("failed to list file batches", err)
	}

	out := make([]models.Batch, len(remotes))
	for i, remote := range remotes {
		b := fromRemote(indexID, remote)
		t.remember(b)
		out[i] = b
	}
	return out, nil
}

// IsComplete reports whether the batch has reached a terminal state.
func (t *Tracker) IsComplete(ctx context.Context, indexID, batchID string) (bool, error) {
	b, err := t.Poll(ctx, indexID, batchID)
	if err != nil {
		return false, err
	}
	return b.IsComplete(), nil
}

// Cancel requests cancellation of an in-flight batch. The remote system may
// already have finished; the returned snapshot reflects whatever it reports.
func (t *Tracker) Cancel(ctx context.Context, indexID, batchID string) (models.Batch, error) {
	key := indexID + "/" + batchID

	t.mu.Lock()
	if b, ok := t.terminal[key]; ok {
		t.mu.Unlock()
		return b, nil
	}
	t.mu.Unlock()

	remote, err := t.store.CancelFileBatch(ctx, indexID, batchID)
	if err != nil {
		return models.Batch{}, services.FromStore("failed to cancel file batch", err)
	}

	b := fromRemote(indexID, remote)
	t.remember(b)

	t.logger.Info("batch cancellation requested",
		zap.String("index_id", indexID),
		zap.String("batch_id", batchID),
		zap.String("status", string(b.Status)))
	return b, nil
}

// remember caches the snapshot if it is terminal.
func (t *Tracker) remember(b models.Batch) {
	if !b.IsComplete() {
		return
	}
	t.mu.Lock()
	t.terminal[b.IndexID+"/"+b.ID] = b
	t.mu.Unlock()
}

func fromRemote(indexID string, remote store.RemoteBatch) models.Batch {
	return models.Batch{
		ID:         remote.ID,
		IndexID:    indexID,
		Status:     models.BatchStatusFromRemote(remote.Status),
		FileCounts: remote.FileCounts,
		CreatedAt:  time.Unix(remote.CreatedAt, 0),
	}
}

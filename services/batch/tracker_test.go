package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kbplatform/kb-orchestrator/models"
	"github.com/kbplatform/kb-orchestrator/services"
	"github.com/kbplatform/kb-orchestrator/services/store"
	"github.com/kbplatform/kb-orchestrator/services/store/storetest"
)

func TestTracker_Enqueue(t *testing.T) {
	fake := storetest.New()
	fake.CreateFileBatchFn = func(ctx context.Context, storeID string, fileIDs []string) (store.RemoteBatch, error) {
		assert.Equal(t, "vs-1", storeID)
		assert.Equal(t, []string{"file-1", "file-2"}, fileIDs)
		return store.RemoteBatch{
			ID:            "batch-1",
			VectorStoreID: storeID,
			Status:        "in_progress",
			FileCounts:    models.FileCounts{InProgress: 2, Total: 2},
		}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())
	b, err := tracker.Enqueue(context.Background(), "vs-1", []string{"file-1", "file-2"})
	require.NoError(t, err)

	assert.Equal(t, "batch-1", b.ID)
	assert.Equal(t, "vs-1", b.IndexID)
	assert.Equal(t, models.BatchStatusInProgress, b.Status)
	assert.False(t, b.IsComplete())
}

func TestTracker_Enqueue_EmptyFileSet(t *testing.T) {
	tracker := NewTracker(storetest.New(), zap.NewNop())

	_, err := tracker.Enqueue(context.Background(), "vs-1", nil)
	assert.True(t, services.IsValidationError(err))
}

func TestTracker_Poll_InFlight(t *testing.T) {
	fake := storetest.New()
	statuses := []string{"in_progress", "in_progress", "completed"}
	poll := 0
	fake.GetFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		status := statuses[poll]
		poll++
		counts := models.FileCounts{InProgress: 2, Total: 2}
		if status == "completed" {
			counts = models.FileCounts{Completed: 2, Total: 2}
		}
		return store.RemoteBatch{ID: batchID, Status: status, FileCounts: counts}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())

	b, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusInProgress, b.Status)

	b, err = tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusInProgress, b.Status)

	b, err = tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, b.Status)
	assert.Equal(t, 2, b.FileCounts.Completed)
}

func TestTracker_Poll_TerminalServedFromCache(t *testing.T) {
	fake := storetest.New()
	fake.GetFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		return store.RemoteBatch{
			ID:         batchID,
			Status:     "completed",
			FileCounts: models.FileCounts{Completed: 3, Total: 3},
		}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())

	first, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	require.True(t, first.IsComplete())

	// later polls return the same snapshot without hitting the remote store
	for i := 0; i < 3; i++ {
		again, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 1, fake.Calls["GetFileBatch"])
}

func TestTracker_Poll_PartialFailureIsCompleted(t *testing.T) {
	fake := storetest.New()
	fake.GetFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		return store.RemoteBatch{
			ID:         batchID,
			Status:     "completed",
			FileCounts: models.FileCounts{Completed: 2, Failed: 1, Total: 3},
		}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())
	b, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)

	// a batch with failed files still completes; the failure shows in counts
	assert.Equal(t, models.BatchStatusCompleted, b.Status)
	assert.Equal(t, 1, b.FileCounts.Failed)
	assert.True(t, b.FileCounts.Consistent())
}

func TestTracker_Poll_NotFound(t *testing.T) {
	fake := storetest.New()
	fake.GetFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		return store.RemoteBatch{}, store.NewStoreError("not_found", "no such batch", 404, false, nil)
	}

	tracker := NewTracker(fake, zap.NewNop())
	_, err := tracker.Poll(context.Background(), "vs-1", "batch-missing")
	assert.True(t, services.IsNotFoundError(err))
}

func TestTracker_IsComplete(t *testing.T) {
	fake := storetest.New()
	fake.GetFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		return store.RemoteBatch{ID: batchID, Status: "failed", FileCounts: models.FileCounts{Failed: 1, Total: 1}}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())
	done, err := tracker.IsComplete(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestTracker_Cancel(t *testing.T) {
	fake := storetest.New()
	fake.CancelFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		return store.RemoteBatch{
			ID:         batchID,
			Status:     "cancelled",
			FileCounts: models.FileCounts{Completed: 1, Cancelled: 1, Total: 2},
		}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())
	b, err := tracker.Cancel(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCancelled, b.Status)

	// the cancelled snapshot is terminal; subsequent polls do not hit the remote
	again, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, b, again)
	assert.Equal(t, 0, fake.Calls["GetFileBatch"])
}

func TestTracker_Cancel_AlreadyTerminal(t *testing.T) {
	fake := storetest.New()
	fake.GetFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		return store.RemoteBatch{ID: batchID, Status: "completed", FileCounts: models.FileCounts{Completed: 1, Total: 1}}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())
	_, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)

	// cancel after completion returns the cached terminal snapshot
	b, err := tracker.Cancel(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, b.Status)
	assert.Equal(t, 0, fake.Calls["CancelFileBatch"])
}

func TestTracker_List(t *testing.T) {
	fake := storetest.New()
	fake.ListFileBatchesFn = func(ctx context.Context, storeID string, limit int) ([]store.RemoteBatch, error) {
		assert.Equal(t, "vs-1", storeID)
		assert.Equal(t, 100, limit)
		return []store.RemoteBatch{
			{ID: "batch-2", Status: "in_progress", FileCounts: models.FileCounts{InProgress: 1, Total: 1}},
			{ID: "batch-1", Status: "completed", FileCounts: models.FileCounts{Completed: 2, Total: 2}},
		}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())
	batches, err := tracker.List(context.Background(), "vs-1", 100)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, models.BatchStatusInProgress, batches[0].Status)
	assert.Equal(t, models.BatchStatusCompleted, batches[1].Status)
	assert.Equal(t, "vs-1", batches[1].IndexID)

	// terminal snapshots seen while listing land in the cache
	b, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, b.Status)
	assert.Equal(t, 0, fake.Calls["GetFileBatch"])
}

func TestTracker_CacheKeyedByIndex(t *testing.T) {
	fake := storetest.New()
	fake.GetFileBatchFn = func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
		return store.RemoteBatch{ID: batchID, VectorStoreID: storeID, Status: "completed",
			FileCounts: models.FileCounts{Completed: 1, Total: 1}}, nil
	}

	tracker := NewTracker(fake, zap.NewNop())
	_, err := tracker.Poll(context.Background(), "vs-1", "batch-1")
	require.NoError(t, err)

	// same batch id under a different index is a distinct cache entry
	_, err = tracker.Poll(context.Background(), "vs-2", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls["GetFileBatch"])
}

// Package index manages remote vector store indexes: creation, inspection,
// file membership and deletion. Index status is always derived fresh from the
// remote system; nothing here caches lifecycle state.
package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kbplatform/kb-orchestrator/models"
	"github.com/kbplatform/kb-orchestrator/services"
	"github.com/kbplatform/kb-orchestrator/services/batch"
	"github.com/kbplatform/kb-orchestrator/services/store"
	"github.com/kbplatform/kb-orchestrator/utils"
)

// retrievableExtensions are the formats whose indexed text can be fetched
// back as plain text. Binary formats are indexed but not retrievable.
var retrievableExtensions = []string{".md", ".txt"}

// Service manages vector store indexes.
type Service struct {
	store     store.Client
	tracker   *batch.Tracker
	logger    *zap.Logger
	listLimit int
}

// NewService creates a new index service
func NewService(client store.Client, tracker *batch.Tracker, logger *zap.Logger, listLimit int) *Service {
	if listLimit <= 0 {
		listLimit = 100
	}
	return &Service{
		store:     client,
		tracker:   tracker,
		logger:    logger,
		listLimit: listLimit,
	}
}

// Create provisions a new index and, when file ids are given, enqueues an
// indexing batch for them. The returned batch is nil for an empty index.
// Creation does not wait for indexing; poll the batch for progress.
func (s *Service) Create(ctx context.Context, name string, fileIDs []string) (models.VectorStore, *models.Batch, error) {
	if err := utils.ValidateRequired(name, "index name"); err != nil {
		return models.VectorStore{}, nil, services.ErrBlankIndexName
	}

	remote, err := s.store.CreateVectorStore(ctx, name, nil)
	if err != nil {
		return models.VectorStore{}, nil, services.FromStore("failed to create vector store", err)
	}
	vs := fromRemote(remote)

	s.logger.Info("index created",
		zap.String("index_id", vs.ID),
		zap.String("name", vs.Name))

	if len(fileIDs) == 0 {
		return vs, nil, nil
	}

	b, err := s.tracker.Enqueue(ctx, vs.ID, fileIDs)
	if err != nil {
		return vs, nil, err
	}
	vs.Status = models.IndexStatusIndexing
	return vs, &b, nil
}

// GetOrCreate reuses an existing index when indexID names one, falling back
// to creating a fresh index under the given name. File ids are attached to
// whichever index results, through an indexing batch as in Create.
func (s *Service) GetOrCreate(ctx context.Context, name, indexID string, fileIDs []string) (models.VectorStore, *models.Batch, error) {
	if indexID != "" {
		vs, err := s.Get(ctx, indexID)
		if err == nil {
			if len(fileIDs) == 0 {
				return vs, nil, nil
			}
			b, err := s.tracker.Enqueue(ctx, vs.ID, fileIDs)
			if err != nil {
				return vs, nil, err
			}
			vs.Status = models.IndexStatusIndexing
			return vs, &b, nil
		}
		if !services.IsNotFoundError(err) {
			return models.VectorStore{}, nil, err
		}
		s.logger.Info("index not found, creating a new one",
			zap.String("index_id", indexID),
			zap.String("name", name))
	}
	return s.Create(ctx, name, fileIDs)
}

// Get fetches the current snapshot of an index.
func (s *Service) Get(ctx context.Context, indexID string) (models.VectorStore, error) {
	remote, err := s.store.GetVectorStore(ctx, indexID)
	if err != nil {
		if store.IsNotFound(err) {
			return models.VectorStore{}, services.NewDomainError(services.ErrorTypeNotFound,
				fmt.Sprintf("index %s not found", indexID), err)
		}
		return models.VectorStore{}, services.FromStore("failed to get vector store", err)
	}
	return fromRemote(remote), nil
}

// GetStatus returns the canonical lifecycle state of an index.
func (s *Service) GetStatus(ctx context.Context, indexID string) (models.IndexStatus, models.FileCounts, error) {
	vs, err := s.Get(ctx, indexID)
	if err != nil {
		return "", models.FileCounts{}, err
	}
	return vs.Status, vs.FileCounts, nil
}

// List returns all indexes in remote-provided order.
func (s *Service) List(ctx context.Context) ([]models.VectorStore, error) {
	remotes, err := s.store.ListVectorStores(ctx, s.listLimit)
	if err != nil {
		return nil, services.FromStore("failed to list vector stores", err)
	}
	out := make([]models.VectorStore, len(remotes))
	for i, r := range remotes {
		out[i] = fromRemote(r)
	}
	return out, nil
}

// AddFiles enqueues an indexing batch attaching the given files to an
// existing index. Returns immediately; the batch runs remotely.
func (s *Service) AddFiles(ctx context.Context, indexID string, fileIDs []string) (models.Batch, error) {
	if len(fileIDs) == 0 {
		return models.Batch{}, services.ErrEmptyFileSet
	}
	if _, err := s.Get(ctx, indexID); err != nil {
		return models.Batch{}, err
	}
	return s.tracker.Enqueue(ctx, indexID, fileIDs)
}

// ListFiles lists the files attached to an index, enriched with display name
// and size from the file objects. Enrichment is best-effort; a file whose
// metadata fetch fails is still listed under its remote id.
func (s *Service) ListFiles(ctx context.Context, indexID string) ([]models.IndexedFile, error) {
	remotes, err := s.store.ListVectorStoreFiles(ctx, indexID, s.listLimit)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound,
				fmt.Sprintf("index %s not found", indexID), err)
		}
		return nil, services.FromStore("failed to list index files", err)
	}

	out := make([]models.IndexedFile, 0, len(remotes))
	for _, rf := range remotes {
		f := models.IndexedFile{
			RemoteID: rf.ID,
			Status:   models.FileStatusFromRemote(rf.Status),
		}
		info, infoErr := s.store.GetFileInfo(ctx, rf.ID)
		if infoErr != nil {
			s.logger.Warn("failed to fetch file metadata",
				zap.String("index_id", indexID),
				zap.String("file_id", rf.ID),
				zap.Error(infoErr))
		} else {
			f.DisplayName = info.Filename
			f.ByteSize = info.Bytes
		}
		out = append(out, f)
	}
	return out, nil
}

// RemoveFile detaches a file from an index and returns the refreshed file
// counts. Removing a file that is already gone succeeds; the operation is
// idempotent. The underlying file object remains in the registry.
func (s *Service) RemoveFile(ctx context.Context, indexID, fileID string) (models.FileCounts, error) {
	if err := s.store.RemoveVectorStoreFile(ctx, indexID, fileID); err != nil && !store.IsNotFound(err) {
		return models.FileCounts{}, services.FromStore("failed to remove file from index", err)
	}

	vs, err := s.Get(ctx, indexID)
	if err != nil {
		return models.FileCounts{}, err
	}

	s.logger.Info("file removed from index",
		zap.String("index_id", indexID),
		zap.String("file_id", fileID),
		zap.Int("remaining", vs.FileCounts.Total))
	return vs.FileCounts, nil
}

// PurgeFile detaches a file from an index and deletes the underlying remote
// file object. Both steps tolerate the target being already gone.
func (s *Service) PurgeFile(ctx context.Context, indexID, fileID string) (models.FileCounts, error) {
	counts, err := s.RemoveFile(ctx, indexID, fileID)
	if err != nil {
		return models.FileCounts{}, err
	}
	if err := s.store.DeleteFile(ctx, fileID); err != nil && !store.IsNotFound(err) {
		return counts, services.FromStore("failed to delete file object", err)
	}
	s.logger.Info("file object purged",
		zap.String("index_id", indexID),
		zap.String("file_id", fileID))
	return counts, nil
}

// GetFileContent fetches the indexed plain text of a file. Binary formats
// such as PDF are reported as non-retrievable rather than as errors.
func (s *Service) GetFileContent(ctx context.Context, indexID, fileID string) (models.FileContent, error) {
	info, err := s.store.GetFileInfo(ctx, fileID)
	if err != nil {
		if store.IsNotFound(err) {
			return models.FileContent{}, services.NewDomainError(services.ErrorTypeNotFound,
				fmt.Sprintf("file %s not found", fileID), err)
		}
		return models.FileContent{}, services.FromStore("failed to get file info", err)
	}

	fc := models.FileContent{
		FileID:      fileID,
		DisplayName: info.Filename,
	}

	if !isRetrievable(info.Filename) {
		fc.Retrievable = false
		fc.Message = fmt.Sprintf("content of %s cannot be retrieved as plain text", info.Filename)
		return fc, nil
	}

	content, err := s.store.GetFileContent(ctx, indexID, fileID)
	if err != nil {
		return models.FileContent{}, services.FromStore("failed to get file content", err)
	}
	fc.Retrievable = true
	fc.Content = content
	return fc, nil
}

// Delete removes an index and its file associations. Deleting an index that
// no longer exists succeeds. Underlying file objects are untouched.
func (s *Service) Delete(ctx context.Context, indexID string) error {
	if err := s.store.DeleteVectorStore(ctx, indexID); err != nil {
		if store.IsNotFound(err) {
			s.logger.Debug("index already deleted", zap.String("index_id", indexID))
			return nil
		}
		return services.FromStore("failed to delete vector store", err)
	}
	s.logger.Info("index deleted", zap.String("index_id", indexID))
	return nil
}

func isRetrievable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range retrievableExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

func fromRemote(remote store.RemoteVectorStore) models.VectorStore {
	return models.VectorStore{
		ID:         remote.ID,
		Name:       remote.Name,
		Status:     models.IndexStatusFromRemote(remote.Status, remote.FileCounts),
		FileCounts: remote.FileCounts,
		CreatedAt:  time.Unix(remote.CreatedAt, 0),
	}
}

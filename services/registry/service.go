// Package registry tracks the files uploaded to the remote store during the
// current session. Entries are append-only; removal is index-scoped and
// handled by the index service.
package registry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kbplatform/kb-orchestrator/models"
	"github.com/kbplatform/kb-orchestrator/services"
	"github.com/kbplatform/kb-orchestrator/services/store"
	"github.com/kbplatform/kb-orchestrator/utils"
)

// supportedExtensions mirrors the upload-time validation performed by the
// caller; a name that slips past it is rejected here too.
var supportedExtensions = []string{".pdf", ".md", ".txt"}

// Service is the session-scoped file registry. It is not safe for concurrent
// registration; callers serialize access (one session per caller).
type Service struct {
	store  store.Client
	logger *zap.Logger
	files  []models.UploadedFile
}

// NewService creates a new registry service
func NewService(client store.Client, logger *zap.Logger) *Service {
	return &Service{
		store:  client,
		logger: logger,
	}
}

// Register forwards the file bytes to the remote store and appends the
// resulting entry to the registry.
func (s *Service) Register(ctx context.Context, data []byte, displayName string) (models.UploadedFile, error) {
	if err := utils.ValidateRequired(displayName, "display name"); err != nil {
		return models.UploadedFile{}, services.ErrBlankFileName
	}
	if err := utils.ValidateExtension(displayName, supportedExtensions); err != nil {
		return models.UploadedFile{}, services.NewDomainError(services.ErrorTypeUnsupportedFormat, err.Error(), nil).
			WithDetail("display_name", displayName)
	}

	remote, err := s.store.UploadFile(ctx, displayName, data)
	if err != nil {
		return models.UploadedFile{}, services.FromStore("failed to upload file", err)
	}

	size := remote.Bytes
	if size == 0 {
		size = int64(len(data))
	}

	file := models.UploadedFile{
		RemoteID:    remote.ID,
		DisplayName: displayName,
		ByteSize:    size,
		UploadedAt:  time.Now(),
	}
	s.files = append(s.files, file)

	s.logger.Info("file registered",
		zap.String("file_id", file.RemoteID),
		zap.String("display_name", file.DisplayName),
		zap.Int64("byte_size", file.ByteSize))

	return file, nil
}

// List returns a snapshot of the registry in insertion order.
func (s *Service) List() []models.UploadedFile {
	out := make([]models.UploadedFile, len(s.files))
	copy(out, s.files)
	return out
}

// FileIDs returns the remote ids of all registered files in insertion order.
func (s *Service) FileIDs() []string {
	ids := make([]string, len(s.files))
	for i, f := range s.files {
		ids[i] = f.RemoteID
	}
	return ids
}

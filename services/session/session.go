// Package session wires the services together behind a single facade. A
// session is configured exactly once with remote credentials and then exposes
// every knowledge base operation, tracking a currently selected index so
// callers can omit the index id.
package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/kbplatform/kb-orchestrator/config"
	"github.com/kbplatform/kb-orchestrator/models"
	"github.com/kbplatform/kb-orchestrator/services"
	"github.com/kbplatform/kb-orchestrator/services/batch"
	"github.com/kbplatform/kb-orchestrator/services/index"
	"github.com/kbplatform/kb-orchestrator/services/registry"
	"github.com/kbplatform/kb-orchestrator/services/retrieval"
	"github.com/kbplatform/kb-orchestrator/services/store"
	"github.com/kbplatform/kb-orchestrator/services/store/openai"
	"github.com/kbplatform/kb-orchestrator/utils"
)

// Session is the orchestration facade. Not safe for concurrent use; each
// caller owns one session.
type Session struct {
	cfg    *config.Config
	logger *zap.Logger

	// newClient builds the store client from an API key. Replaceable in
	// tests to inject a fake.
	newClient func(apiKey string) store.Client

	client    store.Client
	registry  *registry.Service
	tracker   *batch.Tracker
	indexes   *index.Service
	retrieval *retrieval.Service

	currentIndexID string
}

// New creates an unconfigured session. Call Configure before any other
// operation.
func New(cfg *config.Config, logger *zap.Logger) *Session {
	s := &Session{
		cfg:    cfg,
		logger: logger,
	}
	s.newClient = func(apiKey string) store.Client {
		return openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.OpenAI.Timeout,
			OrgID:   cfg.OpenAI.OrgID,
		})
	}
	return s
}

// NewWithClientFactory creates an unconfigured session with a custom store
// client factory.
func NewWithClientFactory(cfg *config.Config, logger *zap.Logger, factory func(apiKey string) store.Client) *Session {
	s := New(cfg, logger)
	s.newClient = factory
	return s
}

// Configure validates the API key against the remote store and wires up the
// services. A session is configured exactly once; reconfiguring requires a
// new session.
func (s *Session) Configure(ctx context.Context, apiKey string) error {
	if s.client != nil {
		return services.ErrAlreadyConfigured
	}
	if err := utils.ValidateRequired(apiKey, "api key"); err != nil {
		return services.NewDomainError(services.ErrorTypeValidation, "api key cannot be blank", nil)
	}

	client := s.newClient(apiKey)
	if err := client.ValidateKey(ctx); err != nil {
		return services.NewDomainError(services.ErrorTypeAuthentication, "API key rejected by remote store", err)
	}

	s.client = client
	s.registry = registry.NewService(client, s.logger)
	s.tracker = batch.NewTracker(client, s.logger)
	s.indexes = index.NewService(client, s.tracker, s.logger, s.cfg.Search.ListLimit)
	s.retrieval = retrieval.NewService(client, s.logger, retrieval.Defaults{
		Model:           s.cfg.OpenAI.DefaultModel,
		TopK:            s.cfg.Search.TopK,
		MaxContextChars: s.cfg.Search.MaxContextChars,
	})

	s.logger.Info("session configured")
	return nil
}

// Configured reports whether Configure has succeeded.
func (s *Session) Configured() bool {
	return s.client != nil
}

func (s *Session) ensureConfigured() error {
	if s.client == nil {
		return services.ErrNotConfigured
	}
	return nil
}

// resolveIndex substitutes the currently selected index when id is empty.
func (s *Session) resolveIndex(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if s.currentIndexID == "" {
		return "", services.ErrNoIndexSelected
	}
	return s.currentIndexID, nil
}

// SelectIndex marks an index as the default target for operations that omit
// an index id.
func (s *Session) SelectIndex(indexID string) {
	s.currentIndexID = indexID
}

// CurrentIndex returns the currently selected index id, or empty.
func (s *Session) CurrentIndex() string {
	return s.currentIndexID
}

// Upload stores a document remotely and records it in the session registry.
func (s *Session) Upload(ctx context.Context, data []byte, displayName string) (models.UploadedFile, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.UploadedFile{}, err
	}
	return s.registry.Register(ctx, data, displayName)
}

// ListFiles returns the files uploaded during this session, in upload order.
func (s *Session) ListFiles() ([]models.UploadedFile, error) {
	if err := s.ensureConfigured(); err != nil {
		return nil, err
	}
	return s.registry.List(), nil
}

// UploadedFileIDs returns the remote ids of every file uploaded during this
// session, in upload order. Handy for attaching the whole session's uploads
// to an index at once.
func (s *Session) UploadedFileIDs() ([]string, error) {
	if err := s.ensureConfigured(); err != nil {
		return nil, err
	}
	return s.registry.FileIDs(), nil
}

// CreateIndex provisions an index, optionally seeding it with files. The new
// index becomes the selected index.
func (s *Session) CreateIndex(ctx context.Context, name string, fileIDs []string) (models.VectorStore, *models.Batch, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.VectorStore{}, nil, err
	}
	vs, b, err := s.indexes.Create(ctx, name, fileIDs)
	if err != nil {
		return models.VectorStore{}, nil, err
	}
	s.currentIndexID = vs.ID
	return vs, b, nil
}

// GetOrCreateIndex reuses the index named by indexID when it still exists,
// creating a fresh index otherwise. The resulting index becomes the selected
// index.
func (s *Session) GetOrCreateIndex(ctx context.Context, name, indexID string, fileIDs []string) (models.VectorStore, *models.Batch, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.VectorStore{}, nil, err
	}
	vs, b, err := s.indexes.GetOrCreate(ctx, name, indexID, fileIDs)
	if err != nil {
		return models.VectorStore{}, nil, err
	}
	s.currentIndexID = vs.ID
	return vs, b, nil
}

// ListIndexes lists all indexes known to the remote store.
func (s *Session) ListIndexes(ctx context.Context) ([]models.VectorStore, error) {
	if err := s.ensureConfigured(); err != nil {
		return nil, err
	}
	return s.indexes.List(ctx)
}

// GetIndex fetches the current snapshot of an index.
func (s *Session) GetIndex(ctx context.Context, indexID string) (models.VectorStore, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.VectorStore{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.VectorStore{}, err
	}
	return s.indexes.Get(ctx, id)
}

// GetIndexStatus returns the canonical lifecycle state and file counts of an
// index.
func (s *Session) GetIndexStatus(ctx context.Context, indexID string) (models.IndexStatus, models.FileCounts, error) {
	if err := s.ensureConfigured(); err != nil {
		return "", models.FileCounts{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return "", models.FileCounts{}, err
	}
	return s.indexes.GetStatus(ctx, id)
}

// AddFiles enqueues an indexing batch attaching files to an index.
func (s *Session) AddFiles(ctx context.Context, indexID string, fileIDs []string) (models.Batch, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.Batch{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.Batch{}, err
	}
	return s.indexes.AddFiles(ctx, id, fileIDs)
}

// ListIndexFiles lists the files attached to an index.
func (s *Session) ListIndexFiles(ctx context.Context, indexID string) ([]models.IndexedFile, error) {
	if err := s.ensureConfigured(); err != nil {
		return nil, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return nil, err
	}
	return s.indexes.ListFiles(ctx, id)
}

// RemoveIndexFile detaches a file from an index and returns the refreshed
// counts.
func (s *Session) RemoveIndexFile(ctx context.Context, indexID, fileID string) (models.FileCounts, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.FileCounts{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.FileCounts{}, err
	}
	return s.indexes.RemoveFile(ctx, id, fileID)
}

// PurgeIndexFile detaches a file from an index and deletes the underlying
// remote file object.
func (s *Session) PurgeIndexFile(ctx context.Context, indexID, fileID string) (models.FileCounts, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.FileCounts{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.FileCounts{}, err
	}
	return s.indexes.PurgeFile(ctx, id, fileID)
}

// GetFileContent fetches the indexed text of a file.
func (s *Session) GetFileContent(ctx context.Context, indexID, fileID string) (models.FileContent, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.FileContent{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.FileContent{}, err
	}
	return s.indexes.GetFileContent(ctx, id, fileID)
}

// PollBatch returns the current snapshot of an indexing batch.
func (s *Session) PollBatch(ctx context.Context, indexID, batchID string) (models.Batch, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.Batch{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.Batch{}, err
	}
	return s.tracker.Poll(ctx, id, batchID)
}

// ListBatches lists the indexing batches of an index in remote-provided
// order.
func (s *Session) ListBatches(ctx context.Context, indexID string) ([]models.Batch, error) {
	if err := s.ensureConfigured(); err != nil {
		return nil, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return nil, err
	}
	return s.tracker.List(ctx, id, s.cfg.Search.ListLimit)
}

// CancelBatch requests cancellation of an in-flight batch.
func (s *Session) CancelBatch(ctx context.Context, indexID, batchID string) (models.Batch, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.Batch{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.Batch{}, err
	}
	return s.tracker.Cancel(ctx, id, batchID)
}

// DeleteIndex removes an index. If it was the selected index the selection is
// cleared.
func (s *Session) DeleteIndex(ctx context.Context, indexID string) error {
	if err := s.ensureConfigured(); err != nil {
		return err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return err
	}
	if err := s.indexes.Delete(ctx, id); err != nil {
		return err
	}
	if s.currentIndexID == id {
		s.currentIndexID = ""
	}
	return nil
}

// Query answers a question against an index using retrieval-augmented
// generation. Empty model and zero topK fall back to the configured defaults.
func (s *Session) Query(ctx context.Context, indexID, query, model string, topK int) (models.QueryResult, error) {
	if err := s.ensureConfigured(); err != nil {
		return models.QueryResult{}, err
	}
	id, err := s.resolveIndex(indexID)
	if err != nil {
		return models.QueryResult{}, err
	}
	return s.retrieval.Query(ctx, retrieval.QueryRequest{
		IndexID: id,
		Query:   query,
		Model:   model,
		TopK:    topK,
	})
}

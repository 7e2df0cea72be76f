package store

import (
	"context"

	"github.com/kbplatform/kb-orchestrator/models"
)

// Client is the unified contract with the remote embedding/search/completion
// service. Every method issues a single network call; there is no retry loop
// and no polling inside the client. Cadence and recovery belong to callers.
type Client interface {
	// ValidateKey probes the credentials by listing available models.
	ValidateKey(ctx context.Context) error

	// UploadFile stores raw bytes remotely and returns the assigned file.
	UploadFile(ctx context.Context, name string, data []byte) (RemoteFile, error)

	// DeleteFile removes the underlying remote file object.
	DeleteFile(ctx context.Context, fileID string) error

	// GetFileInfo fetches metadata for a stored file.
	GetFileInfo(ctx context.Context, fileID string) (RemoteFile, error)

	// CreateVectorStore creates a remote index, optionally seeded with files.
	CreateVectorStore(ctx context.Context, name string, fileIDs []string) (RemoteVectorStore, error)

	// GetVectorStore fetches the current status and counts of an index.
	GetVectorStore(ctx context.Context, storeID string) (RemoteVectorStore, error)

	// DeleteVectorStore removes an index and its file associations.
	DeleteVectorStore(ctx context.Context, storeID string) error

	// ListVectorStores lists indexes in remote-provided order.
	ListVectorStores(ctx context.Context, limit int) ([]RemoteVectorStore, error)

	// ListVectorStoreFiles lists the files attached to an index.
	ListVectorStoreFiles(ctx context.Context, storeID string, limit int) ([]RemoteVectorStoreFile, error)

	// RemoveVectorStoreFile detaches a file from an index. The underlying
	// file object is not deleted.
	RemoveVectorStoreFile(ctx context.Context, storeID, fileID string) error

	// GetFileContent fetches the indexed plain text of a file.
	GetFileContent(ctx context.Context, storeID, fileID string) (string, error)

	// CreateFileBatch enqueues an asynchronous indexing job.
	CreateFileBatch(ctx context.Context, storeID string, fileIDs []string) (RemoteBatch, error)

	// GetFileBatch fetches the current status of an indexing job.
	GetFileBatch(ctx context.Context, storeID, batchID string) (RemoteBatch, error)

	// CancelFileBatch requests cancellation of an in-flight indexing job.
	// The remote system may have already finished; the returned status is
	// whatever it reports.
	CancelFileBatch(ctx context.Context, storeID, batchID string) (RemoteBatch, error)

	// ListFileBatches lists the indexing jobs of an index in
	// remote-provided order.
	ListFileBatches(ctx context.Context, storeID string, limit int) ([]RemoteBatch, error)

	// Search runs a similarity search and returns ranked chunks.
	Search(ctx context.Context, storeID, query string, maxResults int) ([]SearchHit, error)

	// ChatCompletion generates a completion for the given messages.
	ChatCompletion(ctx context.Context, model string, messages []Message) (string, error)
}

// RemoteFile is a file object as reported by the remote store.
type RemoteFile struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
}

// RemoteVectorStore is an index as reported by the remote store. Status uses
// the remote vocabulary; translation to canonical states happens in models.
type RemoteVectorStore struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	FileCounts models.FileCounts `json:"file_counts"`
	CreatedAt  int64             `json:"created_at"`
}

// RemoteVectorStoreFile is a file association within an index.
type RemoteVectorStoreFile struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// RemoteBatch is an indexing job as reported by the remote store.
type RemoteBatch struct {
	ID            string            `json:"id"`
	VectorStoreID string            `json:"vector_store_id"`
	Status        string            `json:"status"`
	FileCounts    models.FileCounts `json:"file_counts"`
	CreatedAt     int64             `json:"created_at"`
}

// SearchHit is one ranked chunk returned by a similarity search, with its
// content parts already flattened to plain text.
type SearchHit struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// Message is a single chat message submitted for completion.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StoreError represents an error from the remote store
type StoreError struct {
	// Code is the remote error code or type
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates if the request can be retried
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new store error
func NewStoreError(code, message string, statusCode int, retryable bool, cause error) *StoreError {
	return &StoreError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if storeErr, ok := err.(*StoreError); ok {
		return storeErr.Retryable
	}
	return false
}

// IsNotFound checks if an error is a remote 404
func IsNotFound(err error) bool {
	if storeErr, ok := err.(*StoreError); ok {
		return storeErr.StatusCode == 404
	}
	return false
}

package models

import "time"

// IndexStatus is the canonical lifecycle state of a vector store index.
type IndexStatus string

const (
	IndexStatusEmpty    IndexStatus = "empty"
	IndexStatusIndexing IndexStatus = "indexing"
	IndexStatusReady    IndexStatus = "ready"
	IndexStatusError    IndexStatus = "error"
)

// BatchStatus is the state of an asynchronous indexing batch. Transitions are
// driven entirely by the remote system and only move forward.
type BatchStatus string

const (
	BatchStatusQueued     BatchStatus = "queued"
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
	BatchStatusExpired    BatchStatus = "expired"
)

// IsComplete reports whether the batch has reached a terminal state.
func (s BatchStatus) IsComplete() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled, BatchStatusExpired:
		return true
	}
	return false
}

// FileStatus is the per-file indexing state within an index. A terminal
// status never reverts.
type FileStatus string

const (
	FileStatusQueued     FileStatus = "queued"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
	FileStatusCancelled  FileStatus = "cancelled"
)

// FileCounts aggregates per-status file totals for an index or batch.
type FileCounts struct {
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// Consistent reports whether Total equals the sum of the per-status counts.
func (c FileCounts) Consistent() bool {
	return c.Total == c.Completed+c.InProgress+c.Failed+c.Cancelled
}

// UploadedFile is the registry entry for a file stored remotely during this
// session. Immutable once created.
type UploadedFile struct {
	RemoteID    string    `json:"remote_id"`
	DisplayName string    `json:"display_name"`
	ByteSize    int64     `json:"byte_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// VectorStore is a named remote index of embedded document chunks.
type VectorStore struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     IndexStatus `json:"status"`
	FileCounts FileCounts  `json:"file_counts"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IndexedFile is a file attached to a vector store, with its indexing state.
type IndexedFile struct {
	RemoteID    string     `json:"remote_id"`
	Status      FileStatus `json:"status"`
	DisplayName string     `json:"display_name"`
	ByteSize    int64      `json:"byte_size"`
}

// Batch is an asynchronous indexing job attaching files to a vector store.
type Batch struct {
	ID         string      `json:"id"`
	IndexID    string      `json:"index_id"`
	Status     BatchStatus `json:"status"`
	FileCounts FileCounts  `json:"file_counts"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IsComplete reports whether the batch has reached a terminal state.
func (b Batch) IsComplete() bool {
	return b.Status.IsComplete()
}

// QueryResult is the outcome of a retrieval-augmented query. Ephemeral,
// produced per query and never persisted.
type QueryResult struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	RawContext string   `json:"raw_context"`
}

// FileContent is the result of fetching a file's text from an index.
// Non-retrievable content (binary formats such as PDF) is a normal outcome
// signalled through Retrievable=false, not an error.
type FileContent struct {
	FileID      string `json:"file_id"`
	DisplayName string `json:"display_name"`
	Retrievable bool   `json:"retrievable"`
	Content     string `json:"content,omitempty"`
	Message     string `json:"message,omitempty"`
}

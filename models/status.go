package models

// Remote status vocabulary as reported by the vector store service. The
// remote side describes indexes with "in_progress"/"completed"/"expired" and
// files with "in_progress" where the canonical model uses "processing".
const (
	remoteStatusInProgress = "in_progress"
	remoteStatusCompleted  = "completed"
	remoteStatusExpired    = "expired"
	remoteStatusQueued     = "queued"
	remoteStatusFailed     = "failed"
	remoteStatusCancelled  = "cancelled"
)

// IndexStatusFromRemote translates the remote index vocabulary into the four
// canonical states. The remote store is the source of truth for counts; the
// derived status follows the most recent batch outcome: an index with no
// files is empty, any in-flight work means indexing, and a batch that failed
// every file puts the index in error.
func IndexStatusFromRemote(remoteStatus string, counts FileCounts) IndexStatus {
	if counts.Total == 0 {
		return IndexStatusEmpty
	}
	if remoteStatus == remoteStatusExpired {
		return IndexStatusError
	}
	if remoteStatus == remoteStatusInProgress || counts.InProgress > 0 {
		return IndexStatusIndexing
	}
	if counts.Failed > 0 && counts.Completed == 0 {
		return IndexStatusError
	}
	return IndexStatusReady
}

// BatchStatusFromRemote translates the remote batch vocabulary. Unknown
// values map to queued, the earliest state, so an unrecognized in-flight
// status is never mistaken for a terminal one.
func BatchStatusFromRemote(remoteStatus string) BatchStatus {
	switch remoteStatus {
	case remoteStatusInProgress:
		return BatchStatusInProgress
	case remoteStatusCompleted:
		return BatchStatusCompleted
	case remoteStatusFailed:
		return BatchStatusFailed
	case remoteStatusCancelled:
		return BatchStatusCancelled
	case remoteStatusExpired:
		return BatchStatusExpired
	default:
		return BatchStatusQueued
	}
}

// FileStatusFromRemote translates the remote per-file vocabulary.
func FileStatusFromRemote(remoteStatus string) FileStatus {
	switch remoteStatus {
	case remoteStatusInProgress:
		return FileStatusProcessing
	case remoteStatusCompleted:
		return FileStatusCompleted
	case remoteStatusFailed:
		return FileStatusFailed
	case remoteStatusCancelled:
		return FileStatusCancelled
	default:
		return FileStatusQueued
	}
}

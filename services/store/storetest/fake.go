// Package storetest provides a configurable in-memory store.Client for tests.
package storetest

import (
	"context"

	"github.com/kbplatform/kb-orchestrator/services/store"
)

// Fake implements store.Client through function fields. Unset methods fail
// with a NOT_IMPLEMENTED store error so tests notice unexpected calls.
// Calls counts invocations per method name.
type Fake struct {
	Calls map[string]int

	ValidateKeyFn           func(ctx context.Context) error
	UploadFileFn            func(ctx context.Context, name string, data []byte) (store.RemoteFile, error)
	DeleteFileFn            func(ctx context.Context, fileID string) error
	GetFileInfoFn           func(ctx context.Context, fileID string) (store.RemoteFile, error)
	CreateVectorStoreFn     func(ctx context.Context, name string, fileIDs []string) (store.RemoteVectorStore, error)
	GetVectorStoreFn        func(ctx context.Context, storeID string) (store.RemoteVectorStore, error)
	DeleteVectorStoreFn     func(ctx context.Context, storeID string) error
	ListVectorStoresFn      func(ctx context.Context, limit int) ([]store.RemoteVectorStore, error)
	ListVectorStoreFilesFn  func(ctx context.Context, storeID string, limit int) ([]store.RemoteVectorStoreFile, error)
	RemoveVectorStoreFileFn func(ctx context.Context, storeID, fileID string) error
	GetFileContentFn        func(ctx context.Context, storeID, fileID string) (string, error)
	CreateFileBatchFn       func(ctx context.Context, storeID string, fileIDs []string) (store.RemoteBatch, error)
	GetFileBatchFn          func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error)
	CancelFileBatchFn       func(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error)
	ListFileBatchesFn       func(ctx context.Context, storeID string, limit int) ([]store.RemoteBatch, error)
	SearchFn                func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error)
	ChatCompletionFn        func(ctx context.Context, model string, messages []store.Message) (string, error)
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{Calls: make(map[string]int)}
}

func (f *Fake) record(method string) {
	if f.Calls == nil {
		f.Calls = make(map[string]int)
	}
	f.Calls[method]++
}

func notImplemented(method string) *store.StoreError {
	return store.NewStoreError("NOT_IMPLEMENTED", method+" not stubbed", 0, false, nil)
}

func (f *Fake) ValidateKey(ctx context.Context) error {
	f.record("ValidateKey")
	if f.ValidateKeyFn == nil {
		return nil
	}
	return f.ValidateKeyFn(ctx)
}

func (f *Fake) UploadFile(ctx context.Context, name string, data []byte) (store.RemoteFile, error) {
	f.record("UploadFile")
	if f.UploadFileFn == nil {
		return store.RemoteFile{}, notImplemented("UploadFile")
	}
	return f.UploadFileFn(ctx, name, data)
}

func (f *Fake) DeleteFile(ctx context.Context, fileID string) error {
	f.record("DeleteFile")
	if f.DeleteFileFn == nil {
		return notImplemented("DeleteFile")
	}
	return f.DeleteFileFn(ctx, fileID)
}

func (f *Fake) GetFileInfo(ctx context.Context, fileID string) (store.RemoteFile, error) {
	f.record("GetFileInfo")
	if f.GetFileInfoFn == nil {
		return store.RemoteFile{}, notImplemented("GetFileInfo")
	}
	return f.GetFileInfoFn(ctx, fileID)
}

func (f *Fake) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (store.RemoteVectorStore, error) {
	f.record("CreateVectorStore")
	if f.CreateVectorStoreFn == nil {
		return store.RemoteVectorStore{}, notImplemented("CreateVectorStore")
	}
	return f.CreateVectorStoreFn(ctx, name, fileIDs)
}

func (f *Fake) GetVectorStore(ctx context.Context, storeID string) (store.RemoteVectorStore, error) {
	f.record("GetVectorStore")
	if f.GetVectorStoreFn == nil {
		return store.RemoteVectorStore{}, notImplemented("GetVectorStore")
	}
	return f.GetVectorStoreFn(ctx, storeID)
}

func (f *Fake) DeleteVectorStore(ctx context.Context, storeID string) error {
	f.record("DeleteVectorStore")
	if f.DeleteVectorStoreFn == nil {
		return notImplemented("DeleteVectorStore")
	}
	return f.DeleteVectorStoreFn(ctx, storeID)
}

func (f *Fake) ListVectorStores(ctx context.Context, limit int) ([]store.RemoteVectorStore, error) {
	f.record("ListVectorStores")
	if f.ListVectorStoresFn == nil {
		return nil, notImplemented("ListVectorStores")
	}
	return f.ListVectorStoresFn(ctx, limit)
}

func (f *Fake) ListVectorStoreFiles(ctx context.Context, storeID string, limit int) ([]store.RemoteVectorStoreFile, error) {
	f.record("ListVectorStoreFiles")
	if f.ListVectorStoreFilesFn == nil {
		return nil, notImplemented("ListVectorStoreFiles")
	}
	return f.ListVectorStoreFilesFn(ctx, storeID, limit)
}

func (f *Fake) RemoveVectorStoreFile(ctx context.Context, storeID, fileID string) error {
	f.record("RemoveVectorStoreFile")
	if f.RemoveVectorStoreFileFn == nil {
		return notImplemented("RemoveVectorStoreFile")
	}
	return f.RemoveVectorStoreFileFn(ctx, storeID, fileID)
}

func (f *Fake) GetFileContent(ctx context.Context, storeID, fileID string) (string, error) {
	f.record("GetFileContent")
	if f.GetFileContentFn == nil {
		return "", notImplemented("GetFileContent")
	}
	return f.GetFileContentFn(ctx, storeID, fileID)
}

func (f *Fake) CreateFileBatch(ctx context.Context, storeID string, fileIDs []string) (store.RemoteBatch, error) {
	f.record("CreateFileBatch")
	if f.CreateFileBatchFn == nil {
		return store.RemoteBatch{}, notImplemented("CreateFileBatch")
	}
	return f.CreateFileBatchFn(ctx, storeID, fileIDs)
}

func (f *Fake) GetFileBatch(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
	f.record("GetFileBatch")
	if f.GetFileBatchFn == nil {
		return store.RemoteBatch{}, notImplemented("GetFileBatch")
	}
	return f.GetFileBatchFn(ctx, storeID, batchID)
}

func (f *Fake) CancelFileBatch(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
	f.record("CancelFileBatch")
	if f.CancelFileBatchFn == nil {
		return store.RemoteBatch{}, notImplemented("CancelFileBatch")
	}
	return f.CancelFileBatchFn(ctx, storeID, batchID)
}

func (f *Fake) ListFileBatches(ctx context.Context, storeID string, limit int) ([]store.RemoteBatch, error) {
	f.record("ListFileBatches")
	if f.ListFileBatchesFn == nil {
		return nil, notImplemented("ListFileBatches")
	}
	return f.ListFileBatchesFn(ctx, storeID, limit)
}

func (f *Fake) Search(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
	f.record("Search")
	if f.SearchFn == nil {
		return nil, notImplemented("Search")
	}
	return f.SearchFn(ctx, storeID, query, maxResults)
}

func (f *Fake) ChatCompletion(ctx context.Context, model string, messages []store.Message) (string, error) {
	f.record("ChatCompletion")
	if f.ChatCompletionFn == nil {
		return "", notImplemented("ChatCompletion")
	}
	return f.ChatCompletionFn(ctx, model, messages)
}

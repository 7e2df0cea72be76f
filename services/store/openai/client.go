package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kbplatform/kb-orchestrator/services/store"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// betaHeader is required on vector store endpoints (Assistants v2).
	betaHeader = "assistants=v2"

	filePurpose = "assistants"
)

// Config holds the OpenAI client configuration
type Config struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for requests
	Timeout time.Duration

	// OrgID for organization-specific endpoints
	OrgID string

	// Additional headers
	Headers map[string]string
}

// Client implements the store.Client interface against the OpenAI API
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new OpenAI store client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// ValidateKey probes the credentials by listing models
func (c *Client) ValidateKey(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/models", nil, nil, false)
}

// UploadFile stores raw bytes via a multipart POST to /files
func (c *Client) UploadFile(ctx context.Context, name string, data []byte) (store.RemoteFile, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", filePurpose); err != nil {
		return store.RemoteFile{}, store.NewStoreError("MULTIPART_ERROR", "failed to build upload form", 0, false, err)
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return store.RemoteFile{}, store.NewStoreError("MULTIPART_ERROR", "failed to build upload form", 0, false, err)
	}
	if _, err := part.Write(data); err != nil {
		return store.RemoteFile{}, store.NewStoreError("MULTIPART_ERROR", "failed to write upload payload", 0, false, err)
	}
	if err := writer.Close(); err != nil {
		return store.RemoteFile{}, store.NewStoreError("MULTIPART_ERROR", "failed to finalize upload form", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/files", &body)
	if err != nil {
		return store.RemoteFile{}, store.NewStoreError("REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeaders(httpReq, false)

	var file store.RemoteFile
	if err := c.execute(httpReq, &file); err != nil {
		return store.RemoteFile{}, err
	}
	return file, nil
}

// DeleteFile removes the remote file object
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil, nil, false)
}

// GetFileInfo fetches metadata for a stored file
func (c *Client) GetFileInfo(ctx context.Context, fileID string) (store.RemoteFile, error) {
	var file store.RemoteFile
	err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil, &file, false)
	return file, err
}

// CreateVectorStore creates a remote index, optionally seeded with files
func (c *Client) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (store.RemoteVectorStore, error) {
	payload := map[string]interface{}{"name": name}
	if len(fileIDs) > 0 {
		payload["file_ids"] = fileIDs
	}

	var vs store.RemoteVectorStore
	err := c.doJSON(ctx, http.MethodPost, "/vector_stores", payload, &vs, true)
	return vs, err
}

// GetVectorStore fetches the current status and counts of an index
func (c *Client) GetVectorStore(ctx context.Context, storeID string) (store.RemoteVectorStore, error) {
	var vs store.RemoteVectorStore
	err := c.doJSON(ctx, http.MethodGet, "/vector_stores/"+url.PathEscape(storeID), nil, &vs, true)
	return vs, err
}

// DeleteVectorStore removes an index and its file associations
func (c *Client) DeleteVectorStore(ctx context.Context, storeID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/vector_stores/"+url.PathEscape(storeID), nil, nil, true)
}

// ListVectorStores lists indexes in remote-provided order
func (c *Client) ListVectorStores(ctx context.Context, limit int) ([]store.RemoteVectorStore, error) {
	var page struct {
		Data []store.RemoteVectorStore `json:"data"`
	}
	path := "/vector_stores?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// ListVectorStoreFiles lists the files attached to an index
func (c *Client) ListVectorStoreFiles(ctx context.Context, storeID string, limit int) ([]store.RemoteVectorStoreFile, error) {
	var page struct {
		Data []store.RemoteVectorStoreFile `json:"data"`
	}
	path := "/vector_stores/" + url.PathEscape(storeID) + "/files?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// RemoveVectorStoreFile detaches a file from an index
func (c *Client) RemoveVectorStoreFile(ctx context.Context, storeID, fileID string) error {
	path := "/vector_stores/" + url.PathEscape(storeID) + "/files/" + url.PathEscape(fileID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, true)
}

// GetFileContent fetches the indexed plain text of a file
func (c *Client) GetFileContent(ctx context.Context, storeID, fileID string) (string, error) {
	var page struct {
		Data []contentPart `json:"data"`
	}
	path := "/vector_stores/" + url.PathEscape(storeID) + "/files/" + url.PathEscape(fileID) + "/content"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return "", err
	}

	texts := make([]string, 0, len(page.Data))
	for _, part := range page.Data {
		if text := part.flatten(); text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// CreateFileBatch enqueues an asynchronous indexing job
func (c *Client) CreateFileBatch(ctx context.Context, storeID string, fileIDs []string) (store.RemoteBatch, error) {
	payload := map[string]interface{}{"file_ids": fileIDs}

	var batch store.RemoteBatch
	path := "/vector_stores/" + url.PathEscape(storeID) + "/file_batches"
	err := c.doJSON(ctx, http.MethodPost, path, payload, &batch, true)
	return batch, err
}

// GetFileBatch fetches the current status of an indexing job
func (c *Client) GetFileBatch(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
	var batch store.RemoteBatch
	path := "/vector_stores/" + url.PathEscape(storeID) + "/file_batches/" + url.PathEscape(batchID)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &batch, true)
	return batch, err
}

// CancelFileBatch requests cancellation of an in-flight indexing job
func (c *Client) CancelFileBatch(ctx context.Context, storeID, batchID string) (store.RemoteBatch, error) {
	var batch store.RemoteBatch
	path := "/vector_stores/" + url.PathEscape(storeID) + "/file_batches/" + url.PathEscape(batchID) + "/cancel"
	err := c.doJSON(ctx, http.MethodPost, path, nil, &batch, true)
	return batch, err
}

// ListFileBatches lists the indexing jobs of an index
func (c *Client) ListFileBatches(ctx context.Context, storeID string, limit int) ([]store.RemoteBatch, error) {
	var page struct {
		Data []store.RemoteBatch `json:"data"`
	}
	path := "/vector_stores/" + url.PathEscape(storeID) + "/file_batches?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// Search runs a similarity search and returns ranked chunks
func (c *Client) Search(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
	payload := map[string]interface{}{
		"query":           query,
		"max_num_results": maxResults,
	}

	var page struct {
		Data []searchHit `json:"data"`
	}
	path := "/vector_stores/" + url.PathEscape(storeID) + "/search"
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &page, true); err != nil {
		return nil, err
	}

	hits := make([]store.SearchHit, 0, len(page.Data))
	for _, hit := range page.Data {
		hits = append(hits, store.SearchHit{
			FileID:   hit.FileID,
			Filename: hit.Filename,
			Score:    hit.Score,
			Text:     hit.flattenContent(),
		})
	}
	return hits, nil
}

// ChatCompletion generates a completion for the given messages
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []store.Message) (string, error) {
	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}

	var resp chatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/completions", payload, &resp, false); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", store.NewStoreError("EMPTY_RESPONSE", "completion returned no choices", 0, false, nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// doJSON builds and executes a single JSON request. out may be nil when the
// response body is not needed.
func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}, out interface{}, beta bool) error {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return store.NewStoreError("MARSHAL_ERROR", "failed to marshal request", 0, false, err)
		}
		body = bytes.NewReader(reqBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return store.NewStoreError("REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeaders(httpReq, beta)

	return c.execute(httpReq, out)
}

// execute performs exactly one attempt. Retry policy belongs to callers.
func (c *Client) execute(httpReq *http.Request, out interface{}) error {
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return store.NewStoreError("HTTP_ERROR", "HTTP request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return store.NewStoreError("READ_ERROR", "failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return c.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return store.NewStoreError("UNMARSHAL_ERROR", "failed to unmarshal response", httpResp.StatusCode, false, err)
	}
	return nil
}

func (c *Client) setAuthHeaders(httpReq *http.Request, beta bool) {
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if beta {
		httpReq.Header.Set("OpenAI-Beta", betaHeader)
	}
	if c.config.OrgID != "" {
		httpReq.Header.Set("OpenAI-Organization", c.config.OrgID)
	}
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
}

// handleErrorResponse maps remote error responses
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return store.NewStoreError("UNKNOWN_ERROR", fmt.Sprintf("remote store returned status %d", statusCode), statusCode, statusCode >= 500, err)
	}

	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests

	return store.NewStoreError(
		errResp.Error.Type,
		errResp.Error.Message,
		statusCode,
		retryable,
		errors.New(errResp.Error.Message),
	)
}

// Wire types

// contentPart is one text fragment of a file or search hit. The remote wire
// format varies: text may be a plain string, an object {"value": "..."}, or
// the text may live under a sibling "value" key.
type contentPart struct {
	Type  string          `json:"type"`
	Text  json.RawMessage `json:"text"`
	Value string          `json:"value"`
}

func (p contentPart) flatten() string {
	if len(p.Text) > 0 {
		var s string
		if err := json.Unmarshal(p.Text, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(p.Text, &obj); err == nil {
			return strings.TrimSpace(obj.Value)
		}
	}
	if p.Type == "text" && p.Value != "" {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

type searchHit struct {
	FileID   string        `json:"file_id"`
	Filename string        `json:"filename"`
	Score    float64       `json:"score"`
	Content  []contentPart `json:"content"`
}

func (h searchHit) flattenContent() string {
	texts := make([]string, 0, len(h.Content))
	for _, part := range h.Content {
		if text := part.flatten(); text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "\n")
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

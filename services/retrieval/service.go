// Package retrieval answers questions against an index using
// retrieval-augmented generation: search for relevant chunks, assemble a
// bounded context window, and ask the completion model to answer from that
// context only.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kbplatform/kb-orchestrator/models"
	"github.com/kbplatform/kb-orchestrator/services"
	"github.com/kbplatform/kb-orchestrator/services/store"
	"github.com/kbplatform/kb-orchestrator/utils"
)

// contextSeparator joins chunks inside the assembled context window.
const contextSeparator = "\n\n---\n\n"

const systemPrompt = "You are a knowledge base assistant. Answer the user's question using only the " +
	"provided context. If the context does not contain the answer, say that you " +
	"don't have that information. Do not invent facts."

// Defaults carries the tunable retrieval parameters, typically sourced from
// configuration.
type Defaults struct {
	Model           string
	TopK            int
	MaxContextChars int
}

// QueryRequest is a single question against an index.
type QueryRequest struct {
	IndexID string `validate:"required"`
	Query   string `validate:"required"`

	// TopK overrides the default number of chunks when positive.
	TopK int `validate:"gte=0"`

	// MaxContextChars overrides the default context budget when positive.
	MaxContextChars int `validate:"gte=0"`

	// Model overrides the default completion model when non-empty.
	Model string
}

// Service runs retrieval-augmented queries.
type Service struct {
	store    store.Client
	logger   *zap.Logger
	defaults Defaults
}

// NewService creates a new retrieval service
func NewService(client store.Client, logger *zap.Logger, defaults Defaults) *Service {
	if defaults.TopK <= 0 {
		defaults.TopK = 10
	}
	if defaults.MaxContextChars <= 0 {
		defaults.MaxContextChars = 8000
	}
	return &Service{
		store:    client,
		logger:   logger,
		defaults: defaults,
	}
}

// Query answers a question against the given index. The answer is grounded in
// the retrieved chunks; Sources lists the distinct files that contributed, in
// first-seen rank order.
func (s *Service) Query(ctx context.Context, req QueryRequest) (models.QueryResult, error) {
	if strings.TrimSpace(req.IndexID) == "" {
		return models.QueryResult{}, services.ErrNoIndexSelected
	}
	if strings.TrimSpace(req.Query) == "" {
		return models.QueryResult{}, services.ErrEmptyQuery
	}
	if err := utils.ValidateStruct(req); err != nil {
		return models.QueryResult{}, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.defaults.TopK
	}
	maxChars := req.MaxContextChars
	if maxChars <= 0 {
		maxChars = s.defaults.MaxContextChars
	}
	model := req.Model
	if model == "" {
		model = s.defaults.Model
	}

	queryID := uuid.New().String()
	log := s.logger.With(
		zap.String("query_id", queryID),
		zap.String("index_id", req.IndexID))

	log.Debug("running similarity search", zap.Int("top_k", topK))
	hits, err := s.store.Search(ctx, req.IndexID, req.Query, topK)
	if err != nil {
		if store.IsNotFound(err) {
			return models.QueryResult{}, services.NewDomainError(services.ErrorTypeNotFound,
				fmt.Sprintf("index %s not found", req.IndexID), err)
		}
		return models.QueryResult{}, services.FromStore("search failed", err)
	}

	contextText, sources := assembleContext(hits, maxChars)
	if sources == nil {
		sources = []string{}
	}

	log.Debug("context assembled",
		zap.Int("hits", len(hits)),
		zap.Int("context_chars", len(contextText)),
		zap.Strings("sources", sources))

	// The context message is omitted when nothing usable was retrieved; the
	// system prompt already tells the model to admit when it cannot answer.
	messages := []store.Message{{Role: "system", Content: systemPrompt}}
	if contextText != "" {
		messages = append(messages, store.Message{Role: "system", Content: "KNOWLEDGE BASE CONTEXT:\n\n" + contextText})
	}
	messages = append(messages, store.Message{Role: "user", Content: req.Query})

	answer, err := s.store.ChatCompletion(ctx, model, messages)
	if err != nil {
		return models.QueryResult{}, services.FromStore("completion failed", err)
	}

	log.Info("query answered",
		zap.String("model", model),
		zap.Int("source_count", len(sources)))

	return models.QueryResult{
		Answer:     answer,
		Sources:    sources,
		RawContext: contextText,
	}, nil
}

// assembleContext packs whole chunks into a character-bounded window in rank
// order. The chunk that would straddle the budget is dropped entirely rather
// than truncated mid-sentence, and assembly stops there. Sources collects the
// distinct filenames of the chunks that made it in, in first-seen order.
func assembleContext(hits []store.SearchHit, maxChars int) (string, []string) {
	var sb strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for i, hit := range hits {
		text := strings.TrimSpace(hit.Text)
		if text == "" {
			continue
		}

		snippet := fmt.Sprintf("[Chunk #%d]\n%s", i+1, text)
		need := len(snippet)
		if sb.Len() > 0 {
			need += len(contextSeparator)
		}
		if sb.Len()+need > maxChars {
			break
		}

		if sb.Len() > 0 {
			sb.WriteString(contextSeparator)
		}
		sb.WriteString(snippet)

		name := hit.Filename
		if name == "" {
			name = hit.FileID
		}
		if name != "" && !seen[name] {
			seen[name] = true
			sources = append(sources, name)
		}
	}

	return sb.String(), sources
}

package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kbplatform/kb-orchestrator/services"
	"github.com/kbplatform/kb-orchestrator/services/store"
	"github.com/kbplatform/kb-orchestrator/services/store/storetest"
)

func newService(fake *storetest.Fake, defaults Defaults) *Service {
	if defaults.Model == "" {
		defaults.Model = "gpt-4.1"
	}
	return NewService(fake, zap.NewNop(), defaults)
}

func TestService_Query(t *testing.T) {
	fake := storetest.New()
	fake.SearchFn = func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
		assert.Equal(t, "vs-1", storeID)
		assert.Equal(t, "How long do refunds take?", query)
		assert.Equal(t, 10, maxResults)
		return []store.SearchHit{
			{FileID: "file-1", Filename: "faq.md", Score: 0.9, Text: "Refunds take 5 business days."},
			{FileID: "file-2", Filename: "terms.md", Score: 0.5, Text: "See the refund section."},
			{FileID: "file-1", Filename: "faq.md", Score: 0.4, Text: "Contact support for refund status."},
		}, nil
	}
	var gotMessages []store.Message
	fake.ChatCompletionFn = func(ctx context.Context, model string, messages []store.Message) (string, error) {
		assert.Equal(t, "gpt-4.1", model)
		gotMessages = messages
		return "Refunds take 5 business days.", nil
	}

	svc := newService(fake, Defaults{})
	result, err := svc.Query(context.Background(), QueryRequest{
		IndexID: "vs-1",
		Query:   "How long do refunds take?",
	})
	require.NoError(t, err)

	assert.Equal(t, "Refunds take 5 business days.", result.Answer)
	// sources are deduped, in first-seen rank order
	assert.Equal(t, []string{"faq.md", "terms.md"}, result.Sources)

	require.Len(t, gotMessages, 3)
	assert.Equal(t, "system", gotMessages[0].Role)
	assert.Equal(t, "system", gotMessages[1].Role)
	assert.Contains(t, gotMessages[1].Content, "KNOWLEDGE BASE CONTEXT:")
	assert.Contains(t, gotMessages[1].Content, "[Chunk #1]")
	assert.Contains(t, gotMessages[1].Content, "Refunds take 5 business days.")
	assert.Equal(t, "user", gotMessages[2].Role)
	assert.Equal(t, "How long do refunds take?", gotMessages[2].Content)
}

func TestService_Query_EmptyQuery(t *testing.T) {
	svc := newService(storetest.New(), Defaults{})

	for _, q := range []string{"", "   ", "\n"} {
		_, err := svc.Query(context.Background(), QueryRequest{IndexID: "vs-1", Query: q})
		assert.True(t, services.IsValidationError(err))
	}
}

// TestService_Query_NoHits checks that a query with nothing retrieved still
// goes to the model, just without a context message. The system prompt makes
// the model admit it cannot answer.
func TestService_Query_NoHits(t *testing.T) {
	fake := storetest.New()
	fake.SearchFn = func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
		return nil, nil
	}
	var gotMessages []store.Message
	fake.ChatCompletionFn = func(ctx context.Context, model string, messages []store.Message) (string, error) {
		gotMessages = messages
		return "I don't have that information.", nil
	}

	svc := newService(fake, Defaults{})
	result, err := svc.Query(context.Background(), QueryRequest{IndexID: "vs-1", Query: "anything"})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Calls["ChatCompletion"])
	assert.Equal(t, "I don't have that information.", result.Answer)
	assert.Empty(t, result.Sources)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.RawContext)

	// no context message between the system prompt and the question
	require.Len(t, gotMessages, 2)
	assert.Equal(t, "system", gotMessages[0].Role)
	assert.NotContains(t, gotMessages[0].Content, "KNOWLEDGE BASE CONTEXT:")
	assert.Equal(t, "user", gotMessages[1].Role)
	assert.Equal(t, "anything", gotMessages[1].Content)
}

func TestService_Query_BlankChunksOnly(t *testing.T) {
	fake := storetest.New()
	fake.SearchFn = func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
		return []store.SearchHit{
			{FileID: "file-1", Filename: "faq.md", Text: "   "},
			{FileID: "file-2", Filename: "terms.md", Text: ""},
		}, nil
	}
	fake.ChatCompletionFn = func(ctx context.Context, model string, messages []store.Message) (string, error) {
		// blank chunks contribute no context message
		require.Len(t, messages, 2)
		return "I don't have that information.", nil
	}

	svc := newService(fake, Defaults{})
	result, err := svc.Query(context.Background(), QueryRequest{IndexID: "vs-1", Query: "anything"})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Calls["ChatCompletion"])
	assert.Empty(t, result.Sources)
	assert.Empty(t, result.RawContext)
}

func TestService_Query_NoIndexSelected(t *testing.T) {
	fake := storetest.New()
	svc := newService(fake, Defaults{})

	for _, id := range []string{"", "   "} {
		_, err := svc.Query(context.Background(), QueryRequest{IndexID: id, Query: "anything"})
		assert.True(t, services.IsPreconditionError(err))
		assert.ErrorIs(t, err, services.ErrNoIndexSelected)
	}
	assert.Equal(t, 0, fake.Calls["Search"])
}

func TestService_Query_IndexNotFound(t *testing.T) {
	fake := storetest.New()
	fake.SearchFn = func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
		return nil, store.NewStoreError("not_found", "no such store", 404, false, nil)
	}

	svc := newService(fake, Defaults{})
	_, err := svc.Query(context.Background(), QueryRequest{IndexID: "vs-missing", Query: "anything"})
	assert.True(t, services.IsNotFoundError(err))
}

func TestService_Query_TopKOverride(t *testing.T) {
	fake := storetest.New()
	fake.SearchFn = func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
		assert.Equal(t, 3, maxResults)
		return nil, nil
	}

	svc := newService(fake, Defaults{TopK: 10})
	_, err := svc.Query(context.Background(), QueryRequest{IndexID: "vs-1", Query: "q", TopK: 3})
	require.NoError(t, err)
}

func TestService_Query_MaxContextCharsOverride(t *testing.T) {
	big := strings.Repeat("c", 200)

	fake := storetest.New()
	fake.SearchFn = func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
		return []store.SearchHit{
			{FileID: "f1", Filename: "kept.md", Text: "short answer"},
			{FileID: "f2", Filename: "dropped.md", Text: big},
		}, nil
	}
	fake.ChatCompletionFn = func(ctx context.Context, model string, messages []store.Message) (string, error) {
		return "answer", nil
	}

	// the per-request budget shrinks the window below the service default
	svc := newService(fake, Defaults{MaxContextChars: 8000})
	result, err := svc.Query(context.Background(), QueryRequest{
		IndexID:         "vs-1",
		Query:           "q",
		MaxContextChars: 80,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"kept.md"}, result.Sources)
	assert.NotContains(t, result.RawContext, big)
	assert.LessOrEqual(t, len(result.RawContext), 80)
}

func TestAssembleContext_Budget(t *testing.T) {
	big := strings.Repeat("a", 120)
	small := "tiny chunk"

	hits := []store.SearchHit{
		{FileID: "f1", Filename: "big.md", Text: big},
		{FileID: "f2", Filename: "small.md", Text: small},
	}

	// budget fits the first chunk but not both; the second is dropped whole
	context1, sources1 := assembleContext(hits, 140)
	assert.Contains(t, context1, big)
	assert.NotContains(t, context1, small)
	assert.Equal(t, []string{"big.md"}, sources1)
	assert.LessOrEqual(t, len(context1), 140)

	// the first chunk already overflows; assembly stops rather than
	// truncating it mid-sentence
	context2, sources2 := assembleContext(hits, 50)
	assert.Empty(t, context2)
	assert.Empty(t, sources2)
}

func TestAssembleContext_SeparatorAndHeaders(t *testing.T) {
	hits := []store.SearchHit{
		{FileID: "f1", Filename: "a.md", Text: "alpha"},
		{FileID: "f2", Filename: "b.md", Text: "beta"},
	}

	text, sources := assembleContext(hits, 1000)
	assert.Equal(t, "[Chunk #1]\nalpha\n\n---\n\n[Chunk #2]\nbeta", text)
	assert.Equal(t, []string{"a.md", "b.md"}, sources)
}

func TestAssembleContext_FallsBackToFileID(t *testing.T) {
	hits := []store.SearchHit{{FileID: "file-9", Text: "no filename on this hit"}}

	_, sources := assembleContext(hits, 1000)
	assert.Equal(t, []string{"file-9"}, sources)
}

func TestService_Query_SourcesOnlyFromIncludedChunks(t *testing.T) {
	big := strings.Repeat("b", 300)

	fake := storetest.New()
	fake.SearchFn = func(ctx context.Context, storeID, query string, maxResults int) ([]store.SearchHit, error) {
		return []store.SearchHit{
			{FileID: "f1", Filename: "kept.md", Text: "short answer"},
			{FileID: "f2", Filename: "dropped.md", Text: big},
		}, nil
	}
	fake.ChatCompletionFn = func(ctx context.Context, model string, messages []store.Message) (string, error) {
		return "answer", nil
	}

	svc := newService(fake, Defaults{MaxContextChars: 100})
	result, err := svc.Query(context.Background(), QueryRequest{IndexID: "vs-1", Query: "q"})
	require.NoError(t, err)

	// a chunk dropped at the budget cut must not be cited
	assert.Equal(t, []string{"kept.md"}, result.Sources)
	assert.NotContains(t, result.RawContext, big)
	assert.LessOrEqual(t, len(result.RawContext), 100)
}

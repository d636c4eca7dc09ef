package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lzrong0203/newsspark/pkg/llmclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/store"
	"github.com/lzrong0203/newsspark/pkg/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingProvider stands in for an OpenAI-compatible embeddings
// endpoint, returning the same fixed vector for every request.
func fakeEmbeddingProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"object": "list",
			"model":  "test-embed",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEngine(t *testing.T) (*PersonalizationEngine, *Manager) {
	t.Helper()
	structStore, err := store.Open(store.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = structStore.Close() })

	backend, err := vectorstore.NewChromemBackend("")
	require.NoError(t, err)
	vecStore := vectorstore.New(backend)

	srv := fakeEmbeddingProvider(t)
	llm := llmclient.New("openai", "test-key", srv.URL, "chat-model", "embed-model")

	mgr := New(structStore, vecStore, llm)
	return NewPersonalizationEngine(mgr), mgr
}

func TestGetPersonalizedPrompt_AlwaysIncludesPreferences(t *testing.T) {
	engine, _ := newTestEngine(t)

	prompt, err := engine.GetPersonalizedPrompt(context.Background(), "alice", "base prompt", "quantum computing", "analyzer")

	require.NoError(t, err)
	assert.Contains(t, prompt, "base prompt")
	assert.Contains(t, prompt, "User preferences:")
}

func TestGetPersonalizedPrompt_IncludesTopicPreferenceWhenInputMentionsIt(t *testing.T) {
	engine, mgr := newTestEngine(t)
	ctx := context.Background()

	profile, err := mgr.GetOrCreateUser(ctx, "bob")
	require.NoError(t, err)
	profile.TopicPreferences = map[string]model.TopicPreference{
		"quantum computing": {InterestLevel: 0.9, Notes: "loves this topic"},
	}
	require.NoError(t, mgr.UpdateUserProfile(ctx, profile))

	prompt, err := engine.GetPersonalizedPrompt(ctx, "bob", "base prompt", "latest on quantum computing", "analyzer")

	require.NoError(t, err)
	assert.Contains(t, prompt, `Topic preference for "quantum computing"`)
	assert.Contains(t, prompt, "loves this topic")
}

func TestGetPersonalizedPrompt_IncludesBlockedSources(t *testing.T) {
	engine, mgr := newTestEngine(t)
	ctx := context.Background()

	profile, err := mgr.GetOrCreateUser(ctx, "carol")
	require.NoError(t, err)
	profile.BlockedSources = []string{"tabloid.example"}
	require.NoError(t, mgr.UpdateUserProfile(ctx, profile))

	prompt, err := engine.GetPersonalizedPrompt(ctx, "carol", "base prompt", "some topic", "analyzer")

	require.NoError(t, err)
	assert.Contains(t, prompt, "Blocked sources (never cite): tabloid.example")
}

func TestGetPersonalizedPrompt_IncludesRelevantCorrections(t *testing.T) {
	engine, mgr := newTestEngine(t)
	ctx := context.Background()

	_, err := mgr.GetOrCreateUser(ctx, "dave")
	require.NoError(t, err)
	err = mgr.StoreCorrection(ctx, &model.LearnedCorrection{
		CorrectionID: "corr-1",
		UserID:       "dave",
		Pattern:      "calls it ML",
		Correction:   "prefers 'machine learning' spelled out",
		Context:      "style",
		Confidence:   0.8,
	})
	require.NoError(t, err)

	prompt, err := engine.GetPersonalizedPrompt(ctx, "dave", "base prompt", "anything about ML", "analyzer")

	require.NoError(t, err)
	assert.Contains(t, prompt, "Past corrections from this user:")
	assert.Contains(t, prompt, "calls it ML")
}

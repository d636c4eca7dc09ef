package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lzrong0203/newsspark/pkg/llmclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/store"
	"github.com/lzrong0203/newsspark/pkg/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLMServer replies to chat requests with chatFixture in order and to
// every embeddings request with a fixed vector, so both ChatStructured and
// Embed calls in a FeedbackProcessor run can be exercised together.
func fakeLLMServer(t *testing.T, chatFixtures []string) *httptest.Server {
	t.Helper()
	var call int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/embeddings" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list", "model": "test-embed",
				"data": []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}}},
			})
			return
		}
		idx := int(atomic.AddInt32(&call, 1)) - 1
		if idx >= len(chatFixtures) {
			http.Error(w, "no fixture registered for call index", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": chatFixtures[idx]}, "finish_reason": "stop"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, srv *httptest.Server) *Manager {
	t.Helper()
	structStore, err := store.Open(store.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = structStore.Close() })

	backend, err := vectorstore.NewChromemBackend("")
	require.NoError(t, err)
	vecStore := vectorstore.New(backend)

	llm := llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model")
	return New(structStore, vecStore, llm)
}

func TestFeedbackProcessor_ProcessOne_StoresCorrectionAndMarksProcessed(t *testing.T) {
	srv := fakeLLMServer(t, []string{
		`{"pattern":"calls it ML","correction":"spell out machine learning","context":"style","confidence":0.75}`,
	})
	mgr := newTestManager(t, srv)
	fp := NewFeedbackProcessor(llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model"), mgr)
	ctx := context.Background()

	fb := model.UserFeedback{
		FeedbackID:      "fb-1",
		UserID:          "alice",
		OriginalContent: "calls it ML",
		UserCorrection:  "spell it out",
		AgentKind:       "synthesizer",
	}
	require.NoError(t, mgr.StoreFeedback(ctx, &fb))

	err := fp.ProcessOne(ctx, fb)
	require.NoError(t, err)

	corrections, err := mgr.GetCorrections(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, "calls it ML", corrections[0].Pattern)
	assert.InDelta(t, 0.75, corrections[0].Confidence, 0.0001)

	unprocessed, err := mgr.GetUnprocessedFeedback(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, unprocessed)
}

func TestFeedbackProcessor_ProcessOne_RecordsKnowledgeGraph(t *testing.T) {
	srv := fakeLLMServer(t, []string{
		`{"pattern":"wants more depth","correction":"add analysis","context":"style","confidence":0.6}`,
	})
	mgr := newTestManager(t, srv)
	fp := NewFeedbackProcessor(llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model"), mgr)
	ctx := context.Background()

	fb := model.UserFeedback{
		FeedbackID:      "fb-graph",
		UserID:          "carol",
		OriginalContent: "shallow summary",
		UserCorrection:  "go deeper",
		AgentKind:       "analyzer",
		Topics:          []string{"economy", "inflation", "housing"},
	}
	require.NoError(t, mgr.StoreFeedback(ctx, &fb))
	require.NoError(t, fp.ProcessOne(ctx, fb))

	exported, err := mgr.ExportUserData(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, exported.Nodes, 3)
	require.Len(t, exported.Edges, 2)
	assert.InDelta(t, 0.6, exported.Edges[0].Weight, 0.0001)

	names := make([]string, len(exported.Nodes))
	for i, n := range exported.Nodes {
		names[i] = n.Name
		assert.Equal(t, model.NodeTopic, n.NodeKind)
	}
	assert.ElementsMatch(t, []string{"economy", "inflation", "housing"}, names)
}

func TestFeedbackProcessor_ProcessAllPending_ContinuesPastPerItemFailure(t *testing.T) {
	srv := fakeLLMServer(t, []string{
		`not valid json`,
		`{"pattern":"p2","correction":"c2","context":"ctx2","confidence":0.5}`,
	})
	mgr := newTestManager(t, srv)
	fp := NewFeedbackProcessor(llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model"), mgr)
	ctx := context.Background()

	now := time.Now()
	fb1 := model.UserFeedback{FeedbackID: "fb-1", UserID: "bob", CreatedAt: now, OriginalContent: "x", UserCorrection: "y"}
	fb2 := model.UserFeedback{FeedbackID: "fb-2", UserID: "bob", CreatedAt: now.Add(time.Second), OriginalContent: "x2", UserCorrection: "y2"}
	require.NoError(t, mgr.StoreFeedback(ctx, &fb1))
	require.NoError(t, mgr.StoreFeedback(ctx, &fb2))

	var failures []string
	processed, err := fp.ProcessAllPending(ctx, "bob", func(fb model.UserFeedback, err error) {
		failures = append(failures, fb.FeedbackID)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"fb-1"}, failures)
}

package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/lzrong0203/newsspark/pkg/adapter"
	"github.com/lzrong0203/newsspark/pkg/agent"
	"github.com/lzrong0203/newsspark/pkg/coordinator"
	"github.com/lzrong0203/newsspark/pkg/llmclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNewsAdapter is a minimal adapter.Adapter stub so the news-gathering
// node has documents to pass downstream without any real network access.
type fakeNewsAdapter struct{}

func (f *fakeNewsAdapter) Name() string { return "fake-news" }

func (f *fakeNewsAdapter) Search(ctx context.Context, query string, maxResults int, language, region string) ([]model.Document, error) {
	return []model.Document{
		{URL: "https://news.example/" + query, Title: "about " + query, SourceName: "fake-news", SourceKind: model.SourceKindNews},
	}, nil
}

// chatRoutingServer replies to successive /chat/completions requests with
// fixtures in call order: the pipeline always calls decompose, then
// analyze, then synthesize, with no concurrency between them, so a simple
// ordered sequence stands in for every stage's chat-completion call.
func chatRoutingServer(t *testing.T, fixtures []string) *httptest.Server {
	t.Helper()
	var call int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := int(atomic.AddInt32(&call, 1)) - 1
		if idx >= len(fixtures) {
			http.Error(w, "no fixture registered for call index", http.StatusInternalServerError)
			return
		}
		body := map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": fixtures[idx]}, "finish_reason": "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOrchestrator_Run_FullPipelineProducesVideoBrief(t *testing.T) {
	srv := chatRoutingServer(t, []string{
		`{"sub_queries":["q1","q2"],"strategy":"broad","recommended_sources":["news"]}`,
		`{"topic":"quantum computing","key_insights":["a"],"controversies":[],
			"trending_angles":[],"sentiment_summary":"positive","recommended_hooks":[],"source_count":0,"confidence_score":0.8}`,
		`{"title_suggestion":"Big title","hook_line":"hook","key_talking_points":["p1"],
			"visual_suggestions":["v1"],"viral_score":0.9,"target_emotion":"surprise","controversy_level":"low",
			"call_to_action":"subscribe","hashtag_suggestions":["#x"],"platform_tips":{}}`,
	})
	llm := llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model")

	decomposer := agent.NewQueryDecomposer(llm)
	newsGatherer := agent.NewNewsGatherer(coordinator.NewNewsCoordinator([]adapter.Adapter{&fakeNewsAdapter{}}))
	socialGatherer := agent.NewSocialGatherer(nil, nil, nil)
	analyzer := agent.NewAnalyzer(llm)
	synth := agent.NewSynthesizer(llm)

	o := New(decomposer, newsGatherer, socialGatherer, analyzer, synth)

	req := model.ResearchRequest{Topic: "quantum computing", UserID: "alice", Depth: 2,
		Sources: []model.Source{model.SourceNews}, MaxResultsPerSource: 5}

	state := o.Run(context.Background(), req, nil, []string{"tiktok"})

	require.Equal(t, model.StepComplete, state.CurrentStep)
	require.NotNil(t, state.VideoBrief)
	assert.Equal(t, "Big title", state.VideoBrief.TitleSuggestion)
	assert.NotEmpty(t, state.SubQueries)
	assert.NotEmpty(t, state.NewsResults)
	assert.Empty(t, state.Error)
}

func TestOrchestrator_Run_NoDataFoundStopsAtSocialNode(t *testing.T) {
	srv := chatRoutingServer(t, []string{
		`{"sub_queries":["q1"],"strategy":"broad","recommended_sources":["news"]}`,
	})
	llm := llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model")

	decomposer := agent.NewQueryDecomposer(llm)
	newsGatherer := agent.NewNewsGatherer(coordinator.NewNewsCoordinator(nil))
	socialGatherer := agent.NewSocialGatherer(nil, nil, nil)
	analyzer := agent.NewAnalyzer(llm)
	synth := agent.NewSynthesizer(llm)

	o := New(decomposer, newsGatherer, socialGatherer, analyzer, synth)

	req := model.ResearchRequest{Topic: "quantum computing", UserID: "alice", Depth: 2,
		Sources: []model.Source{model.SourceNews}, MaxResultsPerSource: 5}

	state := o.Run(context.Background(), req, nil, []string{"tiktok"})

	assert.Equal(t, model.StepError, state.CurrentStep)
	assert.Contains(t, state.Error, "no data gathered")
	assert.Contains(t, state.Error, "quantum computing")
}

func TestOrchestrator_Run_DecomposeFailureStopsImmediately(t *testing.T) {
	srv := chatRoutingServer(t, []string{`{"sub_queries":[],"strategy":"","recommended_sources":[]}`})
	llm := llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model")

	decomposer := agent.NewQueryDecomposer(llm)
	newsGatherer := agent.NewNewsGatherer(coordinator.NewNewsCoordinator(nil))
	socialGatherer := agent.NewSocialGatherer(nil, nil, nil)
	analyzer := agent.NewAnalyzer(llm)
	synth := agent.NewSynthesizer(llm)

	o := New(decomposer, newsGatherer, socialGatherer, analyzer, synth)

	req := model.ResearchRequest{Topic: "quantum computing", UserID: "alice", Depth: 2,
		Sources: []model.Source{model.SourceNews}, MaxResultsPerSource: 5}

	state := o.Run(context.Background(), req, nil, nil)

	assert.Equal(t, model.StepError, state.CurrentStep)
	assert.Contains(t, state.Error, "query decomposition failed")
}

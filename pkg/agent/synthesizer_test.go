package agent

import (
	"context"
	"testing"

	"github.com/lzrong0203/newsspark/pkg/llmclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMin1(t *testing.T) {
	assert.Equal(t, 1.0, min1(1.5))
	assert.Equal(t, 0.5, min1(0.5))
	assert.Equal(t, 0.0, min1(0))
}

func TestBuildSourceRefs(t *testing.T) {
	docs := []model.Document{
		{Title: "t1", URL: "https://x.example/1", SourceKind: model.SourceKindNews},
	}
	refs := buildSourceRefs(docs)
	require.Len(t, refs, 1)
	assert.Equal(t, "t1", refs[0].Title)
	assert.Equal(t, model.SourceKindNews, refs[0].Kind)
}

func TestBuildPlatformVariants_MergesDefaultsWithLLMTips(t *testing.T) {
	tips := map[string][]string{"tiktok": {"hook fast", "use captions"}}
	variants := buildPlatformVariants([]string{"tiktok", "unknown-platform"}, tips)

	require.Len(t, variants, 2)
	assert.Equal(t, "tiktok", variants[0].Platform)
	assert.Equal(t, []string{"hook fast", "use captions"}, variants[0].Tips)
	assert.Equal(t, "180", variants[0].Metadata["max_duration_seconds"])

	assert.Equal(t, "unknown-platform", variants[1].Platform)
	assert.Empty(t, variants[1].Tips)
}

func TestFormatAnalysisForPrompt_IncludesAllSections(t *testing.T) {
	a := model.AnalysisResult{
		SentimentSummary: "mixed",
		ConfidenceScore:  0.6,
		KeyInsights:      []string{"insight one"},
		Controversies:    []string{"controversy one"},
		TrendingAngles:   []string{"angle one"},
	}
	out := formatAnalysisForPrompt(a)
	assert.Contains(t, out, "sentiment: mixed")
	assert.Contains(t, out, "insight one")
	assert.Contains(t, out, "controversy one")
	assert.Contains(t, out, "angle one")
}

func TestSynthesizer_Synthesize_ComputesConfidenceScoreDeterministically(t *testing.T) {
	srv := chatFixtureServer(t, `{"title_suggestion":"Big title","hook_line":"hook","key_talking_points":["p1"],
		"visual_suggestions":["v1"],"viral_score":0.9,"target_emotion":"surprise","controversy_level":"low",
		"call_to_action":"subscribe","hashtag_suggestions":["#x"],"platform_tips":{"tiktok":["fast cuts"]}}`)
	llm := llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model")
	s := NewSynthesizer(llm)

	analysis := model.AnalysisResult{ConfidenceScore: 0.8}
	docs := make([]model.Document, 5)

	result := s.Synthesize(context.Background(), "quantum computing", analysis, docs, []string{"tiktok"})

	require.True(t, result.OK)
	assert.InDelta(t, 0.8*0.7+0.3*0.5, result.Data.ConfidenceScore, 0.0001)
	assert.Equal(t, "Big title", result.Data.TitleSuggestion)
	require.Len(t, result.Data.PlatformVariants, 1)
	assert.Equal(t, []string{"fast cuts"}, result.Data.PlatformVariants[0].Tips)
}

func TestSynthesizer_Synthesize_LLMFailurePropagates(t *testing.T) {
	srv := chatFixtureServer(t, `not valid json`)
	llm := llmclient.New("openai", "key", srv.URL, "chat-model", "embed-model")
	s := NewSynthesizer(llm)

	result := s.Synthesize(context.Background(), "topic", model.AnalysisResult{}, nil, nil)

	assert.False(t, result.OK)
	assert.Equal(t, "LlmSynthesisFailed", result.ErrorKind)
}

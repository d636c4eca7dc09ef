package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResearchRequest_SetDefaults(t *testing.T) {
	t.Run("fills all zero-value fields", func(t *testing.T) {
		req := ResearchRequest{Topic: "quantum computing"}
		req.SetDefaults()

		assert.Equal(t, "zh-TW", req.Language)
		assert.Equal(t, "neutral", req.Tone)
		assert.ElementsMatch(t, AllSources, req.Sources)
	})

	t.Run("leaves caller-supplied fields untouched", func(t *testing.T) {
		req := ResearchRequest{
			Topic:    "quantum computing",
			Language: "en-US",
			Sources:  []Source{SourceNews},
			Tone:     "playful",
		}
		req.SetDefaults()

		assert.Equal(t, "en-US", req.Language)
		assert.Equal(t, "playful", req.Tone)
		assert.Equal(t, []Source{SourceNews}, req.Sources)
	})
}

func TestResearchRequest_Validate(t *testing.T) {
	valid := func() ResearchRequest {
		req := ResearchRequest{Topic: "quantum computing", Depth: 3, MaxResultsPerSource: 10}
		req.SetDefaults()
		return req
	}

	t.Run("accepts a well-formed request", func(t *testing.T) {
		req := valid()
		require.NoError(t, req.Validate())
	})

	t.Run("rejects an empty topic", func(t *testing.T) {
		req := valid()
		req.Topic = "   "
		assert.Error(t, req.Validate())
	})

	t.Run("rejects depth out of [1,5]", func(t *testing.T) {
		req := valid()
		req.Depth = 0
		assert.Error(t, req.Validate())

		req.Depth = 6
		assert.Error(t, req.Validate())
	})

	t.Run("rejects max_results_per_source out of [1,50]", func(t *testing.T) {
		req := valid()
		req.MaxResultsPerSource = 0
		assert.Error(t, req.Validate())

		req.MaxResultsPerSource = 51
		assert.Error(t, req.Validate())
	})

	t.Run("rejects an unknown source", func(t *testing.T) {
		req := valid()
		req.Sources = []Source{"carrier-pigeon"}
		assert.Error(t, req.Validate())
	})
}

func TestResearchRequest_SubQueryBounds(t *testing.T) {
	cases := []struct {
		depth   int
		wantMin int
		wantMax int
	}{
		{depth: 1, wantMin: 2, wantMax: 2},
		{depth: 2, wantMin: 2, wantMax: 3},
		{depth: 3, wantMin: 3, wantMax: 4},
		{depth: 5, wantMin: 5, wantMax: 5},
	}

	for _, tc := range cases {
		req := ResearchRequest{Depth: tc.depth}
		assert.Equal(t, tc.wantMin, req.MinSubQueries(), "depth=%d", tc.depth)
		assert.Equal(t, tc.wantMax, req.MaxSubQueries(), "depth=%d", tc.depth)
	}
}

func TestResearchRequest_HasSource(t *testing.T) {
	req := ResearchRequest{Sources: []Source{SourceNews, SourceForum}}
	assert.True(t, req.HasSource(SourceNews))
	assert.True(t, req.HasSource(SourceForum))
	assert.False(t, req.HasSource(SourceSocial))
}

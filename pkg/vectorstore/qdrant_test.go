package vectorstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertQdrantResults(t *testing.T) {
	points := []*qdrant.ScoredPoint{
		{
			Id:    &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: "abc-123"}},
			Score: 0.87,
			Payload: map[string]*qdrant.Value{
				"content": {Kind: &qdrant.Value_StringValue{StringValue: "the correction text"}},
				"pattern": {Kind: &qdrant.Value_StringValue{StringValue: "calls it ML"}},
			},
		},
	}

	results := convertQdrantResults(points)

	require.Len(t, results, 1)
	assert.Equal(t, "abc-123", results[0].ID)
	assert.InDelta(t, 0.87, results[0].Score, 0.0001)
	assert.Equal(t, "the correction text", results[0].Content)
	assert.Equal(t, "calls it ML", results[0].Metadata["pattern"])
	_, hasContentKey := results[0].Metadata["content"]
	assert.False(t, hasContentKey, "content is split out of metadata, not duplicated into it")
}

func TestConvertQdrantResults_NumericID(t *testing.T) {
	points := []*qdrant.ScoredPoint{
		{
			Id:    &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: 42}},
			Score: 0.5,
		},
	}

	results := convertQdrantResults(points)

	require.Len(t, results, 1)
	assert.Equal(t, "42", results[0].ID)
}

func TestConvertQdrantResults_Empty(t *testing.T) {
	assert.Empty(t, convertQdrantResults(nil))
}

func TestNewQdrantBackend_AppliesDefaults(t *testing.T) {
	b, err := NewQdrantBackend(QdrantConfig{})
	require.NoError(t, err)
	assert.Equal(t, "localhost", b.config.Host)
	assert.Equal(t, 6334, b.config.Port)
	assert.Equal(t, "qdrant", b.Name())
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_UserRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown user returns (nil, nil)")

	profile := model.NewDefaultUserProfile("alice", time.Now())
	require.NoError(t, s.PutUser(ctx, profile))

	got, err = s.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, model.StyleCasual, got.PreferredStyle)

	profile.DisplayName = "Alice Smith"
	require.NoError(t, s.PutUser(ctx, profile))

	got, err = s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", got.DisplayName)
}

func TestStore_FeedbackLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fb := &model.UserFeedback{
		FeedbackID:     "fb1",
		UserID:         "alice",
		CreatedAt:      time.Now(),
		FeedbackKind:   model.FeedbackCorrection,
		Severity:       model.SeverityMinor,
		UserCorrection: "actually the headline misquoted the source",
	}
	require.NoError(t, s.StoreFeedback(ctx, fb))

	unprocessed, err := s.GetUnprocessedFeedback(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, "fb1", unprocessed[0].FeedbackID)

	require.NoError(t, s.MarkFeedbackProcessed(ctx, "fb1", time.Now()))

	unprocessed, err = s.GetUnprocessedFeedback(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, unprocessed)
}

func TestStore_CorrectionsOrderedByConfidenceThenRecency(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	low := model.NewLearnedCorrection("c-low", "alice", "pattern a", "fix a", "ctx", now)
	low.Confidence = 0.2
	high := model.NewLearnedCorrection("c-high", "alice", "pattern b", "fix b", "ctx", now.Add(time.Second))
	high.Confidence = 0.9

	require.NoError(t, s.StoreCorrection(ctx, low))
	require.NoError(t, s.StoreCorrection(ctx, high))

	corrections, err := s.GetCorrections(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, corrections, 2)
	assert.Equal(t, "c-high", corrections[0].CorrectionID)
	assert.Equal(t, "c-low", corrections[1].CorrectionID)
}

func TestStore_KnowledgeNodesByTopic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutKnowledgeNode(ctx, &model.KnowledgeNode{
		NodeID: "n1", UserID: "alice", NodeKind: model.NodeTopic, Name: "quantum computing",
	}))
	require.NoError(t, s.PutKnowledgeNode(ctx, &model.KnowledgeNode{
		NodeID: "n2", UserID: "alice", NodeKind: model.NodeEntity, Name: "IBM",
	}))

	nodes, err := s.FindKnowledgeNodesByTopic(ctx, "alice", "quantum")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "n1", nodes[0].NodeID)
}

func TestStore_DeleteUserCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile := model.NewDefaultUserProfile("alice", time.Now())
	require.NoError(t, s.PutUser(ctx, profile))
	require.NoError(t, s.StoreFeedback(ctx, &model.UserFeedback{FeedbackID: "fb1", UserID: "alice", CreatedAt: time.Now()}))
	require.NoError(t, s.StoreCorrection(ctx, model.NewLearnedCorrection("c1", "alice", "p", "f", "ctx", time.Now())))
	require.NoError(t, s.PutKnowledgeNode(ctx, &model.KnowledgeNode{NodeID: "n1", UserID: "alice", NodeKind: model.NodeTopic, Name: "ai"}))

	require.NoError(t, s.DeleteUser(ctx, "alice"))

	got, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	corrections, err := s.GetCorrections(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, corrections)
}

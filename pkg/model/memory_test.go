package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultUserProfile(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	profile := NewDefaultUserProfile("alice", now)

	assert.Equal(t, "alice", profile.UserID)
	assert.Equal(t, "zh-TW", profile.Language)
	assert.Equal(t, StyleCasual, profile.PreferredStyle)
	assert.Equal(t, DepthStandard, profile.AnalysisDepth)
	assert.True(t, profile.AutoLearnFromFeedback)
	assert.Equal(t, 0.5, profile.FeedbackWeight)
	assert.NotNil(t, profile.TopicPreferences)
}

func TestLearnedCorrection_ConfirmReject(t *testing.T) {
	now := time.Now()

	t.Run("Confirm raises confidence and counters", func(t *testing.T) {
		c := NewLearnedCorrection("c1", "alice", "pattern", "fix", "context", now)
		c.Confirm()

		assert.InDelta(t, 0.55, c.Confidence, 1e-9)
		assert.Equal(t, 1, c.TimesConfirmed)
		assert.Equal(t, 0, c.TimesRejected)
		assert.Equal(t, 1, c.TimesApplied)
	})

	t.Run("Reject lowers confidence and counters", func(t *testing.T) {
		c := NewLearnedCorrection("c1", "alice", "pattern", "fix", "context", now)
		c.Reject()

		assert.InDelta(t, 0.4, c.Confidence, 1e-9)
		assert.Equal(t, 1, c.TimesRejected)
		assert.Equal(t, 1, c.TimesApplied)
	})

	t.Run("Confidence stays within [0,1] and counters stay consistent", func(t *testing.T) {
		c := NewLearnedCorrection("c1", "alice", "pattern", "fix", "context", now)
		for i := 0; i < 20; i++ {
			c.Confirm()
		}
		assert.LessOrEqual(t, c.Confidence, 1.0)

		for i := 0; i < 20; i++ {
			c.Reject()
		}
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.Equal(t, c.TimesConfirmed+c.TimesRejected, c.TimesApplied)
	})
}

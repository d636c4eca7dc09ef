package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Validate(t *testing.T) {
	t.Run("accepts a well-formed document", func(t *testing.T) {
		d := Document{URL: "https://example.com/article", SourceKind: SourceKindNews}
		require.NoError(t, d.Validate())
	})

	t.Run("rejects an empty url", func(t *testing.T) {
		d := Document{SourceKind: SourceKindNews}
		assert.Error(t, d.Validate())
	})

	t.Run("rejects a relative url", func(t *testing.T) {
		d := Document{URL: "/article", SourceKind: SourceKindNews}
		assert.Error(t, d.Validate())
	})

	t.Run("rejects a non-http(s) scheme", func(t *testing.T) {
		d := Document{URL: "ftp://example.com/article", SourceKind: SourceKindNews}
		assert.Error(t, d.Validate())
	})

	t.Run("rejects a missing source kind", func(t *testing.T) {
		d := Document{URL: "https://example.com/article"}
		assert.Error(t, d.Validate())
	})
}

func TestDocument_PublishedOrMin(t *testing.T) {
	t.Run("missing published date sorts as the zero time", func(t *testing.T) {
		d := Document{}
		assert.True(t, d.PublishedOrMin().IsZero())
	})

	t.Run("returns the published time when set", func(t *testing.T) {
		when := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		d := Document{PublishedAt: &when}
		assert.Equal(t, when, d.PublishedOrMin())
	})
}

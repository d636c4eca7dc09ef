package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel...", truncate("hello", 3))
}

func TestProfessionalSocialAdapter_IsOwnURL(t *testing.T) {
	a := NewProfessionalSocialAdapter("linkedin", []string{"www.linkedin.com"}, nil, nil)

	assert.True(t, a.isOwnURL("https://www.linkedin.com/posts/example"))
	assert.False(t, a.isOwnURL("https://other.example/posts/example"))
	assert.False(t, a.isOwnURL("not a url"))
	assert.False(t, a.isOwnURL("/relative/path"))
}

func TestProfessionalSocialAdapter_Search_NonOwnURLYieldsEmptyResult(t *testing.T) {
	a := NewProfessionalSocialAdapter("linkedin", []string{"www.linkedin.com"}, nil, nil)

	docs, err := a.Search(context.Background(), "quantum computing", 10, "en", "")

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestExtractArticleOrMeta_PrefersArticleMarkup(t *testing.T) {
	html := `<html><body><article><h1>Real title</h1><div class="article-content">Real content</div></article>
	<div class="author-info__name">Alice</div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	title, content, author, _ := extractArticleOrMeta(doc)
	assert.Equal(t, "Real title", title)
	assert.Equal(t, "Real content", content)
	assert.Equal(t, "Alice", author)
}

func TestExtractArticleOrMeta_FallsBackToOpenGraph(t *testing.T) {
	html := `<html><head>
	<meta property="og:title" content="OG title">
	<meta property="og:description" content="OG description">
	<meta property="og:image" content="https://cdn.example/img.png">
	</head><body></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	title, content, _, imageURL := extractArticleOrMeta(doc)
	assert.Equal(t, "OG title", title)
	assert.Equal(t, "OG description", content)
	assert.Equal(t, "https://cdn.example/img.png", imageURL)
}

func TestProfessionalSocialAdapter_Name(t *testing.T) {
	a := NewProfessionalSocialAdapter("linkedin", nil, nil, nil)
	assert.Equal(t, "professional_social:linkedin", a.Name())
}

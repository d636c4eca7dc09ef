package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/httpclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/ratelimit"
	"github.com/lzrong0203/newsspark/pkg/urlguard"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIAdapter queries an authenticated news-search JSON endpoint.
type NewsAPIAdapter struct {
	deps
	provider string
	apiKey   string
	baseURL  string
}

// NewNewsAPIAdapter builds a NewsAPIAdapter. An empty apiKey is a
// configuration error raised at construction rather than deferred to the
// first search, since no request can ever succeed without it.
func NewNewsAPIAdapter(provider, apiKey string, httpClient *httpclient.Client, limiter *ratelimit.Limiter) (*NewsAPIAdapter, error) {
	if apiKey == "" {
		return nil, newssparkerrors.NewAdapterConfigError("news_api", "api_key", "api key is required")
	}
	return &NewsAPIAdapter{
		deps:     deps{http: httpClient, limiter: limiter},
		provider: provider,
		apiKey:   apiKey,
		baseURL:  newsAPIBaseURL,
	}, nil
}

func (a *NewsAPIAdapter) Name() string { return "news_api:" + a.provider }

type newsAPIResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	PublishedAt string `json:"publishedAt"`
	URLToImage  string `json:"urlToImage"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

func (a *NewsAPIAdapter) Search(ctx context.Context, query string, maxResults int, language, region string) ([]model.Document, error) {
	if err := a.acquire(ctx, a.Name()); err != nil {
		return nil, err
	}

	pageSize := maxResults
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(pageSize))
	if language != "" {
		params.Set("language", normalizeLanguage(language))
	}

	endpoint := fmt.Sprintf("%s/everything?%s", a.baseURL, params.Encode())
	if err := urlguard.Allow(endpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), endpoint, "build request", err)
	}
	req.Header.Set("X-Api-Key", a.apiKey)
	req.Header.Set("User-Agent", "newsspark-research-bot/1.0")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), endpoint, "fetch failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), endpoint, "read body", err)
	}

	var parsed newsAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), endpoint, "decode json", err)
	}
	if parsed.Status != "ok" {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), endpoint, "upstream error: "+parsed.Message, nil)
	}

	docs := make([]model.Document, 0, len(parsed.Articles))
	now := time.Now()
	for _, article := range parsed.Articles {
		if article.Title == "[Removed]" || article.URL == "" {
			continue
		}
		content := article.Description
		if content == "" {
			content = article.Content
		}
		var published *time.Time
		if article.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
				published = &t
			}
		}
		sourceOrigin := article.Source.Name
		if sourceOrigin == "" {
			sourceOrigin = "Unknown"
		}
		docs = append(docs, model.Document{
			Title:       article.Title,
			URL:         article.URL,
			Content:     content,
			SourceKind:  model.SourceKindNews,
			SourceName:  fmt.Sprintf("%s:%s", a.provider, sourceOrigin),
			Author:      article.Author,
			PublishedAt: published,
			ScrapedAt:   now,
			Language:    language,
			Region:      region,
			ImageURL:    article.URLToImage,
		})
	}
	return docs, nil
}

func normalizeLanguage(lang string) string {
	switch lang {
	case "zh-TW", "zh-CN", "zh":
		return "zh"
	default:
		if len(lang) >= 2 {
			return lang[:2]
		}
		return lang
	}
}

package adapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/httpclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/ratelimit"
	"github.com/lzrong0203/newsspark/pkg/urlguard"
)

// rssFeed is the minimal RSS 2.0 shape this adapter needs. No RSS-parsing
// library is available anywhere in the dependency surface this module
// draws on, so this is decoded with the standard library directly rather
// than through a third-party feed parser.
type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Author      string `xml:"author"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// NewsRSSAdapter fetches and parses an unauthenticated RSS feed. A single
// instance is bound to one feed URL; the search query is a client-side
// keyword filter since most RSS feeds have no server-side search.
type NewsRSSAdapter struct {
	deps
	sourceName string
	feedURL    string
}

func NewNewsRSSAdapter(sourceName, feedURL string, httpClient *httpclient.Client, limiter *ratelimit.Limiter) *NewsRSSAdapter {
	return &NewsRSSAdapter{
		deps:       deps{http: httpClient, limiter: limiter},
		sourceName: sourceName,
		feedURL:    feedURL,
	}
}

func (a *NewsRSSAdapter) Name() string { return "news_rss:" + a.sourceName }

func (a *NewsRSSAdapter) Search(ctx context.Context, query string, maxResults int, language, region string) ([]model.Document, error) {
	if err := a.acquire(ctx, a.Name()); err != nil {
		return nil, err
	}
	if err := urlguard.Allow(a.feedURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.feedURL, nil)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), a.feedURL, "build request", err)
	}
	req.Header.Set("User-Agent", "newsspark-research-bot/1.0")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), a.feedURL, "fetch failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), a.feedURL, "read body", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), a.feedURL, "parse rss", err)
	}

	keywords := splitKeywords(query)
	now := time.Now()

	docs := make([]model.Document, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if item.Link == "" {
			continue
		}
		if len(keywords) > 0 && !matchesAnyKeyword(item.Title+" "+item.Description, keywords) {
			continue
		}

		var published *time.Time
		if item.PubDate != "" {
			if t, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
				published = &t
			} else if t, err := time.Parse(time.RFC1123, item.PubDate); err == nil {
				published = &t
			}
		}

		docs = append(docs, model.Document{
			Title:       item.Title,
			URL:         item.Link,
			Content:     item.Description,
			SourceKind:  model.SourceKindNews,
			SourceName:  fmt.Sprintf("%s:rss", a.sourceName),
			Author:      item.Author,
			PublishedAt: published,
			ScrapedAt:   now,
			Language:    language,
			Region:      region,
		})
		if len(docs) >= maxResults {
			break
		}
	}
	return docs, nil
}

// splitKeywords and matchesAnyKeyword are shared by the RSS and forum
// adapters, both of which implement "OR over whitespace-split keywords"
// client-side filtering: the filter matches if *any* keyword is found,
// not all.
func splitKeywords(query string) []string {
	return strings.Fields(query)
}

func matchesAnyKeyword(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

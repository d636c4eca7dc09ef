package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/httpclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/ratelimit"
	"github.com/lzrong0203/newsspark/pkg/urlguard"
)

// ProfessionalSocialAdapter fetches a single public page from a
// professional-network platform. The platform requires a login for search
// and for most feed content, so this adapter is URL-only: it has nothing
// useful to do with a bare keyword query and returns an empty result for
// one, rather than guessing at an unauthenticated search endpoint.
type ProfessionalSocialAdapter struct {
	deps
	platform string
	allowedHosts []string
}

func NewProfessionalSocialAdapter(platform string, allowedHosts []string, httpClient *httpclient.Client, limiter *ratelimit.Limiter) *ProfessionalSocialAdapter {
	return &ProfessionalSocialAdapter{
		deps:         deps{http: httpClient, limiter: limiter},
		platform:     platform,
		allowedHosts: allowedHosts,
	}
}

func (a *ProfessionalSocialAdapter) Name() string { return "professional_social:" + a.platform }

// Search only does useful work when query is itself a URL on one of the
// platform's own hosts; a plain keyword query yields nothing, matching the
// unauthenticated-search gap.
func (a *ProfessionalSocialAdapter) Search(ctx context.Context, query string, maxResults int, language, region string) ([]model.Document, error) {
	if !a.isOwnURL(query) {
		return []model.Document{}, nil
	}
	doc, err := a.FetchURL(ctx, query, language)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return []model.Document{}, nil
	}
	return []model.Document{*doc}, nil
}

func (a *ProfessionalSocialAdapter) isOwnURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range a.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

// FetchURL retrieves one page the caller already has the URL for (an
// article, a post, a company page) and extracts whatever OpenGraph
// metadata and article markup is visible without authentication. It
// returns a nil Document, nil error when the page carries neither a title
// nor usable content, distinguishing "fetched but empty" from a transport
// failure.
func (a *ProfessionalSocialAdapter) FetchURL(ctx context.Context, pageURL, language string) (*model.Document, error) {
	if err := a.acquire(ctx, a.Name()); err != nil {
		return nil, err
	}
	if err := urlguard.Allow(pageURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), pageURL, "build request", err)
	}
	req.Header.Set("User-Agent", "newsspark-research-bot/1.0")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), pageURL, "fetch failed", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, newssparkerrors.NewAdapterTransportError(a.Name(), pageURL, "parse html", err)
	}

	title, content, author, imageURL := extractArticleOrMeta(doc)
	if title == "" && content == "" {
		return nil, nil
	}
	if title == "" {
		title = truncate(content, 100)
	}

	sourceName := a.platform
	if companyName := strings.TrimSpace(doc.Find(".org-top-card-summary__title").First().Text()); companyName != "" {
		sourceName = fmt.Sprintf("%s:%s", a.platform, companyName)
	}

	return &model.Document{
		Title:      title,
		URL:        pageURL,
		Content:    content,
		SourceKind: model.SourceKindSocial,
		SourceName: sourceName,
		Author:     author,
		ScrapedAt:  time.Now(),
		Language:   language,
		ImageURL:   imageURL,
	}, nil
}

// extractArticleOrMeta tries article-body selectors first, then falls back
// to OpenGraph meta tags, which are present even on pages that otherwise
// require a session to render their feed content.
func extractArticleOrMeta(doc *goquery.Document) (title, content, author, imageURL string) {
	if article := doc.Find("article").First(); article.Length() > 0 {
		title = strings.TrimSpace(article.Find("h1").First().Text())
		content = strings.TrimSpace(article.Find(".article-content").First().Text())
	}
	author = strings.TrimSpace(doc.Find(".author-info__name").First().Text())

	if content == "" {
		if post := doc.Find(".feed-shared-update-v2__description").First(); post.Length() > 0 {
			content = strings.TrimSpace(post.Text())
			if title == "" {
				title = truncate(content, 100)
			}
		}
		if author == "" {
			author = strings.TrimSpace(doc.Find(".update-components-actor__name").First().Text())
		}
	}

	if title == "" {
		title, _ = doc.Find(`meta[property="og:title"]`).First().Attr("content")
	}
	if content == "" {
		content, _ = doc.Find(`meta[property="og:description"]`).First().Attr("content")
	}
	imageURL, _ = doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return title, content, author, imageURL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

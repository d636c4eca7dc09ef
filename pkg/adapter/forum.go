package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/httpclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/ratelimit"
	"github.com/lzrong0203/newsspark/pkg/urlguard"
)

var boardNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ForumAdapter scrapes a threaded web forum's board index. The board
// exposes no search API, so Search fetches the latest N pages and filters
// client-side by keyword.
type ForumAdapter struct {
	deps
	baseURL   string
	board     string
	pages     int
	over18Key string
}

// NewForumAdapter validates board against the allowed pattern up front;
// an invalid name can never produce a valid fetch URL.
func NewForumAdapter(baseURL, board string, pages int, httpClient *httpclient.Client, limiter *ratelimit.Limiter) (*ForumAdapter, error) {
	if !boardNamePattern.MatchString(board) {
		return nil, newssparkerrors.NewInvalidBoardName(board)
	}
	if pages < 1 {
		pages = 3
	}
	return &ForumAdapter{
		deps:      deps{http: httpClient, limiter: limiter},
		baseURL:   baseURL,
		board:     board,
		pages:     pages,
		over18Key: "over18",
	}, nil
}

func (a *ForumAdapter) Name() string { return "forum:" + a.board }

// forumEntry is one board-index row, before content fetch.
type forumEntry struct {
	title     string
	url       string
	author    string
	pushCount int
}

// hotSortPrefix is a query token callers can mix into an otherwise
// plain keyword query (e.g. "sort:hot taiwan election") to have Search
// rank by push count instead of board order. It isn't a separate
// Adapter method since Search's signature is shared across every
// source kind.
const hotSortPrefix = "sort:hot"

func (a *ForumAdapter) Search(ctx context.Context, query string, maxResults int, language, region string) ([]model.Document, error) {
	query, sortHot := extractHotSort(query)

	var entries []forumEntry
	var err error
	if sortHot {
		entries, err = a.hotArticles(ctx, 0)
	} else {
		entries, err = a.fetchBoardEntries(ctx)
	}
	if err != nil {
		return nil, err
	}

	keywords := splitKeywords(query)
	docs := make([]model.Document, 0, maxResults)
	now := time.Now()

	for _, e := range entries {
		if len(keywords) > 0 && !matchesAnyKeyword(e.title, keywords) {
			continue
		}
		docs = append(docs, model.Document{
			Title:      e.title,
			URL:        e.url,
			SourceKind: model.SourceKindForum,
			SourceName: fmt.Sprintf("forum:%s", a.board),
			Author:     e.author,
			ScrapedAt:  now,
			Language:   language,
			Region:     region,
			Engagement: &model.Engagement{Likes: e.pushCount},
		})
		if len(docs) >= maxResults {
			break
		}
	}
	return docs, nil
}

// extractHotSort strips hotSortPrefix from query if present, reporting
// whether it was found, so the remaining text can still be used for
// keyword filtering.
func extractHotSort(query string) (string, bool) {
	fields := strings.Fields(query)
	kept := fields[:0]
	found := false
	for _, f := range fields {
		if strings.EqualFold(f, hotSortPrefix) {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " "), found
}

// hotArticles returns entries at or above minPushes, sorted by push count
// descending. Search calls it instead of fetchBoardEntries when the
// query carries the hotSortPrefix hint.
func (a *ForumAdapter) hotArticles(ctx context.Context, minPushes int) ([]forumEntry, error) {
	entries, err := a.fetchBoardEntries(ctx)
	if err != nil {
		return nil, err
	}
	return hotArticlesFrom(entries, minPushes), nil
}

// hotArticlesFrom is hotArticles' filter-and-sort logic, split out so it
// can be tested against fixed entries without a network round trip.
func hotArticlesFrom(entries []forumEntry, minPushes int) []forumEntry {
	hot := entries[:0:0]
	for _, e := range entries {
		if e.pushCount >= minPushes {
			hot = append(hot, e)
		}
	}
	sort.Slice(hot, func(i, j int) bool { return hot[i].pushCount > hot[j].pushCount })
	return hot
}

func (a *ForumAdapter) fetchBoardEntries(ctx context.Context) ([]forumEntry, error) {
	pageURL := fmt.Sprintf("%s/bbs/%s/index.html", a.baseURL, a.board)
	var entries []forumEntry

	for i := 0; i < a.pages; i++ {
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
		req.AddCookie(&http.Cookie{Name: a.over18Key, Value: "1"})
		req.Header.Set("User-Agent", "newsspark-research-bot/1.0")

		resp, err := a.http.Do(req)
		if err != nil {
			return nil, newssparkerrors.NewAdapterTransportError(a.Name(), pageURL, "fetch failed", err)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, newssparkerrors.NewAdapterTransportError(a.Name(), pageURL, "parse html", err)
		}

		doc.Find("div.r-ent").Each(func(_ int, s *goquery.Selection) {
			if entry, ok := parseForumEntry(s, a.baseURL, a.board); ok {
				entries = append(entries, entry)
			}
		})

		prevHref, ok := findPreviousPageHref(doc)
		if !ok {
			break
		}
		next, err := resolveRelative(a.baseURL, prevHref)
		if err != nil {
			break
		}
		pageURL = next
	}

	return entries, nil
}

func parseForumEntry(s *goquery.Selection, baseURL, board string) (forumEntry, bool) {
	titleLink := s.Find("div.title a")
	title := strings.TrimSpace(titleLink.Text())
	href, hasHref := titleLink.Attr("href")
	if title == "" || !hasHref {
		return forumEntry{}, false
	}
	absURL, err := resolveRelative(baseURL, href)
	if err != nil {
		return forumEntry{}, false
	}

	pushText := strings.TrimSpace(s.Find("div.nrec").Text())
	pushCount := parsePushCount(pushText)

	author := strings.TrimSpace(s.Find("div.author").Text())

	return forumEntry{title: title, url: absURL, author: author, pushCount: pushCount}, true
}

func parsePushCount(text string) int {
	switch {
	case text == "爆":
		return 100
	case strings.HasPrefix(text, "X"):
		return -10
	default:
		if n, err := strconv.Atoi(text); err == nil {
			return n
		}
		return 0
	}
}

func findPreviousPageHref(doc *goquery.Document) (string, bool) {
	var href string
	var found bool
	doc.Find("a.btn.wide").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "上頁") {
			if h, ok := s.Attr("href"); ok {
				href, found = h, true
				return false
			}
		}
		return true
	})
	return href, found
}

func resolveRelative(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

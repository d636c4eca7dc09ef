// Package adapter defines the Source Adapter interface and its five
// concrete implementations: news-API, news-RSS, forum, short-text social,
// and professional social.
package adapter

import (
	"context"

	"github.com/lzrong0203/newsspark/pkg/httpclient"
	"github.com/lzrong0203/newsspark/pkg/logger"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/ratelimit"
)

// Adapter converts one upstream's native response into normalized
// Documents. Implementations never fail for "no results" — they return an
// empty slice — and reserve their error return for transport failures,
// misconfiguration, and adapter-fatal protocol errors.
type Adapter interface {
	// Name identifies the adapter for rate-limiting and logging.
	Name() string

	Search(ctx context.Context, query string, maxResults int, language, region string) ([]model.Document, error)
}

// deps bundles the collaborators every adapter needs: the shared retrying
// HTTP client and the process-wide rate limiter, keyed by the adapter's
// own Name() before each fetch.
type deps struct {
	http    *httpclient.Client
	limiter *ratelimit.Limiter
}

// acquire waits for name's rate-limit slot before a fetch. It logs at
// info under logger.AdapterComponent, the tag every scraper adapter
// shares, so the logger's component noise floor can quiet routine fetch
// chatter from all five adapters without silencing every other info log
// in the module.
func (d deps) acquire(ctx context.Context, name string) error {
	logger.Get().With("component", logger.AdapterComponent).Info("fetching", "source", name)
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Acquire(ctx, name)
}

package main

import (
	"fmt"

	"github.com/lzrong0203/newsspark/pkg/adapter"
	"github.com/lzrong0203/newsspark/pkg/agent"
	"github.com/lzrong0203/newsspark/pkg/api"
	"github.com/lzrong0203/newsspark/pkg/config"
	"github.com/lzrong0203/newsspark/pkg/coordinator"
	"github.com/lzrong0203/newsspark/pkg/httpclient"
	"github.com/lzrong0203/newsspark/pkg/llmclient"
	"github.com/lzrong0203/newsspark/pkg/logger"
	"github.com/lzrong0203/newsspark/pkg/memory"
	"github.com/lzrong0203/newsspark/pkg/observability"
	"github.com/lzrong0203/newsspark/pkg/orchestrator"
	"github.com/lzrong0203/newsspark/pkg/ratelimit"
	"github.com/lzrong0203/newsspark/pkg/registry"
	"github.com/lzrong0203/newsspark/pkg/store"
	"github.com/lzrong0203/newsspark/pkg/vectorstore"

	"github.com/redis/go-redis/v9"
)

// deps holds every long-lived component buildDeps wires together, so both
// the serve and research subcommands can share the construction path and
// release file/network handles on shutdown.
type deps struct {
	cfg             *config.Config
	orchestrator    *orchestrator.Orchestrator
	memory          *memory.Manager
	feedback        *memory.FeedbackProcessor
	personalization *memory.PersonalizationEngine
	structStore     *store.Store
	metrics         *observability.Metrics
}

func (d *deps) Close() {
	if d.structStore != nil {
		_ = d.structStore.Close()
	}
}

// buildDeps constructs every adapter, agent, and supporting service named
// by cfg, in dependency order: rate limiter, HTTP client, adapters,
// coordinators, LLM client, agents, orchestrator, structured store, vector
// store, memory service.
func buildDeps(cfg *config.Config) (*deps, error) {
	limiterStore, err := newLimiterStore(cfg)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.New(&ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
	}, limiterStore)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: %w", err)
	}

	httpClient := httpclient.New(httpclient.WithUserAgent("newsspark/1.0"))

	newsAdapters, err := buildNewsAdapters(cfg, httpClient, limiter)
	if err != nil {
		return nil, err
	}
	forumAdapters, err := buildForumAdapters(cfg, httpClient, limiter)
	if err != nil {
		return nil, err
	}
	shortTextAdapters := buildShortTextAdapters(cfg, httpClient, limiter)
	professionalAdapter := adapter.NewProfessionalSocialAdapter(
		cfg.Sources.ProfessionalPlatform, cfg.Sources.ProfessionalAllowedHosts, httpClient, limiter,
	)

	newsCoordinator := coordinator.NewNewsCoordinator(newsAdapters)

	metrics := observability.NewMetrics()

	llm := llmclient.New(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.ChatModel, cfg.LLM.EmbeddingModel,
		llmclient.WithTemperature(cfg.LLM.Temperature),
		llmclient.WithMetrics(metrics),
	)

	decomposer := agent.NewQueryDecomposer(llm)
	newsGatherer := agent.NewNewsGatherer(newsCoordinator)
	socialGatherer := agent.NewSocialGatherer(forumAdapters, shortTextAdapters, professionalAdapter)
	analyzer := agent.NewAnalyzer(llm)
	synthesizer := agent.NewSynthesizer(llm)

	orch := orchestrator.New(decomposer, newsGatherer, socialGatherer, analyzer, synthesizer,
		orchestrator.WithMetrics(metrics),
	)

	structStore, err := store.Open(cfg.Store.Dialect, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	backend, err := vectorstore.NewBackend(vectorstore.BackendConfig{
		Backend:   cfg.VectorStore.Backend,
		Path:      cfg.VectorStore.Path,
		Addr:      cfg.VectorStore.Addr,
		APIKey:    cfg.VectorStore.APIKey,
		Host:      cfg.VectorStore.Host,
		IndexName: cfg.VectorStore.IndexName,
	})
	if err != nil {
		_ = structStore.Close()
		return nil, fmt.Errorf("vectorstore: %w", err)
	}
	vecStore := vectorstore.New(backend)

	mem := memory.New(structStore, vecStore, llm)
	fp := memory.NewFeedbackProcessor(llm, mem)
	pe := memory.NewPersonalizationEngine(mem)

	return &deps{
		cfg:             cfg,
		orchestrator:    orch,
		memory:          mem,
		feedback:        fp,
		personalization: pe,
		structStore:     structStore,
		metrics:         metrics,
	}, nil
}

func newAPIServer(d *deps) *api.Server {
	return api.New(d.orchestrator, d.memory, d.feedback, d.personalization, logger.Get(), api.WithMetrics(d.metrics))
}

func newLimiterStore(cfg *config.Config) (ratelimit.Store, error) {
	if cfg.RateLimit.Store != "redis" {
		return ratelimit.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
	return ratelimit.NewRedisStore(client, "newsspark:ratelimit:"), nil
}

// buildNewsAdapters registers one Adapter per configured feed/API under its
// Name(), rejecting the config outright if two sources collide on name
// (e.g. two RSS feeds configured with the same source_name), then returns
// them in registration order for the coordinator to fan out across.
func buildNewsAdapters(cfg *config.Config, httpClient *httpclient.Client, limiter *ratelimit.Limiter) ([]adapter.Adapter, error) {
	reg := registry.New[adapter.Adapter]()
	for _, feed := range cfg.Sources.NewsFeeds {
		a := adapter.NewNewsRSSAdapter(feed.SourceName, feed.FeedURL, httpClient, limiter)
		if err := reg.Register(a.Name(), a); err != nil {
			return nil, fmt.Errorf("news adapter: %w", err)
		}
	}
	if cfg.Sources.NewsAPIKey != "" {
		a, err := adapter.NewNewsAPIAdapter(cfg.Sources.NewsAPIProvider, cfg.Sources.NewsAPIKey, httpClient, limiter)
		if err != nil {
			return nil, fmt.Errorf("news api adapter: %w", err)
		}
		if err := reg.Register(a.Name(), a); err != nil {
			return nil, fmt.Errorf("news adapter: %w", err)
		}
	}
	return reg.List(), nil
}

func buildForumAdapters(cfg *config.Config, httpClient *httpclient.Client, limiter *ratelimit.Limiter) ([]*adapter.ForumAdapter, error) {
	var adapters []*adapter.ForumAdapter
	for _, board := range cfg.Sources.ForumBoards {
		a, err := adapter.NewForumAdapter(cfg.Sources.ForumBaseURL, board, cfg.Sources.ForumPagesPerBoard, httpClient, limiter)
		if err != nil {
			return nil, fmt.Errorf("forum adapter %s: %w", board, err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func buildShortTextAdapters(cfg *config.Config, httpClient *httpclient.Client, limiter *ratelimit.Limiter) []*adapter.ShortTextSocialAdapter {
	var adapters []*adapter.ShortTextSocialAdapter
	for _, p := range cfg.Sources.SocialPlatforms {
		adapters = append(adapters, adapter.NewShortTextSocialAdapter(p.Platform, p.BaseURL, httpClient, limiter))
	}
	return adapters
}

// Command newsspark runs the research pipeline and the memory service
// HTTP surface.
//
// Usage:
//
//	newsspark serve --config config.yaml
//	newsspark research --topic "..." --user-id alice
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/lzrong0203/newsspark/pkg/config"
	"github.com/lzrong0203/newsspark/pkg/logger"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/observability"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the memory-service HTTP API."`
	Research ResearchCmd `cmd:"" help:"Run the research pipeline once and print the resulting video brief."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("newsspark"),
		kong.Description("newsspark - short-form video research pipeline"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger.Init(level, os.Stderr)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

// ServeCmd starts the memory-service HTTP API.
type ServeCmd struct{}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Get().Info("shutting down")
		cancel()
	}()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		Exporter: cfg.Observability.TraceExporter,
		Endpoint: cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	srv := newAPIServer(deps)
	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Router()}

	go func() {
		<-ctx.Done()
		_ = httpSrv.Close()
	}()

	logger.Get().Info("newsspark memory service listening", "addr", cfg.Server.Addr)
	err = httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ResearchCmd runs the pipeline once against a single topic and prints the
// resulting PipelineState as JSON, for scripting and smoke-testing.
type ResearchCmd struct {
	Topic               string   `required:"" help:"Research topic."`
	UserID              string   `name:"user-id" required:"" help:"Requesting user's id."`
	Sources             []string `help:"Sources to opt into: news, social, forum." default:"news,social,forum"`
	Depth               int      `default:"3" help:"Decomposition depth, 1-5."`
	MaxResultsPerSource int      `name:"max-results" default:"10" help:"Cap per adapter per query."`
	Platforms           []string `default:"tiktok,reels,shorts" help:"Platforms to generate variants for."`
	ExtraURLs           []string `name:"extra-url" help:"Professional-social URLs to fetch directly."`
}

func (c *ResearchCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	req := model.ResearchRequest{
		Topic:               c.Topic,
		UserID:              c.UserID,
		Depth:               c.Depth,
		MaxResultsPerSource: c.MaxResultsPerSource,
	}
	for _, s := range c.Sources {
		req.Sources = append(req.Sources, model.Source(s))
	}
	req.SetDefaults()
	if err := req.Validate(); err != nil {
		return err
	}

	state := deps.orchestrator.Run(context.Background(), req, c.ExtraURLs, c.Platforms)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

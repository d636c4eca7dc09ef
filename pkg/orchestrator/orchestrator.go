// Package orchestrator drives the six-node research pipeline graph:
// decompose, news, social, analyze, synthesize, error. Nodes run in
// topological order; each reads the shared PipelineState and returns a
// partial update the orchestrator merges in (scalars last-writer-wins,
// execution_log append-only).
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/lzrong0203/newsspark/pkg/agent"
	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator wires the five agents into the pipeline's state machine.
type Orchestrator struct {
	decomposer *agent.QueryDecomposer
	news       *agent.NewsGatherer
	social     *agent.SocialGatherer
	analyzer   *agent.Analyzer
	synth      *agent.Synthesizer
	metrics    *observability.Metrics
}

// Option configures optional Orchestrator behavior that every existing
// caller, including tests, can leave unset.
type Option func(*Orchestrator)

// WithMetrics records a run counter/duration histogram per Run call.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(
	decomposer *agent.QueryDecomposer,
	news *agent.NewsGatherer,
	social *agent.SocialGatherer,
	analyzer *agent.Analyzer,
	synth *agent.Synthesizer,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		decomposer: decomposer,
		news:       news,
		social:     social,
		analyzer:   analyzer,
		synth:      synth,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// extraURLs carries caller-supplied professional-social URLs. It isn't
// one of ResearchRequest's fields, so Run accepts it separately; callers
// with none pass nil.
func (o *Orchestrator) Run(ctx context.Context, req model.ResearchRequest, extraURLs []string, platforms []string) model.PipelineState {
	start := time.Now()
	ctx, span := observability.GetTracer("newsspark.orchestrator").Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("topic", req.Topic), attribute.String("user_id", req.UserID)))
	defer span.End()

	state := o.run(ctx, req, extraURLs, platforms)

	span.SetAttributes(attribute.String("final_step", string(state.CurrentStep)))
	o.metrics.RecordPipelineRun(string(state.CurrentStep), time.Since(start))
	if state.CurrentStep == model.StepError {
		o.metrics.RecordPipelineStepError(state.Error)
	}
	return state
}

func (o *Orchestrator) run(ctx context.Context, req model.ResearchRequest, extraURLs []string, platforms []string) model.PipelineState {
	req.SetDefaults()
	state := model.PipelineState{Request: req}

	state = o.nodeDecompose(ctx, state)
	if state.CurrentStep == model.StepError {
		return o.nodeError(state)
	}

	state = o.nodeNews(ctx, state)
	state = o.nodeSocial(ctx, state, extraURLs)
	if state.CurrentStep == model.StepError {
		return o.nodeError(state)
	}

	state = o.nodeAnalyze(ctx, state)
	if state.CurrentStep == model.StepError {
		return o.nodeError(state)
	}

	state = o.nodeSynthesize(ctx, state, platforms)
	return state
}

func (o *Orchestrator) nodeDecompose(ctx context.Context, state model.PipelineState) model.PipelineState {
	result := o.decomposer.Decompose(ctx, state.Request)
	if !result.OK || len(result.Data.SubQueries) == 0 {
		state.CurrentStep = model.StepError
		if !result.OK {
			err := newssparkerrors.NewPipelineDecomposeFailed(state.Request.Topic, fmt.Errorf("%s", result.Message))
			state.Error = err.Error()
		}
		state.Log(fmt.Sprintf("decompose: failed: %s", result.Message))
		return state
	}
	state.SubQueries = result.Data.SubQueries
	state.CurrentStep = model.StepQueriesDecomposed
	state.Log(fmt.Sprintf("decompose: produced %d sub-queries", len(state.SubQueries)))
	return state
}

func (o *Orchestrator) nodeNews(ctx context.Context, state model.PipelineState) model.PipelineState {
	result := o.news.Gather(ctx, state.Request, state.SubQueries)
	if result.OK {
		if result.Data.Skipped {
			state.Log("news: skipped, request did not opt into news")
		} else {
			state.NewsResults = result.Data.Documents
			for _, e := range result.Data.Errors {
				state.Log("news: task error: " + e)
			}
			state.Log(fmt.Sprintf("news: collected %d documents from %v", len(state.NewsResults), result.Data.SourceNames))
		}
	}
	state.CurrentStep = model.StepNewsScraped
	return state
}

func (o *Orchestrator) nodeSocial(ctx context.Context, state model.PipelineState, extraURLs []string) model.PipelineState {
	result := o.social.Gather(ctx, state.Request, state.SubQueries, extraURLs)
	if result.OK {
		state.ForumResults = result.Data.ForumItems
		state.SocialResults = result.Data.SocialItems
		for _, e := range result.Data.Errors {
			state.Log("social: task error: " + e)
		}
		state.Log(fmt.Sprintf("social: collected %d forum, %d social documents from %v",
			len(state.ForumResults), len(state.SocialResults), result.Data.SourceNames))
	}
	state.CurrentStep = model.StepSocialScraped

	total := len(state.NewsResults) + len(state.SocialResults) + len(state.ForumResults)
	state.TotalSourcesScraped = total
	if total == 0 {
		state.CurrentStep = model.StepError
		sources := make([]string, len(state.Request.Sources))
		for i, s := range state.Request.Sources {
			sources[i] = string(s)
		}
		state.Error = newssparkerrors.NewPipelineNoData(state.Request.Topic, sources).Error()
	}
	return state
}

func (o *Orchestrator) nodeAnalyze(ctx context.Context, state model.PipelineState) model.PipelineState {
	documents := state.AllDocuments()
	result := o.analyzer.Analyze(ctx, state.Request.Topic, documents)
	if !result.OK {
		state.CurrentStep = model.StepError
		err := newssparkerrors.NewPipelineAnalysisFailed(state.Request.Topic, len(documents), fmt.Errorf("%s", result.Message))
		state.Error = err.Error()
		state.Log("analyze: failed: " + result.Message)
		return state
	}
	analysis := result.Data
	state.Analysis = &analysis
	state.CurrentStep = model.StepAnalysisComplete
	state.Log(fmt.Sprintf("analyze: source_count=%d confidence=%.2f", analysis.SourceCount, analysis.ConfidenceScore))
	return state
}

func (o *Orchestrator) nodeSynthesize(ctx context.Context, state model.PipelineState, platforms []string) model.PipelineState {
	if state.Analysis == nil {
		state.CurrentStep = model.StepError
		return o.nodeError(state)
	}
	documents := state.AllDocuments()
	result := o.synth.Synthesize(ctx, state.Request.Topic, *state.Analysis, documents, platforms)
	if !result.OK {
		state.CurrentStep = model.StepError
		err := newssparkerrors.NewPipelineSynthesisFailed(state.Request.Topic, fmt.Errorf("%s", result.Message))
		state.Error = err.Error()
		state.Log("synthesize: failed: " + result.Message)
		return o.nodeError(state)
	}
	brief := result.Data
	state.VideoBrief = &brief
	state.CurrentStep = model.StepComplete
	state.Log("synthesize: video brief generated")
	return state
}

// nodeError is terminal: it infers a human-readable message when the
// failing node left Error unset.
func (o *Orchestrator) nodeError(state model.PipelineState) model.PipelineState {
	state.CurrentStep = model.StepError
	if state.Error != "" {
		return state
	}
	switch {
	case len(state.SubQueries) == 0:
		state.Error = "query decomposition failed"
	case state.TotalSourcesScraped == 0:
		state.Error = "no data found; try different keywords"
	case state.Analysis == nil:
		state.Error = "deep analysis failed"
	default:
		state.Error = "unknown error"
	}
	return state
}

package agent

import (
	"context"

	"github.com/lzrong0203/newsspark/pkg/coordinator"
	"github.com/lzrong0203/newsspark/pkg/model"
)

// NewsGatherResult is the News Gatherer's output: the collected documents
// plus bookkeeping the orchestrator folds into the pipeline state.
type NewsGatherResult struct {
	Documents   []model.Document
	SourceNames []string
	Errors      []string
	Skipped     bool
}

type NewsGatherer struct {
	coordinator *coordinator.NewsCoordinator
}

func NewNewsGatherer(c *coordinator.NewsCoordinator) *NewsGatherer {
	return &NewsGatherer{coordinator: c}
}

// Gather runs the News Coordinator over the decomposed sub-queries. If the
// request didn't opt into news, it returns an empty, marked-Skipped result
// without dispatching any adapter task.
func (a *NewsGatherer) Gather(ctx context.Context, req model.ResearchRequest, subQueries []string) Result[NewsGatherResult] {
	if !req.HasSource(model.SourceNews) {
		return Ok(NewsGatherResult{Skipped: true})
	}

	res := a.coordinator.Run(ctx, subQueries, req.MaxResultsPerSource, req.Language)
	return Ok(NewsGatherResult{
		Documents:   res.Documents,
		SourceNames: res.SourceNames,
		Errors:      res.Errors,
	})
}

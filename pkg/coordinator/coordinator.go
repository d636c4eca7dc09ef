// Package coordinator fans a set of queries across source adapters,
// collects their results concurrently, and merges them into a single
// deduplicated, sorted list. Per-task failures are soft: they surface as
// error strings alongside the results rather than aborting sibling tasks.
package coordinator

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lzrong0203/newsspark/pkg/adapter"
	"github.com/lzrong0203/newsspark/pkg/model"
)

// task is one (adapter, query) unit of work.
type task struct {
	adapterName string
	run         func(ctx context.Context) ([]model.Document, error)
}

// taskResult pairs a task's outcome with its submission index, so results
// can be merged back in submission order regardless of completion order.
type taskResult struct {
	index int
	docs  []model.Document
	err   error
}

// runTasks executes every task concurrently, using a plain errgroup (no
// shared cancellation context) so that one task's failure never cancels
// its siblings. Results are returned in submission order.
func runTasks(ctx context.Context, tasks []task) []taskResult {
	results := make([]taskResult, len(tasks))
	var grp errgroup.Group
	var mu sync.Mutex

	for i, t := range tasks {
		i, t := i, t
		grp.Go(func() error {
			docs, err := t.run(ctx)
			mu.Lock()
			results[i] = taskResult{index: i, docs: docs, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

// mergeResults flattens task results in submission order, deduplicates
// documents by URL (keeping the first occurrence), sorts the remainder
// descending by published time (missing treated as the minimum), and
// collects distinct source names and per-task error strings.
func mergeResults(results []taskResult) (docs []model.Document, sourceNames []string, errs []string) {
	seen := make(map[string]bool)
	sourcesSeen := make(map[string]bool)

	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err.Error())
			continue
		}
		for _, d := range r.docs {
			if seen[d.URL] {
				continue
			}
			seen[d.URL] = true
			docs = append(docs, d)
			if d.SourceName != "" && !sourcesSeen[d.SourceName] {
				sourcesSeen[d.SourceName] = true
				sourceNames = append(sourceNames, d.SourceName)
			}
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].PublishedOrMin().After(docs[j].PublishedOrMin())
	})
	return docs, sourceNames, errs
}

// CoordinatorResult is the shared output shape for both the News and
// Social coordinators.
type CoordinatorResult struct {
	Documents   []model.Document
	SourceNames []string
	Errors      []string
}

// NewsCoordinator fans a set of queries across every enabled news adapter.
type NewsCoordinator struct {
	adapters []adapter.Adapter
}

func NewNewsCoordinator(adapters []adapter.Adapter) *NewsCoordinator {
	return &NewsCoordinator{adapters: adapters}
}

func (c *NewsCoordinator) Run(ctx context.Context, queries []string, maxResults int, language string) CoordinatorResult {
	var tasks []task
	for _, q := range c.adapters {
		for _, query := range queries {
			q, query := q, query
			tasks = append(tasks, task{
				adapterName: q.Name(),
				run: func(ctx context.Context) ([]model.Document, error) {
					return q.Search(ctx, query, maxResults, language, "")
				},
			})
		}
	}
	docs, sources, errs := mergeResults(runTasks(ctx, tasks))
	return CoordinatorResult{Documents: docs, SourceNames: sources, Errors: errs}
}

package coordinator

import (
	"context"

	"github.com/lzrong0203/newsspark/pkg/adapter"
	"github.com/lzrong0203/newsspark/pkg/model"
)

// SocialCoordinator fans queries across forum boards and short-text social
// platforms, and fetches any caller-supplied professional-social URLs
// directly. It is structurally identical to the News Coordinator except
// for its richer task grid and its forum/social partitioning of the
// merged result set.
type SocialCoordinator struct {
	forumAdapters             []*adapter.ForumAdapter
	shortTextAdapters         []*adapter.ShortTextSocialAdapter
	professionalSocialAdapter *adapter.ProfessionalSocialAdapter
}

func NewSocialCoordinator(
	forumAdapters []*adapter.ForumAdapter,
	shortTextAdapters []*adapter.ShortTextSocialAdapter,
	professionalSocialAdapter *adapter.ProfessionalSocialAdapter,
) *SocialCoordinator {
	return &SocialCoordinator{
		forumAdapters:             forumAdapters,
		shortTextAdapters:         shortTextAdapters,
		professionalSocialAdapter: professionalSocialAdapter,
	}
}

// SocialCoordinatorResult additionally partitions the merged documents by
// SourceKind, since callers need forum and social results separately.
type SocialCoordinatorResult struct {
	ForumItems  []model.Document
	SocialItems []model.Document
	SourceNames []string
	Errors      []string
}

// Run builds one task per query per enabled forum board, one task per
// query per enabled short-text-social platform, and one task per
// caller-supplied extra URL against the professional-social adapter.
func (c *SocialCoordinator) Run(ctx context.Context, queries []string, extraURLs []string, maxResults int, language string) SocialCoordinatorResult {
	var tasks []task

	for _, fa := range c.forumAdapters {
		for _, query := range queries {
			fa, query := fa, query
			tasks = append(tasks, task{
				adapterName: fa.Name(),
				run: func(ctx context.Context) ([]model.Document, error) {
					return fa.Search(ctx, query, maxResults, language, "")
				},
			})
		}
	}

	for _, sa := range c.shortTextAdapters {
		for _, query := range queries {
			sa, query := sa, query
			tasks = append(tasks, task{
				adapterName: sa.Name(),
				run: func(ctx context.Context) ([]model.Document, error) {
					return sa.Search(ctx, query, maxResults, language, "")
				},
			})
		}
	}

	if c.professionalSocialAdapter != nil {
		for _, u := range extraURLs {
			u := u
			tasks = append(tasks, task{
				adapterName: c.professionalSocialAdapter.Name(),
				run: func(ctx context.Context) ([]model.Document, error) {
					doc, err := c.professionalSocialAdapter.FetchURL(ctx, u, language)
					if err != nil {
						return nil, err
					}
					if doc == nil {
						return nil, nil
					}
					return []model.Document{*doc}, nil
				},
			})
		}
	}

	docs, sources, errs := mergeResults(runTasks(ctx, tasks))

	result := SocialCoordinatorResult{SourceNames: sources, Errors: errs}
	for _, d := range docs {
		if d.SourceKind == model.SourceKindForum {
			result.ForumItems = append(result.ForumItems, d)
		} else {
			result.SocialItems = append(result.SocialItems, d)
		}
	}
	return result
}

package agent

import (
	"context"

	"github.com/lzrong0203/newsspark/pkg/adapter"
	"github.com/lzrong0203/newsspark/pkg/coordinator"
	"github.com/lzrong0203/newsspark/pkg/model"
)

// SocialGatherResult is the Social Gatherer's output.
type SocialGatherResult struct {
	ForumItems  []model.Document
	SocialItems []model.Document
	SourceNames []string
	Errors      []string
}

// SocialGatherer holds every configured social-side adapter; which of
// them actually run is decided per request by Gather, not at construction.
type SocialGatherer struct {
	forumAdapters             []*adapter.ForumAdapter
	shortTextAdapters         []*adapter.ShortTextSocialAdapter
	professionalSocialAdapter *adapter.ProfessionalSocialAdapter
}

func NewSocialGatherer(
	forumAdapters []*adapter.ForumAdapter,
	shortTextAdapters []*adapter.ShortTextSocialAdapter,
	professionalSocialAdapter *adapter.ProfessionalSocialAdapter,
) *SocialGatherer {
	return &SocialGatherer{
		forumAdapters:             forumAdapters,
		shortTextAdapters:         shortTextAdapters,
		professionalSocialAdapter: professionalSocialAdapter,
	}
}

// Gather enables forum boards when the request opts into "forum", enables
// short-text-social platforms when it opts into "social", and only
// dispatches the professional-social adapter when the caller supplied
// extraURLs — that adapter has no useful unauthenticated search path.
func (a *SocialGatherer) Gather(ctx context.Context, req model.ResearchRequest, subQueries []string, extraURLs []string) Result[SocialGatherResult] {
	var forums []*adapter.ForumAdapter
	if req.HasSource(model.SourceForum) {
		forums = a.forumAdapters
	}

	var shortText []*adapter.ShortTextSocialAdapter
	if req.HasSource(model.SourceSocial) {
		shortText = a.shortTextAdapters
	}

	var professional *adapter.ProfessionalSocialAdapter
	if len(extraURLs) > 0 {
		professional = a.professionalSocialAdapter
	}

	if len(forums) == 0 && len(shortText) == 0 && professional == nil {
		return Ok(SocialGatherResult{})
	}

	sc := coordinator.NewSocialCoordinator(forums, shortText, professional)
	res := sc.Run(ctx, subQueries, extraURLs, req.MaxResultsPerSource, req.Language)

	return Ok(SocialGatherResult{
		ForumItems:  res.ForumItems,
		SocialItems: res.SocialItems,
		SourceNames: res.SourceNames,
		Errors:      res.Errors,
	})
}

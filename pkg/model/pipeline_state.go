package model

// Step labels the pipeline's current stage-completion marker. The zero
// value means the orchestrator hasn't run a node yet.
type Step string

const (
	StepUnset              Step = ""
	StepQueriesDecomposed   Step = "queries_decomposed"
	StepNewsScraped         Step = "news_scraped"
	StepSocialScraped       Step = "social_scraped"
	StepAnalysisComplete    Step = "analysis_complete"
	StepComplete            Step = "complete"
	StepError               Step = "error"
)

// PipelineState is the orchestrator's shared state. Nodes return partial
// updates that the orchestrator merges into a value of this type; fields
// only ever accumulate across stages (scalars last-writer-wins,
// ExecutionLog append-only).
type PipelineState struct {
	Request             ResearchRequest `json:"request"`
	SubQueries          []string        `json:"sub_queries"`
	NewsResults         []Document      `json:"news_results"`
	SocialResults       []Document      `json:"social_results"`
	ForumResults        []Document      `json:"forum_results"`
	Analysis            *AnalysisResult `json:"analysis,omitempty"`
	VideoBrief          *VideoBrief     `json:"video_brief,omitempty"`
	Error               string          `json:"error,omitempty"`
	CurrentStep         Step            `json:"current_step"`
	TotalSourcesScraped int             `json:"total_sources_scraped"`
	ExecutionLog        []string        `json:"execution_log"`
}

// AllDocuments returns every document collected across all three scraper
// result slices, in collection order (news, social, forum).
func (s *PipelineState) AllDocuments() []Document {
	all := make([]Document, 0, len(s.NewsResults)+len(s.SocialResults)+len(s.ForumResults))
	all = append(all, s.NewsResults...)
	all = append(all, s.SocialResults...)
	all = append(all, s.ForumResults...)
	return all
}

// Log appends a line to the execution log.
func (s *PipelineState) Log(line string) {
	s.ExecutionLog = append(s.ExecutionLog, line)
}

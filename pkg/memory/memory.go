// Package memory coordinates the structured store and the vector store
// behind a single per-user API, and owns a small in-process cache of
// recently-fetched profiles.
package memory

import (
	"context"
	"regexp"
	"sync"
	"time"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/llmclient"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/store"
	"github.com/lzrong0203/newsspark/pkg/vectorstore"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// ValidateUserID rejects any user_id that doesn't match the allowed
// charset and length, before it ever reaches a collection name or a SQL
// parameter.
func ValidateUserID(userID string) error {
	if !userIDPattern.MatchString(userID) {
		return newssparkerrors.NewInvalidUserId(userID, "must match ^[A-Za-z0-9_-]{1,50}$")
	}
	return nil
}

// TopicContext is the composed view get_topic_context returns.
type TopicContext struct {
	TopicPreference      *model.TopicPreference
	RelatedKnowledgeNodes []model.KnowledgeNode
	RelatedConversations  []vectorstore.Result
	UserStyle             model.PreferredStyle
	AnalysisDepth         model.AnalysisDepth
}

// Manager coordinates pkg/store and pkg/vectorstore and caches recently
// accessed profiles.
type Manager struct {
	structured *store.Store
	vectors    *vectorstore.Store
	llm        *llmclient.Client

	mu    sync.RWMutex
	cache map[string]*model.UserProfile
}

func New(structured *store.Store, vectors *vectorstore.Store, llm *llmclient.Client) *Manager {
	return &Manager{
		structured: structured,
		vectors:    vectors,
		llm:        llm,
		cache:      make(map[string]*model.UserProfile),
	}
}

// GetOrCreateUser returns the cached profile, falling back to the
// structured store, falling back to a freshly created default profile.
func (m *Manager) GetOrCreateUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if p, ok := m.cache[userID]; ok {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	profile, err := m.structured.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = model.NewDefaultUserProfile(userID, time.Now())
		if err := m.structured.PutUser(ctx, profile); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.cache[userID] = profile
	m.mu.Unlock()
	return profile, nil
}

// UpdateUserProfile persists p with a refreshed updated_at and updates
// the cache.
func (m *Manager) UpdateUserProfile(ctx context.Context, p *model.UserProfile) error {
	if err := ValidateUserID(p.UserID); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	if err := m.structured.PutUser(ctx, p); err != nil {
		return err
	}
	m.mu.Lock()
	m.cache[p.UserID] = p
	m.mu.Unlock()
	return nil
}

func (m *Manager) StoreFeedback(ctx context.Context, fb *model.UserFeedback) error {
	return m.structured.StoreFeedback(ctx, fb)
}

func (m *Manager) GetUnprocessedFeedback(ctx context.Context, userID string) ([]model.UserFeedback, error) {
	return m.structured.GetUnprocessedFeedback(ctx, userID)
}

func (m *Manager) MarkFeedbackProcessed(ctx context.Context, feedbackID string, learnedAt time.Time) error {
	return m.structured.MarkFeedbackProcessed(ctx, feedbackID, learnedAt)
}

// StoreCorrection writes the structured record first, then the vector
// record. A vector-store failure is returned to the caller but the
// structured write is not rolled back: the correction remains queryable
// by get_corrections even if it's temporarily absent from similarity
// search, which the caller should log rather than treat as total failure.
func (m *Manager) StoreCorrection(ctx context.Context, c *model.LearnedCorrection) error {
	if err := ValidateUserID(c.UserID); err != nil {
		return err
	}
	if err := m.structured.StoreCorrection(ctx, c); err != nil {
		return err
	}

	embedText := c.Pattern + " " + c.Correction
	vector, err := m.llm.Embed(ctx, embedText)
	if err != nil {
		return err
	}

	metadata := map[string]string{
		"pattern":    c.Pattern,
		"correction": c.Correction,
		"context":    c.Context,
	}
	return m.vectors.UpsertCorrection(ctx, c.UserID, c.CorrectionID, vector, embedText, metadata)
}

// GetRelevantCorrections runs a similarity search over the user's
// correction collection for the given free-text query.
func (m *Manager) GetRelevantCorrections(ctx context.Context, userID, query string, limit int) ([]vectorstore.Result, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	vector, err := m.llm.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return m.vectors.SearchCorrections(ctx, userID, vector, limit)
}

// GetCorrections returns the user's corrections ordered by
// confidence DESC, created_at DESC.
func (m *Manager) GetCorrections(ctx context.Context, userID string, limit int) ([]model.LearnedCorrection, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	return m.structured.GetCorrections(ctx, userID, limit)
}

// GetTopicContext composes the topic-scoped view a personalization
// caller needs: the user's stored preference for this topic, knowledge
// nodes whose name contains it, related past conversations by similarity
// search, and the user's general style/depth settings.
func (m *Manager) GetTopicContext(ctx context.Context, userID, topic string) (*TopicContext, error) {
	profile, err := m.GetOrCreateUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	nodes, err := m.structured.FindKnowledgeNodesByTopic(ctx, userID, topic)
	if err != nil {
		return nil, err
	}

	vector, err := m.llm.Embed(ctx, topic)
	if err != nil {
		return nil, err
	}
	conversations, err := m.vectors.SearchConversations(ctx, userID, vector, 5)
	if err != nil {
		return nil, err
	}

	var pref *model.TopicPreference
	if p, ok := profile.TopicPreferences[topic]; ok {
		pref = &p
	}

	return &TopicContext{
		TopicPreference:       pref,
		RelatedKnowledgeNodes: nodes,
		RelatedConversations:  conversations,
		UserStyle:             profile.PreferredStyle,
		AnalysisDepth:         profile.AnalysisDepth,
	}, nil
}

// UpdateTopicPreference sets userID's interest level and notes for topic,
// replacing whatever TopicPreference was previously stored under that
// key. It writes through the full profile rather than a per-topic row,
// since topic_preferences lives as a map field on UserProfile; unlike
// update_preferences' fixed-field whitelist, any topic name is valid
// here because the map is keyed by topic, not by a pre-declared field.
func (m *Manager) UpdateTopicPreference(ctx context.Context, userID, topic string, interestLevel float64, notes string) error {
	profile, err := m.GetOrCreateUser(ctx, userID)
	if err != nil {
		return err
	}
	if profile.TopicPreferences == nil {
		profile.TopicPreferences = make(map[string]model.TopicPreference)
	}
	profile.TopicPreferences[topic] = model.TopicPreference{
		InterestLevel: model.Clamp01(interestLevel),
		Notes:         notes,
		UpdatedAt:     time.Now(),
	}
	return m.UpdateUserProfile(ctx, profile)
}

// SaveKnowledgeNode writes one node of userID's personal knowledge graph.
func (m *Manager) SaveKnowledgeNode(ctx context.Context, n *model.KnowledgeNode) error {
	if err := ValidateUserID(n.UserID); err != nil {
		return err
	}
	return m.structured.PutKnowledgeNode(ctx, n)
}

// SaveKnowledgeEdge writes one edge relating two of userID's knowledge
// nodes.
func (m *Manager) SaveKnowledgeEdge(ctx context.Context, e *model.KnowledgeEdge) error {
	if err := ValidateUserID(e.UserID); err != nil {
		return err
	}
	return m.structured.PutKnowledgeEdge(ctx, e)
}

// ExportUserData gathers everything stored about userID for a GDPR
// data-portability request: profile, corrections, all feedback
// (processed and unprocessed alike), and the full knowledge graph.
type ExportedUserData struct {
	Profile     *model.UserProfile
	Corrections []model.LearnedCorrection
	Feedback    []model.UserFeedback
	Nodes       []model.KnowledgeNode
	Edges       []model.KnowledgeEdge
}

func (m *Manager) ExportUserData(ctx context.Context, userID string) (*ExportedUserData, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	profile, err := m.structured.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	const exportCorrectionsLimit = 100000
	corrections, err := m.structured.GetCorrections(ctx, userID, exportCorrectionsLimit)
	if err != nil {
		return nil, err
	}
	feedback, err := m.structured.GetAllFeedback(ctx, userID)
	if err != nil {
		return nil, err
	}
	nodes, err := m.structured.GetKnowledgeNodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	edges, err := m.structured.GetKnowledgeEdges(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ExportedUserData{
		Profile: profile, Corrections: corrections, Feedback: feedback, Nodes: nodes, Edges: edges,
	}, nil
}

// DeleteUserData cascades deletion through both stores and evicts the
// cache entry.
func (m *Manager) DeleteUserData(ctx context.Context, userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if err := m.structured.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if err := m.vectors.DeleteUserCollections(ctx, userID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.cache, userID)
	m.mu.Unlock()
	return nil
}

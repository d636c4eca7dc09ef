package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/vectorstore"
)

// PersonalizationEngine composes a base prompt with per-user context
// sections, omitting any section whose source data is empty.
type PersonalizationEngine struct {
	manager *Manager
}

func NewPersonalizationEngine(manager *Manager) *PersonalizationEngine {
	return &PersonalizationEngine{manager: manager}
}

// GetPersonalizedPrompt appends, in order, non-empty sections for user
// preferences, past corrections relevant to currentInput, topic
// preference, and blocked sources. The result is
// basePrompt + "\n\n" + sections joined by a blank line.
func (p *PersonalizationEngine) GetPersonalizedPrompt(ctx context.Context, userID, basePrompt, currentInput, agentKind string) (string, error) {
	profile, err := p.manager.GetOrCreateUser(ctx, userID)
	if err != nil {
		return "", err
	}

	var sections []string

	if s := preferencesSection(profile); s != "" {
		sections = append(sections, s)
	}

	corrections, err := p.manager.GetRelevantCorrections(ctx, userID, currentInput, 5)
	if err != nil {
		return "", err
	}
	if s := correctionsSection(corrections); s != "" {
		sections = append(sections, s)
	}

	if s := topicPreferenceSection(profile, currentInput); s != "" {
		sections = append(sections, s)
	}

	if s := blockedSourcesSection(profile); s != "" {
		sections = append(sections, s)
	}

	if len(sections) == 0 {
		return basePrompt, nil
	}
	return basePrompt + "\n\n" + strings.Join(sections, "\n\n"), nil
}

func preferencesSection(profile *model.UserProfile) string {
	var b strings.Builder
	b.WriteString("User preferences:\n")
	fmt.Fprintf(&b, "- style: %s\n", profile.PreferredStyle)
	fmt.Fprintf(&b, "- analysis depth: %s\n", profile.AnalysisDepth)
	if profile.Language != "" {
		fmt.Fprintf(&b, "- language: %s\n", profile.Language)
	}
	if profile.ProfessionalBackground != "" {
		fmt.Fprintf(&b, "- background: %s\n", profile.ProfessionalBackground)
	}
	if len(profile.AreasOfExpertise) > 0 {
		fmt.Fprintf(&b, "- expertise: %s\n", strings.Join(profile.AreasOfExpertise, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func correctionsSection(corrections []vectorstore.Result) string {
	if len(corrections) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Past corrections from this user:\n")
	for _, c := range corrections {
		fmt.Fprintf(&b, "- %s: %s\n", c.Metadata["pattern"], c.Metadata["correction"])
	}
	return strings.TrimRight(b.String(), "\n")
}

func topicPreferenceSection(profile *model.UserProfile, currentInput string) string {
	for topic, pref := range profile.TopicPreferences {
		if strings.Contains(strings.ToLower(currentInput), strings.ToLower(topic)) {
			return fmt.Sprintf("Topic preference for %q: interest level %.2f. %s", topic, pref.InterestLevel, pref.Notes)
		}
	}
	return ""
}

func blockedSourcesSection(profile *model.UserProfile) string {
	if len(profile.BlockedSources) == 0 {
		return ""
	}
	return "Blocked sources (never cite): " + strings.Join(profile.BlockedSources, ", ")
}

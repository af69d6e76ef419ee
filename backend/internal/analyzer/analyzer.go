package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// MinInputLength is the shortest trimmed brief worth analysing
const MinInputLength = 10

const (
	templateRecommendThreshold = 60
	platformSuggestThreshold   = 70
	urgencyRecommendThreshold  = 70
	packageRecommendThreshold  = 70
)

// Assistant is a handle on the detectors for callers that prefer an injected
// dependency over package functions. It has no state.
type Assistant struct{}

// NewAssistant returns an Assistant
func NewAssistant() *Assistant {
	return &Assistant{}
}

// DetectPlatforms calls the package-level DetectPlatforms
func (*Assistant) DetectPlatforms(text string) []PlatformMatch { return DetectPlatforms(text) }

// DetectComplexity calls the package-level DetectComplexity
func (*Assistant) DetectComplexity(text string) ComplexityAnalysis { return DetectComplexity(text) }

// RecommendTemplate calls the package-level RecommendTemplate
func (*Assistant) RecommendTemplate(text string) []TemplateMatch { return RecommendTemplate(text) }

// DetectUrgency calls the package-level DetectUrgency
func (*Assistant) DetectUrgency(text string) *UrgencyMatch { return DetectUrgency(text) }

// ExtractAssetCount calls the package-level ExtractAssetCount
func (*Assistant) ExtractAssetCount(text string) *AssetCountEstimate { return ExtractAssetCount(text) }

// AnalyzeInput calls the package-level AnalyzeInput
func (*Assistant) AnalyzeInput(text string, currentPlatforms []string, urgency UrgencyLevel) *Analysis {
	return AnalyzeInput(text, currentPlatforms, urgency)
}

// AnalyzeInput runs every detector over a brief and merges the signals into a
// prioritized recommendation list. Briefs shorter than MinInputLength after
// trimming return the empty shell.
func AnalyzeInput(text string, currentPlatforms []string, urgency UrgencyLevel) *Analysis {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinInputLength {
		return &Analysis{empty: true}
	}

	detected := DetectPlatforms(text)
	a := &Analysis{
		Platforms: PlatformAnalysis{
			Detected:    detected,
			Suggestions: platformSuggestions(detected, currentPlatforms),
		},
		Complexity: DetectComplexity(text),
		Templates:  RecommendTemplate(text),
		Urgency:    DetectUrgency(text),
		AssetCount: ExtractAssetCount(text),
	}
	a.OverallRecommendations = buildRecommendations(a)
	a.Warnings = buildWarnings(a, urgency)
	return a
}

func platformSuggestions(detected []PlatformMatch, current []string) []PlatformSuggestion {
	selected := make(map[string]bool, len(current))
	for _, p := range current {
		selected[strings.ToLower(strings.TrimSpace(p))] = true
	}

	suggestions := make([]PlatformSuggestion, 0)
	for _, m := range detected {
		if m.Confidence <= platformSuggestThreshold || selected[m.Platform] {
			continue
		}
		suggestions = append(suggestions, PlatformSuggestion{
			Platform:   m.Platform,
			Confidence: m.Confidence,
			Message:    fmt.Sprintf("%s detected in your description. Add it to your platforms?", PlatformDisplayName(m.Platform)),
		})
	}
	return suggestions
}

// buildRecommendations applies the inclusion rules, then orders by priority.
// Equal priorities keep rule order.
func buildRecommendations(a *Analysis) []Recommendation {
	recs := make([]Recommendation, 0)

	if top := a.TopTemplate(); top != nil && top.Confidence > templateRecommendThreshold {
		recs = append(recs, Recommendation{
			Type:     RecTemplate,
			Priority: PriorityHigh,
			Message:  fmt.Sprintf("The %s template matches your project (%d%% match)", top.TemplateID, top.Confidence),
			Action:   "apply_template",
			Payload:  map[string]any{"templateId": top.TemplateID},
		})
	}

	if len(a.Platforms.Detected) > 0 && a.Platforms.Detected[0].Confidence > platformSuggestThreshold {
		top := a.Platforms.Detected[0]
		recs = append(recs, Recommendation{
			Type:     RecPlatform,
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("Optimize your images for %s", PlatformDisplayName(top.Platform)),
			Action:   "add_platform",
			Payload:  map[string]any{"platform": top.Platform},
		})
	}

	if a.Complexity.HasComplexity {
		recs = append(recs, Recommendation{
			Type:     RecPricing,
			Priority: PriorityHigh,
			Message:  fmt.Sprintf("Complex details detected: +$%d additional cost per image", a.Complexity.TotalAdditionalCost),
			Action:   "review_pricing",
			Payload: map[string]any{
				"additionalCost": a.Complexity.TotalAdditionalCost,
				"categories":     a.Complexity.Categories(),
			},
		})
	}

	if a.Urgency != nil && a.Urgency.Confidence > urgencyRecommendThreshold {
		recs = append(recs, Recommendation{
			Type:     RecUrgency,
			Priority: PriorityMedium,
			Message:  a.Urgency.Suggestion,
			Action:   "set_urgency",
			Payload:  map[string]any{"urgency": string(a.Urgency.Level)},
		})
	}

	if a.AssetCount != nil && a.AssetCount.Confidence > packageRecommendThreshold {
		recs = append(recs, Recommendation{
			Type:     RecPackage,
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("%d assets mentioned. Pick a package that covers this volume", a.AssetCount.Count),
			Action:   "suggest_package",
			Payload:  map[string]any{"assetCount": a.AssetCount.Count},
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Weight() > recs[j].Priority.Weight()
	})
	return recs
}

// buildWarnings flags mismatches between the brief and the form selections.
// Warnings never change recommendations.
func buildWarnings(a *Analysis, chosen UrgencyLevel) []string {
	warnings := make([]string, 0)

	if a.Urgency != nil && chosen == UrgencyStandard {
		warnings = append(warnings, fmt.Sprintf("Your description mentions %q but standard delivery is selected", a.Urgency.MatchedKeyword))
	}
	if a.Complexity.HasComplexity {
		warnings = append(warnings, fmt.Sprintf("Complex elements (%s) add $%d per image",
			strings.Join(a.Complexity.Categories(), ", "), a.Complexity.TotalAdditionalCost))
	}
	return warnings
}

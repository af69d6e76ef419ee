package analyzer

import (
	"encoding/json"
	"strings"
)

// UrgencyLevel is the delivery speed a client asks for
type UrgencyLevel string

const (
	UrgencyStandard  UrgencyLevel = "standard"
	UrgencyRush      UrgencyLevel = "rush"
	UrgencyEmergency UrgencyLevel = "emergency"
)

// ParseUrgencyLevel normalizes caller input, ignoring case and surrounding
// space. Anything unrecognized is standard.
func ParseUrgencyLevel(s string) UrgencyLevel {
	switch level := UrgencyLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case UrgencyRush, UrgencyEmergency:
		return level
	default:
		return UrgencyStandard
	}
}

// PlatformMatch is a platform implied by the brief
type PlatformMatch struct {
	Platform       string `json:"platform"`
	MatchedKeyword string `json:"keyword"`
	Confidence     int    `json:"confidence"`
}

// ComplexityIssue is a cost-driving visual trait found in the brief
type ComplexityIssue struct {
	Category       string `json:"type"`
	MatchedKeyword string `json:"keyword"`
	Confidence     int    `json:"confidence"`
	AdditionalCost int    `json:"additionalCost"`
	Description    string `json:"description"`
}

// ComplexityAnalysis groups complexity issues and their combined surcharge
type ComplexityAnalysis struct {
	Issues              []ComplexityIssue `json:"issues"`
	TotalAdditionalCost int               `json:"totalAdditionalCost"`
	HasComplexity       bool              `json:"hasComplexity"`
}

// Categories returns the matched category names in order
func (c ComplexityAnalysis) Categories() []string {
	out := make([]string, 0, len(c.Issues))
	for _, issue := range c.Issues {
		out = append(out, issue.Category)
	}
	return out
}

// TemplateMatch is a ranked workflow preset recommendation
type TemplateMatch struct {
	TemplateID string `json:"templateId"`
	Confidence int    `json:"confidence"` // 0-95
	Reason     string `json:"reason"`
}

// UrgencyMatch is the urgency implied by the brief
type UrgencyMatch struct {
	Level          UrgencyLevel `json:"level"`
	MatchedKeyword string       `json:"keyword"`
	Confidence     int          `json:"confidence"`
	Suggestion     string       `json:"suggestion"`
}

// AssetCountEstimate is the largest "<N> photos" style count in the brief
type AssetCountEstimate struct {
	Count      int    `json:"count"`
	Context    string `json:"context"`
	Confidence int    `json:"confidence"`
}

// RecommendationType identifies which detector produced a recommendation
type RecommendationType string

const (
	RecTemplate RecommendationType = "template"
	RecPlatform RecommendationType = "platform"
	RecPricing  RecommendationType = "pricing"
	RecUrgency  RecommendationType = "urgency"
	RecPackage  RecommendationType = "package"
)

// Priority orders recommendations for display
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight returns the sort weight of a priority (high=3, medium=2, low=1)
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Recommendation is an actionable suggestion the form can apply or dismiss
type Recommendation struct {
	Type     RecommendationType `json:"type"`
	Priority Priority           `json:"priority"`
	Message  string             `json:"message"`
	Action   string             `json:"action"`
	Payload  map[string]any     `json:"data"`
}

// PlatformSuggestion proposes adding a detected platform the client has not selected
type PlatformSuggestion struct {
	Platform   string `json:"platform"`
	Confidence int    `json:"confidence"`
	Message    string `json:"message"`
}

// PlatformAnalysis holds detected platforms and the ones worth suggesting
type PlatformAnalysis struct {
	Detected    []PlatformMatch      `json:"detected"`
	Suggestions []PlatformSuggestion `json:"suggestions"`
}

// Analysis is the result of AnalyzeInput.
//
// Briefs too short to analyse produce the degenerate shell
// {"suggestions":[],"warnings":[],"recommendations":[]} when encoded;
// everything else produces the full shape.
type Analysis struct {
	Platforms              PlatformAnalysis    `json:"platforms"`
	Complexity             ComplexityAnalysis  `json:"complexity"`
	Templates              []TemplateMatch     `json:"templates"`
	Urgency                *UrgencyMatch       `json:"urgency"`
	AssetCount             *AssetCountEstimate `json:"assetCount"`
	OverallRecommendations []Recommendation    `json:"overallRecommendations"`
	Warnings               []string            `json:"warnings"`

	empty bool
}

// Empty reports whether the input was too short and the shell shape applies
func (a *Analysis) Empty() bool {
	return a.empty
}

// TopTemplate returns the best template match, if any
func (a *Analysis) TopTemplate() *TemplateMatch {
	if len(a.Templates) == 0 {
		return nil
	}
	return &a.Templates[0]
}

type emptyShell struct {
	Suggestions     []PlatformSuggestion `json:"suggestions"`
	Warnings        []string             `json:"warnings"`
	Recommendations []Recommendation     `json:"recommendations"`
}

// MarshalJSON keeps the short-input shell shape consumers already depend on
func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.empty {
		return json.Marshal(emptyShell{
			Suggestions:     []PlatformSuggestion{},
			Warnings:        []string{},
			Recommendations: []Recommendation{},
		})
	}
	type plain Analysis
	return json.Marshal(plain(a))
}

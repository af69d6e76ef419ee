package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var assetCountRegex = regexp.MustCompile(`(?i)(\d+)\s*(photos?|images?|pictures?|assets?|products?|items?)`)

// assetCountConfidence is fixed: an explicit count is a strong signal
const assetCountConfidence = 80

// DetectPlatforms finds the sales and social platforms a brief implies.
// At most one match per platform, sorted by confidence descending.
func DetectPlatforms(text string) []PlatformMatch {
	lower := strings.ToLower(text)
	matches := make([]PlatformMatch, 0)

	for _, rule := range platformRules {
		kw, ok := firstMatch(lower, rule.Keywords)
		if !ok {
			continue
		}
		matches = append(matches, PlatformMatch{
			Platform:       rule.Platform,
			MatchedKeyword: kw,
			Confidence:     ConfidenceScore(lower, kw),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// DetectComplexity finds cost-driving visual traits. Every matched category
// adds its fixed surcharge regardless of confidence.
func DetectComplexity(text string) ComplexityAnalysis {
	lower := strings.ToLower(text)
	issues := make([]ComplexityIssue, 0)
	total := 0

	for _, rule := range complexityRules {
		kw, ok := firstMatch(lower, rule.Keywords)
		if !ok {
			continue
		}
		issues = append(issues, ComplexityIssue{
			Category:       rule.Category,
			MatchedKeyword: kw,
			Confidence:     ConfidenceScore(lower, kw),
			AdditionalCost: rule.AdditionalCost,
			Description:    rule.Description,
		})
		total += rule.AdditionalCost
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Confidence > issues[j].Confidence
	})

	return ComplexityAnalysis{
		Issues:              issues,
		TotalAdditionalCost: total,
		HasComplexity:       len(issues) > 0,
	}
}

// RecommendTemplate ranks workflow presets. Unlike the other detectors every
// matching keyword in a category counts: scores are summed, scaled by 20 and
// capped at 95. Returns at most three templates.
func RecommendTemplate(text string) []TemplateMatch {
	lower := strings.ToLower(text)
	matches := make([]TemplateMatch, 0)

	for _, rule := range templateRules {
		score := 0
		var hits []string
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				score += ConfidenceScore(lower, kw)
				hits = append(hits, kw)
			}
		}
		if score == 0 {
			continue
		}
		matches = append(matches, TemplateMatch{
			TemplateID: rule.TemplateID,
			Confidence: min(score*20, maxConfidence),
			Reason:     fmt.Sprintf("Matched %s", strings.Join(hits, ", ")),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}
	return matches
}

// DetectUrgency returns the first urgency keyword found, or nil.
// Rush keywords are scanned before emergency keywords.
func DetectUrgency(text string) *UrgencyMatch {
	lower := strings.ToLower(text)

	for _, rule := range urgencyRules {
		if kw, ok := firstMatch(lower, rule.Keywords); ok {
			return &UrgencyMatch{
				Level:          rule.Level,
				MatchedKeyword: kw,
				Confidence:     ConfidenceScore(lower, kw),
				Suggestion:     rule.Suggestion,
			}
		}
	}
	return nil
}

// ExtractAssetCount picks the largest "<N> photos" style count in the text,
// or nil when there is none.
func ExtractAssetCount(text string) *AssetCountEstimate {
	var best *AssetCountEstimate

	for _, m := range assetCountRegex.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if best == nil || n > best.Count {
			best = &AssetCountEstimate{Count: n, Context: m[0]}
		}
	}

	if best == nil || best.Count <= 0 {
		return nil
	}
	best.Confidence = assetCountConfidence
	return best
}

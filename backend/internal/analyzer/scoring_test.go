package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		keyword string
		want    int
	}{
		{"short embedded late", "we would love some wigs", "wig", 60},
		{"length over five", "we would like a necklace", "necklace", 85},
		{"length over eight capped", "instagram", "instagram", 95},
		{"early position only", "ring,xxxxxxxxxxxxxxxxxxxxx", "ring", 70},
		{"whole word late", "please edit the shots of our fur", "fur", 75},
		{"missing keyword", "nothing here", "absent", 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfidenceScore(tt.text, tt.keyword))
		})
	}
}

func TestConfidenceScore_WholeWordBonus(t *testing.T) {
	standalone := ConfidenceScore("photos of a chain for the catalog", "chain")
	embedded := ConfidenceScore("photos of a chainsaw for the catalog", "chain")

	assert.Equal(t, 75, standalone)
	assert.Equal(t, 60, embedded)
	assert.Equal(t, 15, standalone-embedded)
}

func TestConfidenceScore_Bounds(t *testing.T) {
	texts := []string{
		shopBrief,
		"x",
		"shopee",
		"a very long brief about amazon listing photography with a lot of extra words at the end",
	}
	for _, text := range texts {
		for _, rule := range platformRules {
			for _, kw := range rule.Keywords {
				score := ConfidenceScore(text, kw)
				assert.GreaterOrEqual(t, score, 60)
				assert.LessOrEqual(t, score, 95)
			}
		}
	}
}

func TestConfidenceScore_UnicodeWhitespace(t *testing.T) {
	// non-breaking space counts as whitespace
	assert.Equal(t, 95, ConfidenceScore("shopee\u00a0store", "shopee"))
}

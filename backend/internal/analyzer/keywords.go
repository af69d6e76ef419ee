package analyzer

// Keyword tables are matched as lowercase substrings. Declaration order is
// significant: within a category the first listed keyword that occurs wins,
// and urgency categories are checked in the order declared.

// PlatformRule maps a platform to its trigger phrases
type PlatformRule struct {
	Platform    string   `json:"platform" yaml:"platform"`
	DisplayName string   `json:"displayName" yaml:"display_name"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
}

// ComplexityRule maps a cost-driving trait to its trigger phrases
type ComplexityRule struct {
	Category       string   `json:"category" yaml:"category"`
	Keywords       []string `json:"keywords" yaml:"keywords"`
	AdditionalCost int      `json:"additionalCost" yaml:"additional_cost"`
	Description    string   `json:"description" yaml:"description"`
}

// TemplateRule maps a workflow preset to its trigger phrases
type TemplateRule struct {
	TemplateID string   `json:"templateId" yaml:"template_id"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
}

// UrgencyRule maps an urgency level to its trigger phrases
type UrgencyRule struct {
	Level      UrgencyLevel `json:"level" yaml:"level"`
	Keywords   []string     `json:"keywords" yaml:"keywords"`
	Suggestion string       `json:"suggestion" yaml:"suggestion"`
}

// complexityCost is the surcharge per matched complexity category
const complexityCost = 25

var platformRules = []PlatformRule{
	{Platform: "shopee", DisplayName: "Shopee", Keywords: []string{"shopee", "shopee mall", "shopee store"}},
	{Platform: "lazada", DisplayName: "Lazada", Keywords: []string{"lazada", "lazmall", "lazada store"}},
	{Platform: "amazon", DisplayName: "Amazon", Keywords: []string{"amazon", "amazon fba", "amazon listing", "seller central"}},
	{Platform: "instagram", DisplayName: "Instagram", Keywords: []string{"instagram", "insta", "ig post", "ig story", "reels"}},
	{Platform: "facebook", DisplayName: "Facebook", Keywords: []string{"facebook", "fb page", "fb ads", "meta ads", "marketplace"}},
	{Platform: "tiktok", DisplayName: "TikTok", Keywords: []string{"tiktok", "tik tok", "tiktok shop"}},
	{Platform: "google-ads", DisplayName: "Google Ads", Keywords: []string{"google ads", "google shopping", "adwords", "display ads"}},
	{Platform: "website", DisplayName: "Website", Keywords: []string{"website", "web site", "online store", "shopify", "woocommerce", "landing page"}},
}

var complexityRules = []ComplexityRule{
	{
		Category:       "hair",
		Keywords:       []string{"hair", "hairstyle", "curly", "flyaway", "wig", "model shot"},
		AdditionalCost: complexityCost,
		Description:    "Hair and fine strands need manual masking",
	},
	{
		Category:       "jewelry",
		Keywords:       []string{"jewelry", "jewellery", "necklace", "earring", "bracelet", "chain", "diamond", "gemstone"},
		AdditionalCost: complexityCost,
		Description:    "Jewelry needs detailed clipping and reflection cleanup",
	},
	{
		Category:       "glass",
		Keywords:       []string{"glass", "transparent", "reflective", "bottle", "perfume", "see-through"},
		AdditionalCost: complexityCost,
		Description:    "Glass and transparent items need shadow and reflection work",
	},
	{
		Category:       "fur",
		Keywords:       []string{"fur", "furry", "fluffy", "plush", "pet hair", "wool"},
		AdditionalCost: complexityCost,
		Description:    "Fur and soft textures need edge refinement",
	},
	{
		Category:       "intricate",
		Keywords:       []string{"intricate", "lacework", "embroidery", "mesh", "detailed pattern", "filigree"},
		AdditionalCost: complexityCost,
		Description:    "Intricate patterns need precise path work",
	},
}

var templateRules = []TemplateRule{
	{TemplateID: "ecommerce-product", Keywords: []string{"product", "ecommerce", "e-commerce", "white background", "catalog", "listing", "marketplace", "packshot"}},
	{TemplateID: "social-media", Keywords: []string{"social", "instagram", "tiktok", "post", "story", "reel", "feed", "influencer"}},
	{TemplateID: "marketing-campaign", Keywords: []string{"campaign", "banner", "advert", "promotion", "launch", "sale", "billboard"}},
	{TemplateID: "quick-edit", Keywords: []string{"quick", "simple", "basic", "crop", "resize", "touch up", "retouch"}},
}

var urgencyRules = []UrgencyRule{
	{
		Level:      UrgencyRush,
		Keywords:   []string{"urgent", "asap", "rush", "quickly", "deadline", "tomorrow", "fast turnaround"},
		Suggestion: "Rush delivery (24 hours) looks like a fit for this timeline",
	},
	{
		Level:      UrgencyEmergency,
		Keywords:   []string{"emergency", "immediately", "right now", "today", "within hours", "same day"},
		Suggestion: "Emergency delivery (same day) looks like a fit for this timeline",
	},
}

// KeywordTables is a read-only snapshot of the compiled-in keyword tables
type KeywordTables struct {
	Platforms  []PlatformRule   `json:"platforms" yaml:"platforms"`
	Complexity []ComplexityRule `json:"complexity" yaml:"complexity"`
	Templates  []TemplateRule   `json:"templates" yaml:"templates"`
	Urgency    []UrgencyRule    `json:"urgency" yaml:"urgency"`
}

// Keywords returns a copy of the keyword tables so callers cannot mutate them
func Keywords() KeywordTables {
	t := KeywordTables{
		Platforms:  make([]PlatformRule, len(platformRules)),
		Complexity: make([]ComplexityRule, len(complexityRules)),
		Templates:  make([]TemplateRule, len(templateRules)),
		Urgency:    make([]UrgencyRule, len(urgencyRules)),
	}
	for i, r := range platformRules {
		r.Keywords = append([]string(nil), r.Keywords...)
		t.Platforms[i] = r
	}
	for i, r := range complexityRules {
		r.Keywords = append([]string(nil), r.Keywords...)
		t.Complexity[i] = r
	}
	for i, r := range templateRules {
		r.Keywords = append([]string(nil), r.Keywords...)
		t.Templates[i] = r
	}
	for i, r := range urgencyRules {
		r.Keywords = append([]string(nil), r.Keywords...)
		t.Urgency[i] = r
	}
	return t
}

// PlatformDisplayName returns the human-readable platform name
func PlatformDisplayName(platform string) string {
	for _, r := range platformRules {
		if r.Platform == platform {
			return r.DisplayName
		}
	}
	return platform
}

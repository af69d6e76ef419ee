package intake

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is the YAML form of the intake policy, compiled to Cedar on load.
// Zero values disable the corresponding check.
type Rules struct {
	Version                string   `yaml:"version"`
	MaxAssets              int      `yaml:"max_assets"`          // review above this many assets
	MaxComplexityCost      int      `yaml:"max_complexity_cost"` // review at or above this surcharge
	EmergencyComplexReview bool     `yaml:"emergency_complex_review"`
	ReviewPlatforms        []string `yaml:"review_platforms"` // always reviewed when detected
	ReviewTemplates        []string `yaml:"review_templates"` // always reviewed when top-ranked
}

// DefaultRules mirrors DefaultPolicy
func DefaultRules() Rules {
	return Rules{
		Version:                "default",
		MaxAssets:              500,
		MaxComplexityCost:      75,
		EmergencyComplexReview: true,
	}
}

var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ParseRules decodes YAML rules, rejecting unknown keys
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return Rules{}, fmt.Errorf("failed to parse intake rules: %w", err)
	}
	return r, nil
}

// CompileRules converts rules into Cedar policy text
func CompileRules(r Rules) (string, error) {
	var b strings.Builder

	b.WriteString("// Generated from intake rules, edit the YAML instead\n")
	if r.Version != "" {
		fmt.Fprintf(&b, "// Rules version: %s\n", r.Version)
	}
	b.WriteString("\n")

	b.WriteString(`@id("auto-quote")
@obligation("AutoQuote")
permit (principal, action == Action::"quote", resource);

`)

	if r.MaxAssets > 0 {
		writeForbid(&b, "large-batch", "asset count above the self-serve limit",
			fmt.Sprintf("context.asset_count > %d", r.MaxAssets))
	}
	if r.EmergencyComplexReview {
		writeForbid(&b, "emergency-complex", "emergency turnaround on complex edits",
			`context.urgency == "emergency" && context.has_complexity`)
	}
	if r.MaxComplexityCost > 0 {
		writeForbid(&b, "heavy-complexity", fmt.Sprintf("complexity surcharge of $%d or more", r.MaxComplexityCost),
			fmt.Sprintf("context.complexity_cost >= %d", r.MaxComplexityCost))
	}

	for _, p := range r.ReviewPlatforms {
		if !identifierPattern.MatchString(p) {
			return "", fmt.Errorf("invalid platform name %q in review_platforms", p)
		}
		writeForbid(&b, "review-platform-"+p, fmt.Sprintf("%s briefs are always reviewed", p),
			fmt.Sprintf(`context.platforms.contains("%s")`, p))
	}
	for _, t := range r.ReviewTemplates {
		if !identifierPattern.MatchString(t) {
			return "", fmt.Errorf("invalid template id %q in review_templates", t)
		}
		writeForbid(&b, "review-template-"+t, fmt.Sprintf("%s projects are always reviewed", t),
			fmt.Sprintf(`context.template == "%s"`, t))
	}

	return b.String(), nil
}

func writeForbid(b *strings.Builder, id, reason, condition string) {
	fmt.Fprintf(b, `@id("%s")
@obligation("ManualReview")
@reason("%s")
forbid (principal, action == Action::"quote", resource)
when { %s };

`, id, reason, condition)
}

// isRulesFile reports whether path holds YAML rules rather than Cedar text
func isRulesFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func compileRulesFile(data []byte) ([]byte, error) {
	r, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	text, err := CompileRules(r)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// render writes v in the selected format; text output is delegated to printText
func render(w io.Writer, v any, printText func(io.Writer)) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round-trip through JSON so YAML keys match the API field names
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		printText(w)
		return nil
	}
}

func printAnalysis(w io.Writer, a *analyzer.Analysis, decision *intake.Result) {
	if a.Empty() {
		faint.Fprintf(w, "Brief too short to analyze (need at least %d characters).\n", analyzer.MinInputLength)
		return
	}

	if decision != nil {
		if decision.Decision == intake.AutoQuote {
			green.Fprintln(w, "  AUTO QUOTE  ")
		} else {
			red.Fprintln(w, "  MANUAL REVIEW  ")
		}
		fmt.Fprintf(w, "%s %s\n\n", bold.Sprint("Reason:"), decision.Reason)
	}

	yellow.Fprintln(w, "┌─ Signals ──────────────────────────────────────────")
	fmt.Fprintf(w, "│ Platforms:  %s\n", joinOrNone(platformNames(a.Platforms.Detected)))
	complexity := joinOrNone(a.Complexity.Categories())
	if a.Complexity.HasComplexity {
		complexity = fmt.Sprintf("%s (+$%d per image)", complexity, a.Complexity.TotalAdditionalCost)
	}
	fmt.Fprintf(w, "│ Complexity: %s\n", complexity)
	if top := a.TopTemplate(); top != nil {
		fmt.Fprintf(w, "│ Template:   %s (%d%%)\n", top.TemplateID, top.Confidence)
	} else {
		fmt.Fprintf(w, "│ Template:   none\n")
	}
	if a.Urgency != nil {
		fmt.Fprintf(w, "│ Urgency:    %s (%q)\n", a.Urgency.Level, a.Urgency.MatchedKeyword)
	} else {
		fmt.Fprintf(w, "│ Urgency:    none\n")
	}
	if a.AssetCount != nil {
		fmt.Fprintf(w, "│ Assets:     %d\n", a.AssetCount.Count)
	} else {
		fmt.Fprintf(w, "│ Assets:     unknown\n")
	}
	yellow.Fprintln(w, "└────────────────────────────────────────────────────")

	if len(a.OverallRecommendations) > 0 {
		cyan.Fprintln(w, "┌─ Recommendations ──────────────────────────────────")
		for _, rec := range a.OverallRecommendations {
			fmt.Fprintf(w, "│ [%s] %s\n", rec.Priority, rec.Message)
		}
		cyan.Fprintln(w, "└────────────────────────────────────────────────────")
	}

	for _, s := range a.Platforms.Suggestions {
		fmt.Fprintf(w, "%s %s\n", bold.Sprint("Suggestion:"), s.Message)
	}
	for _, warning := range a.Warnings {
		fmt.Fprintf(w, "%s %s\n", red.Sprint("Warning:"), warning)
	}
}

func printDetector(w io.Writer, kind string, result any) {
	switch r := result.(type) {
	case []analyzer.PlatformMatch:
		for _, p := range r {
			fmt.Fprintf(w, "%-12s %3d%%  %q\n", p.Platform, p.Confidence, p.MatchedKeyword)
		}
		if len(r) == 0 {
			faint.Fprintln(w, "no platforms detected")
		}
	case analyzer.ComplexityAnalysis:
		for _, c := range r.Issues {
			fmt.Fprintf(w, "%-10s %3d%%  %q  +$%d  %s\n", c.Category, c.Confidence, c.MatchedKeyword, c.AdditionalCost, c.Description)
		}
		if !r.HasComplexity {
			faint.Fprintln(w, "no complexity detected")
			return
		}
		fmt.Fprintf(w, "%s +$%d per image\n", bold.Sprint("Total:"), r.TotalAdditionalCost)
	case []analyzer.TemplateMatch:
		for _, t := range r {
			fmt.Fprintf(w, "%-20s %3d%%  %s\n", t.TemplateID, t.Confidence, t.Reason)
		}
		if len(r) == 0 {
			faint.Fprintln(w, "no templates matched")
		}
	case *analyzer.UrgencyMatch:
		fmt.Fprintf(w, "%s %3d%%  %q\n%s\n", r.Level, r.Confidence, r.MatchedKeyword, r.Suggestion)
	case *analyzer.AssetCountEstimate:
		fmt.Fprintf(w, "%d assets (%q)\n", r.Count, r.Context)
	default:
		faint.Fprintf(w, "no %s detected\n", kind)
	}
}

func printKeywords(w io.Writer, t analyzer.KeywordTables) {
	bold.Fprintln(w, "Platforms")
	for _, p := range t.Platforms {
		fmt.Fprintf(w, "  %-12s %s\n", p.Platform, strings.Join(p.Keywords, ", "))
	}
	bold.Fprintln(w, "Complexity")
	for _, c := range t.Complexity {
		fmt.Fprintf(w, "  %-12s +$%d  %s\n", c.Category, c.AdditionalCost, strings.Join(c.Keywords, ", "))
	}
	bold.Fprintln(w, "Templates")
	for _, tr := range t.Templates {
		fmt.Fprintf(w, "  %-20s %s\n", tr.TemplateID, strings.Join(tr.Keywords, ", "))
	}
	bold.Fprintln(w, "Urgency")
	for _, u := range t.Urgency {
		fmt.Fprintf(w, "  %-12s %s\n", u.Level, strings.Join(u.Keywords, ", "))
	}
}

func platformNames(matches []analyzer.PlatformMatch) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, analyzer.PlatformDisplayName(m.Platform))
	}
	return names
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

package mcp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
)

type tool struct {
	name        string
	description string
	full        bool // accepts current_platforms and urgency
}

var tools = []tool{
	{"analyze_brief", "Runs the full brief analysis: platforms, complexity, templates, urgency, asset count and recommendations", true},
	{"detect_platforms", "Lists the sales or social platforms mentioned in a brief", false},
	{"detect_complexity", "Lists cost-driving details (hair, jewelry, glass, fur, intricate patterns) and the surcharge", false},
	{"recommend_templates", "Ranks up to three workflow templates that fit a brief", false},
	{"detect_urgency", "Classifies the turnaround a brief asks for as rush or emergency", false},
	{"extract_asset_count", "Estimates how many images a brief mentions", false},
	{"evaluate_intake", "Analyzes a brief and decides whether it can be quoted automatically", true},
}

func toolList() []interface{} {
	list := make([]interface{}, 0, len(tools))
	for _, t := range tools {
		props := map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Free-text project brief",
			},
		}
		if t.full {
			props["current_platforms"] = map[string]interface{}{
				"type":        "array",
				"items":       map[string]string{"type": "string"},
				"description": "Platforms already selected on the form",
			}
			props["urgency"] = map[string]interface{}{
				"type":        "string",
				"enum":        []string{"standard", "rush", "emergency"},
				"description": "Urgency currently selected on the form",
			}
		}
		list = append(list, map[string]interface{}{
			"name":        t.name,
			"description": t.description,
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": props,
				"required":   []string{"text"},
			},
		})
	}
	return list
}

func (s *Server) handleToolCall(name string, args map[string]interface{}) (interface{}, *RPCError) {
	start := time.Now()

	text, ok := args["text"].(string)
	if !ok {
		if !knownTool(name) {
			return nil, &RPCError{Code: codeMethodNotFound, Message: "Tool not found"}
		}
		return nil, &RPCError{Code: codeInvalidParams, Message: "text must be a string"}
	}

	var out interface{}
	var decision *intake.Result

	switch name {
	case "analyze_brief":
		platforms, urgency := formArgs(args)
		out = s.assistant.AnalyzeInput(text, platforms, urgency)
	case "detect_platforms":
		out = s.assistant.DetectPlatforms(text)
	case "detect_complexity":
		out = s.assistant.DetectComplexity(text)
	case "recommend_templates":
		out = s.assistant.RecommendTemplate(text)
	case "detect_urgency":
		if u := s.assistant.DetectUrgency(text); u != nil {
			out = u
		}
	case "extract_asset_count":
		if c := s.assistant.ExtractAssetCount(text); c != nil {
			out = c
		}
	case "evaluate_intake":
		if s.intake == nil {
			return nil, &RPCError{Code: codeToolFailed, Message: intake.ErrPolicyNotLoaded.Error()}
		}
		platforms, urgency := formArgs(args)
		analysis := s.assistant.AnalyzeInput(text, platforms, urgency)
		result := s.intake.Evaluate(uuid.New().String(), analysis)
		decision = &result
		out = map[string]interface{}{
			"summary":  result.Describe(),
			"analysis": analysis,
			"intake":   result,
		}
	default:
		return nil, &RPCError{Code: codeMethodNotFound, Message: "Tool not found"}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, &RPCError{Code: codeToolFailed, Message: fmt.Sprintf("failed to encode result: %v", err)}
	}

	s.recordCall(name, len(text), start, decision)

	return map[string]interface{}{
		"content": []interface{}{
			map[string]interface{}{
				"type": "text",
				"text": string(data),
			},
		},
		"isError": false,
	}, nil
}

func knownTool(name string) bool {
	for _, t := range tools {
		if t.name == name {
			return true
		}
	}
	return false
}

// formArgs reads the optional form state; malformed entries are ignored
func formArgs(args map[string]interface{}) ([]string, analyzer.UrgencyLevel) {
	var platforms []string
	if raw, ok := args["current_platforms"].([]interface{}); ok {
		for _, p := range raw {
			if str, ok := p.(string); ok {
				platforms = append(platforms, str)
			}
		}
	}
	urgency, _ := args["urgency"].(string)
	return platforms, analyzer.ParseUrgencyLevel(urgency)
}

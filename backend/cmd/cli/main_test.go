package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
	"github.com/retouchly/brief-assistant/backend/internal/logger"
)

const brief = "Urgent: 20 product photos with curly hair models for our Shopee store"

func withFormat(t *testing.T, format string) {
	t.Helper()
	prev, prevColor := outputFormat, color.NoColor
	outputFormat = format
	color.NoColor = true
	t.Cleanup(func() {
		outputFormat = prev
		color.NoColor = prevColor
	})
}

func testEngine(t *testing.T) *intake.Engine {
	t.Helper()
	e, err := intake.NewEngineFromBytes([]byte(intake.DefaultPolicy), logger.Discard())
	require.NoError(t, err)
	return e
}

func TestRunAnalysis_Text(t *testing.T) {
	withFormat(t, "text")
	var out bytes.Buffer

	require.NoError(t, runAnalysis(&out, testEngine(t), brief, nil, analyzer.UrgencyStandard))

	text := out.String()
	assert.Contains(t, text, "AUTO QUOTE")
	assert.Contains(t, text, "Platforms:  Shopee")
	assert.Contains(t, text, "Complexity: hair (+$25 per image)")
	assert.Contains(t, text, "Assets:     20")
	assert.Contains(t, text, "Warning:")
}

func TestRunAnalysis_JSON(t *testing.T) {
	withFormat(t, "json")
	var out bytes.Buffer

	require.NoError(t, runAnalysis(&out, testEngine(t), brief, []string{"shopee"}, analyzer.UrgencyRush))

	var resp struct {
		Analysis map[string]json.RawMessage `json:"analysis"`
		Intake   *intake.Result             `json:"intake"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Intake)
	assert.Equal(t, intake.AutoQuote, resp.Intake.Decision)
	assert.Contains(t, resp.Analysis, "templates")
}

func TestRunAnalysis_ShortBrief(t *testing.T) {
	withFormat(t, "text")
	var out bytes.Buffer

	require.NoError(t, runAnalysis(&out, testEngine(t), "hi there", nil, analyzer.UrgencyStandard))

	assert.Contains(t, out.String(), "too short")
	assert.NotContains(t, out.String(), "MANUAL REVIEW")
}

func TestRender_YAMLUsesAPIFieldNames(t *testing.T) {
	withFormat(t, "yaml")
	var out bytes.Buffer

	require.NoError(t, render(&out, analyzer.DetectPlatforms("Shopee and Lazada listings"), nil))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "shopee", decoded[0]["platform"])
	assert.Equal(t, "shopee", decoded[0]["keyword"])
}

func TestPrintDetector(t *testing.T) {
	withFormat(t, "text")

	var out bytes.Buffer
	printDetector(&out, "assets", nil)
	assert.Equal(t, "no assets detected\n", out.String())

	out.Reset()
	printDetector(&out, "complexity", analyzer.DetectComplexity("gold necklace on a glass stand"))
	assert.Contains(t, out.String(), "jewelry")
	assert.Contains(t, out.String(), "Total: +$50 per image")
}

func TestREPL(t *testing.T) {
	withFormat(t, "text")
	var out bytes.Buffer
	in := strings.NewReader("\n" + brief + "\nexit\nshould not be analyzed\n")

	require.NoError(t, repl(in, &out, nil))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "┌─ Signals"))
	assert.Contains(t, text, "Goodbye!")
	assert.NotContains(t, text, "AUTO QUOTE")
}

func TestBriefText(t *testing.T) {
	text, err := briefText([]string{"two", "words"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "two words", text)

	text, err = briefText(nil, strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/audit"
	"github.com/retouchly/brief-assistant/backend/internal/cache"
	"github.com/retouchly/brief-assistant/backend/internal/config"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
	"github.com/retouchly/brief-assistant/backend/internal/logger"
	"github.com/retouchly/brief-assistant/backend/internal/metrics"
)

const shopBrief = "Selling phone cases on Shopee and Lazada, need white background, crystal jewelry chains attached, launch campaign urgently"

func newTestHandler(t *testing.T, opts ...func(*HandlerConfig)) *HandlerConfig {
	t.Helper()
	cfg := config.Load()
	cfg.Server.MaxRequestSize = 1024

	engine, err := intake.NewEngineFromBytes([]byte(intake.DefaultPolicy), logger.Discard())
	require.NoError(t, err)

	auditLog, err := audit.NewLogger(filepath.Join(t.TempDir(), "audit.log"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { auditLog.Close() })

	hc := &HandlerConfig{
		Config:    cfg,
		Assistant: analyzer.NewAssistant(),
		Intake:    engine,
		Cache:     cache.NewResponseCache(10, time.Minute),
		Audit:     auditLog,
		Logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze_FullShape(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	rec := post(t, h, "/api/analyze", `{"text":"`+shopBrief+`","currentPlatforms":["shopee"],"urgency":"standard"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.Equal(t, "MISS", rec.Header().Get(headerCache))
	assert.Equal(t, "AUTO_QUOTE", rec.Header().Get(headerIntakeDecision))

	var resp struct {
		Analysis map[string]json.RawMessage `json:"analysis"`
		Intake   intake.Result              `json:"intake"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Analysis, "overallRecommendations")
	assert.Contains(t, resp.Analysis, "platforms")
	assert.Equal(t, intake.AutoQuote, resp.Intake.Decision)

	var complexity analyzer.ComplexityAnalysis
	require.NoError(t, json.Unmarshal(resp.Analysis["complexity"], &complexity))
	assert.Equal(t, 25, complexity.TotalAdditionalCost)
}

func TestAnalyze_ShortInputShell(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	rec := post(t, h, "/api/analyze", `{"text":"hi there","urgency":"rush"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(headerIntakeDecision))
	assert.JSONEq(t, `{"analysis":{"suggestions":[],"warnings":[],"recommendations":[]}}`, rec.Body.String())
}

func TestAnalyze_MissingTextIsShell(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	rec := post(t, h, "/api/analyze", `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"analysis":{"suggestions":[],"warnings":[],"recommendations":[]}}`, rec.Body.String())
}

func TestAnalyze_CacheHit(t *testing.T) {
	h := NewRouter(newTestHandler(t))
	body := `{"text":"` + shopBrief + `"}`

	first := post(t, h, "/api/analyze", body)
	second := post(t, h, "/api/analyze", body)

	assert.Equal(t, "MISS", first.Header().Get(headerCache))
	assert.Equal(t, "HIT", second.Header().Get(headerCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(headerIntakeDecision), second.Header().Get(headerIntakeDecision))
	assert.NotEqual(t, first.Header().Get(headerRequestID), second.Header().Get(headerRequestID))
}

func TestAnalyze_CacheMissAfterPolicyReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.cedar")
	require.NoError(t, os.WriteFile(path, []byte(intake.DefaultPolicy), 0o644))
	engine, err := intake.NewEngine(path, logger.Discard())
	require.NoError(t, err)

	h := NewRouter(newTestHandler(t, func(hc *HandlerConfig) { hc.Intake = engine }))
	body := `{"text":"` + shopBrief + `"}`

	first := post(t, h, "/api/analyze", body)
	assert.Equal(t, "MISS", first.Header().Get(headerCache))
	assert.Equal(t, "AUTO_QUOTE", first.Header().Get(headerIntakeDecision))

	require.NoError(t, os.WriteFile(path, []byte(`@id("hold-all")
@obligation("ManualReview")
forbid (principal, action, resource);
`), 0o644))
	require.NoError(t, engine.Reload())

	second := post(t, h, "/api/analyze", body)
	assert.Equal(t, "MISS", second.Header().Get(headerCache))
	assert.Equal(t, "MANUAL_REVIEW", second.Header().Get(headerIntakeDecision))
	assert.NotEqual(t, first.Header().Get(headerPolicyVersion), second.Header().Get(headerPolicyVersion))

	third := post(t, h, "/api/analyze", body)
	assert.Equal(t, "HIT", third.Header().Get(headerCache))
	assert.Equal(t, "MANUAL_REVIEW", third.Header().Get(headerIntakeDecision))
}

func TestAnalyze_CacheKeySeparatesPlatforms(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	split := post(t, h, "/api/analyze", `{"text":"`+shopBrief+`","currentPlatforms":["shopee","lazada"]}`)
	require.Equal(t, http.StatusOK, split.Code)
	assert.Equal(t, "MISS", split.Header().Get(headerCache))
	assert.NotContains(t, split.Body.String(), "Lazada detected in your description")

	joined := post(t, h, "/api/analyze", `{"text":"`+shopBrief+`","currentPlatforms":["shopee,lazada"]}`)
	require.Equal(t, http.StatusOK, joined.Code)
	assert.Equal(t, "MISS", joined.Header().Get(headerCache))
	assert.Contains(t, joined.Body.String(), "Lazada detected in your description")
}

func TestAnalyze_CacheHitRecordsMetrics(t *testing.T) {
	h := NewRouter(newTestHandler(t))
	body := `{"text":"` + shopBrief + `"}`

	post(t, h, "/api/analyze", body)
	analyses := testutil.ToFloat64(metrics.AnalysesTotal.WithLabelValues("full"))
	decisions := testutil.ToFloat64(metrics.IntakeDecisions.WithLabelValues("AUTO_QUOTE"))

	rec := post(t, h, "/api/analyze", body)

	require.Equal(t, "HIT", rec.Header().Get(headerCache))
	assert.Equal(t, analyses+1, testutil.ToFloat64(metrics.AnalysesTotal.WithLabelValues("full")))
	assert.Equal(t, decisions+1, testutil.ToFloat64(metrics.IntakeDecisions.WithLabelValues("AUTO_QUOTE")))
}

func TestAnalyze_RejectsNonStringText(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	for _, body := range []string{`{"text":42}`, `["not","an","object"]`, `not json`} {
		rec := post(t, h, "/api/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "invalid_request", errResp.Code)
		assert.Equal(t, rec.Header().Get(headerRequestID), errResp.RequestID)
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	rec := post(t, h, "/api/analyze", `{"text":"`+strings.Repeat("a", 2048)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyze_RateLimited(t *testing.T) {
	hc := newTestHandler(t, func(hc *HandlerConfig) {
		hc.RateLimiter = NewRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})
	})
	h := NewRouter(hc)

	assert.Equal(t, http.StatusOK, post(t, h, "/api/analyze", `{"text":"hello world, product shots"}`).Code)
	rec := post(t, h, "/api/analyze", `{"text":"hello world, product shots"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestAnalyze_WithoutOptionalCollaborators(t *testing.T) {
	h := NewRouter(newTestHandler(t, func(hc *HandlerConfig) {
		hc.Intake = nil
		hc.Cache = nil
		hc.Audit = nil
	}))

	rec := post(t, h, "/api/analyze", `{"text":"`+shopBrief+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(headerCache))
	assert.NotContains(t, rec.Body.String(), `"intake"`)
}

func TestDetect(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	rec := post(t, h, "/api/detect/platforms", `{"text":"`+shopBrief+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var platforms []analyzer.PlatformMatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &platforms))
	require.Len(t, platforms, 2)
	assert.Equal(t, "shopee", platforms[0].Platform)

	rec = post(t, h, "/api/detect/assets", `{"text":"Need a banner for our store"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = post(t, h, "/api/detect/assets", `{"text":"I need 5 photos but maybe up to 12 images total"}`)
	var count analyzer.AssetCountEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, 12, count.Count)

	rec = post(t, h, "/api/detect/sentiment", `{"text":"anything"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunDetector_Unknown(t *testing.T) {
	_, err := RunDetector(analyzer.NewAssistant(), "colour", "text")
	assert.ErrorIs(t, err, ErrUnknownDetector)
}

func TestKeywordsAndStatus(t *testing.T) {
	h := NewRouter(newTestHandler(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/keywords", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var tables analyzer.KeywordTables
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tables))
	assert.Len(t, tables.Platforms, 8)
	assert.Len(t, tables.Complexity, 5)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.Len(t, status["intake_policy_version"], 12)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewRouter(newTestHandler(t))
	post(t, h, "/api/analyze", `{"text":"`+shopBrief+`"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "brief_analyses_total")
}

func TestRateLimiter_PerClient(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RequestsPerMinute: 60, BurstSize: 2})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

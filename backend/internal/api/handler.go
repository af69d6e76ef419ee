package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/audit"
	"github.com/retouchly/brief-assistant/backend/internal/cache"
	"github.com/retouchly/brief-assistant/backend/internal/config"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
	"github.com/retouchly/brief-assistant/backend/internal/metrics"
)

const (
	headerRequestID      = "X-Request-ID"
	headerCache          = "X-Cache"
	headerIntakeDecision = "X-Intake-Decision"
	headerPolicyVersion  = "X-Intake-Policy-Version"
)

type ctxKey int

const requestIDKey ctxKey = iota

// HandlerConfig holds the collaborators of the HTTP API.
// Only Config and Assistant are required.
type HandlerConfig struct {
	Config      *config.Config
	Assistant   *analyzer.Assistant
	Intake      *intake.Engine
	Cache       *cache.ResponseCache
	Audit       *audit.Logger
	RateLimiter *RateLimiter
	Logger      *logrus.Logger
}

// AnalyzeRequest is the body of POST /api/analyze and /api/detect/{kind}
type AnalyzeRequest struct {
	Text             string   `json:"text"`
	CurrentPlatforms []string `json:"currentPlatforms,omitempty"`
	Urgency          string   `json:"urgency,omitempty"`
}

// AnalyzeResponse wraps an analysis with its intake decision
type AnalyzeResponse struct {
	Analysis *analyzer.Analysis `json:"analysis"`
	Intake   *intake.Result     `json:"intake,omitempty"`
}

// NewRouter wires the API routes and middleware
func NewRouter(hc *HandlerConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"brief-assistant"}`))
	})
	mux.HandleFunc("GET /api/status", hc.handleStatus)
	mux.HandleFunc("GET /api/keywords", hc.handleKeywords)
	mux.HandleFunc("POST /api/analyze", hc.limited(hc.handleAnalyze))
	mux.HandleFunc("POST /api/detect/{kind}", hc.limited(hc.handleDetect))

	if hc.Config.Metrics.Enabled {
		mux.Handle("GET "+hc.Config.Metrics.Endpoint, promhttp.Handler())
	}

	return hc.withRequestID(mux)
}

// withRequestID assigns every request an ID and records route metrics
func (hc *HandlerConfig) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set(headerRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		req := r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))
		next.ServeHTTP(rec, req)

		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.LatencyHistogram.Observe(time.Since(start).Seconds())
	})
}

// limited applies the per-client rate limit
func (hc *HandlerConfig) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hc.RateLimiter != nil && !hc.RateLimiter.Allow(clientKey(r)) {
			hc.logInfo("rate limit exceeded for %s", clientKey(r))
			w.Header().Set("Retry-After", "1")
			sendErrorResponse(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, slow down", requestIDFrom(r))
			return
		}
		next(w, r)
	}
}

func (hc *HandlerConfig) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := requestIDFrom(r)

	req, ok := hc.decodeRequest(w, r)
	if !ok {
		return
	}
	urgency := analyzer.ParseUrgencyLevel(req.Urgency)

	key := hc.analyzeCacheKey(req, urgency)
	if hc.Cache != nil {
		entry, hit := hc.Cache.Get(key)
		metrics.RecordCacheLookup(hit)
		if hit {
			for k, v := range entry.Headers {
				w.Header().Set(k, v)
			}
			w.Header().Set(headerCache, "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(entry.Response)

			auditEntry := audit.Entry{
				RequestID:  requestID,
				Source:     "http",
				ClientIP:   clientKey(r),
				Operation:  "analyze",
				TextLength: len(req.Text),
				CacheHit:   true,
				Decision:   entry.Headers[headerIntakeDecision],
			}
			if cached, ok := entry.Value.(*AnalyzeResponse); ok {
				RecordAnalysisMetrics(cached.Analysis)
				auditEntry.Signals = SignalsMap(cached.Analysis)
				auditEntry.Recommendations = recommendationTypes(cached.Analysis)
				if cached.Intake != nil {
					metrics.RecordIntakeDecision(string(cached.Intake.Decision))
					auditEntry.PolicyID = cached.Intake.PolicyID
				}
			}
			auditEntry.Latency = time.Since(start)
			hc.Audit.Log(auditEntry)
			return
		}
	}

	analysis := hc.Assistant.AnalyzeInput(req.Text, req.CurrentPlatforms, urgency)
	RecordAnalysisMetrics(analysis)

	resp := AnalyzeResponse{Analysis: analysis}
	headers := map[string]string{}
	if hc.Intake != nil && !analysis.Empty() {
		result := hc.Intake.Evaluate(requestID, analysis)
		metrics.RecordIntakeDecision(string(result.Decision))
		resp.Intake = &result
		headers[headerIntakeDecision] = string(result.Decision)
		headers[headerPolicyVersion] = result.PolicyVersion
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(resp); err != nil {
		hc.logError("failed to encode analysis %s: %v", requestID, err)
		sendErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to encode analysis", requestID)
		return
	}
	body := buf.Bytes()

	if hc.Cache != nil {
		hc.Cache.Set(key, body, headers, &resp)
		w.Header().Set(headerCache, "MISS")
	}
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)

	entry := audit.Entry{
		RequestID:       requestID,
		Source:          "http",
		ClientIP:        clientKey(r),
		Operation:       "analyze",
		TextLength:      len(req.Text),
		Signals:         SignalsMap(analysis),
		Recommendations: recommendationTypes(analysis),
		Latency:         time.Since(start),
	}
	if resp.Intake != nil {
		entry.Decision = string(resp.Intake.Decision)
		entry.PolicyID = resp.Intake.PolicyID
	}
	hc.Audit.Log(entry)

	hc.logDebug("analysis %s completed in %v (empty=%v, recommendations=%d)",
		requestID, time.Since(start), analysis.Empty(), len(analysis.OverallRecommendations))
}

// analyzeCacheKey covers every input that shapes the response, including the
// loaded policy version
func (hc *HandlerConfig) analyzeCacheKey(req *AnalyzeRequest, urgency analyzer.UrgencyLevel) string {
	policyVersion := ""
	if hc.Intake != nil {
		policyVersion = hc.Intake.PolicyVersion()
	}
	parts := []string{req.Text, string(urgency), policyVersion, strconv.Itoa(len(req.CurrentPlatforms))}
	parts = append(parts, req.CurrentPlatforms...)
	return cache.HashKey(parts...)
}

func (hc *HandlerConfig) handleDetect(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	kind := r.PathValue("kind")

	req, ok := hc.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := RunDetector(hc.Assistant, kind, req.Text)
	if errors.Is(err, ErrUnknownDetector) {
		sendErrorResponse(w, http.StatusNotFound, "unknown_detector", err.Error(), requestID)
		return
	}

	hc.Audit.Log(audit.Entry{
		RequestID:  requestID,
		Source:     "http",
		ClientIP:   clientKey(r),
		Operation:  "detect_" + kind,
		TextLength: len(req.Text),
	})
	sendJSON(w, http.StatusOK, result)
}

func (hc *HandlerConfig) handleKeywords(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, analyzer.Keywords())
}

func (hc *HandlerConfig) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"service": "brief-assistant",
	}
	if hc.Intake != nil {
		status["intake_policy_version"] = hc.Intake.PolicyVersion()
	}
	if hc.Cache != nil {
		status["cache"] = hc.Cache.Stats()
	}
	sendJSON(w, http.StatusOK, status)
}

// decodeRequest validates the body at the boundary: it must be a JSON object
// whose text field, if present, is a string.
func (hc *HandlerConfig) decodeRequest(w http.ResponseWriter, r *http.Request) (*AnalyzeRequest, bool) {
	requestID := requestIDFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, hc.Config.Server.MaxRequestSize)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendErrorResponse(w, http.StatusRequestEntityTooLarge, "request_too_large",
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), requestID)
			return nil, false
		}
		hc.logError("invalid request %s: %v", requestID, err)
		sendErrorResponse(w, http.StatusBadRequest, "invalid_request", "Body must be a JSON object with a string text field", requestID)
		return nil, false
	}
	return &req, true
}

// RunDetector dispatches to a single detector by name.
// Absent results (urgency, assets) are returned as nil.
func RunDetector(a *analyzer.Assistant, kind, text string) (any, error) {
	switch kind {
	case "platforms":
		return a.DetectPlatforms(text), nil
	case "complexity":
		return a.DetectComplexity(text), nil
	case "templates":
		return a.RecommendTemplate(text), nil
	case "urgency":
		if u := a.DetectUrgency(text); u != nil {
			return u, nil
		}
		return nil, nil
	case "assets":
		if c := a.ExtractAssetCount(text); c != nil {
			return c, nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDetector, kind)
	}
}

// RecordAnalysisMetrics exports the signals of an analysis to Prometheus
func RecordAnalysisMetrics(a *analyzer.Analysis) {
	metrics.RecordAnalysis(a.Empty())
	if a.Empty() {
		return
	}
	for _, p := range a.Platforms.Detected {
		metrics.RecordSignal("platform", p.Platform)
	}
	for _, c := range a.Complexity.Issues {
		metrics.RecordSignal("complexity", c.Category)
	}
	if top := a.TopTemplate(); top != nil {
		metrics.RecordSignal("template", top.TemplateID)
	}
	if a.Urgency != nil {
		metrics.RecordSignal("urgency", string(a.Urgency.Level))
	}
	if a.AssetCount != nil {
		metrics.RecordSignal("asset_count", "present")
	}
	for _, rec := range a.OverallRecommendations {
		metrics.RecordRecommendation(string(rec.Type))
	}
}

// SignalsMap summarizes an analysis for audit logging
func SignalsMap(a *analyzer.Analysis) map[string]any {
	if a.Empty() {
		return map[string]any{"empty": true}
	}
	platforms := make([]string, 0, len(a.Platforms.Detected))
	for _, p := range a.Platforms.Detected {
		platforms = append(platforms, p.Platform)
	}
	signals := map[string]any{
		"platforms":       platforms,
		"complexity":      a.Complexity.Categories(),
		"complexity_cost": a.Complexity.TotalAdditionalCost,
	}
	if top := a.TopTemplate(); top != nil {
		signals["template"] = top.TemplateID
	}
	if a.Urgency != nil {
		signals["urgency"] = string(a.Urgency.Level)
	}
	if a.AssetCount != nil {
		signals["asset_count"] = a.AssetCount.Count
	}
	return signals
}

func recommendationTypes(a *analyzer.Analysis) []string {
	types := make([]string, 0, len(a.OverallRecommendations))
	for _, rec := range a.OverallRecommendations {
		types = append(types, string(rec.Type))
	}
	return types
}

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging helpers
func (hc *HandlerConfig) logDebug(format string, args ...interface{}) {
	if hc.Logger != nil {
		hc.Logger.Debugf(format, args...)
	}
}

func (hc *HandlerConfig) logInfo(format string, args ...interface{}) {
	if hc.Logger != nil {
		hc.Logger.Infof(format, args...)
	}
}

func (hc *HandlerConfig) logError(format string, args ...interface{}) {
	if hc.Logger != nil {
		hc.Logger.Errorf(format, args...)
	}
}

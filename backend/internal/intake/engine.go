package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cedar-policy/cedar-go"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
)

// Decision is the outcome of evaluating a brief against the intake policy
type Decision string

const (
	AutoQuote    Decision = "AUTO_QUOTE"
	ManualReview Decision = "MANUAL_REVIEW"
)

// ErrPolicyNotLoaded is returned when evaluation happens before any policy loaded
var ErrPolicyNotLoaded = errors.New("intake policy not loaded")

// Obligation is an action the caller should take for the decision
type Obligation struct {
	Type string `json:"type"` // "AutoQuote", "ManualReview"
}

// Result contains the decision and the policy that drove it
type Result struct {
	Decision      Decision     `json:"decision"`
	Reason        string       `json:"reason"`
	PolicyID      string       `json:"policyId,omitempty"`
	PolicyVersion string       `json:"policyVersion,omitempty"`
	Obligations   []Obligation `json:"obligations,omitempty"`
}

// Engine wraps a Cedar policy set with hot-reloading support
type Engine struct {
	policySet     atomic.Pointer[cedar.PolicySet]
	policyVersion atomic.Pointer[string]
	PolicyPath    string

	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
	stopOnce   sync.Once
	logger     *logrus.Logger
	reloadLock sync.Mutex
}

// NewEngine creates an Engine and loads the policy at policyPath, which holds
// either Cedar text or YAML Rules (.yaml/.yml). A missing file falls back to
// DefaultPolicy; a malformed one is an error.
func NewEngine(policyPath string, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Engine{
		PolicyPath: policyPath,
		stopWatch:  make(chan struct{}),
		logger:     logger,
	}

	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineFromBytes creates an Engine from in-memory policy text, without a file
func NewEngineFromBytes(policy []byte, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Engine{stopWatch: make(chan struct{}), logger: logger}
	if err := e.load("inline.cedar", policy); err != nil {
		return nil, err
	}
	return e, nil
}

// PolicyVersion returns the current policy version (thread-safe)
func (e *Engine) PolicyVersion() string {
	v := e.policyVersion.Load()
	if v == nil {
		return ""
	}
	return *v
}

// Reload reads the policy file again and swaps it in atomically
func (e *Engine) Reload() error {
	data, err := os.ReadFile(e.PolicyPath)
	if errors.Is(err, os.ErrNotExist) {
		e.logger.WithField("path", e.PolicyPath).Warn("intake policy file not found, using default policy")
		return e.load("default.cedar", []byte(DefaultPolicy))
	}
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}
	if isRulesFile(e.PolicyPath) {
		if data, err = compileRulesFile(data); err != nil {
			return fmt.Errorf("failed to compile %s: %w", e.PolicyPath, err)
		}
	}
	return e.load(e.PolicyPath, data)
}

func (e *Engine) load(name string, data []byte) error {
	ps, err := cedar.NewPolicySetFromBytes(name, data)
	if err != nil {
		return fmt.Errorf("failed to parse intake policy %s: %w", name, err)
	}

	hash := sha256.Sum256(data)
	version := hex.EncodeToString(hash[:])[:12]

	e.policySet.Store(ps)
	e.policyVersion.Store(&version)
	return nil
}

// StartHotReload enables fsnotify file watching for policy hot-reloading
func (e *Engine) StartHotReload() error {
	if e.PolicyPath == "" {
		return fmt.Errorf("no policy file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	e.watcher = watcher

	if err := watcher.Add(e.PolicyPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch policy file: %w", err)
	}

	go e.watchLoop()

	e.logger.WithField("path", e.PolicyPath).Info("intake policy hot-reload enabled")
	return nil
}

// StopHotReload stops the file watcher
func (e *Engine) StopHotReload() {
	if e.watcher == nil {
		return
	}
	e.stopOnce.Do(func() {
		close(e.stopWatch)
		e.watcher.Close()
	})
}

func (e *Engine) watchLoop() {
	// Debounce rapid saves
	var debounceTimer *time.Timer
	debounce := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					e.reloadLock.Lock()
					defer e.reloadLock.Unlock()

					oldVersion := e.PolicyVersion()
					if err := e.Reload(); err != nil {
						e.logger.WithError(err).Error("intake policy hot-reload failed")
					} else {
						e.logger.WithFields(logrus.Fields{"from": oldVersion, "to": e.PolicyVersion()}).Info("intake policy reloaded")
					}
				})
			}
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logger.WithError(err).Warn("intake policy watcher error")
		case <-e.stopWatch:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

// Evaluate decides whether a brief can be quoted automatically.
// Short briefs and an unloaded policy both fail closed to ManualReview.
func (e *Engine) Evaluate(briefID string, a *analyzer.Analysis) Result {
	if a == nil || a.Empty() {
		return Result{
			Decision:      ManualReview,
			Reason:        "brief too short to assess",
			PolicyVersion: e.PolicyVersion(),
			Obligations:   []Obligation{{Type: "ManualReview"}},
		}
	}

	ps := e.policySet.Load()
	if ps == nil {
		return Result{Decision: ManualReview, Reason: ErrPolicyNotLoaded.Error()}
	}

	req := cedar.Request{
		Principal: cedar.NewEntityUID("Client", "anonymous"),
		Action:    cedar.NewEntityUID("Action", "quote"),
		Resource:  cedar.NewEntityUID("Brief", cedar.String(briefID)),
		Context:   BuildContext(a),
	}

	ok, diagnostics := cedar.Authorize(ps, cedar.EntityMap{}, req)

	for _, de := range diagnostics.Errors {
		e.logger.WithFields(logrus.Fields{
			"policy": string(de.PolicyID),
			"line":   de.Position.Line,
			"brief":  briefID,
		}).Warn("intake policy failed to evaluate: " + de.Message)
	}

	result := Result{PolicyVersion: e.PolicyVersion()}
	if len(diagnostics.Reasons) > 0 {
		// The earliest contributing policy in the file decides the reported reason
		reasons := append([]cedar.DiagnosticReason(nil), diagnostics.Reasons...)
		sort.SliceStable(reasons, func(i, j int) bool {
			if reasons[i].Position.Offset != reasons[j].Position.Offset {
				return reasons[i].Position.Offset < reasons[j].Position.Offset
			}
			return reasons[i].PolicyID < reasons[j].PolicyID
		})
		reason := reasons[0]
		result.PolicyID = string(reason.PolicyID)

		if p := ps.Get(reason.PolicyID); p != nil {
			annotations := p.Annotations()
			if id, ok := annotations["id"]; ok {
				result.PolicyID = string(id)
			}
			if typeVal, ok := annotations["obligation"]; ok {
				result.Obligations = append(result.Obligations, Obligation{Type: string(typeVal)})
			}
			if why, ok := annotations["reason"]; ok {
				result.Reason = string(why)
			}
		}
	}

	if ok {
		result.Decision = AutoQuote
		if result.Reason == "" {
			result.Reason = "brief can be quoted automatically"
		}
		return result
	}

	result.Decision = ManualReview
	if result.Reason == "" {
		result.Reason = "no intake policy permits an automatic quote"
	}
	return result
}

// BuildContext maps analysis signals onto the Cedar request context
func BuildContext(a *analyzer.Analysis) cedar.Record {
	platforms := make([]cedar.Value, 0, len(a.Platforms.Detected))
	for _, p := range a.Platforms.Detected {
		platforms = append(platforms, cedar.String(p.Platform))
	}

	complexity := make([]cedar.Value, 0, len(a.Complexity.Issues))
	for _, c := range a.Complexity.Issues {
		complexity = append(complexity, cedar.String(c.Category))
	}

	template, templateConfidence := "", 0
	if top := a.TopTemplate(); top != nil {
		template, templateConfidence = top.TemplateID, top.Confidence
	}

	urgency := string(analyzer.UrgencyStandard)
	if a.Urgency != nil {
		urgency = string(a.Urgency.Level)
	}

	assetCount := 0
	if a.AssetCount != nil {
		assetCount = a.AssetCount.Count
	}

	return cedar.NewRecord(cedar.RecordMap{
		"platforms":           cedar.NewSet(platforms...),
		"complexity":          cedar.NewSet(complexity...),
		"complexity_cost":     cedar.Long(int64(a.Complexity.TotalAdditionalCost)),
		"has_complexity":      cedar.Boolean(a.Complexity.HasComplexity),
		"template":            cedar.String(template),
		"template_confidence": cedar.Long(int64(templateConfidence)),
		"urgency":             cedar.String(urgency),
		"asset_count":         cedar.Long(int64(assetCount)),
		"recommendations":     cedar.Long(int64(len(a.OverallRecommendations))),
	})
}

// Describe renders a result as a single line for logs and the CLI
func (r Result) Describe() string {
	var b strings.Builder
	b.WriteString(string(r.Decision))
	if r.Reason != "" {
		b.WriteString(": ")
		b.WriteString(r.Reason)
	}
	if r.PolicyID != "" {
		fmt.Fprintf(&b, " (policy %s)", r.PolicyID)
	}
	return b.String()
}

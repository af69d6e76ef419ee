package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one structured audit record for an analysed brief.
// The brief text itself is never stored, only its length.
type Entry struct {
	Timestamp       time.Time      `json:"timestamp"`
	RequestID       string         `json:"request_id"`
	Source          string         `json:"source"` // "http", "mcp", "cli"
	ClientIP        string         `json:"client_ip,omitempty"`
	Operation       string         `json:"operation"`
	TextLength      int            `json:"text_length"`
	Signals         map[string]any `json:"signals,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Decision        string         `json:"decision,omitempty"`
	PolicyID        string         `json:"policy_id,omitempty"`
	CacheHit        bool           `json:"cache_hit,omitempty"`
	Latency         time.Duration  `json:"latency_ns"`
}

// Logger handles structured audit logging
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	fallback *logrus.Logger
}

// NewLogger creates a new audit logger
// If filePath is empty, logs to stdout in JSON format
func NewLogger(filePath string, fallback *logrus.Logger) (*Logger, error) {
	var file *os.File
	var err error

	if filePath != "" {
		file, err = os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
	} else {
		file = os.Stdout
	}

	if fallback == nil {
		fallback = logrus.StandardLogger()
	}

	return &Logger{
		file:     file,
		encoder:  json.NewEncoder(file),
		fallback: fallback,
	}, nil
}

// Log writes an audit entry
func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := l.encoder.Encode(entry); err != nil {
		l.fallback.WithError(err).WithField("request_id", entry.RequestID).Error("failed to write audit entry")
	}
}

// Close closes the audit log file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil && l.file != os.Stdout {
		return l.file.Close()
	}
	return nil
}

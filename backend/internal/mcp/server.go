package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/audit"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
	"github.com/retouchly/brief-assistant/backend/internal/metrics"
)

const (
	protocolVersion = "2024-11-05"
	keywordsURI     = "brief://keywords"

	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

// Server implements the Model Context Protocol (MCP) for the brief analyzer
type Server struct {
	assistant *analyzer.Assistant
	intake    *intake.Engine
	audit     *audit.Logger
	logger    *logrus.Logger

	mu          sync.Mutex
	sseChannels map[string]chan Response
	sseMu       sync.RWMutex
}

// NewServer creates a new MCP server. engine and auditLog may be nil.
func NewServer(assistant *analyzer.Assistant, engine *intake.Engine, auditLog *audit.Logger, logger *logrus.Logger) *Server {
	if assistant == nil {
		assistant = analyzer.NewAssistant()
	}
	return &Server{
		assistant:   assistant,
		intake:      engine,
		audit:       auditLog,
		logger:      logger,
		sseChannels: make(map[string]chan Response),
	}
}

// StartStdio starts the MCP server over standard input/output
func (s *Server) StartStdio() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC messages from r and writes responses to w
// until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logError("Failed to decode MCP request: %v", err)
			s.write(encoder, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: codeParseError, Message: "Parse error"},
			})
			continue
		}

		if resp, ok := s.handleRequest(req); ok {
			s.write(encoder, resp)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read MCP stream: %w", err)
	}
	return nil
}

func (s *Server) write(encoder *json.Encoder, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := encoder.Encode(resp); err != nil {
		s.logError("Failed to write MCP response: %v", err)
	}
}

// SSEHandler handles the MCP SSE transport
func (s *Server) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server write timeout
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionID := uuid.New().String()
	ch := make(chan Response, 10)
	s.sseMu.Lock()
	s.sseChannels[sessionID] = ch
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseChannels, sessionID)
		s.sseMu.Unlock()
	}()

	// The client posts subsequent messages to this endpoint
	fmt.Fprintf(w, "event: endpoint\ndata: /mcp/message?session_id=%s\n\n", sessionID)
	flusher.Flush()

	for {
		select {
		case resp := <-ch:
			data, err := json.Marshal(resp)
			if err != nil {
				s.logError("Failed to encode SSE message: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// MessageHandler handles incoming MCP messages over HTTP POST
func (s *Server) MessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	s.sseMu.RLock()
	ch, ok := s.sseChannels[sessionID]
	s.sseMu.RUnlock()
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON-RPC", http.StatusBadRequest)
		return
	}

	// Results go back through the SSE stream
	go func() {
		resp, ok := s.handleRequest(req)
		if !ok {
			return
		}
		select {
		case ch <- resp:
		case <-time.After(5 * time.Second):
			s.logError("SSE session %s not draining, dropped response", sessionID)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// Request represents a JSON-RPC request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC response
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// handleRequest dispatches one message. Notifications produce no response.
func (s *Server) handleRequest(req Request) (Response, bool) {
	var result interface{}
	var rpcErr *RPCError

	switch req.Method {
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools":     map[string]interface{}{},
				"resources": map[string]interface{}{},
			},
			"serverInfo": map[string]string{
				"name":    "brief-assistant",
				"version": "1.0.0",
			},
		}

	case "tools/list":
		result = map[string]interface{}{"tools": toolList()}

	case "tools/call":
		var params struct {
			Name      string                 `json:"name"`
			Arguments map[string]interface{} `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			rpcErr = &RPCError{Code: codeInvalidParams, Message: "Invalid params"}
		} else {
			result, rpcErr = s.handleToolCall(params.Name, params.Arguments)
		}

	case "resources/list":
		result = map[string]interface{}{
			"resources": []interface{}{
				map[string]interface{}{
					"uri":         keywordsURI,
					"name":        "Brief Keyword Tables",
					"description": "Platform, complexity, template and urgency keywords the analyzer matches",
					"mimeType":    "text/x-yaml",
				},
			},
		}

	case "resources/read":
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			rpcErr = &RPCError{Code: codeInvalidParams, Message: "Invalid params"}
		} else if params.URI != keywordsURI {
			rpcErr = &RPCError{Code: codeInvalidParams, Message: "Unknown resource"}
		} else {
			result, rpcErr = readKeywords()
		}

	case "notifications/initialized":
		return Response{}, false

	default:
		rpcErr = &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("Method %s not found", req.Method)}
	}

	if req.ID == nil {
		return Response{}, false
	}
	return Response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}, true
}

func readKeywords() (interface{}, *RPCError) {
	data, err := yaml.Marshal(analyzer.Keywords())
	if err != nil {
		return nil, &RPCError{Code: codeToolFailed, Message: err.Error()}
	}
	return map[string]interface{}{
		"contents": []interface{}{
			map[string]interface{}{
				"uri":      keywordsURI,
				"mimeType": "text/x-yaml",
				"text":     string(data),
			},
		},
	}, nil
}

func (s *Server) logError(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf("[MCP] "+format, args...)
	}
}

func (s *Server) recordCall(tool string, textLength int, start time.Time, result *intake.Result) {
	entry := audit.Entry{
		RequestID:  uuid.New().String(),
		Source:     "mcp",
		Operation:  tool,
		TextLength: textLength,
		Latency:    time.Since(start),
	}
	if result != nil {
		entry.Decision = string(result.Decision)
		entry.PolicyID = result.PolicyID
		metrics.RecordIntakeDecision(string(result.Decision))
	}
	s.audit.Log(entry)
}

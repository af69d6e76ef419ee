package main

import (
	"github.com/joho/godotenv"

	"github.com/retouchly/brief-assistant/backend/internal/analyzer"
	"github.com/retouchly/brief-assistant/backend/internal/audit"
	"github.com/retouchly/brief-assistant/backend/internal/config"
	"github.com/retouchly/brief-assistant/backend/internal/intake"
	"github.com/retouchly/brief-assistant/backend/internal/logger"
	"github.com/retouchly/brief-assistant/backend/internal/mcp"
)

func main() {
	// Load environment variables
	godotenv.Load()

	cfg := config.Load()

	// Log to stderr because stdout is for MCP
	cfg.Logging.Output = "stderr"
	log, err := logger.New(cfg.Logging, "mcp")
	if err != nil {
		panic(err)
	}

	engine, err := intake.NewEngine(cfg.Intake.PolicyPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load intake policy")
	}

	// Audit entries must not interleave with protocol output
	var auditLog *audit.Logger
	if cfg.Logging.AuditLog != "" {
		auditLog, err = audit.NewLogger(cfg.Logging.AuditLog, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to open audit log")
		}
		defer auditLog.Close()
	}

	server := mcp.NewServer(analyzer.NewAssistant(), engine, auditLog, log)

	log.WithField("policy_version", engine.PolicyVersion()).Info("MCP server starting on stdio")
	if err := server.StartStdio(); err != nil {
		log.WithError(err).Error("MCP server stopped")
	}
}

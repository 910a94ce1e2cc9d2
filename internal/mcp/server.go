// Package mcp exposes vigil over the Model Context Protocol so agent
// runtimes can route side-effecting actions and memory writes through the
// guardian without linking the Go SDK.
package mcp

import (
	"context"
	"fmt"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/openvigil/vigil/internal/alert"
	"github.com/openvigil/vigil/internal/audit"
	"github.com/openvigil/vigil/internal/classify"
	"github.com/openvigil/vigil/internal/config"
	"github.com/openvigil/vigil/internal/consent"
	"github.com/openvigil/vigil/internal/guardian"
	"github.com/openvigil/vigil/internal/memstore"
	"github.com/openvigil/vigil/internal/snapshot"
)

// Server wraps the MCP SDK server with guardian gating and the layered
// memory store.
type Server struct {
	mcpServer *mcpsdk.Server
	guard     *guardian.Guardian
	consents  *consent.Store
	memory    *memstore.Store
	auditLog  *audit.Log
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*guardian.Session
}

// New wires a Server from configuration. All state directories are
// created on demand.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rules, err := classify.Load(cfg.RulesetPath)
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}

	snaps, err := snapshot.NewManager(cfg.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	auditLog, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}

	guard, err := guardian.New(rules, snaps, auditLog, alert.NewDispatcher(cfg.Webhooks))
	if err != nil {
		return nil, err
	}

	consents, err := consent.NewStore(cfg.ConsentDir)
	if err != nil {
		return nil, fmt.Errorf("open consent store: %w", err)
	}

	memory, err := memstore.Open(cfg.MemoryDBPath, consents)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	s := &Server{
		guard:    guard,
		consents: consents,
		memory:   memory,
		auditLog: auditLog,
		logger:   logger,
		sessions: make(map[string]*guardian.Session),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "vigil",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", zap.String("transport", "stdio"))
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// ReloadRuleset recompiles the pattern file and swaps it into the live
// guardian. On error the previous ruleset stays in force.
func (s *Server) ReloadRuleset(path string) error {
	rules, err := classify.Load(path)
	if err != nil {
		return err
	}
	s.guard.SetRuleset(rules)
	return nil
}

// Close releases the memory store and decision log.
func (s *Server) Close() error {
	if err := s.memory.Close(); err != nil {
		return err
	}
	return s.auditLog.Close()
}

// session returns the guardian session for an id, creating it on first
// use. Sessions persist for the lifetime of the server process: the
// monotonic escalation contract spans every call an agent makes.
func (s *Server) session(id string) *guardian.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = "default"
	}
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := s.guard.NewSession(id)
	s.sessions[id] = sess
	return sess
}

// registerTools adds all vigil tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vigil_evaluate",
		Description: "Gate a proposed side-effecting action. Returns the guardian decision; refused actions carry alternatives instead of a permit.",
	}, s.handleEvaluate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vigil_memory_write",
		Description: "Persist an item to the layered memory store. Operational layers (3+) require user consent; foundational layers (0-2) always refuse.",
	}, s.handleMemoryWrite)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vigil_memory_read",
		Description: "Query the layered memory store. Reads need no consent and never block on pending writes.",
	}, s.handleMemoryRead)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vigil_consent_resolve",
		Description: "Resolve a pending consent request on behalf of the user. Approval is one-time; replaying a consumed consent returns the original result.",
	}, s.handleConsentResolve)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vigil_pending",
		Description: "List consent requests awaiting the user's decision.",
	}, s.handlePending)
}

package vigil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/openvigil/vigil/internal/alert"
	"github.com/openvigil/vigil/internal/audit"
	"github.com/openvigil/vigil/internal/classify"
	"github.com/openvigil/vigil/internal/config"
	"github.com/openvigil/vigil/internal/guardian"
	"github.com/openvigil/vigil/internal/snapshot"
)

// Client holds the guardian pipeline for in-process gating. Thread-safe
// for concurrent tool calls; all wrapped tools sharing a session share
// its monotonic escalation.
type Client struct {
	cfg   clientConfig
	guard *guardian.Guardian
	log   *audit.Log

	mu       sync.Mutex
	sessions map[string]*guardian.Session
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	ccfg := clientConfig{sessionID: "sdk"}
	for _, o := range opts {
		o(&ccfg)
	}

	cfg, err := config.Load(ccfg.configPath)
	if err != nil {
		return nil, fmt.Errorf("vigil: load config: %w", err)
	}
	if ccfg.stateDir != "" {
		cfg.SnapshotDir = filepath.Join(ccfg.stateDir, "snapshots")
		cfg.AuditLogPath = filepath.Join(ccfg.stateDir, "decisions.jsonl")
		cfg.ConsentDir = filepath.Join(ccfg.stateDir, "consent")
		cfg.MemoryDBPath = filepath.Join(ccfg.stateDir, "memory.db")
	}
	if ccfg.rulesPath != "" {
		cfg.RulesetPath = ccfg.rulesPath
	}

	rules, err := classify.Load(cfg.RulesetPath)
	if err != nil {
		return nil, fmt.Errorf("vigil: load ruleset: %w", err)
	}
	snaps, err := snapshot.NewManager(cfg.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("vigil: open snapshot store: %w", err)
	}
	log, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("vigil: open decision log: %w", err)
	}

	guard, err := guardian.New(rules, snaps, log, alert.NewDispatcher(cfg.Webhooks))
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("vigil: %w", err)
	}

	return &Client{
		cfg:      ccfg,
		guard:    guard,
		log:      log,
		sessions: make(map[string]*guardian.Session),
	}, nil
}

// Close releases the decision log.
func (c *Client) Close() error {
	return c.log.Close()
}

// Check evaluates an action through the client's default session. The
// decision is recorded in the audit log like any other.
func (c *Client) Check(ctx context.Context, action Action) (Result, error) {
	d, err := c.session(c.cfg.sessionID).Evaluate(ctx, toRequest(action))
	return toResult(d), err
}

// Rollback restores a snapshot taken by an earlier evaluation.
func (c *Client) Rollback(snapshotID string) error {
	return c.session(c.cfg.sessionID).Rollback(snapshotID)
}

func (c *Client) session(id string) *guardian.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" {
		id = "sdk"
	}
	if s, ok := c.sessions[id]; ok {
		return s
	}
	s := c.guard.NewSession(id)
	c.sessions[id] = s
	return s
}

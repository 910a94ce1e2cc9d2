package cli

import (
	"fmt"

	"github.com/openvigil/vigil/internal/alert"
	"github.com/openvigil/vigil/internal/audit"
	"github.com/openvigil/vigil/internal/classify"
	"github.com/openvigil/vigil/internal/config"
	"github.com/openvigil/vigil/internal/consent"
	"github.com/openvigil/vigil/internal/guardian"
	"github.com/openvigil/vigil/internal/memstore"
	"github.com/openvigil/vigil/internal/snapshot"
)

// loadConfig reads the config named by --config, or the defaults.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openGuardian wires a Guardian and its stores from config. The caller
// must invoke the returned cleanup when done.
func openGuardian(cfg *config.Config) (*guardian.Guardian, func(), error) {
	rules, err := classify.Load(cfg.RulesetPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load ruleset: %w", err)
	}

	snaps, err := snapshot.NewManager(cfg.SnapshotDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}

	log, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open decision log: %w", err)
	}

	g, err := guardian.New(rules, snaps, log, alert.NewDispatcher(cfg.Webhooks))
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return g, func() { log.Close() }, nil
}

// openMemory wires the consent store and the layered memory store.
func openMemory(cfg *config.Config) (*memstore.Store, *consent.Store, func(), error) {
	consents, err := consent.NewStore(cfg.ConsentDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open consent store: %w", err)
	}

	memory, err := memstore.Open(cfg.MemoryDBPath, consents)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open memory store: %w", err)
	}
	return memory, consents, func() { memory.Close() }, nil
}

// Package config loads the vigil runtime configuration. A missing file
// yields working defaults rooted under ~/.vigil; an unparseable file is an
// error, never a silent fallback.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openvigil/vigil/internal/alert"
)

// Config holds all configurable runtime parameters.
type Config struct {
	// RulesetPath points at the YAML pattern file for the classifier.
	// Empty means built-in defaults.
	RulesetPath string `yaml:"ruleset_path"`

	// AuditLogPath is the hash-chained decision log.
	AuditLogPath string `yaml:"audit_log_path"`

	// SnapshotDir holds content-addressed snapshots.
	SnapshotDir string `yaml:"snapshot_dir"`

	// MemoryDBPath is the SQLite file backing the layered memory store.
	MemoryDBPath string `yaml:"memory_db_path"`

	// ConsentDir holds consent request records and the consent ledger.
	ConsentDir string `yaml:"consent_dir"`

	// Webhooks lists alert sinks notified on escalations.
	Webhooks []alert.Config `yaml:"webhooks"`
}

// Dir returns the vigil home directory, honoring VIGIL_HOME.
func Dir() string {
	if d := os.Getenv("VIGIL_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vigil"
	}
	return filepath.Join(home, ".vigil")
}

// DefaultConfig returns the built-in configuration rooted under Dir().
func DefaultConfig() *Config {
	base := Dir()
	return &Config{
		AuditLogPath: filepath.Join(base, "decisions.jsonl"),
		SnapshotDir:  filepath.Join(base, "snapshots"),
		MemoryDBPath: filepath.Join(base, "memory.db"),
		ConsentDir:   filepath.Join(base, "consent"),
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads configuration from a YAML file. Empty path falls back to
// DefaultPath. Missing file returns defaults. Invalid YAML is an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw
// bytes on disk, recorded so attestations can tie a run to its config.
// When defaults are used the hash covers empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("read config: %w", err)
	}

	// Start with defaults; YAML overwrites only specified fields.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("parse config %s: %w", path, err)
	}

	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

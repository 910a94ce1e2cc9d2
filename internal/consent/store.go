// Package consent manages explicit user approvals for memory writes. A
// consent record is a one-time capability: created only by an explicit
// user action, consumed exactly once, and never expired by the clock.
// Consent is human-governed, not time-governed. A request that is never
// answered stays pending until the caller cancels it.
package consent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Approver is the only principal that may resolve a consent request. The
// system never self-approves; there is no API that accepts another value.
const Approver = "user"

// validKey matches alphanumeric, dash, underscore, and dot characters only.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateKey rejects request IDs that could cause path traversal.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("request id must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("request id must not contain '..'")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("request id contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// Status represents the state of a consent request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusConsumed  Status = "consumed"
	StatusCancelled Status = "cancelled"
)

// Record links one pending write to one explicit user approval event.
type Record struct {
	RequestID  string     `json:"request_id"`
	Status     Status     `json:"status"`
	ApprovedBy string     `json:"approved_by,omitempty"`
	Scope      string     `json:"scope"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Store manages consent request files on disk, one JSON file per request,
// plus an append-only ledger of every consent event.
type Store struct {
	dir    string
	ledger *Ledger
	mu     sync.Mutex
}

// NewStore creates a Store backed by the given directory. The ledger file
// lives alongside the request files.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("consent: create store directory: %w", err)
	}
	ledger, err := OpenLedger(filepath.Join(dir, "ledger.jsonl"))
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, ledger: ledger}, nil
}

// DefaultDir returns the default consent store directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "vigil-consent")
	}
	return filepath.Join(home, ".vigil", "consent")
}

// Request registers a pending consent request. Idempotent: if the request
// already exists, its original record is preserved.
func (s *Store) Request(requestID, scope, reason string) error {
	if err := validateKey(requestID); err != nil {
		return fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(requestID)
	if _, err := os.Stat(path); err == nil {
		return nil // already registered
	}

	r := Record{
		RequestID: requestID,
		Status:    StatusPending,
		Scope:     scope,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.writeAtomic(path, r); err != nil {
		return err
	}
	return s.ledger.Append(Event{RequestID: requestID, Kind: "requested", Scope: scope})
}

// Resolve records the user's answer to a pending request. Only pending
// requests can be resolved; answering a cancelled, consumed, or already
// resolved request is an error, not a state change.
func (s *Store) Resolve(requestID string, approved bool) error {
	if err := validateKey(requestID); err != nil {
		return fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(requestID)
	if err != nil {
		return fmt.Errorf("consent: request %q not found: %w", requestID, err)
	}
	if r.Status != StatusPending {
		return fmt.Errorf("consent: request %q is %s, not pending", requestID, r.Status)
	}

	now := time.Now().UTC()
	r.ResolvedAt = &now
	kind := "denied"
	if approved {
		r.Status = StatusApproved
		r.ApprovedBy = Approver
		kind = "approved"
	} else {
		r.Status = StatusDenied
	}

	if err := s.writeAtomic(s.path(requestID), *r); err != nil {
		return err
	}
	return s.ledger.Append(Event{RequestID: requestID, Kind: kind, Scope: r.Scope, ApprovedBy: r.ApprovedBy})
}

// Cancel terminally withdraws a pending request. Retrying the underlying
// write requires a brand-new request.
func (s *Store) Cancel(requestID string) error {
	if err := validateKey(requestID); err != nil {
		return fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(requestID)
	if err != nil {
		return fmt.Errorf("consent: request %q not found: %w", requestID, err)
	}
	if r.Status != StatusPending {
		return fmt.Errorf("consent: request %q is %s, not pending", requestID, r.Status)
	}

	now := time.Now().UTC()
	r.Status = StatusCancelled
	r.ResolvedAt = &now

	if err := s.writeAtomic(s.path(requestID), *r); err != nil {
		return err
	}
	return s.ledger.Append(Event{RequestID: requestID, Kind: "cancelled", Scope: r.Scope})
}

// Check returns the current status of a request.
func (s *Store) Check(requestID string) (Status, error) {
	if err := validateKey(requestID); err != nil {
		return "", fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(requestID)
	if err != nil {
		return "", fmt.Errorf("consent: request %q not found", requestID)
	}
	return r.Status, nil
}

// Get returns the full record for a request.
func (s *Store) Get(requestID string) (*Record, error) {
	if err := validateKey(requestID); err != nil {
		return nil, fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(requestID)
}

// Consume marks an approved consent as used. A consent authorizes exactly
// one write; consuming twice is an error surfaced to the caller, and the
// memory store turns the replay into an idempotent cache hit instead.
func (s *Store) Consume(requestID string) error {
	if err := validateKey(requestID); err != nil {
		return fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(requestID)
	if err != nil {
		return fmt.Errorf("consent: request %q not found: %w", requestID, err)
	}
	if r.Status == StatusConsumed {
		return fmt.Errorf("consent: request %q already consumed", requestID)
	}
	if r.Status != StatusApproved {
		return fmt.Errorf("consent: request %q is %s, not approved", requestID, r.Status)
	}

	now := time.Now().UTC()
	r.Status = StatusConsumed
	r.ResolvedAt = &now

	if err := s.writeAtomic(s.path(requestID), *r); err != nil {
		return err
	}
	return s.ledger.Append(Event{RequestID: requestID, Kind: "consumed", Scope: r.Scope, ApprovedBy: r.ApprovedBy})
}

// List returns all consent records in the store.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		r, err := s.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		records = append(records, *r)
	}
	return records, nil
}

// Pending returns only the unanswered requests.
func (s *Store) Pending() ([]Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var pending []Record
	for _, r := range all {
		if r.Status == StatusPending {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// LedgerPath returns the path of the append-only consent ledger.
func (s *Store) LedgerPath() string { return s.ledger.Path() }

func (s *Store) path(requestID string) string {
	return filepath.Join(s.dir, requestID+".json")
}

func (s *Store) read(requestID string) (*Record, error) {
	data, err := os.ReadFile(s.path(requestID))
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) writeAtomic(path string, r Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

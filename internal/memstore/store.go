// Package memstore is the layered, consent-gated persistent knowledge
// store shared across agent sessions. Layers 0–2 are seeded once and
// permanently immutable; layers 3 and above accept writes only against an
// explicit, one-time user consent. Backed by SQLite.
package memstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/openvigil/vigil/internal/consent"
)

// Item is one unit of agent-derived knowledge.
type Item struct {
	ID            string    `json:"id"`
	Layer         int       `json:"layer"`
	Target        string    `json:"target"`
	Content       string    `json:"content"`
	SourceSession string    `json:"source_session,omitempty"`
	ConsentID     string    `json:"consent_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Query selects items on read. Zero fields match everything.
type Query struct {
	Layer    *int
	Target   string
	Contains string
}

// Store is the shared memory store. Writes are serialized per
// (layer, target) key; reads take no package-level lock at all, so a
// suspended consent flow never stalls readers in other sessions.
type Store struct {
	db       *sql.DB
	consents *consent.Store

	keyMu    sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// Open initializes the SQLite database at path and attaches the consent
// store. The foundational layers are seeded on first open.
func Open(path string, consents *consent.Store) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("memstore: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memstore: open database: %w", err)
	}

	s := &Store{
		db:       db,
		consents: consents,
		keyLocks: make(map[string]*sync.Mutex),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seedFoundation(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_items (
		id TEXT PRIMARY KEY,
		layer INTEGER NOT NULL,
		target TEXT NOT NULL,
		content TEXT NOT NULL,
		source_session TEXT NOT NULL DEFAULT '',
		consent_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_layer ON memory_items(layer);
	CREATE INDEX IF NOT EXISTS idx_items_target ON memory_items(target);

	CREATE TABLE IF NOT EXISTS write_intents (
		request_id TEXT PRIMARY KEY,
		layer INTEGER NOT NULL,
		target TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		memory_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_intents_key ON write_intents(layer, target, content_hash);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("memstore: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Write persists an item to an operational layer.
//
// Outcomes:
//   - foundational layer: *ImmutabilityError, consent or not
//   - no consent: a pending request is registered and
//     *ConsentRequiredError carries its ID; re-asking for the same
//     (layer, target, content) reuses the same pending request
//   - approved consent: the item is inserted, the consent consumed, and a
//     stable MemoryID returned; replaying the same consent returns the
//     same MemoryID without inserting a second item
func (s *Store) Write(ctx context.Context, item Item, rec *consent.Record) (string, error) {
	// The immutability check precedes everything, including consent
	// inspection: consent cannot override immutability.
	layer, err := NewOperationalLayer(item.Layer)
	if err != nil {
		imm := err.(*ImmutabilityError)
		imm.Target = item.Target
		return "", imm
	}

	unlock := s.lockKey(layer.Int(), item.Target)
	defer unlock()

	hash := contentHash(item.Content)

	if rec == nil {
		return "", s.registerIntent(ctx, layer, item, hash)
	}

	// A consent authorizes exactly the write its intent recorded. Check
	// that before anything else, replay included, and leave a mismatched
	// consent unconsumed so the approved write can still happen.
	var (
		intentLayer  int
		intentTarget string
		intentHash   string
		memoryID     string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT layer, target, content_hash, memory_id FROM write_intents WHERE request_id = ?`,
		rec.RequestID).Scan(&intentLayer, &intentTarget, &intentHash, &memoryID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("memstore: consent %s does not match any write intent", rec.RequestID)
	}
	if err != nil {
		return "", fmt.Errorf("memstore: look up intent: %w", err)
	}
	if intentLayer != layer.Int() || intentTarget != item.Target || intentHash != hash {
		return "", &ConsentScopeError{
			RequestID: rec.RequestID,
			Scope:     fmt.Sprintf("layer=%d target=%s content=%s", intentLayer, intentTarget, intentHash),
		}
	}

	// A fulfilled intent already has a memory ID and the repeated write
	// must be a cache hit, not a duplicate item.
	if memoryID != "" {
		return memoryID, nil
	}

	status, err := s.consents.Check(rec.RequestID)
	if err != nil {
		return "", fmt.Errorf("memstore: verify consent: %w", err)
	}
	switch status {
	case consent.StatusApproved:
		// fall through to the insert
	case consent.StatusPending:
		return "", &ConsentRequiredError{RequestID: rec.RequestID}
	case consent.StatusDenied, consent.StatusCancelled:
		return "", &ConsentRejectedError{RequestID: rec.RequestID, Status: string(status)}
	default:
		// Consumed with no recorded memory ID means the ledger and the
		// store disagree; fail closed.
		return "", fmt.Errorf("memstore: consent %s in unusable state %s", rec.RequestID, status)
	}

	if err := s.consents.Consume(rec.RequestID); err != nil {
		return "", fmt.Errorf("memstore: consume consent: %w", err)
	}

	id := "mem-" + uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("memstore: begin write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memory_items (id, layer, target, content, source_session, consent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, layer.Int(), item.Target, item.Content, item.SourceSession, rec.RequestID, now); err != nil {
		return "", fmt.Errorf("memstore: insert item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE write_intents SET memory_id = ? WHERE request_id = ?`,
		id, rec.RequestID); err != nil {
		return "", fmt.Errorf("memstore: fulfill intent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("memstore: commit write: %w", err)
	}
	return id, nil
}

// registerIntent records a pending write and returns the consent error the
// caller must surface. Re-registering the identical write reuses the
// existing pending request.
func (s *Store) registerIntent(ctx context.Context, layer OperationalLayer, item Item, hash string) error {
	var requestID, memoryID string
	err := s.db.QueryRowContext(ctx,
		`SELECT request_id, memory_id FROM write_intents
		 WHERE layer = ? AND target = ? AND content_hash = ?
		 ORDER BY created_at DESC LIMIT 1`,
		layer.Int(), item.Target, hash).Scan(&requestID, &memoryID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("memstore: look up intent: %w", err)
	}
	if err == nil && memoryID == "" {
		// Only reuse if the consent request is still answerable.
		if status, cerr := s.consents.Check(requestID); cerr == nil &&
			(status == consent.StatusPending || status == consent.StatusApproved) {
			return &ConsentRequiredError{RequestID: requestID}
		}
	}

	requestID = "req-" + uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO write_intents (request_id, layer, target, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		requestID, layer.Int(), item.Target, hash, now); err != nil {
		return fmt.Errorf("memstore: register intent: %w", err)
	}

	scope := fmt.Sprintf("layer=%d target=%s content=%s", layer.Int(), item.Target, hash)
	if err := s.consents.Request(requestID, scope, "agent memory write"); err != nil {
		return fmt.Errorf("memstore: register consent request: %w", err)
	}
	return &ConsentRequiredError{RequestID: requestID}
}

// Delete removes an operational item, under the same consent regime as a
// write: replaying a consent that already fulfilled the delete succeeds
// without further effect. Foundational items can never be deleted; the
// attempt fails, it does not no-op.
func (s *Store) Delete(ctx context.Context, id string, rec *consent.Record) error {
	if rec != nil {
		// The intent check comes before the item lookup: once this consent
		// has fulfilled the delete the item is gone, and the replayed call
		// must be a no-op, not "item not found".
		var intentHash, fulfilledID string
		err := s.db.QueryRowContext(ctx,
			`SELECT content_hash, memory_id FROM write_intents WHERE request_id = ?`,
			rec.RequestID).Scan(&intentHash, &fulfilledID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("memstore: consent %s does not match any write intent", rec.RequestID)
		}
		if err != nil {
			return fmt.Errorf("memstore: look up intent: %w", err)
		}
		if intentHash != "delete:"+id {
			return &ConsentScopeError{RequestID: rec.RequestID, Scope: intentHash}
		}
		if fulfilledID != "" {
			return nil
		}
	}

	var layer int
	var target string
	err := s.db.QueryRowContext(ctx,
		`SELECT layer, target FROM memory_items WHERE id = ?`, id).Scan(&layer, &target)
	if err == sql.ErrNoRows {
		return fmt.Errorf("memstore: item %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("memstore: look up item: %w", err)
	}
	if Foundational(layer) {
		return &ImmutabilityError{Layer: layer, Target: target}
	}

	if rec == nil {
		return s.registerIntent(ctx, OperationalLayer{n: layer}, Item{Target: target}, "delete:"+id)
	}
	status, err := s.consents.Check(rec.RequestID)
	if err != nil {
		return fmt.Errorf("memstore: verify consent: %w", err)
	}
	if status != consent.StatusApproved {
		return &ConsentRejectedError{RequestID: rec.RequestID, Status: string(status)}
	}
	if err := s.consents.Consume(rec.RequestID); err != nil {
		return fmt.Errorf("memstore: consume consent: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("memstore: begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("memstore: delete item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE write_intents SET memory_id = ? WHERE request_id = ?`,
		id, rec.RequestID); err != nil {
		return fmt.Errorf("memstore: fulfill intent: %w", err)
	}
	return tx.Commit()
}

// Read returns items matching the query. No consent is required: the
// transparency axiom keeps every layer, foundational included, readable.
func (s *Store) Read(ctx context.Context, q Query) ([]Item, error) {
	var (
		conds []string
		args  []any
	)
	if q.Layer != nil {
		conds = append(conds, "layer = ?")
		args = append(args, *q.Layer)
	}
	if q.Target != "" {
		conds = append(conds, "target = ?")
		args = append(args, q.Target)
	}
	if q.Contains != "" {
		conds = append(conds, "content LIKE ?")
		args = append(args, "%"+q.Contains+"%")
	}

	query := `SELECT id, layer, target, content, source_session, consent_id, created_at FROM memory_items`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY layer, created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memstore: read: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var created string
		if err := rows.Scan(&it.ID, &it.Layer, &it.Target, &it.Content,
			&it.SourceSession, &it.ConsentID, &created); err != nil {
			return nil, fmt.Errorf("memstore: scan item: %w", err)
		}
		it.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Count returns the number of stored items. Used by tests and attestation
// to prove replayed consents do not grow the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_items`).Scan(&n)
	return n, err
}

// lockKey serializes writers on the same (layer, target) key.
func (s *Store) lockKey(layer int, target string) func() {
	key := fmt.Sprintf("%d\x00%s", layer, target)
	s.keyMu.Lock()
	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	s.keyMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func contentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(h[:8])
}

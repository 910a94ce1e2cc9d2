package consent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event is one line in the append-only consent ledger. The ledger is never
// rewritten; it exists so an external verifier can reconstruct the full
// consent history of every memory write.
type Event struct {
	Timestamp  string `json:"ts"`
	RequestID  string `json:"request_id"`
	Kind       string `json:"kind"` // requested | approved | denied | consumed | cancelled
	Scope      string `json:"scope"`
	ApprovedBy string `json:"approved_by,omitempty"`
}

// Ledger is the append-only JSONL consent event log.
type Ledger struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// OpenLedger opens (or creates) the ledger file for appending.
func OpenLedger(path string) (*Ledger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("consent: open ledger: %w", err)
	}
	return &Ledger{path: path, file: file}, nil
}

// Append writes one event. The timestamp is set here so callers cannot
// backdate entries.
func (l *Ledger) Append(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("consent: marshal ledger event: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("consent: write ledger event: %w", err)
	}
	return l.file.Sync()
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Close flushes and closes the ledger file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// ReadLedger parses all events from a ledger file. Used by the
// attestation exporter.
func ReadLedger(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("consent: corrupt ledger line: %w", err)
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// Package snapshot captures reversible state before a risky action runs
// and restores it on demand. Snapshots are content-addressed: the snapshot
// ID is the hash of the captured manifest, so capture of identical state
// yields the identical ID and restore is idempotent and verifiable.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry records the pre-action state of one path in the snapshot scope.
type Entry struct {
	Path     string `json:"path"`
	Exists   bool   `json:"exists"`
	Dir      bool   `json:"dir,omitempty"`
	Mode     uint32 `json:"mode,omitempty"`
	BlobHash string `json:"blob_hash,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Manifest describes one captured snapshot. Entries are sorted by path so
// the manifest serialization, and therefore the snapshot ID, is canonical.
type Manifest struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	Entries   []Entry `json:"entries"`
}

// RestoreError reports a failed restore. The Guardian treats this as fatal
// for the session.
type RestoreError struct {
	SnapshotID string
	Path       string
	Err        error
}

func (e *RestoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("restore %s: %s: %v", e.SnapshotID, e.Path, e.Err)
	}
	return fmt.Sprintf("restore %s: %v", e.SnapshotID, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

// Manager stores snapshots under a directory: blobs/ holds content by
// hash, manifests/ holds one JSON manifest per snapshot ID.
type Manager struct {
	dir string
	mu  sync.Mutex
}

// NewManager creates a Manager backed by the given directory.
func NewManager(dir string) (*Manager, error) {
	for _, sub := range []string{"blobs", "manifests"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return nil, fmt.Errorf("snapshot: create store directory: %w", err)
		}
	}
	return &Manager{dir: dir}, nil
}

// DefaultDir returns the default snapshot store directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "vigil-snapshots")
	}
	return filepath.Join(home, ".vigil", "snapshots")
}

// Capture records the current state of every path in scope and returns the
// content-addressed snapshot ID. Paths that do not exist are recorded as
// absent so a later restore can remove files the action created.
func (m *Manager) Capture(scope []string) (string, error) {
	if len(scope) == 0 {
		return "", fmt.Errorf("snapshot: empty scope")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, 0, len(scope))
	for _, p := range scope {
		e, err := m.captureOne(p)
		if err != nil {
			return "", err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	id := manifestID(entries)
	man := Manifest{
		ID:        id,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:   entries,
	}

	path := m.manifestPath(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil // same content captured before; same ID
	}
	if err := writeAtomic(path, man); err != nil {
		return "", fmt.Errorf("snapshot: write manifest: %w", err)
	}
	return id, nil
}

func (m *Manager) captureOne(p string) (Entry, error) {
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return Entry{Path: p, Exists: false}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("snapshot: stat %s: %w", p, err)
	}
	if info.IsDir() {
		// Directories carry no content blob; capturing one preserves its
		// existence and mode so restore can rebuild an emptied tree.
		return Entry{
			Path:   p,
			Exists: true,
			Dir:    true,
			Mode:   uint32(info.Mode().Perm()),
		}, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return Entry{}, fmt.Errorf("snapshot: read %s: %w", p, err)
	}

	hash := hashBytes(data)
	blobPath := m.blobPath(hash)
	if _, err := os.Stat(blobPath); os.IsNotExist(err) {
		tmp := blobPath + ".tmp"
		if err := os.WriteFile(tmp, data, 0600); err != nil {
			return Entry{}, fmt.Errorf("snapshot: write blob: %w", err)
		}
		if err := os.Rename(tmp, blobPath); err != nil {
			return Entry{}, fmt.Errorf("snapshot: commit blob: %w", err)
		}
	}

	return Entry{
		Path:     p,
		Exists:   true,
		Mode:     uint32(info.Mode().Perm()),
		BlobHash: hash,
		Size:     info.Size(),
	}, nil
}

// Restore returns every path in the snapshot to its captured state.
// Restoring the same ID twice produces bit-identical state both times.
// Any failure is surfaced as a *RestoreError, never swallowed.
func (m *Manager) Restore(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	man, err := m.readManifest(id)
	if err != nil {
		return &RestoreError{SnapshotID: id, Err: err}
	}

	for _, e := range man.Entries {
		if !e.Exists {
			// Path did not exist pre-action; remove whatever appeared.
			if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
				return &RestoreError{SnapshotID: id, Path: e.Path, Err: err}
			}
			continue
		}

		if e.Dir {
			if err := os.MkdirAll(e.Path, os.FileMode(e.Mode)); err != nil {
				return &RestoreError{SnapshotID: id, Path: e.Path, Err: err}
			}
			continue
		}

		data, err := os.ReadFile(m.blobPath(e.BlobHash))
		if err != nil {
			return &RestoreError{SnapshotID: id, Path: e.Path, Err: fmt.Errorf("blob missing: %w", err)}
		}
		if hashBytes(data) != e.BlobHash {
			return &RestoreError{SnapshotID: id, Path: e.Path, Err: fmt.Errorf("blob corrupted")}
		}

		tmp := e.Path + ".vigil-restore"
		if err := os.WriteFile(tmp, data, os.FileMode(e.Mode)); err != nil {
			return &RestoreError{SnapshotID: id, Path: e.Path, Err: err}
		}
		if err := os.Rename(tmp, e.Path); err != nil {
			os.Remove(tmp)
			return &RestoreError{SnapshotID: id, Path: e.Path, Err: err}
		}
	}

	return nil
}

// Verify recomputes the manifest hash and every blob hash for a snapshot.
// Used by the attestation surface.
func (m *Manager) Verify(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	man, err := m.readManifest(id)
	if err != nil {
		return err
	}
	if manifestID(man.Entries) != id {
		return fmt.Errorf("snapshot %s: manifest does not hash to its ID", id)
	}
	for _, e := range man.Entries {
		if !e.Exists || e.Dir {
			continue
		}
		data, err := os.ReadFile(m.blobPath(e.BlobHash))
		if err != nil {
			return fmt.Errorf("snapshot %s: blob for %s missing: %w", id, e.Path, err)
		}
		if hashBytes(data) != e.BlobHash {
			return fmt.Errorf("snapshot %s: blob for %s corrupted", id, e.Path)
		}
	}
	return nil
}

// List returns all stored manifests, newest first.
func (m *Manager) List() ([]Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirents, err := os.ReadDir(filepath.Join(m.dir, "manifests"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Manifest
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		man, err := m.readManifest(strings.TrimSuffix(de.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, *man)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *Manager) manifestPath(id string) string {
	return filepath.Join(m.dir, "manifests", id+".json")
}

func (m *Manager) blobPath(hash string) string {
	return filepath.Join(m.dir, "blobs", strings.TrimPrefix(hash, "sha256:"))
}

func (m *Manager) readManifest(id string) (*Manifest, error) {
	data, err := os.ReadFile(m.manifestPath(id))
	if err != nil {
		return nil, fmt.Errorf("manifest not found: %w", err)
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("manifest corrupted: %w", err)
	}
	return &man, nil
}

// manifestID hashes the canonical entry list. The ID deliberately excludes
// CreatedAt so identical state always addresses the same snapshot.
func manifestID(entries []Entry) string {
	line, err := json.Marshal(entries)
	if err != nil {
		// Entries contain only scalar fields; Marshal cannot fail.
		panic(err)
	}
	return "snap-" + strings.TrimPrefix(hashBytes(line), "sha256:")[:24]
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(h[:])
}

func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

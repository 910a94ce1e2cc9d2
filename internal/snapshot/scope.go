package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Walking an entire volume before a decision would stall the session, so
// directory expansion is capped. A scope that exceeds the cap is refused,
// which the caller treats like any other capture failure.
const maxScopeFiles = 4096

// ExpandScope resolves a list of paths into the flat list Capture works
// over. Directories are walked recursively and appear in the result
// themselves, so even an empty directory yields a capturable scope;
// absent paths pass through unchanged so their non-existence is itself
// captured.
func ExpandScope(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	out := make([]string, 0, len(paths))

	add := func(p string) error {
		if seen[p] {
			return nil
		}
		if len(out) >= maxScopeFiles {
			return fmt.Errorf("snapshot: scope exceeds %d files", maxScopeFiles)
		}
		seen[p] = true
		out = append(out, p)
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("snapshot: walk %s: %w", path, err)
			}
			return add(path)
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}

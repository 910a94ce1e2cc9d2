package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openvigil/vigil/internal/axiom"
)

// purposeSeed and principleSeeds are the layer 1 and 2 contents. Like the
// axioms they are written exactly once, by the seeder, through a private
// path that no caller can reach after initialization.
var purposeSeed = "Gate every side-effecting agent action so user work is never silently lost."

var principleSeeds = []string{
	"Fail closed: ambiguity escalates, it never defaults to safe.",
	"Notify before proceeding once risk reaches the pause threshold.",
	"Every refusal carries at least one concrete alternative.",
	"Consent is explicit, single-use, and granted only by the user.",
	"Snapshots precede risk; restores are verifiable and idempotent.",
}

// seedFoundation writes layers 0–2 on an empty store. A store that already
// holds foundational items is left untouched: seeding is not a write path,
// it is initialization, and it happens at most once per database.
func (s *Store) seedFoundation(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_items WHERE layer <= ?`, LayerPrinciples).Scan(&n); err != nil {
		return fmt.Errorf("memstore: inspect foundation: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("memstore: begin seed: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	insert := func(layer int, target, content string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO memory_items (id, layer, target, content, source_session, created_at)
			 VALUES (?, ?, ?, ?, 'seed', ?)`,
			"mem-"+uuid.NewString(), layer, target, content, now)
		return err
	}

	for _, a := range axiom.All() {
		content := fmt.Sprintf("%s (%s): %s", a.ID(), a.Name(), a.Tenet())
		if err := insert(LayerAxioms, "axiom/"+string(a.ID()), content); err != nil {
			return fmt.Errorf("memstore: seed axiom %s: %w", a.ID(), err)
		}
	}
	if err := insert(LayerPurpose, "purpose", purposeSeed); err != nil {
		return fmt.Errorf("memstore: seed purpose: %w", err)
	}
	for i, p := range principleSeeds {
		if err := insert(LayerPrinciples, fmt.Sprintf("principle/%d", i+1), p); err != nil {
			return fmt.Errorf("memstore: seed principle %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

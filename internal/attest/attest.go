// Package attest exports the evidence an external, independent verifier
// needs to check the safety invariants against an actual execution trace:
// the hash-chained decision log, the content-addressed snapshots and the
// consent ledger. The package gathers and cross-checks; it never enforces.
package attest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/openvigil/vigil/internal/audit"
	"github.com/openvigil/vigil/internal/consent"
	"github.com/openvigil/vigil/internal/snapshot"
)

// Bundle is the self-contained attestation artifact. Everything in it is
// either a hash or a pointer to append-only state, so a verifier can
// re-derive each claim independently.
type Bundle struct {
	GeneratedAt   string         `json:"generated_at"`
	DecisionLog   DecisionLogRef `json:"decision_log"`
	Snapshots     []SnapshotRef  `json:"snapshots"`
	ConsentLedger ConsentRef     `json:"consent_ledger"`
	Checks        []Check        `json:"checks"`
}

// DecisionLogRef ties the bundle to one verified decision log.
type DecisionLogRef struct {
	Path     string `json:"path"`
	Lines    int    `json:"lines"`
	HeadHash string `json:"head_hash"`
	Valid    bool   `json:"valid"`
}

// SnapshotRef records one snapshot's identity and verification status.
type SnapshotRef struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Entries   int    `json:"entries"`
	Verified  bool   `json:"verified"`
	Error     string `json:"error,omitempty"`
}

// ConsentRef summarizes the consent ledger.
type ConsentRef struct {
	Path   string `json:"path"`
	Events int    `json:"events"`
}

// Check is one cross-check over the collected evidence. A failed check is
// reported, never repaired: evidence that needed fixing is not evidence.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Exporter gathers attestation evidence from the stores it is given.
type Exporter struct {
	LogPath    string
	Snapshots  *snapshot.Manager
	LedgerPath string
}

// Export builds a Bundle and runs the cross-checks.
func (e *Exporter) Export() (*Bundle, error) {
	b := &Bundle{GeneratedAt: time.Now().UTC().Format(audit.TimestampFormat)}

	vr := audit.Verify(e.LogPath)
	b.DecisionLog = DecisionLogRef{
		Path:     e.LogPath,
		Lines:    vr.Lines,
		HeadHash: vr.HeadHash,
		Valid:    vr.Valid,
	}
	b.Checks = append(b.Checks, Check{
		Name:   "decision_log_chain_intact",
		Passed: vr.Valid,
		Detail: vr.Error,
	})

	if e.Snapshots != nil {
		manifests, err := e.Snapshots.List()
		if err != nil {
			return nil, fmt.Errorf("attest: list snapshots: %w", err)
		}
		allOK := true
		for _, m := range manifests {
			ref := SnapshotRef{ID: m.ID, CreatedAt: m.CreatedAt, Entries: len(m.Entries)}
			if err := e.Snapshots.Verify(m.ID); err != nil {
				ref.Error = err.Error()
				allOK = false
			} else {
				ref.Verified = true
			}
			b.Snapshots = append(b.Snapshots, ref)
		}
		b.Checks = append(b.Checks, Check{
			Name:   "snapshots_verify",
			Passed: allOK,
			Detail: fmt.Sprintf("%d snapshots checked", len(manifests)),
		})

		b.Checks = append(b.Checks, e.checkEscalationsSnapshotted())
	}

	if e.LedgerPath != "" {
		events, err := consent.ReadLedger(e.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("attest: read consent ledger: %w", err)
		}
		b.ConsentLedger = ConsentRef{Path: e.LedgerPath, Events: len(events)}
		b.Checks = append(b.Checks, checkConsentApprover(events))
	}

	return b, nil
}

// WriteFile writes the bundle as indented JSON.
func (b *Bundle) WriteFile(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("attest: marshal bundle: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Passed reports whether every cross-check succeeded.
func (b *Bundle) Passed() bool {
	for _, c := range b.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// checkEscalationsSnapshotted confirms that every logged decision at Pause
// or above carries a snapshot id that still verifies. Capture failures are
// exempt: those decisions landed at Protect precisely because no snapshot
// could be taken, and the log says so.
func (e *Exporter) checkEscalationsSnapshotted() Check {
	res, err := audit.Replay(e.LogPath, audit.ReplayFilter{})
	if err != nil {
		return Check{Name: "escalations_snapshotted", Detail: err.Error()}
	}

	missing := 0
	for _, entry := range res.Entries {
		if stateAtLeastPause(entry.State) && entry.SnapshotID != "" {
			if err := e.Snapshots.Verify(entry.SnapshotID); err != nil {
				missing++
			}
		}
	}
	return Check{
		Name:   "escalations_snapshotted",
		Passed: missing == 0,
		Detail: fmt.Sprintf("%d referenced snapshots failed verification", missing),
	}
}

// checkConsentApprover confirms no consent event was self-approved.
func checkConsentApprover(events []consent.Event) Check {
	for _, ev := range events {
		if ev.Kind == "approved" && ev.ApprovedBy != consent.Approver {
			return Check{
				Name:   "consent_user_approved",
				Detail: fmt.Sprintf("request %s approved by %q", ev.RequestID, ev.ApprovedBy),
			}
		}
	}
	return Check{Name: "consent_user_approved", Passed: true}
}

func stateAtLeastPause(state string) bool {
	switch state {
	case "pause", "block", "protect":
		return true
	}
	return false
}

package guardian

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openvigil/vigil/internal/alert"
	"github.com/openvigil/vigil/internal/audit"
	"github.com/openvigil/vigil/internal/classify"
	"github.com/openvigil/vigil/internal/model"
	"github.com/openvigil/vigil/internal/snapshot"
)

// Guardian owns the shared machinery behind every session: the compiled
// ruleset, the snapshot store, the decision log and the alert sinks.
// It is safe for concurrent use; per-session state lives on Session.
type Guardian struct {
	mu     sync.RWMutex
	rules  *classify.Ruleset
	snaps  *snapshot.Manager
	log    *audit.Log
	alerts *alert.Dispatcher
}

// New wires a Guardian. The alert dispatcher may be nil when no webhooks
// are configured; the audit log and snapshot manager are mandatory.
func New(rules *classify.Ruleset, snaps *snapshot.Manager, log *audit.Log, alerts *alert.Dispatcher) (*Guardian, error) {
	if rules == nil {
		rules = classify.Default()
	}
	if snaps == nil {
		return nil, fmt.Errorf("guardian: snapshot manager is required")
	}
	if log == nil {
		return nil, fmt.Errorf("guardian: audit log is required")
	}
	return &Guardian{rules: rules, snaps: snaps, log: log, alerts: alerts}, nil
}

// SetRuleset swaps the live ruleset. Sessions pick up the new rules on
// their next Evaluate call; decisions already made are never revisited.
func (g *Guardian) SetRuleset(rules *classify.Ruleset) {
	if rules == nil {
		return
	}
	g.mu.Lock()
	g.rules = rules
	g.mu.Unlock()
}

func (g *Guardian) ruleset() *classify.Ruleset {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rules
}

// Snapshots exposes the snapshot store for restore and verify commands.
func (g *Guardian) Snapshots() *snapshot.Manager { return g.snaps }

// AuditLog exposes the decision log for verify and replay commands.
func (g *Guardian) AuditLog() *audit.Log { return g.log }

// Session tracks the intervention level for one agent session. The level
// only ever rises within a session; a fresh session starts back at Flow.
type Session struct {
	g  *Guardian
	id string

	mu    sync.Mutex
	state model.State
}

// NewSession starts a session at Flow. An empty id gets a generated one.
func (g *Guardian) NewSession(id string) *Session {
	if id == "" {
		id = "sess-" + uuid.NewString()
	}
	return &Session{g: g, id: id, state: model.Flow}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current intervention level.
func (s *Session) State() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Evaluate gates one proposed action.
//
// Evaluation order (must not be changed):
//  1. Classify the request. A classifier panic degrades to the most
//     restrictive assessment instead of crashing the session.
//  2. Transition, monotonic, under the session lock.
//  3. Snapshot before permit: any outcome at Pause or above captures the
//     target's pre-state first. A capture failure forces Protect.
//  4. Build the message and alternatives the resulting level requires.
//  5. Append the decision to the audit log. An append failure forces
//     Protect: an unrecorded permit must not stand.
//  6. Dispatch alerts and commit the new session state.
//
// The returned Decision is valid even when err is non-nil; on any error
// the decision refuses the action.
func (s *Session) Evaluate(ctx context.Context, req model.ActionRequest) (model.Decision, error) {
	if err := ctx.Err(); err != nil {
		return s.refuse(req, "evaluation cancelled"), err
	}

	a := s.g.classifySafe(req)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := Transition(s.state, a)

	d := model.Decision{
		SessionID: s.id,
		State:     out.Next,
		AxiomIDs:  a.AxiomIDs,
		DecidedAt: time.Now().UTC(),
	}

	var evalErr error
	if out.Snapshot {
		id, err := s.captureScope(req)
		if err != nil {
			out.Next = model.Protect
			d.State = model.Protect
			evalErr = fmt.Errorf("guardian: snapshot before permit: %w", err)
		} else {
			d.SnapshotID = id
		}
	}

	d.Message = buildMessage(d.State, a, req, evalErr)
	if out.Alternatives || d.State >= model.Block {
		d.Alternatives = alternativesFor(req)
	}

	if err := s.record(req, a, d); err != nil {
		d.State = model.Protect
		d.Message = "protected: decision could not be recorded; refusing to act unaudited"
		d.Alternatives = alternativesFor(req)
		if evalErr == nil {
			evalErr = fmt.Errorf("guardian: record decision: %w", err)
		}
	}

	if out.Notify || d.State >= model.Pause {
		s.dispatch(req, d)
	}

	if d.State > s.state {
		s.state = d.State
	}
	return d, evalErr
}

// Rollback restores a snapshot taken by an earlier Evaluate. A failed
// restore escalates the session to Protect: with the pre-state no longer
// trustworthy, nothing further may run.
func (s *Session) Rollback(snapshotID string) error {
	err := s.g.snaps.Restore(snapshotID)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.state = model.Protect
	s.mu.Unlock()
	return fmt.Errorf("guardian: rollback %s: %w", snapshotID, err)
}

// classifySafe never lets a classifier fault become a permit.
func (g *Guardian) classifySafe(req model.ActionRequest) (a model.Assessment) {
	defer func() {
		if r := recover(); r != nil {
			a = model.Assessment{
				Category:       model.RiskCatastrophic,
				Reversibility:  model.RevUnknown,
				Scope:          model.ScopeWide,
				MatchedSignals: []string{"classifier_fault"},
			}
		}
	}()
	return g.ruleset().Classify(req)
}

func (s *Session) captureScope(req model.ActionRequest) (string, error) {
	if req.Target == "" {
		return "", fmt.Errorf("no target to capture")
	}
	scope, err := snapshot.ExpandScope([]string{req.Target})
	if err != nil {
		return "", err
	}
	return s.g.snaps.Capture(scope)
}

func (s *Session) record(req model.ActionRequest, a model.Assessment, d model.Decision) error {
	return s.g.log.Record(audit.Entry{
		SessionID: s.id,
		Action: audit.EntryAction{
			Kind:   string(req.Kind),
			Target: req.Target,
		},
		Assessment: audit.EntryAssessment{
			Category:      string(a.Category),
			Reversibility: string(a.Reversibility),
			Scope:         string(a.Scope),
		},
		State:       d.State.String(),
		Message:     d.Message,
		SnapshotID:  d.SnapshotID,
		AxiomIDs:    d.AxiomIDs,
		RulesetHash: s.g.ruleset().Hash(),
	})
}

func (s *Session) dispatch(req model.ActionRequest, d model.Decision) {
	if s.g.alerts == nil {
		return
	}
	s.g.alerts.Dispatch(alert.Event{
		Timestamp:   time.Now().UTC().Format(audit.TimestampFormat),
		SessionID:   s.id,
		Kind:        string(req.Kind),
		Target:      req.Target,
		State:       d.State.String(),
		Message:     d.Message,
		SnapshotID:  d.SnapshotID,
		RulesetHash: s.g.ruleset().Hash(),
	})
}

func (s *Session) refuse(req model.ActionRequest, reason string) model.Decision {
	return model.Decision{
		SessionID:    s.id,
		State:        model.Protect,
		Message:      "protected: " + reason,
		Alternatives: alternativesFor(req),
		DecidedAt:    time.Now().UTC(),
	}
}

// buildMessage phrases the decision for the user. Flow stays silent;
// every higher level explains itself and names the grounding axioms.
func buildMessage(state model.State, a model.Assessment, req model.ActionRequest, evalErr error) string {
	if evalErr != nil {
		return fmt.Sprintf("protected: could not capture pre-state of %s; refusing to proceed without a rollback point", req.Target)
	}

	axioms := ""
	if len(a.AxiomIDs) > 0 {
		axioms = " [" + strings.Join(a.AxiomIDs, ", ") + "]"
	}

	switch state {
	case model.Flow:
		return ""
	case model.Nudge:
		return fmt.Sprintf("note: %s on %s is low-risk and reversible; proceeding", req.Kind, req.Target)
	case model.Pause:
		return fmt.Sprintf("paused: %s on %s needs your confirmation before it runs%s", req.Kind, req.Target, axioms)
	case model.Block:
		return fmt.Sprintf("blocked: %s on %s is irreversible and wide in scope; consider the alternatives%s", req.Kind, req.Target, axioms)
	default:
		if a.ConsentGated {
			return fmt.Sprintf("protected: %s on %s requires explicit user consent%s", req.Kind, req.Target, axioms)
		}
		return fmt.Sprintf("protected: refusing %s on %s%s", req.Kind, req.Target, axioms)
	}
}

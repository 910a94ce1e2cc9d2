package mcp

import (
	"context"
	"errors"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/openvigil/vigil/internal/consent"
	"github.com/openvigil/vigil/internal/memstore"
	"github.com/openvigil/vigil/internal/model"
)

// --- Input/Output types ---

// EvaluateInput defines parameters for the vigil_evaluate tool.
type EvaluateInput struct {
	SessionID     string   `json:"session_id,omitempty" jsonschema:"agent session identifier; omit for the default session"`
	Kind          string   `json:"kind" jsonschema:"action kind (write/delete/execute/network/permanent_memory_write)"`
	Target        string   `json:"target" jsonschema:"path or resource the action would touch"`
	Reversibility string   `json:"reversibility,omitempty" jsonschema:"orchestrator hint (reversible/irreversible/unknown)"`
	Signals       []string `json:"signals,omitempty" jsonschema:"free-form risk signals"`
}

// EvaluateOutput contains the guardian decision.
type EvaluateOutput struct {
	State        string   `json:"state"`
	Allowed      bool     `json:"allowed"`
	Message      string   `json:"message,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	SnapshotID   string   `json:"snapshot_id,omitempty"`
	AxiomIDs     []string `json:"axiom_ids,omitempty"`
}

// MemoryWriteInput defines parameters for the vigil_memory_write tool.
type MemoryWriteInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"agent session identifier"`
	Layer     int    `json:"layer" jsonschema:"memory layer; 3 and above are writable with consent"`
	Target    string `json:"target" jsonschema:"key the item is stored under"`
	Content   string `json:"content" jsonschema:"item content"`
	ConsentID string `json:"consent_id,omitempty" jsonschema:"approved consent request id authorizing this write"`
}

// MemoryWriteOutput contains the write result or the consent obligation.
type MemoryWriteOutput struct {
	MemoryID        string `json:"memory_id,omitempty"`
	ConsentRequired bool   `json:"consent_required,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
	Refused         bool   `json:"refused,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// MemoryReadInput defines parameters for the vigil_memory_read tool.
type MemoryReadInput struct {
	Layer    *int   `json:"layer,omitempty" jsonschema:"restrict to one layer"`
	Target   string `json:"target,omitempty" jsonschema:"exact target key"`
	Contains string `json:"contains,omitempty" jsonschema:"substring filter over content"`
}

// MemoryReadOutput lists matching items.
type MemoryReadOutput struct {
	Items []MemoryItem `json:"items"`
}

// MemoryItem is a single stored item.
type MemoryItem struct {
	ID        string `json:"id"`
	Layer     int    `json:"layer"`
	Target    string `json:"target"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ConsentResolveInput defines parameters for the vigil_consent_resolve tool.
type ConsentResolveInput struct {
	RequestID string `json:"request_id" jsonschema:"pending consent request id"`
	Approved  bool   `json:"approved" jsonschema:"true to approve, false to deny"`
}

// ConsentResolveOutput confirms the resolution.
type ConsentResolveOutput struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// PendingInput is empty, no parameters needed.
type PendingInput struct{}

// PendingOutput lists consent requests awaiting the user.
type PendingOutput struct {
	Requests []PendingItem `json:"requests"`
}

// PendingItem describes a single pending consent request.
type PendingItem struct {
	RequestID string `json:"request_id"`
	Scope     string `json:"scope"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

// --- Handlers ---

func (s *Server) handleEvaluate(ctx context.Context, req *mcpsdk.CallToolRequest, input EvaluateInput) (*mcpsdk.CallToolResult, EvaluateOutput, error) {
	sess := s.session(input.SessionID)

	d, err := sess.Evaluate(ctx, model.ActionRequest{
		Kind:          model.ActionKind(input.Kind),
		Target:        input.Target,
		Reversibility: model.Reversibility(input.Reversibility),
		Signals:       input.Signals,
	})
	// An evaluation error still yields a refusing decision; surface both.
	out := EvaluateOutput{
		State:        d.State.String(),
		Allowed:      d.Allowed(),
		Message:      d.Message,
		Alternatives: d.Alternatives,
		SnapshotID:   d.SnapshotID,
		AxiomIDs:     d.AxiomIDs,
	}
	if err != nil || !d.Allowed() {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleMemoryWrite(ctx context.Context, req *mcpsdk.CallToolRequest, input MemoryWriteInput) (*mcpsdk.CallToolResult, MemoryWriteOutput, error) {
	var rec *consent.Record
	if input.ConsentID != "" {
		r, err := s.consents.Get(input.ConsentID)
		if err != nil {
			return &mcpsdk.CallToolResult{IsError: true}, MemoryWriteOutput{
				Refused: true,
				Reason:  "unknown consent request: " + input.ConsentID,
			}, nil
		}
		rec = r
	}

	id, err := s.memory.Write(ctx, memstore.Item{
		Layer:         input.Layer,
		Target:        input.Target,
		Content:       input.Content,
		SourceSession: input.SessionID,
	}, rec)
	if err != nil {
		var needs *memstore.ConsentRequiredError
		if errors.As(err, &needs) {
			return &mcpsdk.CallToolResult{IsError: true}, MemoryWriteOutput{
				ConsentRequired: true,
				RequestID:       needs.RequestID,
				Reason:          err.Error(),
			}, nil
		}
		var immutable *memstore.ImmutabilityError
		var rejected *memstore.ConsentRejectedError
		if errors.As(err, &immutable) || errors.As(err, &rejected) {
			return &mcpsdk.CallToolResult{IsError: true}, MemoryWriteOutput{
				Refused: true,
				Reason:  err.Error(),
			}, nil
		}
		return nil, MemoryWriteOutput{}, err
	}

	return nil, MemoryWriteOutput{MemoryID: id}, nil
}

func (s *Server) handleMemoryRead(ctx context.Context, req *mcpsdk.CallToolRequest, input MemoryReadInput) (*mcpsdk.CallToolResult, MemoryReadOutput, error) {
	items, err := s.memory.Read(ctx, memstore.Query{
		Layer:    input.Layer,
		Target:   input.Target,
		Contains: input.Contains,
	})
	if err != nil {
		return nil, MemoryReadOutput{}, err
	}

	out := MemoryReadOutput{Items: make([]MemoryItem, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, MemoryItem{
			ID:        it.ID,
			Layer:     it.Layer,
			Target:    it.Target,
			Content:   it.Content,
			CreatedAt: it.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *Server) handleConsentResolve(ctx context.Context, req *mcpsdk.CallToolRequest, input ConsentResolveInput) (*mcpsdk.CallToolResult, ConsentResolveOutput, error) {
	if err := s.consents.Resolve(input.RequestID, input.Approved); err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, ConsentResolveOutput{
			RequestID: input.RequestID,
		}, err
	}

	status, err := s.consents.Check(input.RequestID)
	if err != nil {
		return nil, ConsentResolveOutput{}, err
	}
	return nil, ConsentResolveOutput{
		RequestID: input.RequestID,
		Status:    string(status),
	}, nil
}

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input PendingInput) (*mcpsdk.CallToolResult, PendingOutput, error) {
	pending, err := s.consents.Pending()
	if err != nil {
		return nil, PendingOutput{}, err
	}

	out := PendingOutput{Requests: make([]PendingItem, 0, len(pending))}
	for _, r := range pending {
		out.Requests = append(out.Requests, PendingItem{
			RequestID: r.RequestID,
			Scope:     r.Scope,
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

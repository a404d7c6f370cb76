package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenthands/chronicle/internal/core/facts"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/llm"
)

// Protocol updates a fact without destroying history: the old row is
// invalidated and a fresh row with a new uuid carries the new statement.
// A row never re-enters the live state.
type Protocol struct {
	Facts    *facts.Store
	Embedder llm.EmbedderClient // optional; the superseding fact gets no embedding without it
	Logger   *slog.Logger

	Now func() time.Time
}

func NewProtocol(store *facts.Store, embedder llm.EmbedderClient, logger *slog.Logger) *Protocol {
	if logger == nil {
		logger = slog.Default()
	}
	return &Protocol{
		Facts:    store,
		Embedder: embedder,
		Logger:   logger,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

type SupersedeResult struct {
	OldUUID       string    `json:"old_uuid"`
	NewUUID       string    `json:"new_uuid"`
	Fact          string    `json:"fact"`
	SourceUUID    string    `json:"source_node_uuid"`
	TargetUUID    string    `json:"target_node_uuid"`
	GroupID       string    `json:"group_id"`
	InvalidatedAt time.Time `json:"invalidated_at"`
}

// Supersede replaces the live fact identified by factUUID with a new fact
// carrying newFact, keeping endpoints, episodes and group.
//
// The invalidate and create steps are not atomic across the engine: when the
// create fails after the invalidation committed, the relationship is left
// with zero live facts and the condition surfaces as a PartialUpdateError
// rather than a generic failure.
func (p *Protocol) Supersede(ctx context.Context, factUUID, newFact, groupID string) (*SupersedeResult, error) {
	if newFact == "" {
		return nil, model.NewValidationError("superseding fact text must not be empty")
	}

	old, err := p.Facts.GetByUUID(ctx, factUUID)
	if err != nil {
		return nil, err
	}
	if !old.IsLive() {
		// No live fact under this uuid to supersede.
		return nil, fmt.Errorf("fact %s has no live version: %w", factUUID, model.ErrNotFound)
	}

	// Supersession never crosses groups: a differing override would punch a
	// hole in group isolation.
	if groupID != "" && groupID != old.GroupID {
		return nil, model.NewValidationError(
			"cannot supersede fact %s into group %q: fact belongs to group %q",
			factUUID, groupID, old.GroupID)
	}

	now := p.Now().UTC()

	inv, err := p.Facts.Invalidate(ctx, factUUID, now)
	if err != nil {
		return nil, err
	}

	successor := &model.EntityEdge{
		SourceNodeUUID: old.SourceNodeUUID,
		TargetNodeUUID: old.TargetNodeUUID,
		Name:           old.Name,
		Fact:           newFact,
		GroupID:        old.GroupID,
		CreatedAt:      now,
		ValidAt:        &now,
		Episodes:       old.Episodes,
	}

	if p.Embedder != nil {
		vec, err := p.Embedder.Embed(ctx, newFact)
		if err != nil {
			p.Logger.Warn("embedding for superseding fact failed, storing without one",
				"old_uuid", factUUID, "error", err)
		} else {
			successor.FactEmbedding = vec
		}
	}

	if err := p.Facts.Create(ctx, successor); err != nil {
		return nil, &model.PartialUpdateError{
			OldUUID:       factUUID,
			InvalidatedAt: inv.InvalidAt.Format(time.RFC3339),
			Cause:         err,
		}
	}

	p.Logger.Info("fact superseded",
		"old_uuid", factUUID, "new_uuid", successor.UUID, "invalidated_at", inv.InvalidAt)

	return &SupersedeResult{
		OldUUID:       factUUID,
		NewUUID:       successor.UUID,
		Fact:          newFact,
		SourceUUID:    successor.SourceNodeUUID,
		TargetUUID:    successor.TargetNodeUUID,
		GroupID:       successor.GroupID,
		InvalidatedAt: inv.InvalidAt,
	}, nil
}

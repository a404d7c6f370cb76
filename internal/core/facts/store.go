package facts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/driver"
)

// Store owns create/read/invalidate/delete on facts and their temporal
// fields. Every mutation is a single engine statement, observable by the next
// read; the store keeps no state of its own.
type Store struct {
	Driver driver.GraphDriver
	Logger *slog.Logger

	// UUIDGenerator is overridable for deterministic tests.
	UUIDGenerator func() string
}

func NewStore(d driver.GraphDriver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		Driver:        d,
		Logger:        logger,
		UUIDGenerator: func() string { return uuid.New().String() },
	}
}

// Create persists a new fact. The endpoints must exist and share one group;
// an empty edge group inherits it, a differing one is rejected.
func (s *Store) Create(ctx context.Context, edge *model.EntityEdge) error {
	if edge.SourceNodeUUID == "" || edge.TargetNodeUUID == "" {
		return model.NewValidationError("fact requires both endpoint uuids")
	}
	if edge.Fact == "" {
		return model.NewValidationError("fact statement text must not be empty")
	}

	res, err := s.Driver.ExecuteQuery(ctx, driver.GetFactEndpointsQuery, map[string]interface{}{
		"source_uuid": edge.SourceNodeUUID,
		"target_uuid": edge.TargetNodeUUID,
	})
	if err != nil {
		return model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 {
		return model.NewValidationError("fact endpoints %s -> %s do not both exist",
			edge.SourceNodeUUID, edge.TargetNodeUUID)
	}

	sourceGroup := driver.RecordString(res.Records[0], "source_group")
	targetGroup := driver.RecordString(res.Records[0], "target_group")
	if sourceGroup != targetGroup {
		return model.NewValidationError("fact endpoints belong to different groups (%q vs %q)",
			sourceGroup, targetGroup)
	}
	if edge.GroupID == "" {
		edge.GroupID = sourceGroup
	} else if edge.GroupID != sourceGroup {
		return model.NewValidationError("fact group %q does not match endpoint group %q",
			edge.GroupID, sourceGroup)
	}

	if edge.UUID == "" {
		edge.UUID = s.UUIDGenerator()
	}
	if edge.Name == "" {
		edge.Name = model.DefaultRelationName
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	params := map[string]interface{}{
		"uuid":           edge.UUID,
		"source_uuid":    edge.SourceNodeUUID,
		"target_uuid":    edge.TargetNodeUUID,
		"name":           edge.Name,
		"fact":           edge.Fact,
		"group_id":       edge.GroupID,
		"created_at":     driver.TimeParam(edge.CreatedAt),
		"valid_at":       driver.TimePtrParam(edge.ValidAt),
		"invalid_at":     driver.TimePtrParam(edge.InvalidAt),
		"episodes":       edge.Episodes,
		"fact_embedding": embeddingParam(edge.FactEmbedding),
	}

	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveEntityEdgeQuery, params); err != nil {
		return model.NewCollaboratorError("graph", err)
	}

	s.Logger.Debug("fact created", "uuid", edge.UUID, "group_id", edge.GroupID)
	return nil
}

func (s *Store) GetByUUID(ctx context.Context, factUUID string) (*model.EntityEdge, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetFactQuery, map[string]interface{}{
		"uuid": factUUID,
	})
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("fact %s: %w", factUUID, model.ErrNotFound)
	}
	return EdgeFromRecord(res.Records[0]), nil
}

// InvalidateResult reports what Invalidate did.
type InvalidateResult struct {
	UUID           string
	InvalidAt      time.Time
	AlreadyInvalid bool // the fact was historical before the call; its original timestamp is kept
}

// Invalidate marks a live fact historical at the given time. Invalidating an
// already-historical fact is a success no-op that keeps the first timestamp,
// and a timestamp earlier than the fact's created_at is floored to it.
func (s *Store) Invalidate(ctx context.Context, factUUID string, at time.Time) (InvalidateResult, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.InvalidateFactQuery, map[string]interface{}{
		"uuid":       factUUID,
		"invalid_at": driver.TimeParam(at),
	})
	if err != nil {
		return InvalidateResult{}, model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 {
		return InvalidateResult{}, fmt.Errorf("fact %s: %w", factUUID, model.ErrNotFound)
	}

	rec := res.Records[0]
	result := InvalidateResult{UUID: factUUID}
	if prev := driver.RecordTimePtr(rec, "previous_invalid_at"); prev != nil {
		result.AlreadyInvalid = true
		result.InvalidAt = *prev
	} else if applied := driver.RecordTimePtr(rec, "invalid_at"); applied != nil {
		// The engine may have floored the timestamp at created_at.
		result.InvalidAt = *applied
	} else {
		result.InvalidAt = at.UTC()
	}

	s.Logger.Info("fact invalidated", "uuid", factUUID,
		"invalid_at", result.InvalidAt, "no_op", result.AlreadyInvalid)
	return result, nil
}

// Delete hard-removes the fact row in any state.
func (s *Store) Delete(ctx context.Context, factUUID string) error {
	res, err := s.Driver.ExecuteQuery(ctx, driver.DeleteFactQuery, map[string]interface{}{
		"uuid": factUUID,
	})
	if err != nil {
		return model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 || driver.RecordInt(res.Records[0], "deleted") == 0 {
		return fmt.Errorf("fact %s: %w", factUUID, model.ErrNotFound)
	}
	s.Logger.Info("fact deleted", "uuid", factUUID)
	return nil
}

type RetireMode string

const (
	RetireInvalidated RetireMode = "invalidated" // temporal deletion, row kept for audit
	RetireDeleted     RetireMode = "deleted"     // was already historical, struck permanently
)

type RetireResult struct {
	UUID      string
	Mode      RetireMode
	InvalidAt *time.Time
}

// Retire is the transport-facing removal: a live fact is invalidated, an
// already-historical one is hard-deleted as the fallback. A uuid that exists
// in neither state is ErrNotFound, so "already gone" and "never existed" stay
// distinguishable.
func (s *Store) Retire(ctx context.Context, factUUID string) (RetireResult, error) {
	now := time.Now().UTC()
	inv, err := s.Invalidate(ctx, factUUID, now)
	if err != nil {
		return RetireResult{}, err
	}

	if !inv.AlreadyInvalid {
		at := inv.InvalidAt
		return RetireResult{UUID: factUUID, Mode: RetireInvalidated, InvalidAt: &at}, nil
	}

	if err := s.Delete(ctx, factUUID); err != nil {
		return RetireResult{}, err
	}
	return RetireResult{UUID: factUUID, Mode: RetireDeleted}, nil
}

// List returns facts in engine order, optionally filtered by group.
func (s *Store) List(ctx context.Context, groupID string, limit int) ([]*model.EntityEdge, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := driver.ListFactsQuery
	params := map[string]interface{}{"limit": limit}
	if groupID != "" {
		query = driver.ListFactsByGroupQuery
		params["group_id"] = groupID
	}

	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}

	edges := make([]*model.EntityEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		edges = append(edges, EdgeFromRecord(rec))
	}
	return edges, nil
}

// ListLiveBetween returns the live facts for one directed endpoint pair in a
// group. The documented API keeps this at most one element long.
func (s *Store) ListLiveBetween(ctx context.Context, sourceUUID, targetUUID, groupID string) ([]*model.EntityEdge, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListLiveFactsBetweenQuery, map[string]interface{}{
		"source_uuid": sourceUUID,
		"target_uuid": targetUUID,
		"group_id":    groupID,
	})
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}

	edges := make([]*model.EntityEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		edges = append(edges, EdgeFromRecord(rec))
	}
	return edges, nil
}

// EdgeFromRecord decodes the shared fact RETURN shape.
func EdgeFromRecord(rec *neo4j.Record) *model.EntityEdge {
	return &model.EntityEdge{
		UUID:           driver.RecordString(rec, "uuid"),
		SourceNodeUUID: driver.RecordString(rec, "source_uuid"),
		TargetNodeUUID: driver.RecordString(rec, "target_uuid"),
		Name:           driver.RecordString(rec, "name"),
		Fact:           driver.RecordString(rec, "fact"),
		GroupID:        driver.RecordString(rec, "group_id"),
		CreatedAt:      driver.RecordTime(rec, "created_at"),
		ValidAt:        driver.RecordTimePtr(rec, "valid_at"),
		InvalidAt:      driver.RecordTimePtr(rec, "invalid_at"),
		Episodes:       driver.RecordStringList(rec, "episodes"),
	}
}

func embeddingParam(vec []float32) interface{} {
	if len(vec) == 0 {
		return nil
	}
	return vec
}

package nodes

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

// Registry owns create/read/delete of entities. Cascade ordering is the
// caller's job: facts referencing an entity must be retired before the entity
// is deleted, since a dangling fact endpoint violates the data model.
type Registry struct {
	Driver driver.GraphDriver
	Logger *slog.Logger

	UUIDGenerator func() string
}

func NewRegistry(d driver.GraphDriver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		Driver:        d,
		Logger:        logger,
		UUIDGenerator: func() string { return uuid.New().String() },
	}
}

func (r *Registry) Create(ctx context.Context, node *model.EntityNode) error {
	if node.Name == "" {
		return model.NewValidationError("entity name must not be empty")
	}
	if node.UUID == "" {
		node.UUID = r.UUIDGenerator()
	}
	if node.Type == "" {
		node.Type = model.DefaultEntityType
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}

	params := map[string]interface{}{
		"uuid":           node.UUID,
		"name":           node.Name,
		"type":           node.Type,
		"group_id":       node.GroupID,
		"created_at":     driver.TimeParam(node.CreatedAt),
		"summary":        node.Summary,
		"name_embedding": embeddingParam(node.NameEmbedding),
	}

	if _, err := r.Driver.ExecuteQuery(ctx, driver.SaveEntityNodeQuery, params); err != nil {
		return model.NewCollaboratorError("graph", err)
	}

	r.Logger.Debug("entity created", "uuid", node.UUID, "name", node.Name, "group_id", node.GroupID)
	return nil
}

func (r *Registry) GetByUUID(ctx context.Context, nodeUUID string) (*model.EntityNode, error) {
	res, err := r.Driver.ExecuteQuery(ctx, driver.GetEntityNodeQuery, map[string]interface{}{
		"uuid": nodeUUID,
	})
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("entity %s: %w", nodeUUID, model.ErrNotFound)
	}
	return NodeFromRecord(res.Records[0]), nil
}

func (r *Registry) List(ctx context.Context, groupID string, limit int) ([]*model.EntityNode, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := driver.ListEntityNodesQuery
	params := map[string]interface{}{"limit": limit}
	if groupID != "" {
		query = driver.ListEntityNodesByGroupQuery
		params["group_id"] = groupID
	}

	res, err := r.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}

	result := make([]*model.EntityNode, 0, len(res.Records))
	for _, rec := range res.Records {
		result = append(result, NodeFromRecord(rec))
	}
	return result, nil
}

func (r *Registry) Delete(ctx context.Context, nodeUUID string) error {
	res, err := r.Driver.ExecuteQuery(ctx, driver.DeleteEntityNodeQuery, map[string]interface{}{
		"uuid": nodeUUID,
	})
	if err != nil {
		return model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 || driver.RecordInt(res.Records[0], "deleted") == 0 {
		return fmt.Errorf("entity %s: %w", nodeUUID, model.ErrNotFound)
	}
	r.Logger.Info("entity deleted", "uuid", nodeUUID)
	return nil
}

// CountReferences reports how many facts (any state) touch the entity and how
// many episodes still mention it. Used by the episode cascade to decide
// orphan cleanup.
func (r *Registry) CountReferences(ctx context.Context, nodeUUID string) (factCount, episodeCount int64, err error) {
	res, err := r.Driver.ExecuteQuery(ctx, driver.CountEntityReferencesQuery, map[string]interface{}{
		"uuid": nodeUUID,
	})
	if err != nil {
		return 0, 0, model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 {
		return 0, 0, fmt.Errorf("entity %s: %w", nodeUUID, model.ErrNotFound)
	}
	rec := res.Records[0]
	return driver.RecordInt(rec, "fact_count"), driver.RecordInt(rec, "episode_count"), nil
}

func NodeFromRecord(rec *neo4j.Record) *model.EntityNode {
	nodeType := driver.RecordString(rec, "type")
	if nodeType == "" {
		nodeType = model.DefaultEntityType
	}
	return &model.EntityNode{
		UUID:      driver.RecordString(rec, "uuid"),
		Name:      driver.RecordString(rec, "name"),
		Type:      nodeType,
		GroupID:   driver.RecordString(rec, "group_id"),
		CreatedAt: driver.RecordTime(rec, "created_at"),
		Summary:   driver.RecordString(rec, "summary"),
	}
}

func embeddingParam(vec []float32) interface{} {
	if len(vec) == 0 {
		return nil
	}
	return vec
}

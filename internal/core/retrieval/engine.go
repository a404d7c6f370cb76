package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/driver"
	"github.com/agenthands/chronicle/internal/llm"
)

// ScoreThreshold is the engine's fixed relevance floor. The score is
// (2 - cosine_distance) / 2, so 0.5 marks orthogonality between the query
// vector and the fact embedding.
const ScoreThreshold = 0.5

// Engine ranks live facts by similarity between the query vector and their
// stored embeddings. Facts without embeddings never match.
type Engine struct {
	Driver   driver.GraphDriver
	Embedder llm.EmbedderClient
	Logger   *slog.Logger
}

func NewEngine(d driver.GraphDriver, embedder llm.EmbedderClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Driver: d, Embedder: embedder, Logger: logger}
}

type Query struct {
	Text          string
	GroupIDs      []string
	Limit         int
	MinScore      float64 // stricter caller floor above the engine threshold; 0 disables
	FocalNodeUUID string  // facts incident to this node win score ties
}

type scoredRow struct {
	fact       model.ScoredFact
	sourceUUID string
	targetUUID string
}

// Search embeds the query text (empty text included) and returns live facts
// with score > 0.5, ordered by score descending, MinScore-filtered, truncated
// to Limit. Zero matching facts is an empty result, not an error.
func (e *Engine) Search(ctx context.Context, q Query) ([]model.ScoredFact, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	if e.Embedder == nil {
		return nil, model.NewCollaboratorError("embedding", errors.New("no embedder configured"))
	}

	vector, err := e.Embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, model.NewCollaboratorError("embedding", err)
	}

	query := driver.ScoredSearchQuery
	params := map[string]interface{}{
		"search_vector": vector,
		"threshold":     ScoreThreshold,
		"limit":         q.Limit,
	}
	if len(q.GroupIDs) > 0 {
		query = driver.ScoredSearchByGroupsQuery
		params["group_ids"] = q.GroupIDs
	}

	res, err := e.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}

	rows := make([]scoredRow, 0, len(res.Records))
	for _, rec := range res.Records {
		row := rowFromRecord(rec)
		if q.MinScore > 0 && row.fact.Score < q.MinScore {
			continue
		}
		rows = append(rows, row)
	}

	// The engine already orders by score; re-sorting stably lets the focal
	// node break ties without disturbing the ranking.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].fact.Score != rows[j].fact.Score {
			return rows[i].fact.Score > rows[j].fact.Score
		}
		if q.FocalNodeUUID != "" {
			return rows[i].incidentTo(q.FocalNodeUUID) && !rows[j].incidentTo(q.FocalNodeUUID)
		}
		return false
	})

	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	results := make([]model.ScoredFact, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.fact)
	}

	e.Logger.Debug("scored search", "query", q.Text, "results", len(results))
	return results, nil
}

func (r scoredRow) incidentTo(nodeUUID string) bool {
	return r.sourceUUID == nodeUUID || r.targetUUID == nodeUUID
}

func rowFromRecord(rec *neo4j.Record) scoredRow {
	return scoredRow{
		fact: model.ScoredFact{
			UUID:         driver.RecordString(rec, "uuid"),
			Fact:         driver.RecordString(rec, "fact"),
			SourceEntity: driver.RecordString(rec, "source_entity"),
			TargetEntity: driver.RecordString(rec, "target_entity"),
			GroupID:      driver.RecordString(rec, "group_id"),
			CreatedAt:    driver.RecordTime(rec, "created_at"),
			ValidAt:      driver.RecordTimePtr(rec, "valid_at"),
			InvalidAt:    driver.RecordTimePtr(rec, "invalid_at"),
			Score:        driver.RecordFloat(rec, "score"),
		},
		sourceUUID: driver.RecordString(rec, "source_uuid"),
		targetUUID: driver.RecordString(rec, "target_uuid"),
	}
}

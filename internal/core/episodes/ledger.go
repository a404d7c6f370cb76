package episodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/chronicle/internal/core/dedupe"
	"github.com/agenthands/chronicle/internal/core/extraction"
	"github.com/agenthands/chronicle/internal/core/facts"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/core/nodes"
	"github.com/agenthands/chronicle/internal/core/summary"
	"github.com/agenthands/chronicle/internal/driver"
	"github.com/agenthands/chronicle/internal/llm"
)

// Ledger records ingested source units and what they produced, and owns the
// full cascading removal of an episode.
type Ledger struct {
	Driver    driver.GraphDriver
	Facts     *facts.Store
	Nodes     *nodes.Registry
	Extractor *extraction.Extractor

	// Optional collaborators. Without an embedder facts are stored without
	// embeddings; without a deduplicator entity resolution falls back to
	// exact-name matching; without a summarizer entity summaries stay empty.
	Embedder     llm.EmbedderClient
	Deduplicator *dedupe.Deduplicator
	Summarizer   *summary.Summarizer

	Logger *slog.Logger

	UUIDGenerator func() string
	Now           func() time.Time
}

func NewLedger(d driver.GraphDriver, factStore *facts.Store, registry *nodes.Registry,
	extractor *extraction.Extractor, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		Driver:        d,
		Facts:         factStore,
		Nodes:         registry,
		Extractor:     extractor,
		Logger:        logger,
		UUIDGenerator: func() string { return uuid.New().String() },
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type IngestRequest struct {
	EpisodeUUID       string // optional caller-supplied uuid
	Name              string
	Content           string
	Source            string // "text" (default) or "message"
	SourceDescription string
	GroupID           string
	ReferenceTime     time.Time // zero means now
}

type IngestResult struct {
	EpisodeUUID  string `json:"episode_uuid"`
	NodesCreated int    `json:"nodes_created"`
	EdgesCreated int    `json:"edges_created"`
}

// Ingest runs the pipeline: both extraction phases and entity resolution
// first (a failure anywhere there aborts with nothing persisted), then the
// entity nodes, the episode row, MENTIONS links, facts with invariant
// upkeep, and finally the entity_edges attribution on the episode.
func (l *Ledger) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.Content == "" {
		return nil, model.NewValidationError("episode content must not be empty")
	}

	now := l.Now().UTC()
	refTime := req.ReferenceTime
	if refTime.IsZero() {
		refTime = now
	}
	source := req.Source
	if source == "" {
		source = model.SourceText
	}

	// 1. Entity extraction. Nothing is persisted when this fails.
	mentions, err := l.Extractor.ExtractEntities(ctx, req.Content, refTime)
	if err != nil {
		return nil, err
	}

	episodeUUID := req.EpisodeUUID
	if episodeUUID == "" {
		episodeUUID = l.UUIDGenerator()
	}

	// 2. Resolve mentions against entities already in the group, in memory.
	involved, fresh, err := l.resolveEntities(ctx, mentions, req.GroupID)
	if err != nil {
		return nil, err
	}

	// 3. Fact extraction. Still before the first write, so a failure in
	//    either extraction phase leaves no partial episode behind.
	extracted, err := l.Extractor.ExtractFacts(ctx, req.Content, involved)
	if err != nil {
		return nil, err
	}

	// 4. Persist the newly resolved entities.
	for _, node := range fresh {
		if l.Embedder != nil {
			if vec, err := l.Embedder.Embed(ctx, node.Name); err == nil {
				node.NameEmbedding = vec
			}
		}
		if err := l.Nodes.Create(ctx, node); err != nil {
			return nil, err
		}
	}

	// 5. Episode row. entity_edges is attributed after the facts exist.
	episode := &model.EpisodicNode{
		UUID:              episodeUUID,
		Name:              req.Name,
		GroupID:           req.GroupID,
		CreatedAt:         now,
		ValidAt:           refTime,
		Content:           req.Content,
		Source:            source,
		SourceDescription: req.SourceDescription,
	}
	if err := l.saveEpisode(ctx, episode); err != nil {
		return nil, err
	}

	// 6. MENTIONS links.
	for _, node := range involved {
		if err := l.saveMention(ctx, episodeUUID, node.UUID, req.GroupID, now); err != nil {
			l.Logger.Warn("failed to link episode to entity",
				"episode", episodeUUID, "entity", node.UUID, "error", err)
		}
	}

	// 7. Facts.
	factUUIDs := make([]string, 0, len(extracted))
	for _, ef := range extracted {
		edge, err := l.persistFact(ctx, ef, episodeUUID, req.GroupID, refTime, now)
		if err != nil {
			if errors.Is(err, &model.ValidationError{}) {
				l.Logger.Warn("skipping invalid extracted fact", "fact", ef.Fact, "error", err)
				continue
			}
			return nil, err
		}
		factUUIDs = append(factUUIDs, edge.UUID)
	}

	// 8. Attribute the facts to the episode.
	episode.EntityEdges = factUUIDs
	if err := l.saveEpisode(ctx, episode); err != nil {
		return nil, err
	}

	// 9. Summaries are enrichment; a failure never rolls back the episode.
	if l.Summarizer != nil && len(factUUIDs) > 0 {
		l.refreshSummaries(ctx, involved, extracted)
	}

	l.Logger.Info("episode ingested", "uuid", episodeUUID,
		"group_id", req.GroupID, "nodes_created", len(fresh), "edges_created", len(factUUIDs))

	return &IngestResult{
		EpisodeUUID:  episodeUUID,
		NodesCreated: len(fresh),
		EdgesCreated: len(factUUIDs),
	}, nil
}

// resolveEntities maps extracted mentions onto entity nodes without writing
// anything: repeated and already-known names collapse onto one node, the
// rest become fresh nodes the caller persists later. Returns every involved
// node and the fresh subset (fresh nodes are the tail of involved).
func (l *Ledger) resolveEntities(ctx context.Context, mentions []model.ExtractedEntity, groupID string) (involved, fresh []*model.EntityNode, err error) {
	existing, err := l.Nodes.List(ctx, groupID, 1000)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]*model.EntityNode, len(existing))
	for _, n := range existing {
		byName[strings.ToLower(n.Name)] = n
	}

	seen := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		if m.Name == "" {
			continue
		}
		key := strings.ToLower(m.Name)
		if match, ok := byName[key]; ok {
			// Repeated mentions of the same entity are one involvement.
			if !seen[match.UUID] {
				seen[match.UUID] = true
				involved = append(involved, match)
			}
			continue
		}
		node := &model.EntityNode{
			UUID:      l.UUIDGenerator(),
			Name:      m.Name,
			Type:      m.Type,
			GroupID:   groupID,
			CreatedAt: l.Now().UTC(),
		}
		byName[key] = node
		seen[node.UUID] = true
		fresh = append(fresh, node)
	}

	// LLM pass catches duplicates that exact-name matching missed.
	if l.Deduplicator != nil && len(fresh) > 0 && len(existing) > 0 {
		pairs, err := l.Deduplicator.ResolveDuplicates(ctx, fresh, existing)
		if err != nil {
			return nil, nil, err
		}
		originals := make(map[string]string, len(pairs)) // candidate uuid -> existing uuid
		for _, p := range pairs {
			originals[p.DuplicateUUID] = p.OriginalUUID
		}
		kept := fresh[:0]
		for _, c := range fresh {
			if originalUUID, ok := originals[c.UUID]; ok {
				for _, e := range existing {
					if e.UUID == originalUUID {
						if !seen[e.UUID] {
							seen[e.UUID] = true
							involved = append(involved, e)
						}
						break
					}
				}
				continue
			}
			kept = append(kept, c)
		}
		fresh = kept
	}

	involved = append(involved, fresh...)
	return involved, fresh, nil
}

// persistFact stores one extracted fact, retiring whatever it supersedes so
// at most one live fact exists per (source, target, group) triple.
func (l *Ledger) persistFact(ctx context.Context, ef model.ExtractedFact,
	episodeUUID, groupID string, refTime, now time.Time) (*model.EntityEdge, error) {

	prior, err := l.Facts.ListLiveBetween(ctx, ef.SourceNodeUUID, ef.TargetNodeUUID, groupID)
	if err != nil {
		return nil, err
	}

	// LLM contradiction check also covers the reverse direction.
	if l.Deduplicator != nil {
		reverse, err := l.Facts.ListLiveBetween(ctx, ef.TargetNodeUUID, ef.SourceNodeUUID, groupID)
		if err != nil {
			return nil, err
		}
		if len(reverse) > 0 {
			contradicted, err := l.Deduplicator.ResolveContradictions(ctx, ef.Fact, reverse)
			if err != nil {
				return nil, err
			}
			for _, id := range contradicted {
				if _, err := l.Facts.Invalidate(ctx, id, now); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, old := range prior {
		if _, err := l.Facts.Invalidate(ctx, old.UUID, now); err != nil {
			return nil, err
		}
	}

	validAt := refTime
	edge := &model.EntityEdge{
		SourceNodeUUID: ef.SourceNodeUUID,
		TargetNodeUUID: ef.TargetNodeUUID,
		Name:           ef.RelationType,
		Fact:           ef.Fact,
		GroupID:        groupID,
		CreatedAt:      now,
		ValidAt:        &validAt,
		Episodes:       []string{episodeUUID},
	}

	if l.Embedder != nil {
		if vec, err := l.Embedder.Embed(ctx, ef.Fact); err == nil {
			edge.FactEmbedding = vec
		} else {
			l.Logger.Warn("fact embedding failed, storing without one",
				"fact", ef.Fact, "error", err)
		}
	}

	if err := l.Facts.Create(ctx, edge); err != nil {
		return nil, err
	}
	return edge, nil
}

func (l *Ledger) refreshSummaries(ctx context.Context, involved []*model.EntityNode, extracted []model.ExtractedFact) {
	mentionsByNode := make(map[string][]string)
	for _, ef := range extracted {
		mentionsByNode[ef.SourceNodeUUID] = append(mentionsByNode[ef.SourceNodeUUID], ef.Fact)
		mentionsByNode[ef.TargetNodeUUID] = append(mentionsByNode[ef.TargetNodeUUID], ef.Fact)
	}

	for _, node := range involved {
		newMentions := mentionsByNode[node.UUID]
		if len(newMentions) == 0 {
			continue
		}
		updated, err := l.Summarizer.SummarizeNode(ctx, node, newMentions)
		if err != nil {
			l.Logger.Warn("entity summary refresh failed", "entity", node.UUID, "error", err)
			continue
		}
		node.Summary = updated
		if err := l.Nodes.Create(ctx, node); err != nil {
			l.Logger.Warn("entity summary save failed", "entity", node.UUID, "error", err)
		}
	}
}

func (l *Ledger) saveEpisode(ctx context.Context, ep *model.EpisodicNode) error {
	entityEdges := ep.EntityEdges
	if entityEdges == nil {
		entityEdges = []string{}
	}
	params := map[string]interface{}{
		"uuid":               ep.UUID,
		"name":               ep.Name,
		"group_id":           ep.GroupID,
		"created_at":         driver.TimeParam(ep.CreatedAt),
		"valid_at":           driver.TimeParam(ep.ValidAt),
		"content":            ep.Content,
		"source":             ep.Source,
		"source_description": ep.SourceDescription,
		"entity_edges":       entityEdges,
	}
	if _, err := l.Driver.ExecuteQuery(ctx, driver.SaveEpisodicNodeQuery, params); err != nil {
		return model.NewCollaboratorError("graph", err)
	}
	return nil
}

func (l *Ledger) saveMention(ctx context.Context, episodeUUID, entityUUID, groupID string, now time.Time) error {
	params := map[string]interface{}{
		"uuid":        l.UUIDGenerator(),
		"source_uuid": episodeUUID,
		"target_uuid": entityUUID,
		"group_id":    groupID,
		"created_at":  driver.TimeParam(now),
	}
	if _, err := l.Driver.ExecuteQuery(ctx, driver.SaveEpisodicEdgeQuery, params); err != nil {
		return model.NewCollaboratorError("graph", err)
	}
	return nil
}

// MentionedEntity is the reduced entity view joined through MENTIONS.
type MentionedEntity struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type EpisodeDetail struct {
	Episode  model.EpisodicNode `json:"episode"`
	Entities []MentionedEntity  `json:"entities_mentioned"`
}

// Get returns the episode with its mentioned entities. There is exactly one
// read path; an engine failure propagates instead of degrading to a partial
// record.
func (l *Ledger) Get(ctx context.Context, episodeUUID string) (*EpisodeDetail, error) {
	res, err := l.Driver.ExecuteQuery(ctx, driver.GetEpisodeQuery, map[string]interface{}{
		"uuid": episodeUUID,
	})
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("episode %s: %w", episodeUUID, model.ErrNotFound)
	}

	rec := res.Records[0]
	detail := &EpisodeDetail{Episode: *episodeFromRecord(rec)}

	uuids := driver.RecordStringList(rec, "mentioned_uuids")
	names := driver.RecordStringList(rec, "mentioned_names")
	types := driver.RecordStringList(rec, "mentioned_types")
	for i, id := range uuids {
		if id == "" {
			continue
		}
		entity := MentionedEntity{UUID: id, Type: model.DefaultEntityType}
		if i < len(names) {
			entity.Name = names[i]
		}
		if i < len(types) && types[i] != "" {
			entity.Type = types[i]
		}
		detail.Entities = append(detail.Entities, entity)
	}

	return detail, nil
}

// Remove cascades: hard-delete the episode's facts, clean up entities no
// remaining fact or episode references, then drop the episode row. Episode
// removal is a correction, not a historical event, so facts are deleted
// rather than invalidated.
func (l *Ledger) Remove(ctx context.Context, episodeUUID string) error {
	detail, err := l.Get(ctx, episodeUUID)
	if err != nil {
		return err
	}

	for _, factUUID := range detail.Episode.EntityEdges {
		if err := l.Facts.Delete(ctx, factUUID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue // already gone
			}
			return err
		}
	}

	for _, entity := range detail.Entities {
		factCount, episodeCount, err := l.Nodes.CountReferences(ctx, entity.UUID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return err
		}
		// This episode's own MENTIONS edge still exists here, so an entity
		// owned solely by it counts exactly one episode.
		if factCount == 0 && episodeCount <= 1 {
			if err := l.Nodes.Delete(ctx, entity.UUID); err != nil && !errors.Is(err, model.ErrNotFound) {
				return err
			}
		}
	}

	res, err := l.Driver.ExecuteQuery(ctx, driver.DeleteEpisodeQuery, map[string]interface{}{
		"uuid": episodeUUID,
	})
	if err != nil {
		return model.NewCollaboratorError("graph", err)
	}
	if len(res.Records) == 0 || driver.RecordInt(res.Records[0], "deleted") == 0 {
		return fmt.Errorf("episode %s: %w", episodeUUID, model.ErrNotFound)
	}

	l.Logger.Info("episode removed", "uuid", episodeUUID,
		"facts_deleted", len(detail.Episode.EntityEdges))
	return nil
}

// ListByGroup returns the lastN most recent episodes for the group, newest
// first.
func (l *Ledger) ListByGroup(ctx context.Context, groupID string, lastN int) ([]*model.EpisodicNode, error) {
	if lastN <= 0 {
		return nil, nil
	}

	res, err := l.Driver.ExecuteQuery(ctx, driver.ListEpisodesByGroupQuery, map[string]interface{}{
		"group_id": groupID,
		"limit":    lastN,
	})
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}

	episodes := make([]*model.EpisodicNode, 0, len(res.Records))
	for _, rec := range res.Records {
		episodes = append(episodes, episodeFromRecord(rec))
	}
	return episodes, nil
}

func episodeFromRecord(rec *neo4j.Record) *model.EpisodicNode {
	entityEdges := driver.RecordStringList(rec, "entity_edges")
	if entityEdges == nil {
		entityEdges = []string{}
	}
	return &model.EpisodicNode{
		UUID:              driver.RecordString(rec, "uuid"),
		Name:              driver.RecordString(rec, "name"),
		GroupID:           driver.RecordString(rec, "group_id"),
		CreatedAt:         driver.RecordTime(rec, "created_at"),
		ValidAt:           driver.RecordTime(rec, "valid_at"),
		Content:           driver.RecordString(rec, "content"),
		Source:            driver.RecordString(rec, "source"),
		SourceDescription: driver.RecordString(rec, "source_description"),
		EntityEdges:       entityEdges,
	}
}

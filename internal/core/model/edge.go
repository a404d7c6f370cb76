package model

import "time"

// EntityEdge is a timestamped directed statement (fact) relating two entities.
//
// A fact with a nil InvalidAt is live; once InvalidAt is set the fact is
// historical and is never mutated again. Updates mint a new edge instead.
type EntityEdge struct {
	UUID           string     `json:"uuid"`
	SourceNodeUUID string     `json:"source_node_uuid"`
	TargetNodeUUID string     `json:"target_node_uuid"`
	Name           string     `json:"name"` // relation type, RELATES_TO by default
	Fact           string     `json:"fact"`
	GroupID        string     `json:"group_id"`
	CreatedAt      time.Time  `json:"created_at"`
	ValidAt        *time.Time `json:"valid_at,omitempty"`
	InvalidAt      *time.Time `json:"invalid_at,omitempty"`
	Episodes       []string   `json:"episodes"` // episode UUIDs that contributed this fact
	FactEmbedding  []float32  `json:"fact_embedding,omitempty"`
}

// IsLive reports whether the fact is currently asserted.
func (e *EntityEdge) IsLive() bool {
	return e.InvalidAt == nil
}

// EpisodicEdge links an episode to an entity it mentions (MENTIONS).
type EpisodicEdge struct {
	UUID       string    `json:"uuid"`
	SourceUUID string    `json:"source_node_uuid"` // episode
	TargetUUID string    `json:"target_node_uuid"` // entity
	GroupID    string    `json:"group_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DefaultRelationName is used when the extractor does not name the relation.
const DefaultRelationName = "RELATES_TO"

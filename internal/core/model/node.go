package model

import "time"

// EntityNode is a distinct real-world object or concept in the graph.
type EntityNode struct {
	UUID          string    `json:"uuid"`
	Name          string    `json:"name"`
	Type          string    `json:"type"` // free-form category, defaults to "Entity"
	GroupID       string    `json:"group_id"`
	CreatedAt     time.Time `json:"created_at"`
	Summary       string    `json:"summary,omitempty"`
	NameEmbedding []float32 `json:"name_embedding,omitempty"`
}

// EpisodicNode is one ingested unit of source content and the origin of
// zero or more entities and facts.
type EpisodicNode struct {
	UUID              string    `json:"uuid"`
	Name              string    `json:"name"`
	GroupID           string    `json:"group_id"`
	CreatedAt         time.Time `json:"created_at"`
	ValidAt           time.Time `json:"valid_at"` // reference time asserted for the content
	Content           string    `json:"content"`
	Source            string    `json:"source"` // "text" or "message"
	SourceDescription string    `json:"source_description"`
	EntityEdges       []string  `json:"entity_edges"` // fact UUIDs attributed to this episode
}

const (
	SourceText    = "text"
	SourceMessage = "message"
)

// DefaultEntityType is assigned when the extractor does not provide one.
const DefaultEntityType = "Entity"

package model

import "time"

// ScoredFact is one retrieval hit: a live fact with its cosine-derived
// relevance score in [0, 1].
type ScoredFact struct {
	UUID         string     `json:"uuid"`
	Fact         string     `json:"fact"`
	SourceEntity string     `json:"source_entity"`
	TargetEntity string     `json:"target_entity"`
	GroupID      string     `json:"group_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ValidAt      *time.Time `json:"valid_at,omitempty"`
	InvalidAt    *time.Time `json:"invalid_at,omitempty"`
	Score        float64    `json:"score"`
}

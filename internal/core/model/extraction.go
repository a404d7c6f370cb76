package model

// ExtractedEntity is one entity mention returned by the extraction collaborator.
type ExtractedEntity struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type ExtractedEntities struct {
	ExtractedEntities []ExtractedEntity `json:"extracted_entities"`
}

// ExtractedFact references entities by the UUIDs handed to the extractor in
// its prompt context.
type ExtractedFact struct {
	SourceNodeUUID string `json:"source_node_uuid"`
	TargetNodeUUID string `json:"target_node_uuid"`
	RelationType   string `json:"relation_type"`
	Fact           string `json:"fact"`
}

type ExtractedFacts struct {
	ExtractedFacts []ExtractedFact `json:"extracted_facts"`
}

type EntitySummary struct {
	Summary string `json:"summary"`
}

type DuplicatePair struct {
	OriginalUUID  string  `json:"original_uuid"`  // existing node
	DuplicateUUID string  `json:"duplicate_uuid"` // freshly extracted node
	Confidence    float64 `json:"confidence"`
}

type DeduplicationResult struct {
	Duplicates []DuplicatePair `json:"duplicates"`
}

type ContradictionResult struct {
	ContradictedFactUUIDs []string `json:"contradicted_fact_uuids"`
}

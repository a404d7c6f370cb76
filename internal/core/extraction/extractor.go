package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core/common"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/llm"
)

// Extractor is the extraction collaborator: it turns raw episode text into
// candidate entities and facts via the LLM. It is the only source of new
// semantic content; the ledger persists nothing when it fails.
type Extractor struct {
	LLM     llm.LLMClient
	Prompts config.ExtractionPrompts
}

func NewExtractor(llmClient llm.LLMClient, prompts config.ExtractionPrompts) *Extractor {
	return &Extractor{
		LLM:     llmClient,
		Prompts: prompts,
	}
}

var errNoLLM = errors.New("no llm client configured")

const defaultEntityPrompt = `Extract the entities (people, places, organizations, things) mentioned in the text below.
Reference time for relative dates: %s

<TEXT>
%s
</TEXT>

Return a JSON object:
{"extracted_entities": [{"name": "...", "type": "..."}]}
Use short canonical names. Type is a single word such as Person, Place or Organization. Do not output any other text.`

const defaultFactPrompt = `Given the entities below, extract the factual relationships stated in the text.

<ENTITIES>
%s</ENTITIES>

<TEXT>
%s
</TEXT>

Return a JSON object:
{"extracted_facts": [{"source_node_uuid": "...", "target_node_uuid": "...", "relation_type": "WORKS_AT", "fact": "full sentence stating the fact"}]}
Reference entities strictly by the UUIDs listed above. Do not output any other text.`

// ExtractEntities returns the entity mentions in the content.
func (e *Extractor) ExtractEntities(ctx context.Context, content string, referenceTime time.Time) ([]model.ExtractedEntity, error) {
	if e.LLM == nil {
		return nil, model.NewCollaboratorError("extraction", errNoLLM)
	}
	template := e.Prompts.Entities
	if template == "" {
		template = defaultEntityPrompt
	}
	prompt := fmt.Sprintf(template, referenceTime.UTC().Format(time.RFC3339), content)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction", err)
	}

	result, err := common.ParseJSON[model.ExtractedEntities](response)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction",
			fmt.Errorf("unparseable entity output: %w", err))
	}

	return result.ExtractedEntities, nil
}

// ExtractFacts returns the relationships stated in the content between the
// already-resolved entities. Fact endpoints reference the given node UUIDs.
func (e *Extractor) ExtractFacts(ctx context.Context, content string, entities []*model.EntityNode) ([]model.ExtractedFact, error) {
	if e.LLM == nil {
		return nil, model.NewCollaboratorError("extraction", errNoLLM)
	}
	if len(entities) < 2 {
		return nil, nil
	}

	var entityContext string
	for _, n := range entities {
		entityContext += fmt.Sprintf("- UUID: %s, Name: %s, Type: %s\n", n.UUID, n.Name, n.Type)
	}

	template := e.Prompts.Facts
	if template == "" {
		template = defaultFactPrompt
	}
	prompt := fmt.Sprintf(template, entityContext, content)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction", err)
	}

	result, err := common.ParseJSON[model.ExtractedFacts](response)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction",
			fmt.Errorf("unparseable fact output: %w", err))
	}

	// Drop facts whose endpoints the LLM invented.
	known := make(map[string]bool, len(entities))
	for _, n := range entities {
		known[n.UUID] = true
	}
	valid := result.ExtractedFacts[:0]
	for _, f := range result.ExtractedFacts {
		if known[f.SourceNodeUUID] && known[f.TargetNodeUUID] && f.Fact != "" {
			valid = append(valid, f)
		}
	}

	return valid, nil
}

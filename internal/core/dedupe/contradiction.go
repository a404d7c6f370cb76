package dedupe

import (
	"context"
	"fmt"

	"github.com/agenthands/chronicle/internal/core/common"
	"github.com/agenthands/chronicle/internal/core/model"
)

const defaultContradictionPrompt = `Does the New Fact contradict any of the Existing Facts?
Be conservative. Only flag contradictions that represent a change in state or a logical impossibility (e.g. "lives in Seattle" vs "moved to San Francisco").

New Fact: %s

Existing Facts:
%s

Return a JSON object: {"contradicted_fact_uuids": ["..."]}.
Return {"contradicted_fact_uuids": []} when nothing is contradicted. Do not output any other text.`

// ResolveContradictions returns the UUIDs of existing live facts that the new
// statement contradicts. The caller retires them via temporal invalidation;
// the rows themselves are never edited.
func (d *Deduplicator) ResolveContradictions(ctx context.Context, newFact string, existing []*model.EntityEdge) ([]string, error) {
	if len(existing) == 0 {
		return nil, nil
	}

	var existingFacts string
	for _, edge := range existing {
		existingFacts += fmt.Sprintf("- UUID: %s, Fact: %s\n", edge.UUID, edge.Fact)
	}

	template := d.Prompts.Facts
	if template == "" {
		template = defaultContradictionPrompt
	}
	prompt := fmt.Sprintf(template, newFact, existingFacts)

	response, err := d.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction", err)
	}

	result, err := common.ParseJSON[model.ContradictionResult](response)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction",
			fmt.Errorf("unparseable contradiction output: %w", err))
	}

	// Only uuids we actually offered count.
	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[e.UUID] = true
	}
	var contradicted []string
	for _, id := range result.ContradictedFactUUIDs {
		if known[id] {
			contradicted = append(contradicted, id)
		}
	}

	return contradicted, nil
}

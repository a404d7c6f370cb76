package dedupe

import (
	"context"
	"fmt"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core/common"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/llm"
)

// Deduplicator resolves freshly extracted entity mentions against entities
// already present in the group, so one real-world object keeps one uuid.
type Deduplicator struct {
	LLM     llm.LLMClient
	Prompts config.DeduplicationPrompts
}

func NewDeduplicator(llmClient llm.LLMClient, prompts config.DeduplicationPrompts) *Deduplicator {
	return &Deduplicator{
		LLM:     llmClient,
		Prompts: prompts,
	}
}

const defaultNodePrompt = `<NEW NODES>
%s</NEW NODES>

<EXISTING NODES>
%s</EXISTING NODES>

Identify if any of the NEW NODES refer to the same real-world entity as one of the EXISTING NODES.
Return a JSON object with key "duplicates", a list of objects with
"original_uuid" (existing node UUID), "duplicate_uuid" (new node UUID) and "confidence" (float 0..1).
Return {"duplicates": []} when there are none. Do not output any other text.`

func (d *Deduplicator) ResolveDuplicates(ctx context.Context, newNodes, existingNodes []*model.EntityNode) ([]model.DuplicatePair, error) {
	if len(newNodes) == 0 || len(existingNodes) == 0 {
		return nil, nil
	}

	template := d.Prompts.Nodes
	if template == "" {
		template = defaultNodePrompt
	}
	prompt := fmt.Sprintf(template, serializeNodes(newNodes), serializeNodes(existingNodes))

	response, err := d.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction", err)
	}

	result, err := common.ParseJSON[model.DeduplicationResult](response)
	if err != nil {
		return nil, model.NewCollaboratorError("extraction",
			fmt.Errorf("unparseable deduplication output: %w", err))
	}

	return result.Duplicates, nil
}

func serializeNodes(nodes []*model.EntityNode) string {
	var s string
	for _, n := range nodes {
		s += fmt.Sprintf("- UUID: %s, Name: %s, Type: %s\n", n.UUID, n.Name, n.Type)
	}
	return s
}

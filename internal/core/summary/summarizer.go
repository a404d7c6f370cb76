package summary

import (
	"context"
	"fmt"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core/common"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/llm"
)

// Summarizer maintains a rolling prose summary per entity, folded forward
// from each new batch of fact mentions.
type Summarizer struct {
	LLM     llm.LLMClient
	Prompts config.SummaryPrompts
}

func NewSummarizer(llmClient llm.LLMClient, prompts config.SummaryPrompts) *Summarizer {
	return &Summarizer{
		LLM:     llmClient,
		Prompts: prompts,
	}
}

const defaultNodePrompt = `Current summary of the entity (may be empty):
%s

New statements mentioning the entity:
%s

Write an updated 1-3 sentence summary combining both.
Return a JSON object: {"summary": "..."}. Do not output any other text.`

func (s *Summarizer) SummarizeNode(ctx context.Context, node *model.EntityNode, newMentions []string) (string, error) {
	mentionsList := ""
	for _, m := range newMentions {
		mentionsList += fmt.Sprintf("- %s\n", m)
	}

	template := s.Prompts.Nodes
	if template == "" {
		template = defaultNodePrompt
	}
	prompt := fmt.Sprintf(template, node.Summary, mentionsList)

	response, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", model.NewCollaboratorError("extraction", err)
	}

	result, err := common.ParseJSON[model.EntitySummary](response)
	if err != nil {
		return "", model.NewCollaboratorError("extraction",
			fmt.Errorf("unparseable summary output: %w", err))
	}

	return result.Summary, nil
}

const defaultCommunityPrompt = `Per-entity summaries for a cluster of related entities:
%s

Write a 1-3 sentence summary describing what connects this cluster.
Return a JSON object: {"summary": "..."}. Do not output any other text.`

// communityChunkSize bounds how many entity summaries go into one prompt;
// larger clusters are folded recursively.
const communityChunkSize = 20

// SummarizeCommunity produces one summary for a cluster of entities. Clusters
// too large for a single prompt are split into chunks, summarized, and the
// chunk summaries reduced the same way.
func (s *Summarizer) SummarizeCommunity(ctx context.Context, members []*model.EntityNode) (string, error) {
	if len(members) <= communityChunkSize {
		lines := ""
		for _, n := range members {
			if n.Summary != "" {
				lines += fmt.Sprintf("- %s: %s\n", n.Name, n.Summary)
			} else {
				lines += fmt.Sprintf("- %s\n", n.Name)
			}
		}

		template := s.Prompts.Communities
		if template == "" {
			template = defaultCommunityPrompt
		}
		response, err := s.LLM.Generate(ctx, fmt.Sprintf(template, lines))
		if err != nil {
			return "", model.NewCollaboratorError("extraction", err)
		}

		result, err := common.ParseJSON[model.EntitySummary](response)
		if err != nil {
			return "", model.NewCollaboratorError("extraction",
				fmt.Errorf("unparseable community summary output: %w", err))
		}
		return result.Summary, nil
	}

	var chunkSummaries []*model.EntityNode
	for i := 0; i < len(members); i += communityChunkSize {
		end := i + communityChunkSize
		if end > len(members) {
			end = len(members)
		}
		chunkSummary, err := s.SummarizeCommunity(ctx, members[i:end])
		if err != nil {
			return "", err
		}
		chunkSummaries = append(chunkSummaries, &model.EntityNode{
			Name:    fmt.Sprintf("part %d", len(chunkSummaries)+1),
			Summary: chunkSummary,
		})
	}
	return s.SummarizeCommunity(ctx, chunkSummaries)
}

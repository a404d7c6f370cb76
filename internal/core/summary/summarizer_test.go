package summary

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/llm"
)

func TestSummarizeNode(t *testing.T) {
	mock := &llm.MockLLM{Response: `{"summary": "Alice is an engineer who moved to Portland."}`}
	s := NewSummarizer(mock, config.SummaryPrompts{})

	node := &model.EntityNode{UUID: "n1", Name: "Alice", Summary: "Alice is an engineer."}
	updated, err := s.SummarizeNode(context.Background(), node,
		[]string{"Alice moved to Portland"})
	require.NoError(t, err)
	assert.Equal(t, "Alice is an engineer who moved to Portland.", updated)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "Alice is an engineer.")
	assert.Contains(t, mock.Prompts[0], "Alice moved to Portland")
}

func TestSummarizeNodeLLMFailure(t *testing.T) {
	mock := &llm.MockLLM{Err: errors.New("model overloaded")}
	s := NewSummarizer(mock, config.SummaryPrompts{})

	_, err := s.SummarizeNode(context.Background(), &model.EntityNode{Name: "Alice"}, nil)
	assert.ErrorIs(t, err, &model.CollaboratorError{})
}

func TestSummarizeCommunity(t *testing.T) {
	mock := &llm.MockLLM{Response: `{"summary": "A team of engineers at Acme."}`}
	s := NewSummarizer(mock, config.SummaryPrompts{})

	members := []*model.EntityNode{
		{Name: "Alice", Summary: "Engineer at Acme."},
		{Name: "Bob", Summary: "Engineer at Acme."},
		{Name: "Acme"},
	}
	text, err := s.SummarizeCommunity(context.Background(), members)
	require.NoError(t, err)
	assert.Equal(t, "A team of engineers at Acme.", text)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "Alice: Engineer at Acme.")
	assert.Contains(t, mock.Prompts[0], "- Acme")
}

func TestSummarizeCommunityFoldsLargeClusters(t *testing.T) {
	mock := &llm.MockLLM{Response: `{"summary": "folded"}`}
	s := NewSummarizer(mock, config.SummaryPrompts{})

	members := make([]*model.EntityNode, 0, communityChunkSize+5)
	for i := 0; i < communityChunkSize+5; i++ {
		members = append(members, &model.EntityNode{
			Name:    fmt.Sprintf("entity-%d", i),
			Summary: "something",
		})
	}

	text, err := s.SummarizeCommunity(context.Background(), members)
	require.NoError(t, err)
	assert.Equal(t, "folded", text)
	// Two chunks plus the reduce pass.
	assert.Len(t, mock.Prompts, 3)
}

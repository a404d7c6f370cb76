package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/llm"
)

func TestResolveDuplicates(t *testing.T) {
	mock := &llm.MockLLM{Response: `{
		"duplicates": [
			{"original_uuid": "existing-1", "duplicate_uuid": "new-1", "confidence": 0.95}
		]
	}`}
	d := NewDeduplicator(mock, config.DeduplicationPrompts{})

	pairs, err := d.ResolveDuplicates(context.Background(),
		[]*model.EntityNode{{UUID: "new-1", Name: "Bob Smith"}},
		[]*model.EntityNode{{UUID: "existing-1", Name: "Bob"}})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "existing-1", pairs[0].OriginalUUID)
	assert.Equal(t, "new-1", pairs[0].DuplicateUUID)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "Bob Smith")
	assert.Contains(t, mock.Prompts[0], "existing-1")
}

func TestResolveDuplicatesSkipsLLMWhenNothingToCompare(t *testing.T) {
	mock := &llm.MockLLM{}
	d := NewDeduplicator(mock, config.DeduplicationPrompts{})

	pairs, err := d.ResolveDuplicates(context.Background(), nil,
		[]*model.EntityNode{{UUID: "e1", Name: "Bob"}})
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.Empty(t, mock.Prompts)
}

func TestResolveDuplicatesLLMFailure(t *testing.T) {
	mock := &llm.MockLLM{Err: errors.New("rate limited")}
	d := NewDeduplicator(mock, config.DeduplicationPrompts{})

	_, err := d.ResolveDuplicates(context.Background(),
		[]*model.EntityNode{{UUID: "n1", Name: "Bob"}},
		[]*model.EntityNode{{UUID: "e1", Name: "Bob"}})
	assert.ErrorIs(t, err, &model.CollaboratorError{})
}

func TestResolveContradictions(t *testing.T) {
	mock := &llm.MockLLM{Response: `{"contradicted_fact_uuids": ["f1"]}`}
	d := NewDeduplicator(mock, config.DeduplicationPrompts{})

	contradicted, err := d.ResolveContradictions(context.Background(),
		"Alice lives in Portland",
		[]*model.EntityEdge{{UUID: "f1", Fact: "Alice lives in San Francisco"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, contradicted)
}

func TestResolveContradictionsDropsInventedUUIDs(t *testing.T) {
	mock := &llm.MockLLM{Response: `{"contradicted_fact_uuids": ["f1", "made-up"]}`}
	d := NewDeduplicator(mock, config.DeduplicationPrompts{})

	contradicted, err := d.ResolveContradictions(context.Background(),
		"Alice lives in Portland",
		[]*model.EntityEdge{{UUID: "f1", Fact: "Alice lives in San Francisco"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, contradicted)
}

func TestResolveContradictionsNoExistingFacts(t *testing.T) {
	mock := &llm.MockLLM{}
	d := NewDeduplicator(mock, config.DeduplicationPrompts{})

	contradicted, err := d.ResolveContradictions(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, contradicted)
	assert.Empty(t, mock.Prompts)
}

func TestResolveContradictionsUnparseableOutput(t *testing.T) {
	mock := &llm.MockLLM{Response: "I cannot answer that."}
	d := NewDeduplicator(mock, config.DeduplicationPrompts{})

	_, err := d.ResolveContradictions(context.Background(), "new",
		[]*model.EntityEdge{{UUID: "f1", Fact: "old"}})
	assert.ErrorIs(t, err, &model.CollaboratorError{})
}

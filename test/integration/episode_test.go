//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chronicle/internal/core/episodes"
	"github.com/agenthands/chronicle/internal/core/model"
)

func TestEpisodeIngestAndCascadeRemoval(t *testing.T) {
	chronicle := setup(t)
	ctx := context.Background()
	groupID := freshGroup("episode")

	result, err := chronicle.Episodes.Ingest(ctx, episodes.IngestRequest{
		Name:    "introduction",
		Content: "Alice is a software engineer at Acme. She lives in San Francisco.",
		GroupID: groupID,
	})
	require.NoError(t, err)
	assert.Greater(t, result.NodesCreated, 0)

	detail, err := chronicle.Episodes.Get(ctx, result.EpisodeUUID)
	require.NoError(t, err)
	assert.NotEmpty(t, detail.Entities)

	listed, err := chronicle.Episodes.ListByGroup(ctx, groupID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, result.EpisodeUUID, listed[0].UUID)

	require.NoError(t, chronicle.Episodes.Remove(ctx, result.EpisodeUUID))

	_, err = chronicle.Episodes.Get(ctx, result.EpisodeUUID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Every fact attributed to the episode is gone with it.
	for _, factUUID := range detail.Episode.EntityEdges {
		_, err := chronicle.Facts.GetByUUID(ctx, factUUID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	}

	// Entities owned solely by the removed episode are cleaned up.
	remaining, err := chronicle.Nodes.List(ctx, groupID, 100)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestEpisodeSharedEntitySurvivesRemoval(t *testing.T) {
	chronicle := setup(t)
	ctx := context.Background()
	groupID := freshGroup("shared")

	first, err := chronicle.Episodes.Ingest(ctx, episodes.IngestRequest{
		Content: "Alice works at Acme.",
		GroupID: groupID,
	})
	require.NoError(t, err)

	_, err = chronicle.Episodes.Ingest(ctx, episodes.IngestRequest{
		Content: "Alice enjoys hiking on weekends.",
		GroupID: groupID,
	})
	require.NoError(t, err)

	require.NoError(t, chronicle.Episodes.Remove(ctx, first.EpisodeUUID))

	remaining, err := chronicle.Nodes.List(ctx, groupID, 100)
	require.NoError(t, err)

	names := make([]string, 0, len(remaining))
	for _, n := range remaining {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "Alice", "Alice is still mentioned by the second episode")
}

package facts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/driver"
)

var factColumns = []string{
	"uuid", "name", "fact", "group_id", "created_at", "valid_at", "invalid_at",
	"episodes", "source_uuid", "target_uuid", "source_name", "target_name",
}

func factRow(uuid, fact, invalidAt string) []interface{} {
	return []interface{}{
		uuid, "RELATES_TO", fact, "g1", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z",
		invalidAt, []interface{}{"ep-1"}, "n1", "n2", "Alice", "Acme",
	}
}

func TestCreateAssignsDefaultsAndInheritsGroup(t *testing.T) {
	mock := &driver.MockDriver{
		ResultFunc: func(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
			if query == driver.GetFactEndpointsQuery {
				return driver.Result([]string{"source_group", "target_group"},
					[]interface{}{"g1", "g1"}), nil
			}
			return driver.Result([]string{"uuid"}, []interface{}{"f1"}), nil
		},
	}
	store := NewStore(mock, nil)
	store.UUIDGenerator = func() string { return "f1" }

	edge := &model.EntityEdge{
		SourceNodeUUID: "n1",
		TargetNodeUUID: "n2",
		Fact:           "Alice works at Acme",
	}
	require.NoError(t, store.Create(context.Background(), edge))

	assert.Equal(t, "f1", edge.UUID)
	assert.Equal(t, model.DefaultRelationName, edge.Name)
	assert.Equal(t, "g1", edge.GroupID)
	assert.False(t, edge.CreatedAt.IsZero())

	save := mock.LastCall()
	assert.Equal(t, driver.SaveEntityEdgeQuery, save.Query)
	assert.Equal(t, "", save.Params["invalid_at"], "new facts are live")
	assert.Nil(t, save.Params["fact_embedding"])
}

func TestCreateRejectsDanglingEndpoints(t *testing.T) {
	mock := &driver.MockDriver{} // endpoint lookup returns no rows
	store := NewStore(mock, nil)

	err := store.Create(context.Background(), &model.EntityEdge{
		SourceNodeUUID: "n1",
		TargetNodeUUID: "missing",
		Fact:           "dangling",
	})
	assert.ErrorIs(t, err, &model.ValidationError{})
	assert.Len(t, mock.Calls, 1, "nothing was written")
}

func TestCreateRejectsCrossGroupEndpoints(t *testing.T) {
	mock := &driver.MockDriver{
		MockResult: driver.Result([]string{"source_group", "target_group"},
			[]interface{}{"g1", "g2"}),
	}
	store := NewStore(mock, nil)

	err := store.Create(context.Background(), &model.EntityEdge{
		SourceNodeUUID: "n1",
		TargetNodeUUID: "n2",
		Fact:           "crosses groups",
	})
	assert.ErrorIs(t, err, &model.ValidationError{})
}

func TestCreateRejectsGroupMismatch(t *testing.T) {
	mock := &driver.MockDriver{
		MockResult: driver.Result([]string{"source_group", "target_group"},
			[]interface{}{"g1", "g1"}),
	}
	store := NewStore(mock, nil)

	err := store.Create(context.Background(), &model.EntityEdge{
		SourceNodeUUID: "n1",
		TargetNodeUUID: "n2",
		GroupID:        "other",
		Fact:           "wrong group",
	})
	assert.ErrorIs(t, err, &model.ValidationError{})
}

func TestCreateRequiresEndpointsAndText(t *testing.T) {
	store := NewStore(&driver.MockDriver{}, nil)

	err := store.Create(context.Background(), &model.EntityEdge{Fact: "no endpoints"})
	assert.ErrorIs(t, err, &model.ValidationError{})

	err = store.Create(context.Background(), &model.EntityEdge{
		SourceNodeUUID: "n1", TargetNodeUUID: "n2",
	})
	assert.ErrorIs(t, err, &model.ValidationError{})
}

func TestGetByUUID(t *testing.T) {
	mock := &driver.MockDriver{
		MockResult: driver.Result(factColumns, factRow("f1", "Alice works at Acme", "")),
	}
	store := NewStore(mock, nil)

	edge, err := store.GetByUUID(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", edge.UUID)
	assert.Equal(t, "n1", edge.SourceNodeUUID)
	assert.Equal(t, "n2", edge.TargetNodeUUID)
	assert.Equal(t, []string{"ep-1"}, edge.Episodes)
	assert.True(t, edge.IsLive())
}

func TestGetByUUIDNotFound(t *testing.T) {
	store := NewStore(&driver.MockDriver{}, nil)

	_, err := store.GetByUUID(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInvalidateLiveFact(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock := &driver.MockDriver{
		MockResult: driver.Result([]string{"uuid", "previous_invalid_at", "invalid_at"},
			[]interface{}{"f1", nil, "2024-06-01T12:00:00Z"}),
	}
	store := NewStore(mock, nil)

	result, err := store.Invalidate(context.Background(), "f1", at)
	require.NoError(t, err)
	assert.False(t, result.AlreadyInvalid)
	assert.Equal(t, at, result.InvalidAt)
	assert.Equal(t, "2024-06-01T12:00:00Z", mock.LastCall().Params["invalid_at"])
}

func TestInvalidateIsIdempotent(t *testing.T) {
	first := "2024-01-01T00:00:00Z"
	mock := &driver.MockDriver{
		MockResult: driver.Result([]string{"uuid", "previous_invalid_at", "invalid_at"},
			[]interface{}{"f1", first, first}),
	}
	store := NewStore(mock, nil)

	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := store.Invalidate(context.Background(), "f1", later)
	require.NoError(t, err)
	assert.True(t, result.AlreadyInvalid)
	assert.Equal(t, "2024-01-01T00:00:00Z", result.InvalidAt.Format(time.RFC3339),
		"the first invalidation timestamp is kept")
}

func TestInvalidateFloorsTimestampAtCreation(t *testing.T) {
	createdAt := "2024-01-01T00:00:00Z"
	mock := &driver.MockDriver{
		MockResult: driver.Result([]string{"uuid", "previous_invalid_at", "invalid_at"},
			[]interface{}{"f1", nil, createdAt}),
	}
	store := NewStore(mock, nil)

	early := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := store.Invalidate(context.Background(), "f1", early)
	require.NoError(t, err)
	assert.False(t, result.AlreadyInvalid)
	assert.Equal(t, createdAt, result.InvalidAt.Format(time.RFC3339),
		"invalid_at never precedes created_at")
}

func TestInvalidateNotFound(t *testing.T) {
	store := NewStore(&driver.MockDriver{}, nil)

	_, err := store.Invalidate(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	mock := &driver.MockDriver{
		MockResult: driver.Result([]string{"deleted"}, []interface{}{int64(0)}),
	}
	store := NewStore(mock, nil)

	err := store.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRetireLiveFactInvalidates(t *testing.T) {
	mock := &driver.MockDriver{
		MockResult: driver.Result([]string{"uuid", "previous_invalid_at", "invalid_at"},
			[]interface{}{"f1", nil, "2024-06-01T00:00:00Z"}),
	}
	store := NewStore(mock, nil)

	result, err := store.Retire(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, RetireInvalidated, result.Mode)
	require.NotNil(t, result.InvalidAt)
	assert.Len(t, mock.Calls, 1, "no hard delete for a live fact")
}

func TestRetireHistoricalFactDeletes(t *testing.T) {
	mock := &driver.MockDriver{
		ResultFunc: func(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
			if query == driver.InvalidateFactQuery {
				return driver.Result([]string{"uuid", "previous_invalid_at", "invalid_at"},
					[]interface{}{"f1", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z"}), nil
			}
			return driver.Result([]string{"deleted"}, []interface{}{int64(1)}), nil
		},
	}
	store := NewStore(mock, nil)

	result, err := store.Retire(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, RetireDeleted, result.Mode)
	assert.Nil(t, result.InvalidAt)
	assert.Equal(t, driver.DeleteFactQuery, mock.LastCall().Query)
}

func TestRetireAbsentFact(t *testing.T) {
	store := NewStore(&driver.MockDriver{}, nil)

	_, err := store.Retire(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListZeroLimit(t *testing.T) {
	mock := &driver.MockDriver{}
	store := NewStore(mock, nil)

	edges, err := store.List(context.Background(), "g1", 0)
	require.NoError(t, err)
	assert.Empty(t, edges)
	assert.Empty(t, mock.Calls, "the engine is not consulted")
}

func TestListFiltersByGroup(t *testing.T) {
	mock := &driver.MockDriver{
		MockResult: driver.Result(factColumns,
			factRow("f1", "live", ""),
			factRow("f2", "historical", "2024-03-01T00:00:00Z")),
	}
	store := NewStore(mock, nil)

	edges, err := store.List(context.Background(), "g1", 10)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, driver.ListFactsByGroupQuery, mock.LastCall().Query)
	assert.True(t, edges[0].IsLive())
	assert.False(t, edges[1].IsLive())
}

func TestGraphFailureIsCollaboratorError(t *testing.T) {
	mock := &driver.MockDriver{Err: errors.New("connection refused")}
	store := NewStore(mock, nil)

	_, err := store.GetByUUID(context.Background(), "f1")
	assert.ErrorIs(t, err, &model.CollaboratorError{})
}

package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesAcrossWrapping(t *testing.T) {
	err := fmt.Errorf("create: %w", NewValidationError("bad group %q", "g2"))
	assert.ErrorIs(t, err, &ValidationError{})
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCollaboratorErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewCollaboratorError("graph", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &CollaboratorError{})
	assert.Contains(t, err.Error(), "graph")
}

func TestPartialUpdateErrorCarriesRepairDetail(t *testing.T) {
	cause := errors.New("write timeout")
	err := &PartialUpdateError{
		OldUUID:       "f1",
		InvalidatedAt: "2024-06-01T12:00:00Z",
		Cause:         cause,
	}

	var partial *PartialUpdateError
	assert.ErrorAs(t, fmt.Errorf("supersede: %w", err), &partial)
	assert.Equal(t, "f1", partial.OldUUID)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "f1")
	assert.Contains(t, err.Error(), "2024-06-01T12:00:00Z")
}

func TestEdgeLiveness(t *testing.T) {
	live := &EntityEdge{UUID: "f1"}
	assert.True(t, live.IsLive())

	at := live.CreatedAt
	historical := &EntityEdge{UUID: "f2", InvalidAt: &at}
	assert.False(t, historical.IsLive())
}

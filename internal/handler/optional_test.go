package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func TestUpdateTicketRequest_AbsentFieldIsNotSet(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title": "New title"}`), &req))

	assert.NotNil(t, req.Title)
	assert.False(t, req.Description.Set)
	assert.False(t, req.AssigneeID.Set)
	assert.False(t, req.DueDate.Set)
}

func TestUpdateTicketRequest_ExplicitNullClearsField(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assigneeId": null, "dueDate": null, "description": null}`), &req))

	// Явный null: поле передано, значение пустое
	assert.True(t, req.AssigneeID.Set)
	assert.Nil(t, req.AssigneeID.Value)
	assert.True(t, req.DueDate.Set)
	assert.Nil(t, req.DueDate.Value)
	assert.True(t, req.Description.Set)
	assert.Nil(t, req.Description.Value)
}

func TestUpdateTicketRequest_ValueIsParsed(t *testing.T) {
	assignee := uuid.New()
	raw := `{"assigneeId": "` + assignee.String() + `", "description": "write docs", "dueDate": "2026-03-02T00:00:00Z"}`

	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	require.True(t, req.AssigneeID.Set)
	require.NotNil(t, req.AssigneeID.Value)
	assert.Equal(t, assignee, *req.AssigneeID.Value)

	require.True(t, req.Description.Set)
	assert.Equal(t, "write docs", *req.Description.Value)

	require.True(t, req.DueDate.Set)
	assert.Equal(t, 2026, req.DueDate.Value.Year())
}

func TestOptionalUUID_RejectsGarbage(t *testing.T) {
	var req UpdateTicketRequest
	err := json.Unmarshal([]byte(`{"assigneeId": "not-a-uuid"}`), &req)
	assert.Error(t, err)
}

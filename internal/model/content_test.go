package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFromTurns(t *testing.T) {
	got := FromTurns([]Turn{
		{Role: RoleUser, Content: "How is PRJ-2024-001 doing?"},
		{Role: RoleAssistant, Content: "Margin is eroding."},
		{Role: RoleTool, Content: `{"count":2}`},
		{Role: "system", Content: "ignored role becomes user"},
		{Role: RoleUser, Content: "   "},
	})

	want := []*Content{
		{Role: RoleUser, Parts: []Part{{Text: "How is PRJ-2024-001 doing?"}}},
		{Role: RoleModel, Parts: []Part{{Text: "Margin is eroding."}}},
		{Role: RoleTool, Parts: []Part{{Text: `{"count":2}`}}},
		{Role: RoleUser, Parts: []Part{{Text: "ignored role becomes user"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FromTurns mismatch (-want +got):\n%s", diff)
	}
}

func TestContentTextAndCalls(t *testing.T) {
	c := &Content{
		Role: RoleModel,
		Parts: []Part{
			{Text: "Checking "},
			{FunctionCall: &FunctionCall{Name: "getPortfolio"}},
			{Text: "now."},
			{FunctionCall: &FunctionCall{Name: "getDossier", Args: map[string]any{"projectId": "PRJ-2024-001"}}},
		},
	}

	assert.Equal(t, "Checking now.", c.Text())
	calls := c.FunctionCalls()
	if assert.Len(t, calls, 2) {
		assert.Equal(t, "getPortfolio", calls[0].Name)
		assert.Equal(t, "getDossier", calls[1].Name)
	}

	var nilContent *Content
	assert.Empty(t, nilContent.Text())
	assert.Nil(t, nilContent.FunctionCalls())
}

package intelligence

import (
	"testing"

	"salondesk/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToContents(t *testing.T) {
	turns := models.Transcript{
		models.UserTurn{Text: "any slots monday?"},
		models.AssistantTurn{ToolCalls: []models.ToolCall{
			{ID: "c1", Name: "get_services", Arguments: `{}`},
			{ID: "c2", Name: "get_available_slots", Arguments: `{"date":"2025-03-10","service_id":"svc-haircut"}`},
		}},
		models.ToolResultTurn{CallID: "c1", ToolName: "get_services", Payload: `[{"id":"svc-haircut"}]`},
		models.ToolResultTurn{CallID: "c2", ToolName: "get_available_slots", Payload: `{"slots":[]}`},
		models.AssistantTurn{Text: "Monday is full."},
		models.UserTurn{Text: "ok"},
	}

	contents, err := toContents(turns)
	require.NoError(t, err)
	require.Len(t, contents, 5)

	roles := make([]string, 0, len(contents))
	for _, c := range contents {
		roles = append(roles, c.Role)
	}
	assert.Equal(t, []string{"user", "model", "user", "model", "user"}, roles)

	require.Len(t, contents[1].Parts, 2)
	call, ok := contents[1].Parts[1].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "get_available_slots", call.Name)
	assert.Equal(t, "2025-03-10", call.Args["date"])

	// Both tool results share one user content; the array is wrapped.
	require.Len(t, contents[2].Parts, 2)
	first, ok := contents[2].Parts[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Contains(t, first.Response, "result")
	second := contents[2].Parts[1].(genai.FunctionResponse)
	assert.Contains(t, second.Response, "slots")
}

func TestToContents_Errors(t *testing.T) {
	_, err := toContents(nil)
	assert.ErrorIs(t, err, errEmptyTranscript)

	_, err = toContents(models.Transcript{
		models.UserTurn{Text: "hi"},
		models.AssistantTurn{ToolCalls: []models.ToolCall{{ID: "c1", Name: "x", Arguments: `{bad`}}},
	})
	assert.Error(t, err)
}

func TestFromGenaiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []genai.Part{
			genai.Text("Let me check. "),
			genai.FunctionCall{Name: "get_available_slots", Args: map[string]any{"date": "2025-03-10"}},
			genai.FunctionCall{Name: "get_salon_info"},
		}},
	}}}

	out, err := fromGenaiResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Let me check.", out.Text)
	require.Len(t, out.ToolCalls, 2)
	assert.JSONEq(t, `{"date":"2025-03-10"}`, out.ToolCalls[0].Arguments)
	assert.Equal(t, "{}", out.ToolCalls[1].Arguments)
	assert.NotEqual(t, out.ToolCalls[0].ID, out.ToolCalls[1].ID)

	empty, err := fromGenaiResponse(&genai.GenerateContentResponse{})
	require.NoError(t, err)
	assert.Empty(t, empty.Text)
	assert.Empty(t, empty.ToolCalls)
}

func TestToGenaiTool(t *testing.T) {
	tool := toGenaiTool([]ToolSpec{{
		Name:        "cancel_appointment",
		Description: "Cancel a booking",
		Params: []Param{
			{Name: "appointment_id", Type: ParamString, Required: true},
			{Name: "reason", Type: ParamString},
		},
	}})
	require.Len(t, tool.FunctionDeclarations, 1)
	decl := tool.FunctionDeclarations[0]
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"appointment_id"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["reason"].Type)
}

package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

const flatReply = `{
  "title": "Discovery Kickoff",
  "system": "You are a senior BA.",
  "user": "Interview the stakeholders of Apollo.",
  "guardrails": ["Ask for missing metrics"],
  "few_shots": [{"input": "Who owns billing?", "ideal": "Finance, confirm with CFO"}],
  "tools_suggested": [{"name": "Jira", "purpose": "track questions", "schema": {"type": "object"}}],
  "telemetry_tags": ["discovery"]
}`

func TestSynthesize_FlatReply(t *testing.T) {
	m := &mockChatModel{reply: "```json\n" + flatReply + "\n```"}
	s := New(m, nil, "openai")

	resp, err := s.Synthesize(context.Background(), "discovery", map[string]any{"projectName": "Apollo"})
	require.NoError(t, err)

	assert.Equal(t, "Discovery Kickoff", resp.Title)
	assert.Equal(t, "You are a senior BA.", resp.System)
	assert.Equal(t, []string{"Ask for missing metrics"}, resp.Guardrails)
	require.Len(t, resp.FewShots, 1)
	require.Len(t, resp.ToolsSuggested, 1)
	assert.JSONEq(t, `{"type":"object"}`, string(resp.ToolsSuggested[0].Schema))
	assert.Equal(t, []string{"discovery"}, resp.TelemetryTags)
	assert.False(t, resp.Fallback)
	assert.Contains(t, resp.CohesivePrompt, "SYSTEM: You are a senior BA.")
	assert.Contains(t, resp.CohesivePrompt, "• Jira: track questions")

	require.Len(t, m.input, 2)
	assert.Equal(t, systemPrompt, m.input[0].Content)
	prompt := m.input[1].Content
	assert.Contains(t, prompt, "Phase: discovery")
	assert.Contains(t, prompt, `Inputs: {"projectName":"Apollo"}`)
	assert.Contains(t, prompt, "- requirements: produce FR, NFR, Business Rules")
}

func TestParse_NestedShapes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		user  string
	}{
		{"metaPrompts", `{"metaPrompts": [{"systemRole": "S", "userInstruction": "U1"}]}`, "U1"},
		{"meta_prompts", `{"meta_prompts": [{"system_role": "S", "user_instruction": "U2"}]}`, "U2"},
		{"keyed by phase", `{"testing": {"system": "S", "user": "U3", "guardrails": ["g"]}}`, "U3"},
		{"any object", `{"result": {"systemRole": "S", "user": "U4"}, "note": "x"}`, "U4"},
		{"top level array", `[{"system": "S", "user": "U5", "guardrails": []}]`, "U5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse(tt.reply, "testing")
			require.NoError(t, err)
			assert.Equal(t, tt.user, resp.User)
			assert.Equal(t, "S", resp.System)
			assert.Equal(t, "Cohesive Testing Prompt", resp.Title)
			assert.Equal(t, []string{"testing", "generated"}, resp.TelemetryTags)
			assert.NotNil(t, resp.Guardrails)
		})
	}
}

func TestParse_ToolShapes(t *testing.T) {
	reply := `{"system": "S", "user": "U", "guardrails": [],
		"suggestedTools": ["Figma", {"tool": "Calendar", "description": "book reviews"}, {"purpose": "nameless"}]}`

	resp, err := Parse(reply, "wireframing")
	require.NoError(t, err)
	require.Len(t, resp.ToolsSuggested, 2)
	assert.Equal(t, "Figma", resp.ToolsSuggested[0].Name)
	assert.Equal(t, Tool{Name: "Calendar", Purpose: "book reviews"}, resp.ToolsSuggested[1])
	assert.Contains(t, resp.CohesivePrompt, "• Figma: No description")
	assert.Contains(t, resp.CohesivePrompt, "• Ensure accuracy and ask clarifying questions")
}

func TestParse_Rejects(t *testing.T) {
	for _, reply := range []string{
		"I cannot help with that.",
		`{"title": "only a title"}`,
		`{"system": "S", "user": ""}`,
		`"just a string"`,
	} {
		_, err := Parse(reply, "discovery")
		assert.Error(t, err, reply)
	}
}

func TestSynthesize_FallsBackOnUnusableReply(t *testing.T) {
	s := New(&mockChatModel{reply: "Sorry, here are some thoughts without JSON."}, nil, "openai")

	resp, err := s.Synthesize(context.Background(), "stories", map[string]any{"epic": "Checkout"})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, "Generated Prompt for stories", resp.Title)
	assert.Equal(t, []string{"stories", "generated"}, resp.TelemetryTags)
	assert.Contains(t, resp.User, `{"epic":"Checkout"}`)
	assert.Contains(t, resp.CohesivePrompt, "• Focus on the specific requirements of the stories phase")
	assert.NoError(t, resp.Validate())
}

func TestSynthesize_Errors(t *testing.T) {
	ctx := context.Background()

	s := New(&mockChatModel{reply: flatReply}, nil, "openai")
	_, err := s.Synthesize(ctx, "deployment", nil)
	assert.ErrorIs(t, err, ErrUnknownPhase)
	assert.ErrorContains(t, err, "discovery, requirements")

	s = New(&mockChatModel{err: errors.New("quota exceeded")}, nil, "openai")
	_, err = s.Synthesize(ctx, "discovery", nil)
	assert.ErrorContains(t, err, "AI provider error: quota exceeded")

	s = New(nil, nil, "")
	assert.ErrorIs(t, s.Health(), ErrNoModel)
	_, err = s.Synthesize(ctx, "discovery", nil)
	assert.ErrorIs(t, err, ErrNoModel)
}

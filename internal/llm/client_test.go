package llm

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
	response *schema.Message
	err      error
	input    []*schema.Message
}

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func TestValidateProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     Provider
		wantErr  bool
	}{
		{name: "valid openai", provider: "openai", want: ProviderOpenAI},
		{name: "valid ollama", provider: "ollama", want: ProviderOllama},
		{name: "valid anthropic", provider: "anthropic", want: ProviderAnthropic},
		{name: "valid gemini", provider: "gemini", want: ProviderGemini},
		{name: "invalid provider", provider: "invalid", wantErr: true},
		{name: "empty provider", provider: "", wantErr: true},
		{name: "case sensitive - OPENAI fails", provider: "OPENAI", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateProvider(tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultModelForProvider(t *testing.T) {
	for _, p := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama} {
		assert.NotEmpty(t, DefaultModelForProvider(p), p)
	}
	assert.Empty(t, DefaultModelForProvider("unknown"))
}

func TestInferProviderFromModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
		ok    bool
	}{
		{"gpt-4o-mini", ProviderOpenAI, true},
		{"claude-3-5-haiku-latest", ProviderAnthropic, true},
		{"gemini-2.0-flash", ProviderGemini, true},
		{"llama3.2", ProviderOllama, true},
		{"mystery", "", false},
	}
	for _, tt := range tests {
		got, ok := InferProviderFromModel(tt.model)
		assert.Equal(t, tt.ok, ok, tt.model)
		assert.Equal(t, tt.want, got, tt.model)
	}
}

func TestNewChatModel_RequiresAPIKey(t *testing.T) {
	ctx := context.Background()
	for _, p := range []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		_, err := NewChatModel(ctx, Config{Provider: p})
		assert.Error(t, err, p)
	}
	_, err := NewChatModel(ctx, Config{Provider: "nope"})
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestComplete(t *testing.T) {
	m := &mockChatModel{response: &schema.Message{Role: schema.Assistant, Content: "hello"}}

	out, err := Complete(context.Background(), m, "be brief", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	require.Len(t, m.input, 2)
	assert.Equal(t, schema.System, m.input[0].Role)
	assert.Equal(t, "hi", m.input[1].Content)

	_, err = Complete(context.Background(), m, "", "hi")
	require.NoError(t, err)
	assert.Len(t, m.input, 1)

	m.err = errors.New("boom")
	_, err = Complete(context.Background(), m, "", "hi")
	assert.EqualError(t, err, "boom")
}

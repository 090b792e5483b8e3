// Package synth asks a chat model for a phase-specific meta-prompt and
// normalises whatever shape the model answers with.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/josephgoksu/PhaseWing/internal/llm"
	"github.com/josephgoksu/PhaseWing/internal/logger"
	"github.com/josephgoksu/PhaseWing/internal/phase"
	"github.com/josephgoksu/PhaseWing/internal/utils"
)

var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrNoModel      = errors.New("no chat model configured")
)

const systemPrompt = "You are a prompt engineering expert for Business Analysis workflows."

var validate = validator.New()

// FewShot is one example exchange.
type FewShot struct {
	Input string `json:"input" validate:"required"`
	Ideal string `json:"ideal" validate:"required"`
}

// Tool is an external tool the prompt may call.
type Tool struct {
	Name    string          `json:"name" validate:"required"`
	Purpose string          `json:"purpose"`
	Schema  json.RawMessage `json:"schema,omitempty"`
}

// Response is a synthesized meta-prompt.
type Response struct {
	Title          string    `json:"title" validate:"required"`
	System         string    `json:"system" validate:"required"`
	User           string    `json:"user" validate:"required"`
	Guardrails     []string  `json:"guardrails" validate:"required"`
	FewShots       []FewShot `json:"few_shots,omitempty" validate:"omitempty,dive"`
	ToolsSuggested []Tool    `json:"tools_suggested,omitempty" validate:"omitempty,dive"`
	TelemetryTags  []string  `json:"telemetry_tags,omitempty"`
	CohesivePrompt string    `json:"cohesive_prompt"`
	Fallback       bool      `json:"fallback,omitempty"`
}

// Validate checks the required fields.
func (r *Response) Validate() error {
	return validate.Struct(r)
}

// Synthesizer generates meta-prompts with a chat model.
type Synthesizer struct {
	Model    model.BaseChatModel
	Registry *phase.Registry
	Provider string
}

// New creates a Synthesizer. reg defaults to the built-in phases.
func New(chatModel model.BaseChatModel, reg *phase.Registry, provider string) *Synthesizer {
	if reg == nil {
		reg = phase.Default()
	}
	return &Synthesizer{Model: chatModel, Registry: reg, Provider: provider}
}

// Health reports whether a model is available.
func (s *Synthesizer) Health() error {
	if s == nil || s.Model == nil {
		return ErrNoModel
	}
	return nil
}

// Synthesize builds the meta-prompt request for phaseKey, sends it and
// parses the reply. A reply that cannot be understood yields the generic
// fallback prompt; only an unknown phase or a failed model call is an error.
func (s *Synthesizer) Synthesize(ctx context.Context, phaseKey string, inputs map[string]any) (*Response, error) {
	if !s.Registry.Has(phaseKey) {
		return nil, fmt.Errorf("%w: %s (valid phases: %s)", ErrUnknownPhase, phaseKey, strings.Join(s.Registry.Keys(), ", "))
	}
	if err := s.Health(); err != nil {
		return nil, err
	}
	if inputs == nil {
		inputs = map[string]any{}
	}

	prompt, err := s.metaPrompt(phaseKey, inputs)
	if err != nil {
		return nil, err
	}
	logger.SetLastPrompt(prompt)
	reply, err := llm.Complete(ctx, s.Model, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("AI provider error: %w", err)
	}

	resp, err := Parse(reply, phaseKey)
	if err != nil {
		slog.Debug("synth reply not usable, using fallback", "phase", phaseKey, "error", err, "reply", utils.Truncate(reply, 200))
		return Fallback(phaseKey, inputs), nil
	}
	return resp, nil
}

func (s *Synthesizer) metaPrompt(phaseKey string, inputs map[string]any) (string, error) {
	encoded, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("encode inputs: %w", err)
	}

	var b strings.Builder
	b.WriteString("You generate meta-prompts for Business Analysts (BA) across project phases.\n")
	b.WriteString("Return ONLY a strict JSON object matching the provided response schema.\n\n")
	fmt.Fprintf(&b, "Phase: %s\n", phaseKey)
	fmt.Fprintf(&b, "Inputs: %s\n\n", encoded)
	b.WriteString("Guidance for the phase:\n")
	for _, p := range s.Registry.List() {
		if p.Guidance == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", p.Key, p.Guidance)
	}
	b.WriteString(`
Requirements:
1) Return production-ready meta-prompts: a SYSTEM role (behavior), a USER instruction (with actual input values substituted), optional few-shot examples.
2) Include guardrails (reduce hallucinations, request missing info).
3) If useful, list suggested tools (Jira, Confluence, Calendar, Figma) with minimal JSON schemas.
4) In the USER instruction, substitute the actual input values instead of template variables like {{projectName}}.
5) Output MUST match the schema exactly (no extra text).

Schema: {"title": string, "system": string, "user": string, "guardrails": [string], "few_shots": [{"input": string, "ideal": string}], "tools_suggested": [{"name": string, "purpose": string, "schema": object}], "telemetry_tags": [string]}`)
	return b.String(), nil
}

func phaseTitle(key string) string {
	return cases.Title(language.English).String(key)
}

package synth

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Fallback is the generic prompt used when the model reply is unusable.
func Fallback(phaseKey string, inputs map[string]any) *Response {
	encoded, err := json.Marshal(inputs)
	if err != nil {
		encoded = []byte("{}")
	}
	system := fmt.Sprintf("You are an expert Business Analyst specializing in %s phase.", phaseKey)
	user := fmt.Sprintf("Generate a comprehensive prompt for the %s phase with inputs: %s", phaseKey, encoded)

	var b strings.Builder
	fmt.Fprintf(&b, "SYSTEM: %s\n\nUSER: %s\n\nGUARDRAILS:\n", system, user)
	b.WriteString("• Ensure accuracy and ask clarifying questions\n")
	fmt.Fprintf(&b, "• Focus on the specific requirements of the %s phase\n", phaseKey)
	b.WriteString("• Provide actionable guidance\n\n")
	b.WriteString("TOOLS AVAILABLE:\n• Standard BA tools (Jira, Confluence, etc.)")

	return &Response{
		Title:          fmt.Sprintf("Generated Prompt for %s", phaseKey),
		System:         system,
		User:           user,
		Guardrails:     []string{"Ensure accuracy", "Ask clarifying questions"},
		TelemetryTags:  []string{phaseKey, "generated"},
		CohesivePrompt: b.String(),
		Fallback:       true,
	}
}

// cohesive folds the prompt parts into one paste-ready block.
func cohesive(system, user string, guardrails []string, tools []Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SYSTEM: %s\n\nUSER: %s\n\nGUARDRAILS:\n", system, user)
	if len(guardrails) == 0 {
		b.WriteString("• Ensure accuracy and ask clarifying questions\n")
	}
	for _, g := range guardrails {
		fmt.Fprintf(&b, "• %s\n", g)
	}

	b.WriteString("\nTOOLS AVAILABLE:\n")
	if len(tools) == 0 {
		b.WriteString("• Standard BA tools (Jira, Confluence, etc.)")
	}
	for i, t := range tools {
		if i > 0 {
			b.WriteByte('\n')
		}
		purpose := t.Purpose
		if purpose == "" {
			purpose = "No description"
		}
		fmt.Fprintf(&b, "• %s: %s", t.Name, purpose)
	}
	return b.String()
}

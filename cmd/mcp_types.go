/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"

	"github.com/josephgoksu/PhaseWing/internal/mapper"
	"github.com/josephgoksu/PhaseWing/internal/phase"
)

// MCPError provides structured error information for MCP responses
type MCPError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewMCPError creates a new structured MCP error
func NewMCPError(code, message string, details map[string]any) *MCPError {
	return &MCPError{Code: code, Message: message, Details: details}
}

// RecordInput is a project or feature as the caller has it stored.
type RecordInput struct {
	Name    string `json:"name,omitempty" mcp:"Record name"`
	Details string `json:"details,omitempty" mcp:"JSON details tree, e.g. {\"general\":{\"goals\":\"...\"}}"`
}

func (r *RecordInput) record() *mapper.Record {
	if r == nil {
		return nil
	}
	return &mapper.Record{Name: r.Name, Details: r.Details}
}

type ListPhasesParams struct{}

type PhaseSummary struct {
	Key         string         `json:"key"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Fields      []mapper.Field `json:"fields"`
}

type ListPhasesResponse struct {
	Phases []PhaseSummary `json:"phases"`
}

type RenderPromptParams struct {
	Phase  string            `json:"phase" mcp:"Phase key (required), e.g. discovery"`
	Values map[string]string `json:"values" mcp:"Form values keyed by field id"`
}

type RenderPromptResponse struct {
	Phase  string `json:"phase"`
	Prompt string `json:"prompt"`
}

type DeriveUpdatesParams struct {
	Phase   string             `json:"phase" mcp:"Phase key (required)"`
	Values  map[string]string  `json:"values" mcp:"Submitted form values keyed by field id"`
	Project *RecordInput       `json:"project,omitempty" mcp:"Current project record"`
	Feature *RecordInput       `json:"feature,omitempty" mcp:"Current feature record"`
	Hints   []mapper.FieldHint `json:"hints,omitempty" mcp:"Extra semantic hints for custom fields"`
}

type PrefillFormParams struct {
	Phase     string                `json:"phase" mcp:"Phase key (required)"`
	Project   *RecordInput          `json:"project,omitempty" mcp:"Current project record"`
	Feature   *RecordInput          `json:"feature,omitempty" mcp:"Current feature record"`
	Hints     []mapper.FieldHint    `json:"hints,omitempty" mcp:"Extra semantic hints for custom fields"`
	CarryOver map[string]string     `json:"carryOver,omitempty" mcp:"Values carried over from another source, keyed by field id"`
	Text      string                `json:"text,omitempty" mcp:"Free text (e.g. an AI answer) to extract carry-over values from"`
	Policy    mapper.FallbackPolicy `json:"policy,omitempty" mcp:"Label heuristic policy: when-empty (default) or always"`
}

type ExtractFieldsParams struct {
	Text string `json:"text" mcp:"Free text to scan (required)"`
}

type ExtractFieldsResponse struct {
	Fields map[string]string `json:"fields"`
}

func phaseSummary(p *phase.Phase) PhaseSummary {
	return PhaseSummary{Key: p.Key, Title: p.Title, Description: p.Description, Fields: p.Form()}
}

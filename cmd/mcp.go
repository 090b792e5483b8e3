/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephgoksu/PhaseWing/internal/config"
	"github.com/josephgoksu/PhaseWing/internal/extract"
	"github.com/josephgoksu/PhaseWing/internal/mapper"
	"github.com/josephgoksu/PhaseWing/internal/phase"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI tool integration",
	Long: `Start a Model Context Protocol (MCP) server so AI assistants can use the
PhaseWing phase tools directly.

The MCP server runs over stdin/stdout and provides tools for:
- Listing phases and their forms
- Rendering a phase prompt from form values
- Deriving record updates from a submitted form
- Prefilling a form from stored records
- Extracting field values from free text

Nothing is persisted; callers pass records in and get results back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServer(ctx context.Context) error {
	phases, err := phase.Load(afero.NewOsFs(), config.GetPhasesDir())
	if err != nil {
		return fmt.Errorf("failed to load phases: %w", err)
	}

	server := newMCPServer(phases, extract.New(extract.DefaultRules))
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func newMCPServer(phases *phase.Registry, extractor *extract.Extractor) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    config.AppName,
		Version: version,
	}, &mcp.ServerOptions{})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list-phases",
		Description: "List the analysis phases in workflow order with their form fields.",
	}, listPhasesHandler(phases))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "render-prompt",
		Description: "Render a phase's prompt template from form values. Fails with the list of missing required fields.",
	}, renderPromptHandler(phases))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "derive-updates",
		Description: "Compute the minimal project/feature updates a submitted phase form implies. Lists only ever gain items; unchanged values produce no suggestion.",
	}, deriveUpdatesHandler(phases))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "prefill-form",
		Description: "Prefill a phase form from stored project/feature records, carry-over values and free text.",
	}, prefillFormHandler(phases, extractor))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract-fields",
		Description: "Pull goals, stakeholders, pain points and similar fields out of free text by keyword.",
	}, extractFieldsHandler(extractor))

	return server
}

func logToolCall(toolName string, params any) {
	slog.Debug("mcp tool called", "tool", toolName, "params", fmt.Sprintf("%+v", params))
}

func lookupPhase(phases *phase.Registry, key string) (*phase.Phase, error) {
	if strings.TrimSpace(key) == "" {
		return nil, NewMCPError("MISSING_PHASE", "Phase key is required", map[string]any{"field": "phase"})
	}
	p, ok := phases.Get(key)
	if !ok {
		return nil, NewMCPError("UNKNOWN_PHASE", fmt.Sprintf("Unknown phase %q", key), map[string]any{
			"valid_values": phases.Keys(),
		})
	}
	return p, nil
}

func textResult[T any](out T) (*mcp.CallToolResultFor[T], error) {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResultFor[T]{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: out,
	}, nil
}

func listPhasesHandler(phases *phase.Registry) mcp.ToolHandlerFor[ListPhasesParams, ListPhasesResponse] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[ListPhasesParams]) (*mcp.CallToolResultFor[ListPhasesResponse], error) {
		logToolCall("list-phases", params.Arguments)
		resp := ListPhasesResponse{}
		for _, p := range phases.List() {
			resp.Phases = append(resp.Phases, phaseSummary(p))
		}
		return textResult(resp)
	}
}

func renderPromptHandler(phases *phase.Registry) mcp.ToolHandlerFor[RenderPromptParams, RenderPromptResponse] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[RenderPromptParams]) (*mcp.CallToolResultFor[RenderPromptResponse], error) {
		args := params.Arguments
		logToolCall("render-prompt", args)

		p, err := lookupPhase(phases, args.Phase)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(args.Values); err != nil {
			var verr *phase.ValidationError
			if errors.As(err, &verr) {
				return nil, NewMCPError("INVALID_VALUES", err.Error(), map[string]any{"fields": verr.Fields})
			}
			return nil, err
		}
		prompt, err := p.Render(args.Values)
		if err != nil {
			return nil, NewMCPError("RENDER_FAILED", err.Error(), nil)
		}
		return &mcp.CallToolResultFor[RenderPromptResponse]{
			Content:           []mcp.Content{&mcp.TextContent{Text: prompt}},
			StructuredContent: RenderPromptResponse{Phase: p.Key, Prompt: prompt},
		}, nil
	}
}

func deriveUpdatesHandler(phases *phase.Registry) mcp.ToolHandlerFor[DeriveUpdatesParams, mapper.Result] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[DeriveUpdatesParams]) (*mcp.CallToolResultFor[mapper.Result], error) {
		args := params.Arguments
		logToolCall("derive-updates", args)

		p, err := lookupPhase(phases, args.Phase)
		if err != nil {
			return nil, err
		}
		return textResult(mapper.Derive(mapper.DeriveInput{
			Project: args.Project.record(),
			Feature: args.Feature.record(),
			Phase:   p.Key,
			Static:  p.StaticMap(),
			Hints:   args.Hints,
			Values:  args.Values,
		}))
	}
}

func prefillFormHandler(phases *phase.Registry, extractor *extract.Extractor) mcp.ToolHandlerFor[PrefillFormParams, mapper.PrefillResult] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[PrefillFormParams]) (*mcp.CallToolResultFor[mapper.PrefillResult], error) {
		args := params.Arguments
		logToolCall("prefill-form", args)

		p, err := lookupPhase(phases, args.Phase)
		if err != nil {
			return nil, err
		}
		switch args.Policy {
		case "", mapper.FallbackWhenEmpty, mapper.FallbackAlways:
		default:
			return nil, NewMCPError("INVALID_POLICY", fmt.Sprintf("Unknown policy %q", args.Policy), map[string]any{
				"valid_values": []mapper.FallbackPolicy{mapper.FallbackWhenEmpty, mapper.FallbackAlways},
			})
		}

		carry := map[string]string{}
		if strings.TrimSpace(args.Text) != "" {
			for id, v := range extractor.Extract(args.Text) {
				carry[id] = v
			}
		}
		for id, v := range args.CarryOver {
			carry[id] = v
		}

		return textResult(mapper.Prefill(mapper.PrefillInput{
			Project:   args.Project.record(),
			Feature:   args.Feature.record(),
			Phase:     p.Key,
			Static:    p.StaticMap(),
			Hints:     args.Hints,
			CarryOver: carry,
			Policy:    args.Policy,
		}, p.Form()))
	}
}

func extractFieldsHandler(extractor *extract.Extractor) mcp.ToolHandlerFor[ExtractFieldsParams, ExtractFieldsResponse] {
	return func(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[ExtractFieldsParams]) (*mcp.CallToolResultFor[ExtractFieldsResponse], error) {
		args := params.Arguments
		logToolCall("extract-fields", args)

		if strings.TrimSpace(args.Text) == "" {
			return nil, NewMCPError("MISSING_TEXT", "Text is required", map[string]any{"field": "text"})
		}
		return textResult(ExtractFieldsResponse{Fields: extractor.Extract(args.Text)})
	}
}

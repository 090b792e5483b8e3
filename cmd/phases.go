/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephgoksu/PhaseWing/internal/config"
	"github.com/josephgoksu/PhaseWing/internal/phase"
)

var phasesCmd = &cobra.Command{
	Use:     "phases",
	Aliases: []string{"phase"},
	Short:   "List, inspect and render analysis phases",
}

var phasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List phases in workflow order",
	RunE: func(cmd *cobra.Command, args []string) error {
		phases, err := loadPhases()
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return writeJSON(cmd.OutOrStdout(), phases.List())
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tTITLE\tFIELDS")
		for _, p := range phases.List() {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", p.Key, p.Title, len(p.Fields))
		}
		return tw.Flush()
	},
}

var phasesShowCmd = &cobra.Command{
	Use:   "show <phase>",
	Short: "Show a phase's form fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := phaseArg(args[0])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return writeJSON(cmd.OutOrStdout(), p)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", p.Title, p.Key)
		if p.Description != "" {
			fmt.Fprintf(out, "%s\n", p.Description)
		}
		fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tKIND\tREQUIRED\tMAPS TO")
		for _, f := range p.Fields {
			target := "-"
			if f.Semantic != nil {
				target = string(f.Semantic.Entity) + "." + f.Semantic.Path
			}
			req := ""
			if f.Required {
				req = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Kind, req, target)
		}
		return tw.Flush()
	},
}

var phasesRenderCmd = &cobra.Command{
	Use:   "render <phase>",
	Short: "Render a phase prompt from form values",
	Long: `Render a phase prompt. Values come from a JSON object file (--values)
and/or repeated --set field=value flags; --set wins.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := phaseArg(args[0])
		if err != nil {
			return err
		}
		values, err := formValues(cmd)
		if err != nil {
			return err
		}
		if err := p.Validate(values); err != nil {
			return err
		}
		prompt, err := p.Render(values)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), prompt)
		return err
	},
}

func init() {
	rootCmd.AddCommand(phasesCmd)
	phasesCmd.AddCommand(phasesListCmd, phasesShowCmd, phasesRenderCmd)
	phasesCmd.PersistentFlags().Bool("json", false, "output JSON")
	addValueFlags(phasesRenderCmd)
}

// loadPhases returns the built-in phases plus any overrides on disk.
func loadPhases() (*phase.Registry, error) {
	reg, err := phase.Load(afero.NewOsFs(), config.GetPhasesDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	return reg, nil
}

func phaseArg(key string) (*phase.Phase, error) {
	phases, err := loadPhases()
	if err != nil {
		return nil, err
	}
	p, ok := phases.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown phase %q (valid phases: %s)", key, strings.Join(phases.Keys(), ", "))
	}
	return p, nil
}

func addValueFlags(cmd *cobra.Command) {
	cmd.Flags().String("values", "", "JSON file with form values keyed by field id (- for stdin)")
	cmd.Flags().StringArray("set", nil, "field=value (repeatable)")
}

// formValues merges --values and --set.
func formValues(cmd *cobra.Command) (map[string]string, error) {
	values := map[string]string{}
	if path, _ := cmd.Flags().GetString("values"); path != "" {
		if err := readJSONFile(cmd, path, &values); err != nil {
			return nil, err
		}
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q: want field=value", kv)
		}
		values[strings.TrimSpace(k)] = v
	}
	return values, nil
}

func readJSONFile(cmd *cobra.Command, path string, v any) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PhaseWing/internal/extract"
	"github.com/josephgoksu/PhaseWing/internal/mapper"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map phase forms to and from project/feature records",
	Long: `Work with the mapper offline. Records are JSON files shaped like
{"name": "Acme", "details": {"general": {...}}}.`,
}

var mapDeriveCmd = &cobra.Command{
	Use:   "derive <phase>",
	Short: "Show the record updates a submitted form implies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := phaseArg(args[0])
		if err != nil {
			return err
		}
		values, err := formValues(cmd)
		if err != nil {
			return err
		}
		project, feature, err := recordFlags(cmd)
		if err != nil {
			return err
		}

		res := mapper.Derive(mapper.DeriveInput{
			Project: project,
			Feature: feature,
			Phase:   p.Key,
			Static:  p.StaticMap(),
			Values:  values,
		})
		if jsonOutput(cmd) {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		if len(res.Suggestions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ENTITY\tPATH\tOLD\tNEW")
		for _, s := range res.Suggestions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Entity, s.Path, orDash(s.OldValue), s.NewValue)
		}
		return tw.Flush()
	},
}

var mapPrefillCmd = &cobra.Command{
	Use:   "prefill <phase>",
	Short: "Prefill a phase form from records and free text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := phaseArg(args[0])
		if err != nil {
			return err
		}
		values, err := formValues(cmd)
		if err != nil {
			return err
		}
		project, feature, err := recordFlags(cmd)
		if err != nil {
			return err
		}
		carry := map[string]string{}
		if path, _ := cmd.Flags().GetString("text"); path != "" {
			text, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			carry = extract.Extract(string(text))
		}
		policy, _ := cmd.Flags().GetString("policy")

		res := mapper.Prefill(mapper.PrefillInput{
			Project:   project,
			Feature:   feature,
			Phase:     p.Key,
			Static:    p.StaticMap(),
			CarryOver: carry,
			Policy:    mapper.FallbackPolicy(policy),
		}, p.FormWith(values))
		if jsonOutput(cmd) {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		sources := map[string]string{}
		for _, f := range res.Filled {
			sources[f.FieldID] = f.Source
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tSOURCE\tVALUE")
		for _, f := range res.Fields {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, orDash(sources[f.ID]), oneLine(f.Value))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.AddCommand(mapDeriveCmd, mapPrefillCmd)
	mapCmd.PersistentFlags().Bool("json", false, "output JSON")
	mapCmd.PersistentFlags().String("project", "", "project record JSON file")
	mapCmd.PersistentFlags().String("feature", "", "feature record JSON file")
	addValueFlags(mapDeriveCmd)
	addValueFlags(mapPrefillCmd)
	mapPrefillCmd.Flags().String("text", "", "free text file to extract carry-over values from (- for stdin)")
	mapPrefillCmd.Flags().String("policy", string(mapper.FallbackWhenEmpty), "label heuristic policy: when-empty or always")
}

type recordFile struct {
	Name    string       `json:"name"`
	Details jsonOrString `json:"details"`
}

func recordFlags(cmd *cobra.Command) (project, feature *mapper.Record, err error) {
	if project, err = recordFlag(cmd, "project"); err != nil {
		return nil, nil, err
	}
	if feature, err = recordFlag(cmd, "feature"); err != nil {
		return nil, nil, err
	}
	return project, feature, nil
}

func recordFlag(cmd *cobra.Command, name string) (*mapper.Record, error) {
	path, _ := cmd.Flags().GetString(name)
	if path == "" {
		return nil, nil
	}
	var rf recordFile
	if err := readJSONFile(cmd, path, &rf); err != nil {
		return nil, err
	}
	return &mapper.Record{Name: rf.Name, Details: string(rf.Details)}, nil
}

// jsonOrString accepts either a JSON object or a string holding one.
type jsonOrString string

func (j *jsonOrString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*j = jsonOrString(s)
		return nil
	}
	*j = jsonOrString(raw)
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " / ")
}

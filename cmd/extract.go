/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PhaseWing/internal/extract"
	"github.com/josephgoksu/PhaseWing/internal/utils"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract form fields from free text",
	Long: `Scan free text, such as an AI answer or meeting notes, for goals,
stakeholders, pain points and similar fields. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		text, err := readInput(cmd, path)
		if err != nil {
			return err
		}

		fields := extract.Extract(string(text))
		if jsonOutput(cmd) {
			return writeJSON(cmd.OutOrStdout(), fields)
		}
		if len(fields) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No fields found.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tVALUE")
		for _, id := range fields.Fields() {
			fmt.Fprintf(tw, "%s\t%s\n", id, utils.Truncate(oneLine(fields[id]), 100))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().Bool("json", false, "output JSON")
}

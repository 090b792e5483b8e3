/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PhaseWing/internal/config"
	"github.com/josephgoksu/PhaseWing/internal/llm"
	"github.com/josephgoksu/PhaseWing/internal/synth"
)

var synthCmd = &cobra.Command{
	Use:   "synth <phase>",
	Short: "Generate a cohesive prompt for a phase with the configured LLM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := formValues(cmd)
		if err != nil {
			return err
		}
		phases, err := loadPhases()
		if err != nil {
			return err
		}
		llmCfg, err := config.LoadLLMConfig()
		if err != nil {
			return err
		}
		chatModel, err := llm.NewChatModel(cmd.Context(), llmCfg)
		if err != nil {
			return fmt.Errorf("create chat model: %w", err)
		}

		inputs := make(map[string]any, len(values))
		for k, v := range values {
			inputs[k] = v
		}
		resp, err := synth.New(chatModel, phases, string(llmCfg.Provider)).Synthesize(cmd.Context(), args[0], inputs)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return writeJSON(cmd.OutOrStdout(), resp)
		}
		if resp.Fallback {
			fmt.Fprintln(cmd.ErrOrStderr(), "The model reply could not be used; showing the generic prompt.")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.CohesivePrompt)
		return err
	},
}

func init() {
	rootCmd.AddCommand(synthCmd)
	synthCmd.Flags().Bool("json", false, "output the full JSON response")
	addValueFlags(synthCmd)
}

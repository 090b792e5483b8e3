/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PhaseWing/internal/config"
	"github.com/josephgoksu/PhaseWing/internal/llm"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change PhaseWing configuration",
}

// configShowCmd shows current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, serr := config.LoadServerConfig()
		llmCfg, lerr := config.LoadLLMConfig()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "PhaseWing Configuration")
		fmt.Fprintln(out, strings.Repeat("━", 40))
		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(out, "config file:   %s\n", file)
		}

		fmt.Fprintln(out, "\n## Server")
		if serr != nil {
			fmt.Fprintf(out, "  error:       %v\n", serr)
		}
		fmt.Fprintf(out, "  listen:      %s\n", server.Addr())
		fmt.Fprintf(out, "  data dir:    %s\n", server.DataDir)
		fmt.Fprintf(out, "  phases dir:  %s\n", server.PhasesDir)
		fmt.Fprintf(out, "  cors:        %s\n", strings.Join(server.CORSOrigins, ", "))
		fmt.Fprintf(out, "  dashboard:   %s\n", server.DashboardURL)
		fmt.Fprintf(out, "  transcribe:  %s (timeout %s)\n", server.Transcribe.URL, server.Transcribe.Timeout)

		fmt.Fprintln(out, "\n## LLM")
		if lerr != nil {
			fmt.Fprintf(out, "  error:       %v\n", lerr)
		} else {
			fmt.Fprintf(out, "  provider:    %s\n", llmCfg.Provider)
			fmt.Fprintf(out, "  model:       %s\n", llmCfg.Model)
			fmt.Fprintf(out, "  api key:     %s\n", maskKey(llmCfg.APIKey))
			if llmCfg.BaseURL != "" {
				fmt.Fprintf(out, "  base url:    %s\n", llmCfg.BaseURL)
			}
		}

		fmt.Fprintln(out, "\n## Telemetry")
		fmt.Fprintf(out, "  enabled:     %v\n", viper.GetBool("telemetry.enabled"))
		return nil
	},
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Set the LLM provider, model and API key",
	Long: fmt.Sprintf(`Store the LLM settings in the global config file (~/.%s/config.yaml).

Providers: openai, anthropic, gemini, ollama. The model defaults to the
provider's default when omitted.`, config.AppName),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		key, _ := cmd.Flags().GetString("api-key")
		if provider == "" {
			if inferred, ok := llm.InferProviderFromModel(model); ok {
				provider = inferred
			} else {
				provider = llm.DefaultProvider
			}
		}
		if err := config.SaveGlobalLLMConfig(provider, model, key); err != nil {
			return fmt.Errorf("save LLM config: %w", err)
		}
		path, _ := config.GlobalConfigFile()
		fmt.Fprintf(cmd.OutOrStdout(), "Saved LLM settings (%s) to %s\n", provider, path)
		return nil
	},
}

var configTelemetryCmd = &cobra.Command{
	Use:       "telemetry <enable|disable>",
	Short:     "Opt in to or out of anonymous usage telemetry",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "enable":
			enabled = true
		case "disable":
		default:
			return fmt.Errorf("unknown action %q: want enable or disable", args[0])
		}
		if err := config.SaveGlobalSetting("telemetry.enabled", enabled); err != nil {
			return fmt.Errorf("save telemetry setting: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Telemetry %sd\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configLLMCmd, configTelemetryCmd)
	configLLMCmd.Flags().String("provider", "", "openai, anthropic, gemini or ollama")
	configLLMCmd.Flags().String("model", "", "model name (provider default when empty)")
	configLLMCmd.Flags().String("api-key", "", "API key (stored with 0600 permissions)")
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

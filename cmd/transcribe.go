/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PhaseWing/internal/transcribe"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <video>",
	Short: "Transcribe a meeting recording",
	Long: `Upload a video to the transcription service and print the transcript.
Supported formats: .mp4 .mov .avi .mkv .wmv .flv .webm .m4v`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !transcribe.Supported(path) {
			return fmt.Errorf("%w: %s", transcribe.ErrUnsupportedFormat, filepath.Ext(path))
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		opts, err := transcribeOptions(cmd)
		if err != nil {
			return err
		}
		client := transcribe.NewClient(viper.GetString("transcribe.url"), viper.GetDuration("transcribe.timeout"))

		fmt.Fprintf(cmd.ErrOrStderr(), "Transcribing %s via %s...\n", filepath.Base(path), client.BaseURL)
		res, err := client.Transcribe(cmd.Context(), filepath.Base(path), f, opts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Transcription)
		return err
	},
}

// transcribeOptions leaves the noise level unset unless the flag was given,
// so an explicit 0 reaches the service.
func transcribeOptions(cmd *cobra.Command) (transcribe.Options, error) {
	lang, err := cmd.Flags().GetString("language")
	if err != nil {
		return transcribe.Options{}, err
	}
	opts := transcribe.Options{Language: lang}
	if cmd.Flags().Changed("noise-reduction") {
		noise, err := cmd.Flags().GetInt("noise-reduction")
		if err != nil {
			return transcribe.Options{}, err
		}
		opts.NoiseReduction = &noise
	}
	return opts, nil
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
	transcribeCmd.Flags().Int("noise-reduction", transcribe.DefaultNoise, "noise reduction level passed to the service")
	transcribeCmd.Flags().String("language", transcribe.DefaultLanguage, "spoken language")
	transcribeCmd.Flags().String("url", "", "transcription service URL")
	_ = viper.BindPFlag("transcribe.url", transcribeCmd.Flags().Lookup("url"))
}

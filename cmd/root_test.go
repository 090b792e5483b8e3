package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PhaseWing/internal/config"
	"github.com/josephgoksu/PhaseWing/internal/store"
)

// resetFlags clears flag values left over from a previous Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the CLI hermetically: no config files, an empty
// data dir and no phase overrides.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)
	dir := t.TempDir()
	t.Setenv("PHASEWING_STORE_PATH", dir)
	t.Setenv("PHASEWING_PHASES_DIR", filepath.Join(dir, "phases"))
	orig := config.GetGlobalConfigDir
	config.GetGlobalConfigDir = func() (string, error) { return filepath.Join(dir, "global"), nil }
	t.Cleanup(func() { config.GetGlobalConfigDir = orig })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	out, err := executeCommand(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "PhaseWing guides business analysis")
	assert.Contains(t, out, "Usage:")

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "mcp", "phases", "map", "extract", "transcribe", "user", "config", "synth", "version"} {
		assert.True(t, names[want], "%s command must be registered on root", want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "phasewing "+version))
}

func TestPhasesCmd(t *testing.T) {
	out, err := executeCommand(t, "", "phases", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "discovery")
	assert.Contains(t, out, "requirements")

	out, err = executeCommand(t, "", "phases", "show", "discovery")
	require.NoError(t, err)
	assert.Contains(t, out, "project.general.stakeholders")

	out, err = executeCommand(t, "", "phases", "render", "discovery", "--set", "projectName=Apollo", "--set", "goals=Grow revenue")
	require.NoError(t, err)
	assert.Contains(t, out, "Apollo")
	assert.Contains(t, out, "Grow revenue")

	_, err = executeCommand(t, "", "phases", "render", "discovery")
	assert.ErrorContains(t, err, "projectName")

	_, err = executeCommand(t, "", "phases", "show", "nope")
	assert.ErrorContains(t, err, "valid phases")

	_, err = executeCommand(t, "", "phases", "render", "discovery", "--set", "novalue")
	assert.ErrorContains(t, err, "field=value")
}

func TestPhasesRender_ValuesFromStdin(t *testing.T) {
	out, err := executeCommand(t, `{"projectName":"Hermes"}`, "phases", "render", "discovery", "--values", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Hermes")
}

func TestMapDeriveCmd(t *testing.T) {
	project := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, os.WriteFile(project, []byte(`{"name":"Acme","details":{"general":{"stakeholders":"Alice - PM"}}}`), 0o644))

	out, err := executeCommand(t, "", "map", "derive", "discovery", "--project", project, "--set", "stakeholders=Alice - PM; Bob - Dev")
	require.NoError(t, err)
	assert.Contains(t, out, "general.stakeholders")
	assert.Contains(t, out, "Alice - PM, Bob - Dev")

	out, err = executeCommand(t, "", "map", "derive", "discovery", "--project", project, "--set", "stakeholders=alice - pm")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")
}

func TestMapPrefillCmd(t *testing.T) {
	project := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, os.WriteFile(project, []byte(`{"name":"Acme","details":"{\"general\":{\"goals\":\"Grow\"}}"}`), 0o644))

	out, err := executeCommand(t, "", "map", "prefill", "discovery", "--project", project, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"value": "Grow"`)
}

func TestExtractCmd(t *testing.T) {
	out, err := executeCommand(t, "Nothing relevant here.", "extract")
	require.NoError(t, err)
	assert.Contains(t, out, "No fields found.")

	out, err = executeCommand(t, "Our goal is to reduce churn. The main stakeholders are finance and support.", "extract", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "reduce churn")
}

func TestUserCreateCmd(t *testing.T) {
	out, err := executeCommand(t, "", "user", "create", "--username", "admin2", "--email", "admin2@example.com", "--password", "secret1", "--superuser")
	require.NoError(t, err)
	assert.Contains(t, out, "Created superuser admin2")

	st, err := store.Open(os.Getenv("PHASEWING_STORE_PATH"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	u, err := st.GetUserByUsername("admin2")
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)

	_, err = executeCommand(t, "", "user", "create", "--username", "x", "--email", "bad", "--password", "1")
	assert.Error(t, err)
}

func TestTranscribeCmd_RejectsFormat(t *testing.T) {
	_, err := executeCommand(t, "", "transcribe", "notes.txt")
	assert.ErrorContains(t, err, "unsupported file format")
}

func TestTranscribeOptions(t *testing.T) {
	resetFlags(transcribeCmd)
	t.Cleanup(func() { resetFlags(transcribeCmd) })

	opts, err := transcribeOptions(transcribeCmd)
	require.NoError(t, err)
	assert.Nil(t, opts.NoiseReduction)
	assert.Equal(t, 1, opts.Noise())

	require.NoError(t, transcribeCmd.ParseFlags([]string{"--noise-reduction", "0", "--language", "de-DE"}))
	opts, err = transcribeOptions(transcribeCmd)
	require.NoError(t, err)
	require.NotNil(t, opts.NoiseReduction)
	assert.Equal(t, 0, opts.Noise())
	assert.Equal(t, "de-DE", opts.Language)
}

func TestConfigCmds(t *testing.T) {
	out, err := executeCommand(t, "", "config", "llm", "--provider", "anthropic", "--api-key", "sk-ant-123456789")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved LLM settings (anthropic)")

	path, err := config.GlobalConfigFile()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "anthropic")

	_, err = executeCommand(t, "", "config", "llm", "--provider", "nope")
	assert.Error(t, err)

	out, err = executeCommand(t, "", "config", "telemetry", "enable")
	require.NoError(t, err)
	assert.Contains(t, out, "Telemetry enabled")

	out, err = executeCommand(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "## Server")
	assert.Contains(t, out, "127.0.0.1:8000")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "(not set)", maskKey(""))
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "sk-a...6789", maskKey("sk-ant-123456789"))
}

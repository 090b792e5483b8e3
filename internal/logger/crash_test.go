package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetContext(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	current = &crashContext{}
	SetBasePath(dir)
	t.Cleanup(func() { current = &crashContext{} })
	return dir
}

func TestWriteCrashLog(t *testing.T) {
	dir := resetContext(t)
	SetVersion("1.2.3")
	SetCommand("serve")
	SetLastPrompt("Phase: discovery")

	path, err := WriteCrashLog("nil map write", "POST /api/mapper/discovery/derive")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CrashLogDir), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "PHASEWING CRASH LOG")
	assert.Contains(t, text, "Version:   1.2.3")
	assert.Contains(t, text, "Request:   POST /api/mapper/discovery/derive")
	assert.Contains(t, text, "nil map write")
	assert.Contains(t, text, "LAST LLM PROMPT")
	assert.Contains(t, text, "goroutine")
}

func TestSetLastPrompt_Truncates(t *testing.T) {
	resetContext(t)
	SetLastPrompt(strings.Repeat("a", 3000))
	assert.LessOrEqual(t, len(current.lastPrompt), 2100)
	assert.True(t, strings.HasSuffix(current.lastPrompt, "[truncated]"))
}

func TestPruneCrashLogs(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 14; i++ {
		name := fmt.Sprintf("crash_20250101_0000%02d.000000.log", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	require.NoError(t, pruneCrashLogs(dir, MaxCrashLogs))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, MaxCrashLogs+1)
	_, err = os.Stat(filepath.Join(dir, "crash_20250101_000000.000000.log"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "crash_20250101_000013.000000.log"))
	assert.NoError(t, err)

	assert.NoError(t, pruneCrashLogs(filepath.Join(dir, "missing"), 1))
}

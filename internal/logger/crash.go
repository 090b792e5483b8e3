// Package logger writes crash reports for panics in the CLI and in HTTP handlers.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const (
	// CrashLogDir is the directory for crash logs relative to the data dir.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep.
	MaxCrashLogs = 10
)

type crashContext struct {
	mu         sync.RWMutex
	basePath   string
	version    string
	command    string
	lastPrompt string
}

var current = &crashContext{}

// SetBasePath sets the directory crash logs are written under.
func SetBasePath(path string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.basePath = path
}

// SetVersion records the running version.
func SetVersion(version string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.version = version
}

// SetCommand records the CLI command being run.
func SetCommand(cmd string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.command = cmd
}

// SetLastPrompt records the last prompt sent to a model.
func SetLastPrompt(prompt string) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.lastPrompt = truncateForLog(prompt, 2000)
}

func truncateForLog(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "... [truncated]"
}

// CrashLog is one crash report.
type CrashLog struct {
	Timestamp  time.Time
	Version    string
	Command    string
	Request    string
	PanicValue string
	StackTrace string
	LastPrompt string
	GoVersion  string
	Platform   string
}

// HandlePanic recovers a panic in the CLI, writes a crash log and exits.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}
	path, err := WriteCrashLog(r, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
		fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, debug.Stack())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\nPhaseWing hit an unexpected error.\nCrash log: %s\n", path)
	os.Exit(1)
}

// WriteCrashLog records panicValue with the current stack. request
// describes the HTTP request being served, if any. It returns the log path.
func WriteCrashLog(panicValue any, request string) (string, error) {
	log := newCrashLog(panicValue, request)
	dir := crashLogDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}
	if err := pruneCrashLogs(dir, MaxCrashLogs-1); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("crash_%s.log", log.Timestamp.Format("20060102_150405.000000")))
	if err := os.WriteFile(path, []byte(log.String()), 0644); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	return path, nil
}

func newCrashLog(panicValue any, request string) CrashLog {
	current.mu.RLock()
	defer current.mu.RUnlock()

	return CrashLog{
		Timestamp:  time.Now(),
		Version:    current.version,
		Command:    current.command,
		Request:    request,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
		LastPrompt: current.lastPrompt,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func crashLogDir() string {
	current.mu.RLock()
	base := current.basePath
	current.mu.RUnlock()
	if base == "" {
		base = ".phasewing"
	}
	return filepath.Join(base, CrashLogDir)
}

func section(sb *strings.Builder, title, body string) {
	rule := strings.Repeat("-", 80)
	fmt.Fprintf(sb, "\n%s\n%s\n%s\n%s\n", rule, title, rule, strings.TrimRight(body, "\n"))
}

// String renders the log as text.
func (l CrashLog) String() string {
	var sb strings.Builder
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(&sb, "%s\nPHASEWING CRASH LOG\n%s\n\n", rule, rule)
	fmt.Fprintf(&sb, "Timestamp: %s\n", l.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Version:   %s\n", l.Version)
	if l.Command != "" {
		fmt.Fprintf(&sb, "Command:   %s\n", l.Command)
	}
	if l.Request != "" {
		fmt.Fprintf(&sb, "Request:   %s\n", l.Request)
	}
	fmt.Fprintf(&sb, "Go:        %s (%s)\n", l.GoVersion, l.Platform)

	section(&sb, "PANIC VALUE", l.PanicValue)
	section(&sb, "STACK TRACE", l.StackTrace)
	if l.LastPrompt != "" {
		section(&sb, "LAST LLM PROMPT", l.LastPrompt)
	}
	fmt.Fprintf(&sb, "\n%s\n", rule)
	return sb.String()
}

// pruneCrashLogs deletes the oldest logs so at most keep remain.
func pruneCrashLogs(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	// os.ReadDir sorts by name, and names sort by time.
	for len(logs) > keep {
		if err := os.Remove(filepath.Join(dir, logs[0])); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", logs[0], err)
		}
		logs = logs[1:]
	}
	return nil
}

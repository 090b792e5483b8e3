package phase

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultPhasesDir is the override directory relative to the data dir.
const DefaultPhasesDir = "phases"

// Loader reads phase override files from a directory.
// It uses an afero.Fs so tests can run against an in-memory filesystem.
type Loader struct {
	fs      afero.Fs
	baseDir string
}

// NewLoader creates a loader over fs rooted at baseDir.
func NewLoader(fs afero.Fs, baseDir string) *Loader {
	return &Loader{fs: fs, baseDir: baseDir}
}

// NewOsLoader creates a Loader on the real filesystem.
func NewOsLoader(baseDir string) *Loader {
	return NewLoader(afero.NewOsFs(), baseDir)
}

// LoadAll reads every .yaml or .yml file under the base directory, in
// lexical path order. A missing directory yields no phases.
func (l *Loader) LoadAll() ([]*Phase, error) {
	exists, err := afero.DirExists(l.fs, l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("check phases directory: %w", err)
	}
	if !exists {
		return []*Phase{}, nil
	}

	var phases []*Phase
	err = afero.Walk(l.fs, l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		loaded, err := l.loadFile(path)
		if err != nil {
			return fmt.Errorf("load phase file %s: %w", path, err)
		}
		slog.Debug("loaded phase overrides", "file", path, "count", len(loaded))
		phases = append(phases, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk phases directory: %w", err)
	}
	return phases, nil
}

func (l *Loader) loadFile(path string) ([]*Phase, error) {
	file, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return decode(content)
}

// Load builds a registry from the built-in phases plus the overrides under
// baseDir. An empty baseDir means built-ins only.
func Load(fs afero.Fs, baseDir string) (*Registry, error) {
	if baseDir == "" {
		return NewRegistry(nil)
	}
	overrides, err := NewLoader(fs, baseDir).LoadAll()
	if err != nil {
		return nil, err
	}
	return NewRegistry(overrides)
}

package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StateFileName holds the anonymous install id.
const StateFileName = "telemetry.json"

// State is the persisted telemetry identity.
type State struct {
	AnonymousID string `json:"anonymous_id"`
}

// LoadState reads dir/telemetry.json, creating it with a fresh random id
// on first use.
func LoadState(dir string) (*State, error) {
	path := filepath.Join(dir, StateFileName)

	var st State
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if st.AnonymousID != "" {
		return &st, nil
	}
	st.AnonymousID = uuid.NewString()
	if err := st.save(path); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *State) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create telemetry dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

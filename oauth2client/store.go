package oauth2client

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveState writes the state as JSON to path with owner-only file permissions.
// The file contains bearer credentials; callers wanting stronger protection
// than file modes must encrypt the state themselves before writing.
func SaveState(path string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("oauth2client: marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("oauth2client: write state: %w", err)
	}

	return nil
}

// LoadState reads a state previously written by SaveState.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oauth2client: read state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("oauth2client: parse state: %w", err)
	}

	return &state, nil
}

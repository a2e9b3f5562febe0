package licenseclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// State is everything the client persists: the device identifier (for the
// installation lifetime) and the activation code the user entered. Validity
// is never cached; the server re-derives the decision on each check.
type State struct {
	DeviceID string `json:"deviceId"`
	Code     string `json:"code,omitempty"`
}

type StateStore interface {
	Load() (State, error)
	Save(State) error
}

// FileStateStore keeps the state in a small JSON file, the desktop
// equivalent of the app's local storage.
type FileStateStore struct {
	path string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (f *FileStateStore) Load() (State, error) {
	var state State

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, err
	}

	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt state file is treated as a fresh install.
		return State{}, nil
	}
	return state, nil
}

func (f *FileStateStore) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(f.path, data, 0o600)
}

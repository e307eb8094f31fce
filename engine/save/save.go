// Package save serializes player state snapshots and stores them in files or
// Redis. Loaded snapshots are merged over a fresh initial state and
// normalized, never trusted wholesale.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/branchquest/engine/effects"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

// FormatVersion is written into every snapshot.
const FormatVersion = "1"

// Snapshot encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// SaveData is the serialized snapshot envelope.
type SaveData struct {
	Version string            `json:"version" yaml:"version"`
	Game    string            `json:"game" yaml:"game"`
	SavedAt time.Time         `json:"saved_at" yaml:"saved_at"`
	State   types.PlayerState `json:"state" yaml:"state"`
}

// FormatFor picks the encoding from a file name: .yaml/.yml is YAML,
// everything else JSON.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode serializes a snapshot of s.
func Encode(s types.PlayerState, defs *state.Defs, format string) ([]byte, error) {
	data := SaveData{
		Version: FormatVersion,
		Game:    defs.Game.Title,
		SavedAt: time.Now().UTC(),
		State:   s,
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(data)
	case FormatJSON, "":
		return json.MarshalIndent(data, "", "  ")
	default:
		return nil, fmt.Errorf("save: unknown format %q", format)
	}
}

// Decode parses a snapshot and merges it over a fresh initial state. Fields
// with the wrong type are skipped rather than failing the whole load; only a
// syntactically broken document is an error.
func Decode(data []byte, defs *state.Defs, format string) (types.PlayerState, error) {
	sd := SaveData{State: state.NewState(defs)}

	switch format {
	case FormatYAML:
		var typeErr *yaml.TypeError
		if err := yaml.Unmarshal(data, &sd); err != nil && !errors.As(err, &typeErr) {
			return types.PlayerState{}, fmt.Errorf("decode save: %w", err)
		}
	case FormatJSON, "":
		var typeErr *json.UnmarshalTypeError
		if err := json.Unmarshal(data, &sd); err != nil && !errors.As(err, &typeErr) {
			return types.PlayerState{}, fmt.Errorf("decode save: %w", err)
		}
	default:
		return types.PlayerState{}, fmt.Errorf("save: unknown format %q", format)
	}

	s := sd.State
	effects.Normalize(&s)
	if s.CurrentScene == "" {
		s.CurrentScene = defs.Fallback()
	}
	return s, nil
}

// Package snapshot encodes the saved game state slot.
//
// A snapshot is a JSON envelope {"schemaVersion":1,"savedAt":...,"state":{...}}.
// Envelopes with an unknown or missing version decode as absent so an older
// or newer save never crashes a session.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
)

// SchemaVersion is the only envelope version this build reads and writes.
const SchemaVersion = 1

// Envelope is the stored form of a snapshot.
type Envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	SavedAt       time.Time       `json:"savedAt"`
	State         json.RawMessage `json:"state"`
}

// Encode serialises gs fully before any byte is handed to storage.
func Encode(gs gamestate.GameState, savedAt time.Time) ([]byte, error) {
	state, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("marshal game state: %w", err)
	}
	data, err := json.Marshal(Envelope{
		SchemaVersion: SchemaVersion,
		SavedAt:       savedAt.UTC(),
		State:         state,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a stored snapshot. It reports false without error for an
// empty slot or an unsupported version, and returns an error only when the
// bytes are not a readable envelope.
func Decode(data []byte) (gamestate.GameState, bool, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return gamestate.GameState{}, false, nil
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return gamestate.GameState{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if env.SchemaVersion != SchemaVersion || len(env.State) == 0 {
		return gamestate.GameState{}, false, nil
	}
	var gs gamestate.GameState
	if err := json.Unmarshal(env.State, &gs); err != nil {
		return gamestate.GameState{}, false, fmt.Errorf("unmarshal game state: %w", err)
	}
	return gs, true, nil
}

// SavedAt returns the save time recorded in data, if it is a current envelope.
func SavedAt(data []byte) (time.Time, bool) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.SchemaVersion != SchemaVersion {
		return time.Time{}, false
	}
	return env.SavedAt, true
}

package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncounterKind is the closed set of encounter types.
type EncounterKind string

const (
	EncounterCombat     EncounterKind = "combat"
	EncounterSkillCheck EncounterKind = "skill_check"
	EncounterDiscovery  EncounterKind = "discovery"
	EncounterTrap       EncounterKind = "trap"
)

// InteractionKind is the closed set of interaction types.
type InteractionKind string

const (
	InteractionSkillCheck InteractionKind = "skill_check"
	InteractionDiscovery  InteractionKind = "discovery"
	InteractionPuzzle     InteractionKind = "puzzle"
)

type CombatData struct {
	Enemies    []Enemy `json:"enemies"`
	Difficulty string  `json:"difficulty,omitempty"`
}

type Enemy struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
	HP    int    `json:"hp,omitempty"`
	AC    int    `json:"ac,omitempty"`
}

type SkillCheckData struct {
	Skill   string        `json:"skill"`
	DC      int           `json:"dc"`
	Success []Consequence `json:"success,omitempty"`
	Failure []Consequence `json:"failure,omitempty"`
}

type DiscoveryData struct {
	Text string `json:"text,omitempty"`
	Clue string `json:"clue,omitempty"`
	Item string `json:"item,omitempty"`
}

type TrapData struct {
	Damage string `json:"damage"`
	DC     int    `json:"dc"`
	Save   string `json:"save,omitempty"`
}

type PuzzleData struct {
	Prompt   string        `json:"prompt"`
	Solution string        `json:"solution,omitempty"`
	Hints    []string      `json:"hints,omitempty"`
	Reward   []Consequence `json:"reward,omitempty"`
}

var payloadKeys = map[string][]string{
	"combat":      {"enemies", "difficulty"},
	"skill_check": {"skill", "dc", "success", "failure"},
	"discovery":   {"text", "clue", "item"},
	"trap":        {"damage", "dc", "save"},
	"puzzle":      {"prompt", "solution", "hints", "reward"},
}

// Payload is the kind-specific data of an encounter or interaction.
// Exactly one typed field is set for a decoded payload; keys the typed
// payload does not know are kept in Extra.
type Payload struct {
	Combat     *CombatData
	SkillCheck *SkillCheckData
	Discovery  *DiscoveryData
	Trap       *TrapData
	Puzzle     *PuzzleData
	Extra      map[string]any
}

// Encounter is a scripted event placed in a scene.
type Encounter struct {
	ID            string
	Kind          EncounterKind
	TriggerChance float64
	Position      Position
	Data          Payload
}

type encounterWire struct {
	ID            string          `json:"id"`
	Kind          EncounterKind   `json:"type"`
	TriggerChance float64         `json:"triggerChance"`
	Position      Position        `json:"position"`
	Data          json.RawMessage `json:"data,omitempty"`
}

func (e *Encounter) UnmarshalJSON(data []byte) error {
	var wire encounterWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Kind {
	case EncounterCombat, EncounterSkillCheck, EncounterDiscovery, EncounterTrap:
	default:
		return fmt.Errorf("encounter %q: unknown type %q", wire.ID, wire.Kind)
	}
	payload, err := decodePayload(string(wire.Kind), wire.Data)
	if err != nil {
		return fmt.Errorf("encounter %q: %w", wire.ID, err)
	}
	*e = Encounter{
		ID:            wire.ID,
		Kind:          wire.Kind,
		TriggerChance: wire.TriggerChance,
		Position:      wire.Position,
		Data:          payload,
	}
	return nil
}

func (e Encounter) MarshalJSON() ([]byte, error) {
	raw, err := encodePayload(e.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encounterWire{
		ID:            e.ID,
		Kind:          e.Kind,
		TriggerChance: e.TriggerChance,
		Position:      e.Position,
		Data:          raw,
	})
}

// Interaction is a player-initiated activity placed in a scene.
type Interaction struct {
	Kind     InteractionKind
	Position Position
	Data     Payload
}

type interactionWire struct {
	Kind     InteractionKind `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func (i *Interaction) UnmarshalJSON(data []byte) error {
	var wire interactionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Kind {
	case InteractionSkillCheck, InteractionDiscovery, InteractionPuzzle:
	default:
		return fmt.Errorf("interaction: unknown type %q", wire.Kind)
	}
	payload, err := decodePayload(string(wire.Kind), wire.Data)
	if err != nil {
		return fmt.Errorf("interaction %s: %w", wire.Kind, err)
	}
	*i = Interaction{Kind: wire.Kind, Position: wire.Position, Data: payload}
	return nil
}

func (i Interaction) MarshalJSON() ([]byte, error) {
	raw, err := encodePayload(i.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(interactionWire{Kind: i.Kind, Position: i.Position, Data: raw})
}

func decodePayload(kind string, data json.RawMessage) (Payload, error) {
	var p Payload
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return p, nil
	}
	var bag map[string]any
	if err := json.Unmarshal(data, &bag); err != nil {
		return p, fmt.Errorf("data must be an object: %w", err)
	}

	var target any
	switch kind {
	case "combat":
		p.Combat = &CombatData{}
		target = p.Combat
	case "skill_check":
		p.SkillCheck = &SkillCheckData{}
		target = p.SkillCheck
	case "discovery":
		p.Discovery = &DiscoveryData{}
		target = p.Discovery
	case "trap":
		p.Trap = &TrapData{}
		target = p.Trap
	case "puzzle":
		p.Puzzle = &PuzzleData{}
		target = p.Puzzle
	}
	if err := json.Unmarshal(data, target); err != nil {
		return Payload{}, fmt.Errorf("%s data: %w", kind, err)
	}

	for _, key := range payloadKeys[kind] {
		delete(bag, key)
	}
	if len(bag) > 0 {
		p.Extra = bag
	}
	return p, nil
}

func encodePayload(p Payload) (json.RawMessage, error) {
	var typed any
	switch {
	case p.Combat != nil:
		typed = p.Combat
	case p.SkillCheck != nil:
		typed = p.SkillCheck
	case p.Discovery != nil:
		typed = p.Discovery
	case p.Trap != nil:
		typed = p.Trap
	case p.Puzzle != nil:
		typed = p.Puzzle
	}
	if typed == nil && len(p.Extra) == 0 {
		return nil, nil
	}

	merged := make(map[string]any, len(p.Extra))
	for k, v := range p.Extra {
		merged[k] = v
	}
	if typed != nil {
		raw, err := json.Marshal(typed)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

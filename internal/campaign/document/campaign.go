// Package document defines the immutable campaign description: scenes, NPCs,
// encounters and the transitions that connect scenes.
//
// A Campaign is produced by Decode (JSON or YAML) and must pass Validate
// before a session will use it. Nothing in this package mutates a Campaign
// after it has been decoded.
package document

// Difficulty grades a campaign for players choosing what to run.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// SceneType is the category tag of a scene.
type SceneType string

const (
	SceneTown        SceneType = "town"
	SceneExploration SceneType = "exploration"
	SceneCombat      SceneType = "combat"
	SceneDungeon     SceneType = "dungeon"
	SceneSocial      SceneType = "social"
	ScenePuzzle      SceneType = "puzzle"
)

// Trigger names the event that makes a transition traversable.
type Trigger string

const (
	TriggerAutomatic      Trigger = "automatic"
	TriggerQuestCompleted Trigger = "quest_completed"
	TriggerAreaExplored   Trigger = "area_explored"
	TriggerItemFound      Trigger = "item_found"
	TriggerChoiceMade     Trigger = "choice_made"
)

// RequirementType names a gate on a transition or dialogue choice.
type RequirementType string

const (
	RequireQuest        RequirementType = "has_quest"
	RequireItem         RequirementType = "has_item"
	RequireClue         RequirementType = "has_clue"
	RequireLevelMinimum RequirementType = "level_minimum"
)

// ConsequenceType names an effect applied to game state.
type ConsequenceType string

const (
	ConsequenceAddQuest           ConsequenceType = "add_quest"
	ConsequenceAddItem            ConsequenceType = "add_item"
	ConsequenceAddClue            ConsequenceType = "add_clue"
	ConsequenceRelationshipChange ConsequenceType = "relationship_change"
	ConsequenceAddGold            ConsequenceType = "add_gold"
	ConsequenceAddExperience      ConsequenceType = "add_experience"
)

// Position is a percentage offset inside the scene backdrop.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Campaign is a loaded adventure. Scenes are ordered; scenes[0] is where a
// freshly loaded campaign starts.
type Campaign struct {
	ID                string     `json:"campaignId"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Difficulty        Difficulty `json:"difficulty"`
	EstimatedDuration string     `json:"estimatedDuration"`
	PlayerLevels      [2]int     `json:"playerLevels"`
	Scenes            []Scene    `json:"scenes"`
	GlobalData        GlobalData `json:"globalData"`
}

// GlobalData is campaign-wide reference data.
type GlobalData struct {
	QuestItems        []string       `json:"questItems"`
	PartyLevel        int            `json:"partyLevel"`
	AvailableActions  []string       `json:"availableActions"`
	ExperienceRewards map[string]int `json:"experienceRewards,omitempty"`
}

// Scene is one location within a campaign.
type Scene struct {
	ID                   string                `json:"id"`
	Type                 SceneType             `json:"type"`
	Title                string                `json:"title"`
	Background           string                `json:"background"`
	Music                string                `json:"music,omitempty"`
	Description          string                `json:"description"`
	NPCs                 []NPC                 `json:"npcs,omitempty"`
	Encounters           []Encounter           `json:"encounters,omitempty"`
	Interactions         []Interaction         `json:"interactions,omitempty"`
	Transitions          []Transition          `json:"transitions"`
	RequiredItems        []string              `json:"requiredItems,omitempty"`
	CompletionConditions []CompletionCondition `json:"completionConditions,omitempty"`
}

// NPC returns the NPC with the given id.
func (s Scene) NPC(id string) (NPC, bool) {
	for _, npc := range s.NPCs {
		if npc.ID == id {
			return npc, true
		}
	}
	return NPC{}, false
}

// Transition is a directed edge to another scene of the same campaign.
type Transition struct {
	To           string        `json:"to"`
	Trigger      Trigger       `json:"trigger"`
	Position     Position      `json:"position"`
	Label        string        `json:"label"`
	Requirements []Requirement `json:"requirements,omitempty"`
}

// Requirement gates a transition or dialogue choice.
type Requirement struct {
	Type  RequirementType `json:"type"`
	Value Scalar          `json:"value"`
}

// Consequence is an effect applied when a choice is taken.
// Target names the NPC for relationship changes.
type Consequence struct {
	Type   ConsequenceType `json:"type"`
	Value  Scalar          `json:"value"`
	Target string          `json:"target,omitempty"`
}

// NPC is a character placed in a scene.
type NPC struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Position     Position     `json:"position"`
	Sprite       string       `json:"sprite"`
	Dialogue     DialogueTree `json:"dialogue"`
	Shop         *Shop        `json:"shop,omitempty"`
	QuestGiver   bool         `json:"questGiver,omitempty"`
	Relationship int          `json:"relationship"`
}

type DialogueTree struct {
	Greeting string         `json:"greeting"`
	Nodes    []DialogueNode `json:"nodes"`
	Farewell string         `json:"farewell,omitempty"`
}

// Choice returns the choice with the given id across all nodes.
func (d DialogueTree) Choice(id string) (DialogueChoice, bool) {
	for _, node := range d.Nodes {
		for _, choice := range node.Choices {
			if choice.ID == id {
				return choice, true
			}
		}
	}
	return DialogueChoice{}, false
}

type DialogueNode struct {
	ID           string           `json:"id"`
	Text         string           `json:"text"`
	Conditions   []Condition      `json:"conditions,omitempty"`
	Choices      []DialogueChoice `json:"choices"`
	Consequences []Consequence    `json:"consequences,omitempty"`
}

type DialogueChoice struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	NextNode     string        `json:"nextNode,omitempty"`
	Requirements []Requirement `json:"requirements,omitempty"`
	Consequences []Consequence `json:"consequences,omitempty"`
}

// Condition gates a dialogue node. Operator defaults to equality.
type Condition struct {
	Type     string `json:"type"`
	Target   string `json:"target"`
	Value    Scalar `json:"value"`
	Operator string `json:"operator,omitempty"`
}

type Shop struct {
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	BuybackRate float64    `json:"buybackRate"`
	Inventory   []ShopItem `json:"inventory"`
}

type ShopItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
	Rarity   string `json:"rarity"`
}

// CompletionCondition describes what finishes a scene.
type CompletionCondition struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Scene returns the scene with the given id.
func (c *Campaign) Scene(id string) (Scene, bool) {
	if c == nil {
		return Scene{}, false
	}
	for _, scene := range c.Scenes {
		if scene.ID == id {
			return scene, true
		}
	}
	return Scene{}, false
}

// Summary is the catalog listing entry for a campaign.
type Summary struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Difficulty        Difficulty `json:"difficulty"`
	EstimatedDuration string     `json:"estimatedDuration"`
	MinLevel          int        `json:"minLevel"`
	MaxLevel          int        `json:"maxLevel"`
	SceneCount        int        `json:"sceneCount"`
}

// Summarize builds the catalog entry for c.
func (c *Campaign) Summarize() Summary {
	return Summary{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		Difficulty:        c.Difficulty,
		EstimatedDuration: c.EstimatedDuration,
		MinLevel:          c.PlayerLevels[0],
		MaxLevel:          c.PlayerLevels[1],
		SceneCount:        len(c.Scenes),
	}
}

package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is an ordered list of steps loaded from a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scenario action or expectation.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs the Lua script at path and returns the Scenario
// it builds. The script must return the value created by Scenario.new.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	scenario, err := runScript(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

// LoadScenario runs a Lua script held in memory.
func LoadScenario(name, source string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadString(state, source); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	scenario, err := runScript(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = name
	}
	return scenario, nil
}

func runScript(state *lua.State) (*Scenario, error) {
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}
	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "load", Function: scenarioLoad},
	{Name: "transition", Function: scenarioTransition},
	{Name: "travel", Function: scenarioTravel},
	{Name: "explore", Function: scenarioExplore},
	{Name: "talk", Function: scenarioTalk},
	{Name: "clue", Function: scenarioClue},
	{Name: "relationship", Function: scenarioRelationship},
	{Name: "decide", Function: scenarioDecide},
	{Name: "wait", Function: scenarioWait},
	{Name: "patch", Function: scenarioPatch},
	{Name: "save", Function: scenarioSave},
	{Name: "restore", Function: scenarioRestore},
	{Name: "reset", Function: scenarioReset},
	{Name: "retry", Function: scenarioRetry},
	{Name: "expect", Function: scenarioExpect},
	{Name: "expect_exit", Function: scenarioExpectExit},
}

// scene:load("missing_merchant", {expect_error = "CAMPAIGN_NOT_FOUND"})
func scenarioLoad(state *lua.State) int {
	scenario := checkScenario(state)
	id := checkName(state, 2, "campaign id")
	data := optionalTable(state, 3)
	data["campaign"] = id
	appendStep(scenario, "load", data)
	return 0
}

func scenarioTransition(state *lua.State) int {
	scenario := checkScenario(state)
	id := checkName(state, 2, "scene id")
	data := optionalTable(state, 3)
	data["scene"] = id
	appendStep(scenario, "transition", data)
	return 0
}

func scenarioTravel(state *lua.State) int {
	scenario := checkScenario(state)
	id := checkName(state, 2, "scene id")
	data := optionalTable(state, 3)
	data["scene"] = id
	appendStep(scenario, "travel", data)
	return 0
}

func scenarioExplore(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "explore", optionalTable(state, 2))
	return 0
}

// scene:talk("captain_reyna", "accept_job")
func scenarioTalk(state *lua.State) int {
	scenario := checkScenario(state)
	npc := checkName(state, 2, "npc id")
	choice := checkName(state, 3, "choice id")
	data := optionalTable(state, 4)
	data["npc"] = npc
	data["choice"] = choice
	appendStep(scenario, "talk", data)
	return 0
}

func scenarioClue(state *lua.State) int {
	scenario := checkScenario(state)
	id := checkName(state, 2, "clue id")
	data := optionalTable(state, 3)
	data["clue"] = id
	appendStep(scenario, "clue", data)
	return 0
}

func scenarioRelationship(state *lua.State) int {
	scenario := checkScenario(state)
	npc := checkName(state, 2, "npc id")
	delta := lua.CheckInteger(state, 3)
	data := optionalTable(state, 4)
	data["npc"] = npc
	data["delta"] = delta
	appendStep(scenario, "relationship", data)
	return 0
}

func scenarioDecide(state *lua.State) int {
	scenario := checkScenario(state)
	decision := checkName(state, 2, "decision id")
	option := lua.CheckString(state, 3)
	data := optionalTable(state, 4)
	data["decision"] = decision
	data["option"] = option
	appendStep(scenario, "decide", data)
	return 0
}

func scenarioWait(state *lua.State) int {
	scenario := checkScenario(state)
	minutes := lua.CheckInteger(state, 2)
	data := optionalTable(state, 3)
	data["minutes"] = minutes
	appendStep(scenario, "wait", data)
	return 0
}

// scene:patch({inventory = {{id = "rope", name = "Rope", quantity = 1, type = "misc"}}})
func scenarioPatch(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(scenario, "patch", map[string]any{"patch": tableToMap(state, 2)})
	return 0
}

func scenarioSave(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "save", optionalTable(state, 2))
	return 0
}

func scenarioRestore(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "restore", optionalTable(state, 2))
	return 0
}

func scenarioReset(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "reset", nil)
	return 0
}

func scenarioRetry(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "retry", optionalTable(state, 2))
	return 0
}

// scene:expect({state = "active", scene = "forest_road", clues = {"cart_tracks"}})
func scenarioExpect(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if len(data) == 0 {
		lua.Errorf(state, "expect needs at least one field")
	}
	appendStep(scenario, "expect", data)
	return 0
}

// scene:expect_exit("town_square", {traversable = false})
func scenarioExpectExit(state *lua.State) int {
	scenario := checkScenario(state)
	to := checkName(state, 2, "exit target")
	data := optionalTable(state, 3)
	data["to"] = to
	appendStep(scenario, "expect_exit", data)
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func checkName(state *lua.State, index int, what string) string {
	value := lua.OptString(state, index, "")
	if strings.TrimSpace(value) == "" {
		lua.Errorf(state, "%s is required", what)
	}
	return value
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo returns a []any for sequences and a map for everything else.
func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}

package scenario

// scenarioState carries what earlier steps observed into later ones.
type scenarioState struct {
	lastErr  error
	saved    bool
	restored bool
}

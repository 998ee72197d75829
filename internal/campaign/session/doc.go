// Package session orchestrates one player's campaign: loading documents,
// moving between scenes, tracking progress and checkpointing game state.
//
// A Session moves between four states. Empty has no campaign. Loading has a
// fetch in flight. Active has a campaign and a current scene. Error keeps the
// last good campaign and scene on display alongside the failure that caused
// it. Only the most recently issued load may change the session; older loads
// are cancelled and their results dropped.
package session

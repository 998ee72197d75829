// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Campaign document errors
	CodeCampaignNotFound  Code = "CAMPAIGN_NOT_FOUND"
	CodeCampaignMalformed Code = "CAMPAIGN_MALFORMED"

	// Navigation errors
	CodeSceneNotFound       Code = "SCENE_NOT_FOUND"
	CodeTransitionBlocked   Code = "TRANSITION_BLOCKED"
	CodeSessionInvalidState Code = "SESSION_INVALID_STATE"

	// Progress errors
	CodeInvalidTimeDelta Code = "INVALID_TIME_DELTA"

	// Persistence errors
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"

	// Superseded marks a load result dropped because a newer load was issued.
	// It is never shown to players.
	CodeSuperseded Code = "SUPERSEDED"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures, bad input
	case CodeInvalidArgument,
		CodeInvalidTimeDelta:
		return http.StatusBadRequest

	// NotFound - resource doesn't exist
	case CodeCampaignNotFound,
		CodeSceneNotFound:
		return http.StatusNotFound

	// Conflict - state doesn't allow operation
	case CodeSessionInvalidState,
		CodeTransitionBlocked,
		CodeSuperseded:
		return http.StatusConflict

	// UnprocessableEntity - the document exists but cannot be used
	case CodeCampaignMalformed:
		return http.StatusUnprocessableEntity

	// ServiceUnavailable - storage backend failed
	case CodePersistenceFailure:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

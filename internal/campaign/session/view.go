package session

import (
	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

// State is the session lifecycle state.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateActive  State = "active"
	StateError   State = "error"
)

// ErrorView describes the last failure for display.
type ErrorView struct {
	Code     apperrors.Code    `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Localized renders the error for a player in locale.
func (e *ErrorView) Localized(locale string) string {
	if e == nil {
		return ""
	}
	return apperrors.WithMetadata(e.Code, e.Message, e.Metadata).Localized(locale)
}

func newErrorView(err error) *ErrorView {
	if err == nil {
		return nil
	}
	view := &ErrorView{Code: apperrors.CodeOf(err), Message: err.Error()}
	if domainErr, ok := apperrors.As(err); ok && len(domainErr.Metadata) > 0 {
		view.Metadata = make(map[string]string, len(domainErr.Metadata))
		for k, v := range domainErr.Metadata {
			view.Metadata[k] = v
		}
	}
	return view
}

// View is a read-only copy of the session. Campaign is shared and must not
// be modified; everything else belongs to the caller.
type View struct {
	SessionID string              `json:"sessionId"`
	Version   uint64              `json:"version"`
	State     State               `json:"state"`
	Loading   bool                `json:"loading"`
	Campaign  *document.Campaign  `json:"campaign,omitempty"`
	Scene     *document.Scene     `json:"scene,omitempty"`
	GameState gamestate.GameState `json:"gameState"`
	Error     *ErrorView          `json:"error,omitempty"`
}

// TransitionOption is an exit from the current scene and whether it can be
// taken right now.
type TransitionOption struct {
	Transition  document.Transition `json:"transition"`
	Title       string              `json:"title"`
	Traversable bool                `json:"traversable"`
	Reason      string              `json:"reason,omitempty"`
}

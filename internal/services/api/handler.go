// Package api serves one campaign session over HTTP/JSON with a read-only
// HTML viewer, streams its views over a websocket and reports health over
// gRPC.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/campaign/catalog"
	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"github.com/louisbranch/campaign-viewer/internal/platform/i18n"
	"github.com/louisbranch/campaign-viewer/internal/platform/timeouts"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

// maxBodyBytes caps request bodies. Game state patches are the largest.
const maxBodyBytes = 1 << 20

// Option configures the handler.
type Option func(*handler)

// WithPingInterval overrides the websocket keepalive interval.
func WithPingInterval(d time.Duration) Option {
	return func(h *handler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

type handler struct {
	session      *session.Session
	campaigns    storage.CampaignLister
	pingInterval time.Duration
	logger       *log.Logger
}

// NewHandler builds the API routes over sess. campaigns may be nil, in which
// case the catalog is empty.
func NewHandler(sess *session.Session, campaigns storage.CampaignLister, opts ...Option) (http.Handler, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	h := &handler{
		session:      sess,
		campaigns:    campaigns,
		pingInterval: timeouts.StreamPing,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.page)
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /api/campaigns", h.listCampaigns)
	mux.HandleFunc("GET /api/session", h.view)
	mux.HandleFunc("GET /api/session/transitions", h.transitions)
	mux.Handle("GET /api/session/stream", h.stream())
	mux.HandleFunc("POST /api/session/load", h.load)
	mux.HandleFunc("POST /api/session/transition", h.transition)
	mux.HandleFunc("POST /api/session/travel", h.travel)
	mux.HandleFunc("PATCH /api/session/gamestate", h.patchGameState)
	mux.HandleFunc("POST /api/session/clues", h.recordClue)
	mux.HandleFunc("POST /api/session/relationships", h.adjustRelationship)
	mux.HandleFunc("POST /api/session/choices", h.recordChoice)
	mux.HandleFunc("POST /api/session/dialogue", h.choose)
	mux.HandleFunc("POST /api/session/time", h.advanceTime)
	mux.HandleFunc("POST /api/session/explore", h.explore)
	mux.HandleFunc("POST /api/session/save", h.save)
	mux.HandleFunc("POST /api/session/restore", h.restore)
	mux.HandleFunc("POST /api/session/reset", h.reset)
	mux.HandleFunc("POST /api/session/retry", h.retry)
	return mux, nil
}

type errorResponse struct {
	Code     apperrors.Code    `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := catalog.Request{
		Filter:    query.Get("filter"),
		PageToken: query.Get("page_token"),
	}
	if raw := query.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, invalidArgument("page_size"))
			return
		}
		req.PageSize = size
	}
	list, err := h.summaries(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := catalog.List(list, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) summaries(r *http.Request) ([]document.Summary, error) {
	if h.campaigns == nil {
		return nil, nil
	}
	return h.campaigns.ListCampaigns(r.Context())
}

func (h *handler) view(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.View())
}

func (h *handler) transitions(w http.ResponseWriter, r *http.Request) {
	options, err := h.session.AvailableTransitions()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": options})
}

type loadRequest struct {
	CampaignID string `json:"campaignId"`
}

func (h *handler) load(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CampaignID == "" {
		h.writeError(w, r, invalidArgument("campaignId"))
		return
	}
	h.respond(w, r, h.session.LoadCampaign(r.Context(), req.CampaignID))
}

type sceneRequest struct {
	SceneID string `json:"sceneId"`
}

func (h *handler) transition(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.session.TransitionToScene(r.Context(), req.SceneID))
}

func (h *handler) travel(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.session.Travel(r.Context(), req.SceneID))
}

func (h *handler) patchGameState(w http.ResponseWriter, r *http.Request) {
	var patch gamestate.Patch
	if !h.decode(w, r, &patch) {
		return
	}
	h.session.UpdateGameState(patch)
	h.respond(w, r, nil)
}

type clueRequest struct {
	ClueID string `json:"clueId"`
}

func (h *handler) recordClue(w http.ResponseWriter, r *http.Request) {
	var req clueRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.session.RecordClue(req.ClueID))
}

type relationshipRequest struct {
	NPCID string `json:"npcId"`
	Delta int    `json:"delta"`
}

func (h *handler) adjustRelationship(w http.ResponseWriter, r *http.Request) {
	var req relationshipRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.session.AdjustRelationship(req.NPCID, req.Delta))
}

type choiceRequest struct {
	DecisionID string `json:"decisionId"`
	OptionID   string `json:"optionId"`
}

func (h *handler) recordChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.session.RecordChoice(req.DecisionID, req.OptionID))
}

type dialogueRequest struct {
	NPCID    string `json:"npcId"`
	ChoiceID string `json:"choiceId"`
}

func (h *handler) choose(w http.ResponseWriter, r *http.Request) {
	var req dialogueRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.session.Choose(req.NPCID, req.ChoiceID))
}

type timeRequest struct {
	Minutes int `json:"minutes"`
}

func (h *handler) advanceTime(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.session.AdvanceTime(req.Minutes))
}

func (h *handler) explore(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.session.Explore())
}

func (h *handler) save(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"saved": h.session.SaveProgress(r.Context())})
}

type restoreResponse struct {
	Restored bool         `json:"restored"`
	View     session.View `json:"view"`
}

func (h *handler) restore(w http.ResponseWriter, r *http.Request) {
	restored, err := h.session.LoadProgress(r.Context())
	if err != nil && !restored {
		h.writeError(w, r, err)
		return
	}
	// A restored campaign that fails to load is reported through the view.
	writeJSON(w, http.StatusOK, restoreResponse{Restored: restored, View: h.session.View()})
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	h.session.ResetCampaign()
	h.respond(w, r, nil)
}

func (h *handler) retry(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.session.Retry(r.Context()))
}

// respond writes err, or the current view when err is nil.
func (h *handler) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.View())
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		h.writeError(w, r, apperrors.WrapWithMetadata(
			apperrors.CodeInvalidArgument,
			"invalid request body",
			map[string]string{"Field": "body"},
			err,
		))
		return false
	}
	return true
}

// writeError renders err with the status of its code, localized for the
// request's Accept-Language.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		h.logger.Printf("api %s %s: %v", r.Method, r.URL.Path, err)
	}
	locale := i18n.ResolveAcceptLanguage(r.Header.Get("Accept-Language")).String()
	resp := errorResponse{
		Code:    code,
		Message: apperrors.Localize(err, locale),
	}
	if domainErr, ok := apperrors.As(err); ok {
		resp.Metadata = domainErr.Metadata
	}
	writeJSON(w, code.HTTPStatus(), resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func invalidArgument(field string) error {
	return apperrors.WithMetadata(
		apperrors.CodeInvalidArgument,
		"invalid "+field,
		map[string]string{"Field": field},
	)
}
